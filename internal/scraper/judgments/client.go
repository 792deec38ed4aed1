package judgments

import (
	"context"

	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// Query is a keyword search
type Query struct {
	Text string `validate:"required"`
	// SearchOpt is PHRASE, ANY or ALL; empty means PHRASE
	SearchOpt string `validate:"omitempty,oneof=PHRASE ANY ALL"`
	// CourtType is CourtTypeHighCourt or CourtTypeSCR; empty means High Courts
	CourtType string `validate:"omitempty,oneof=2 3"`
	// ESCR restricts results to the electronic Supreme Court Reports
	ESCR bool
}

type captchaCheck struct {
	Status   string `json:"captcha_status"`
	AppToken string `json:"app_token"`
	ErrorMsg string `json:"errormsg"`
}

// Client runs judgment searches. Not safe for concurrent use.
type Client struct {
	http      *transport.Client
	session   *scraper.Session
	endpoints Endpoints
	logger    *logger.Logger
}

// New creates a client against the live portal
func New(http *transport.Client, solver captcha.Solver, maxAttempts int, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("portal", "judgments")
	return &Client{
		http:      http,
		session:   scraper.NewSession(http, solver, maxAttempts, log),
		endpoints: NewEndpoints(DefaultBaseURL),
		logger:    log,
	}
}

// WithBaseURL points the client at another deployment of the portal
func (c *Client) WithBaseURL(base string) *Client {
	c.endpoints = NewEndpoints(base)
	return c
}

// Search validates a CAPTCHA, then loads the results page with the token the
// portal issued for it
func (c *Client) Search(ctx context.Context, q Query) (models.SearchResult[models.JudgmentResult], error) {
	var empty models.SearchResult[models.JudgmentResult]
	if err := scraper.ValidateQuery(q); err != nil {
		return empty, err
	}
	opt := q.SearchOpt
	if opt == "" {
		opt = SearchPhrase
	}
	courtType := q.CourtType
	if courtType == "" {
		courtType = CourtTypeHighCourt
	}
	escr := ""
	if q.ESCR {
		escr = "Y"
	}

	c.logger.Info("Searching judgments", "search_opt", opt, "court_type", courtType)

	var token string
	out, err := c.session.Run(ctx, scraper.Exchange{
		Operation:    "judgments.search",
		LandingURL:   c.endpoints.MainPage,
		ChallengeURL: c.endpoints.Captcha,
		Submit: func(ctx context.Context, answer string) (*transport.Response, error) {
			return c.http.Post(ctx, c.endpoints.CheckCaptcha, transport.OrderedFormBody(checkCaptchaForm(answer, q.Text, opt)...))
		},
		Rejected: func(resp *transport.Response) bool {
			var check captchaCheck
			if err := resp.JSON(&check); err != nil {
				c.logger.Warn("CAPTCHA check returned non-JSON", "error", err)
				return true
			}
			if check.Status != "Y" {
				c.logger.Warn("CAPTCHA failed", "message", check.ErrorMsg)
				return true
			}
			token = check.AppToken
			return false
		},
	})
	if err != nil {
		return empty, err
	}

	resp, err := c.http.Get(ctx, c.endpoints.Results,
		transport.WithQuery(resultsParams(q.Text, out.Answer, opt, courtType, escr, token)))
	if err != nil {
		return empty, err
	}

	result := ParseSearch(resp.Text(), c.endpoints.Base, 1)
	c.logger.Info("Parsed judgment results", "count", len(result.Items), "total", result.TotalCount)
	return result, nil
}

// DownloadPDF fills j.PDFBytes. A judgment without a link yields
// scraper.ErrNoPDF.
func (c *Client) DownloadPDF(ctx context.Context, j *models.JudgmentResult) error {
	if j.PDFURL == "" {
		c.logger.Warn("No PDF URL for judgment", "title", j.Title)
		return scraper.ErrNoPDF
	}
	data, err := c.http.GetBytes(ctx, j.PDFURL)
	if err != nil {
		return err
	}
	j.PDFBytes = data
	return nil
}
