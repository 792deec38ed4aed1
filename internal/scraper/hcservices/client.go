package hcservices

import (
	"context"
	"strings"
	"time"

	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// DefaultBench is the principal bench code
const DefaultBench = "1"

// CaseQuery identifies a case by its registration number
type CaseQuery struct {
	// Bench is a code from ListBenches; empty means the principal bench
	Bench string `validate:"omitempty,numeric"`
	// CaseType is a numeric code from ListCaseTypes
	CaseType   string `validate:"required"`
	CaseNumber string `validate:"required"`
	Year       string `validate:"required,len=4,numeric"`
}

// PartyQuery searches by petitioner or respondent name
type PartyQuery struct {
	Bench     string `validate:"omitempty,numeric"`
	PartyName string `validate:"required,min=3"`
	// Year is mandatory on the portal
	Year         string `validate:"required,len=4,numeric"`
	StatusFilter string `validate:"omitempty,oneof=Pending Disposed Both"`
}

// CauseListQuery selects one day's cause list. A zero Date means today.
type CauseListQuery struct {
	Bench    string `validate:"omitempty,numeric"`
	Criminal bool
	Date     time.Time
}

// Client runs HC Services queries. It shares one cookie jar across calls, so
// independent concurrent searches need separate clients.
type Client struct {
	http      *transport.Client
	session   *scraper.Session
	endpoints Endpoints
	logger    *logger.Logger
	now       func() time.Time
}

// New creates a client against the live portal
func New(http *transport.Client, solver captcha.Solver, maxAttempts int, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("portal", "hcservices")
	return &Client{
		http:      http,
		session:   scraper.NewSession(http, solver, maxAttempts, log),
		endpoints: NewEndpoints(DefaultBaseURL),
		logger:    log,
		now:       time.Now,
	}
}

// WithBaseURL points the client at another deployment of the portal
func (c *Client) WithBaseURL(base string) *Client {
	c.endpoints = NewEndpoints(base)
	return c
}

// Endpoints returns the URLs the client talks to
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// Session exposes the underlying session runner for diagnostics
func (c *Client) Session() *scraper.Session {
	return c.session
}

func (c *Client) exchange(op, url string, form func(answer string) []string) scraper.Exchange {
	referer := transport.WithReferer(c.endpoints.MainPage)
	return scraper.Exchange{
		Operation:        "hcservices." + op,
		LandingURL:       c.endpoints.MainPage,
		LandingOptions:   []transport.RequestOption{transport.WithReferer(c.endpoints.Base + "/")},
		ChallengeURL:     c.endpoints.Captcha,
		ChallengeOptions: []transport.RequestOption{referer},
		Submit: func(ctx context.Context, answer string) (*transport.Response, error) {
			return c.http.Post(ctx, url, transport.OrderedFormBody(form(answer)...), referer)
		},
		Rejected: rejected,
	}
}

// rejected applies the same test as the case status parser, so a refused
// answer always restarts the session rather than surfacing from parsing
func rejected(resp *transport.Response) bool {
	text := scraper.StripBOM(resp.Text())
	if strings.Contains(text, "Invalid Captcha") {
		return true
	}
	env, ok := decodeEnvelope(text)
	if !ok {
		return false
	}
	_, refused := env.challengeRejection()
	return refused
}

func bench(code string) string {
	if code == "" {
		return DefaultBench
	}
	return code
}

// CaseStatus looks up a case by type, number and year
func (c *Client) CaseStatus(ctx context.Context, court models.Court, q CaseQuery) ([]models.CaseInfo, error) {
	if err := c.check(court, q); err != nil {
		return nil, err
	}
	c.logger.Info("Searching case status", "court", court.Code, "case_type", q.CaseType, "case_number", q.CaseNumber, "year", q.Year)

	out, err := c.session.Run(ctx, c.exchange("case_status", c.endpoints.ShowRecords, func(answer string) []string {
		return caseStatusForm(court.StateCode, bench(q.Bench), q.CaseType, q.CaseNumber, q.Year, answer)
	}))
	if err != nil {
		return nil, err
	}
	return c.caseResults(court, out.Response)
}

// CaseStatusByParty searches cases by party name within a registration year
func (c *Client) CaseStatusByParty(ctx context.Context, court models.Court, q PartyQuery) ([]models.CaseInfo, error) {
	if err := c.check(court, q); err != nil {
		return nil, err
	}
	filter := q.StatusFilter
	if filter == "" {
		filter = "Both"
	}
	c.logger.Info("Searching case status by party", "court", court.Code, "year", q.Year, "filter", filter)

	out, err := c.session.Run(ctx, c.exchange("case_status_by_party", c.endpoints.ShowRecords, func(answer string) []string {
		return partyForm(court.StateCode, bench(q.Bench), q.PartyName, q.Year, filter, answer)
	}))
	if err != nil {
		return nil, err
	}
	return c.caseResults(court, out.Response)
}

func (c *Client) caseResults(court models.Court, resp *transport.Response) ([]models.CaseInfo, error) {
	results, err := ParseCaseStatus(resp.Text())
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].CourtName = court.Name
	}
	c.logger.Info("Parsed case status records", "court", court.Code, "count", len(results))
	return results, nil
}

// CourtOrders lists the orders issued in a case
func (c *Client) CourtOrders(ctx context.Context, court models.Court, q CaseQuery) ([]models.CaseOrder, error) {
	if err := c.check(court, q); err != nil {
		return nil, err
	}
	c.logger.Info("Fetching court orders", "court", court.Code, "case_type", q.CaseType, "case_number", q.CaseNumber, "year", q.Year)

	out, err := c.session.Run(ctx, c.exchange("court_orders", c.endpoints.ShowRecords, func(answer string) []string {
		return ordersForm(court.StateCode, bench(q.Bench), q.CaseType, q.CaseNumber, q.Year, answer)
	}))
	if err != nil {
		return nil, err
	}
	return ParseOrders(out.Response.Text(), c.endpoints.Base), nil
}

// CauseList fetches the per-bench cause list PDFs for one day
func (c *Client) CauseList(ctx context.Context, court models.Court, q CauseListQuery) ([]models.CauseListPDF, error) {
	if err := c.check(court, q); err != nil {
		return nil, err
	}

	today := dateOnly(c.now())
	day := today
	if !q.Date.IsZero() {
		day = dateOnly(q.Date)
	}
	prevDays := "0"
	if day.Before(today) {
		prevDays = "1"
	}
	flag := civilFlag
	if q.Criminal {
		flag = criminalFlag
	}
	date := day.Format(scraper.PortalDateLayout)
	c.logger.Info("Fetching cause list", "court", court.Code, "date", date, "flag", flag)

	out, err := c.session.Run(ctx, c.exchange("cause_list", c.endpoints.IndexQuery, func(answer string) []string {
		return causeListForm(court.StateCode, bench(q.Bench), flag, prevDays, date, answer)
	}))
	if err != nil {
		return nil, err
	}
	return ParseCauseList(out.Response.Text(), c.endpoints.Base), nil
}

// ListBenches enumerates the benches of a High Court
func (c *Client) ListBenches(ctx context.Context, court models.Court) ([]models.Option, error) {
	if err := scraper.RequireCourtType(court, models.HighCourt); err != nil {
		return nil, err
	}
	return c.listing(ctx, c.endpoints.IndexQuery, benchForm(court.StateCode))
}

// ListCaseTypes enumerates the case type codes accepted by a bench
func (c *Client) ListCaseTypes(ctx context.Context, court models.Court, benchCode string) ([]models.Option, error) {
	if err := scraper.RequireCourtType(court, models.HighCourt); err != nil {
		return nil, err
	}
	return c.listing(ctx, c.endpoints.CaseTypes, caseTypeForm(court.StateCode, bench(benchCode)))
}

func (c *Client) listing(ctx context.Context, url string, form []string) ([]models.Option, error) {
	if err := c.session.Establish(ctx, c.endpoints.MainPage, transport.WithReferer(c.endpoints.Base+"/")); err != nil {
		return nil, err
	}
	resp, err := c.http.Post(ctx, url, transport.OrderedFormBody(form...), transport.WithReferer(c.endpoints.MainPage))
	if err != nil {
		return nil, err
	}
	return ParseListing(resp.Text()), nil
}

// DownloadOrderPDF fetches an order PDF by the URL returned from CourtOrders
func (c *Client) DownloadOrderPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	return c.http.GetBytes(ctx, pdfURL, transport.WithReferer(c.endpoints.MainPage))
}

func (c *Client) check(court models.Court, q any) error {
	if err := scraper.RequireCourtType(court, models.HighCourt); err != nil {
		return err
	}
	return scraper.ValidateQuery(q)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
