// Package sci lists judgments published on the Supreme Court of India site.
// The site needs no CAPTCHA.
package sci

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// DefaultBaseURL is the live site root
const DefaultBaseURL = "https://main.sci.gov.in"

// PartyQuery names a petitioner or respondent
type PartyQuery struct {
	Name string `validate:"required,min=3"`
}

// Client queries the Supreme Court judgment listing
type Client struct {
	http   *transport.Client
	base   string
	logger *logger.Logger
}

// New creates a client against the live site
func New(http *transport.Client, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http:   http,
		base:   DefaultBaseURL,
		logger: log.With("portal", "sci"),
	}
}

// WithBaseURL points the client at another host
func (c *Client) WithBaseURL(base string) *Client {
	c.base = strings.TrimSuffix(base, "/")
	return c
}

func (c *Client) judgmentsURL() string {
	return c.base + "/judgments"
}

// SearchByYear lists judgments delivered in year, or in one month of it when
// month is between 1 and 12
func (c *Client) SearchByYear(ctx context.Context, year int, month time.Month) ([]models.JudgmentResult, error) {
	if year < 1950 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", scraper.ErrInvalidQuery, year)
	}
	if month < 0 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", scraper.ErrInvalidQuery, month)
	}
	from, to := yearRange(year, month)
	c.logger.Info("Searching SCI judgments by date", "from", from, "to", to)
	return c.search(ctx, "JBJfrom", from, "JBJto", to, "joession", "")
}

// SearchByParty lists judgments naming a petitioner or respondent
func (c *Client) SearchByParty(ctx context.Context, q PartyQuery) ([]models.JudgmentResult, error) {
	q.Name = strings.TrimSpace(q.Name)
	if err := scraper.ValidateQuery(q); err != nil {
		return nil, err
	}
	c.logger.Info("Searching SCI judgments by party")
	return c.search(ctx, "JBJfrom", "", "JBJto", "", "joession", "", "party_name", q.Name)
}

func (c *Client) search(ctx context.Context, form ...string) ([]models.JudgmentResult, error) {
	resp, err := c.http.Post(ctx, c.judgmentsURL(), transport.OrderedFormBody(form...))
	if err != nil {
		return nil, err
	}
	results := ParseJudgmentList(resp.Text(), c.base)
	c.logger.Info("Parsed SCI judgments", "count", len(results))
	return results, nil
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

// yearRange returns the DD-MM-YYYY bounds for a year or a single month.
// Month ranges end on the real last day of the month.
func yearRange(year int, month time.Month) (string, string) {
	if month == 0 {
		return fmt.Sprintf("01-01-%d", year), fmt.Sprintf("31-12-%d", year)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(scraper.PortalDateLayout), last.Format(scraper.PortalDateLayout)
}
