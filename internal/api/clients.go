package api

import (
	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/hcservices"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/judgments"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/sci"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// Clients builds a fresh portal client, with its own cookie jar, for every
// request so concurrent requests never share a portal session
type Clients struct {
	cfg    *config.Config
	solver captcha.Solver
	logger *logger.Logger

	// Base URL overrides; empty means the live portal
	HCServicesURL string
	JudgmentsURL  string
	SCIURL        string
}

func NewClients(cfg *config.Config, solver captcha.Solver, log *logger.Logger) *Clients {
	return &Clients{cfg: cfg, solver: solver, logger: log}
}

// Each constructor returns the client and a func releasing its connections

func (c *Clients) HCServices() (*hcservices.Client, func()) {
	http := transport.New(c.cfg, c.logger)
	client := hcservices.New(http, c.solver, c.cfg.CaptchaAttempts, c.logger)
	if c.HCServicesURL != "" {
		client.WithBaseURL(c.HCServicesURL)
	}
	return client, func() { http.Close() }
}

func (c *Clients) Judgments() (*judgments.Client, func()) {
	http := transport.New(c.cfg, c.logger)
	client := judgments.New(http, c.solver, c.cfg.CaptchaAttempts, c.logger)
	if c.JudgmentsURL != "" {
		client.WithBaseURL(c.JudgmentsURL)
	}
	return client, func() { http.Close() }
}

func (c *Clients) SCI() (*sci.Client, func()) {
	http := transport.New(c.cfg, c.logger)
	client := sci.New(http, c.logger)
	if c.SCIURL != "" {
		client.WithBaseURL(c.SCIURL)
	}
	return client, func() { http.Close() }
}

// Downloader fetches order PDFs into the configured PDF directory
func (c *Clients) Downloader() (*scraper.PDFDownloader, func()) {
	http := transport.New(c.cfg, c.logger)
	return scraper.NewPDFDownloader(http, c.logger, c.cfg.PDFDir), func() { http.Close() }
}
