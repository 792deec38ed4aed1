package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

var tracer = otel.Tracer("internal/transport")

var defaultHeaders = map[string]string{
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"Accept-Language":  "en-US,en;q=0.9",
	"X-Requested-With": "XMLHttpRequest",
}

// Client issues rate limited, retried HTTP requests against the court
// portals. Cookies persist across calls so a Client carries one portal
// session at a time; use separate clients for independent concurrent work.
type Client struct {
	delay      time.Duration
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	userAgent  string
	logger     *logger.Logger

	mu   sync.Mutex
	http *resty.Client
}

// New creates a client from the transport settings in cfg. The underlying
// connection pool is created on first use.
func New(cfg *config.Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		delay:      cfg.RequestDelay,
		timeout:    cfg.RequestTimeout,
		maxRetries: retries,
		backoff:    cfg.RetryBackoff,
		userAgent:  cfg.UserAgent,
		logger:     log.With("component", "transport"),
	}
}

// Open acquires the connection pool. Calling it is optional.
func (c *Client) Open() error {
	_, err := c.ensure()
	return err
}

// Close releases the connection pool and drops the session cookies.
// It is safe to call more than once; a closed client reopens on next use.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http == nil {
		return nil
	}
	c.http.GetClient().CloseIdleConnections()
	c.http = nil
	return nil
}

// ResetSession discards all cookies so the next request starts a new
// server-side session.
func (c *Client) ResetSession() error {
	hc, err := c.ensure()
	if err != nil {
		return err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	hc.SetCookieJar(jar)
	return nil
}

func (c *Client) ensure() (*resty.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.http != nil {
		return c.http, nil
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	hc := resty.New()
	hc.SetTimeout(c.timeout)
	hc.SetCookieJar(jar)
	// Portal hosts routinely serve expired or mismatched certificates.
	// Verification is relaxed for these clients only.
	hc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	hc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	hc.SetHeader("User-Agent", c.userAgent)
	hc.SetHeaders(defaultHeaders)

	c.http = hc
	return hc, nil
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, opts)
}

// Post issues a POST request with the given body
func (c *Client) Post(ctx context.Context, url string, body Body, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, body, opts)
}

// GetBytes fetches url and returns the raw body
func (c *Client) GetBytes(ctx context.Context, url string, opts ...RequestOption) ([]byte, error) {
	resp, err := c.Get(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetText fetches url and returns the decoded body
func (c *Client) GetText(ctx context.Context, url string, opts ...RequestOption) (string, error) {
	resp, err := c.Get(ctx, url, opts...)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *Client) do(ctx context.Context, method, url string, body Body, opts []RequestOption) (*Response, error) {
	ctx, span := tracer.Start(ctx, "transport."+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", url),
	)

	hc, err := c.ensure()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := sleep(ctx, c.delay); err != nil {
		return nil, &Error{Method: method, URL: url, Err: err}
	}

	var lastErr error
	attempt := 0
	for attempt < c.maxRetries {
		req := hc.R().SetContext(ctx)
		for _, opt := range opts {
			opt(req)
		}
		if body != nil {
			body.apply(req)
		}

		start := time.Now()
		resp, err := req.Execute(method, url)
		attempt++

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, &Error{Method: method, URL: url, Attempts: attempt, Err: ctx.Err()}
			}
			lastErr = err
		case resp.StatusCode() >= http.StatusBadRequest:
			lastErr = &StatusError{Code: resp.StatusCode(), Status: resp.Status()}
		default:
			c.logger.Debug("Request completed",
				"method", method,
				"url", url,
				"status", resp.StatusCode(),
				"latency", time.Since(start).String(),
			)
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
			return newResponse(resp), nil
		}

		if attempt >= c.maxRetries {
			break
		}

		wait := time.Duration(attempt) * c.backoff
		c.logger.Warn("Request failed, retrying",
			"method", method,
			"url", url,
			"attempt", attempt,
			"wait", wait.String(),
			"error", lastErr,
		)
		if err := sleep(ctx, wait); err != nil {
			return nil, &Error{Method: method, URL: url, Attempts: attempt, Err: err}
		}
	}

	terr := &Error{Method: method, URL: url, Attempts: attempt, Err: lastErr}
	span.RecordError(terr)
	span.SetStatus(codes.Error, terr.Error())
	c.logger.Error("Request failed", "method", method, "url", url, "attempts", attempt, "error", lastErr)
	return nil, terr
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
