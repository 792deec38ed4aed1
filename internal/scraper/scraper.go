package scraper

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

var tracer = otel.Tracer("internal/scraper")

// DefaultMaxAttempts bounds how many fresh sessions a challenge may consume
const DefaultMaxAttempts = 3

// State is a step of the portal session protocol
type State int

const (
	Unstarted State = iota
	SessionEstablished
	ChallengeFetched
	Accepted
	Rejected
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case SessionEstablished:
		return "session_established"
	case ChallengeFetched:
		return "challenge_fetched"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Exchange describes one challenge-gated request against a portal
type Exchange struct {
	// Operation names the exchange in logs and traces
	Operation string

	LandingURL       string
	LandingOptions   []transport.RequestOption
	ChallengeURL     string
	ChallengeOptions []transport.RequestOption

	// Submit sends the answered query in the current session
	Submit func(ctx context.Context, answer string) (*transport.Response, error)
	// Rejected inspects the submit response for the portal's rejection
	// marker. It runs before any parsing.
	Rejected func(resp *transport.Response) bool
}

// Outcome is the result of an accepted exchange
type Outcome struct {
	Answer   string
	Response *transport.Response
	Attempts int
}

// Session drives the session, challenge and submit sequence over one
// transport client. It is not safe for concurrent use.
type Session struct {
	http        *transport.Client
	solver      captcha.Solver
	maxAttempts int
	logger      *logger.Logger
	observer    func(attempt int, state State)
}

// NewSession creates a session runner. maxAttempts below 1 means
// DefaultMaxAttempts.
func NewSession(http *transport.Client, solver captcha.Solver, maxAttempts int, log *logger.Logger) *Session {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		http:        http,
		solver:      solver,
		maxAttempts: maxAttempts,
		logger:      log,
	}
}

// OnTransition registers fn to be called on every state change
func (s *Session) OnTransition(fn func(attempt int, state State)) {
	s.observer = fn
}

func (s *Session) transition(attempt int, state State) {
	if s.observer != nil {
		s.observer(attempt, state)
	}
}

// Establish starts a fresh server-side session by loading the landing page.
// Operations that need no challenge call this alone.
func (s *Session) Establish(ctx context.Context, landingURL string, opts ...transport.RequestOption) error {
	return s.establish(ctx, 1, landingURL, opts)
}

func (s *Session) establish(ctx context.Context, attempt int, landingURL string, opts []transport.RequestOption) error {
	s.transition(attempt, Unstarted)
	if err := s.http.ResetSession(); err != nil {
		return err
	}
	if _, err := s.http.Get(ctx, landingURL, opts...); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}
	s.transition(attempt, SessionEstablished)
	return nil
}

// Run performs ex, discarding the whole session and starting over whenever
// the portal rejects the answer. Transport and solver failures end the run
// immediately.
func (s *Session) Run(ctx context.Context, ex Exchange) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "scraper.Session.Run")
	defer span.End()
	span.SetAttributes(attribute.String("operation", ex.Operation))

	log := s.logger.With("operation", ex.Operation)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			log.Info("Challenge rejected, starting new session", "attempt", attempt, "max_attempts", s.maxAttempts)
		}

		if err := s.establish(ctx, attempt, ex.LandingURL, ex.LandingOptions); err != nil {
			return nil, s.fail(span, err)
		}

		img, err := s.http.GetBytes(ctx, ex.ChallengeURL, ex.ChallengeOptions...)
		if err != nil {
			return nil, s.fail(span, fmt.Errorf("failed to fetch challenge: %w", err))
		}
		s.transition(attempt, ChallengeFetched)

		answer, err := s.solver.Solve(ctx, img)
		if err != nil {
			return nil, s.fail(span, fmt.Errorf("failed to solve challenge: %w", err))
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			log.Warn("Empty challenge answer", "attempt", attempt)
			s.transition(attempt, Rejected)
			continue
		}

		resp, err := ex.Submit(ctx, answer)
		if err != nil {
			return nil, s.fail(span, err)
		}

		if ex.Rejected != nil && ex.Rejected(resp) {
			log.Warn("Challenge answer rejected", "attempt", attempt)
			s.transition(attempt, Rejected)
			continue
		}

		s.transition(attempt, Accepted)
		span.SetAttributes(attribute.Int("attempts", attempt))
		log.Debug("Challenge accepted", "attempt", attempt)
		return &Outcome{Answer: answer, Response: resp, Attempts: attempt}, nil
	}

	return nil, s.fail(span, &ChallengeError{Attempts: s.maxAttempts})
}

func (s *Session) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
