package captcha

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

var (
	// ErrTimeout is returned when no answer arrives in time
	ErrTimeout = errors.New("captcha: timed out waiting for answer")
	// ErrUnknownChallenge is returned for ids that are not pending
	ErrUnknownChallenge = errors.New("captcha: unknown challenge")
)

// Solver turns a challenge image into the text it shows. Implementations
// may block for as long as a human takes to answer.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// SolverFunc adapts a function to the Solver interface
type SolverFunc func(ctx context.Context, image []byte) (string, error)

func (f SolverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// New returns the solver named by mode: "prompt", "filedrop", "ocr",
// "2captcha" or "anticaptcha"
func New(mode string, cfg *config.Config, log *logger.Logger) (Solver, error) {
	switch mode {
	case "prompt":
		return NewPromptSolver(os.Stdin, os.Stderr), nil
	case "filedrop":
		return NewFileDropSolver(cfg.CaptchaDir, cfg.CaptchaWait, log), nil
	case "ocr":
		c, err := ParseCommand(cfg.OCRCommand)
		if err != nil {
			return nil, err
		}
		if _, err := exec.LookPath(c.Path); err != nil {
			return nil, fmt.Errorf("ocr solver: %w", err)
		}
		return newAutomated(c, cfg), nil
	case "2captcha":
		if cfg.TwoCaptchaKey == "" {
			return nil, fmt.Errorf("TWOCAPTCHA_API_KEY is required for the 2captcha solver")
		}
		return newAutomated(NewTwoCaptcha(cfg.TwoCaptchaKey, log), cfg), nil
	case "anticaptcha":
		if cfg.AntiCaptchaKey == "" {
			return nil, fmt.Errorf("ANTICAPTCHA_API_KEY is required for the anticaptcha solver")
		}
		return newAutomated(NewAntiCaptcha(cfg.AntiCaptchaKey, log), cfg), nil
	}
	return nil, fmt.Errorf("unknown captcha solver %q", mode)
}

func newAutomated(c Classifier, cfg *config.Config) *AutomatedSolver {
	return &AutomatedSolver{
		Classifier: c,
		Preprocess: cfg.CaptchaPreprocess,
		Threshold:  uint8(cfg.CaptchaThreshold),
	}
}
