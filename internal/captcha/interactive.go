package captcha

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// PromptSolver saves each challenge to a temporary file and reads the
// operator's answer from a line of input
type PromptSolver struct {
	Dir string

	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPromptSolver reads answers from in and writes prompts to out
func NewPromptSolver(in io.Reader, out io.Writer) *PromptSolver {
	return &PromptSolver{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (s *PromptSolver) Solve(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(s.Dir, "captcha-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create captcha file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(img); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write captcha file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write captcha file: %w", err)
	}

	fmt.Fprintf(s.out, "CAPTCHA image saved to: %s\nEnter CAPTCHA text: ", path)

	line, err := s.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", fmt.Errorf("failed to read captcha answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Callback defers solving to fn, which runs on the caller's goroutine
func Callback(fn func(image []byte) (string, error)) Solver {
	return SolverFunc(func(ctx context.Context, image []byte) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := fn(image)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	})
}

// AsyncCallback defers solving to fn, which delivers its answer on the
// returned channel whenever it is ready. Closing the channel without a
// value counts as an empty answer.
func AsyncCallback(fn func(image []byte) <-chan string) Solver {
	return SolverFunc(func(ctx context.Context, image []byte) (string, error) {
		select {
		case text := <-fn(image):
			return strings.TrimSpace(text), nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}
