// Package captchatest provides deterministic solvers for tests
package captchatest

import (
	"context"
	"sync"
)

// Static answers every challenge with the same text and records the images
// it was given
type Static struct {
	Answer string

	mu     sync.Mutex
	images [][]byte
}

// NewStatic returns a solver that always answers text
func NewStatic(text string) *Static {
	return &Static{Answer: text}
}

func (s *Static) Solve(_ context.Context, image []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, append([]byte(nil), image...))
	return s.Answer, nil
}

// Calls reports how many times Solve ran
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Images returns copies of every image passed to Solve
func (s *Static) Images() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.images))
	copy(out, s.images)
	return out
}
