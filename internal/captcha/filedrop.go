package captcha

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// FileDropSolver writes each challenge to <dir>/<id>.png and waits for an
// operator to drop the answer into <dir>/<id>.txt, typically through the
// HTTP API
type FileDropSolver struct {
	dir    string
	wait   time.Duration
	poll   time.Duration
	logger *logger.Logger
}

// NewFileDropSolver creates a solver rooted at dir. A zero wait blocks until
// the context is done.
func NewFileDropSolver(dir string, wait time.Duration, log *logger.Logger) *FileDropSolver {
	if log == nil {
		log = logger.Nop()
	}
	return &FileDropSolver{
		dir:    dir,
		wait:   wait,
		poll:   time.Second,
		logger: log.With("component", "captcha"),
	}
}

// SetPollInterval changes how often the answer file is checked
func (s *FileDropSolver) SetPollInterval(d time.Duration) {
	s.poll = d
}

func (s *FileDropSolver) Solve(ctx context.Context, img []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create captcha directory: %w", err)
	}

	id := uuid.NewString()
	imagePath := s.imagePath(id)
	// write then rename so readers never see a partial image
	if err := os.WriteFile(imagePath+".tmp", img, 0644); err != nil {
		return "", fmt.Errorf("failed to save captcha: %w", err)
	}
	if err := os.Rename(imagePath+".tmp", imagePath); err != nil {
		os.Remove(imagePath + ".tmp")
		return "", fmt.Errorf("failed to save captcha: %w", err)
	}
	defer os.Remove(imagePath)

	s.logger.Info("CAPTCHA saved for manual solving", "id", id)

	var deadline <-chan time.Time
	if s.wait > 0 {
		t := time.NewTimer(s.wait)
		defer t.Stop()
		deadline = t.C
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		if data, err := os.ReadFile(s.answerPath(id)); err == nil {
			if solution := strings.TrimSpace(string(data)); solution != "" {
				os.Remove(s.answerPath(id))
				s.logger.Info("CAPTCHA answer received", "id", id)
				return solution, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline:
			s.logger.Warn("CAPTCHA answer timed out", "id", id)
			return "", ErrTimeout
		case <-ticker.C:
		}
	}
}

// Pending lists the ids of challenges still waiting for an answer
func (s *FileDropSolver) Pending() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}

	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".png" {
			continue
		}
		id := strings.TrimSuffix(name, ".png")
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		if _, err := os.Stat(s.answerPath(id)); err == nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Image returns the image for a pending challenge
func (s *FileDropSolver) Image(id string) ([]byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUnknownChallenge
	}
	data, err := os.ReadFile(s.imagePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrUnknownChallenge
	}
	return data, err
}

// Answer records the operator's answer for a pending challenge
func (s *FileDropSolver) Answer(id, text string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUnknownChallenge
	}
	if _, err := os.Stat(s.imagePath(id)); err != nil {
		return ErrUnknownChallenge
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("captcha: empty answer")
	}
	if err := os.WriteFile(s.answerPath(id), []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to save solution: %w", err)
	}
	return nil
}

func (s *FileDropSolver) imagePath(id string) string {
	return filepath.Join(s.dir, id+".png")
}

func (s *FileDropSolver) answerPath(id string) string {
	return filepath.Join(s.dir, id+".txt")
}
