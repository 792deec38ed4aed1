package scraper

import (
	"errors"
	"fmt"
)

// ErrChallengeRejected matches every challenge rejection, whether from a
// single parse or an exhausted session loop
var ErrChallengeRejected = errors.New("challenge rejected")

// ChallengeError is returned when no session produced an accepted answer
type ChallengeError struct {
	Attempts int
	Reason   string
}

func (e *ChallengeError) Error() string {
	msg := fmt.Sprintf("challenge rejected after %d attempt(s)", e.Attempts)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ChallengeError) Is(target error) bool {
	return target == ErrChallengeRejected
}

// ServerError carries an error reported by the portal itself, for example a
// missing mandatory field. It is never retried.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "portal error: " + e.Message
}

// ErrNoPDF is returned when asked to download a record without a PDF link
var ErrNoPDF = errors.New("record has no pdf url")
