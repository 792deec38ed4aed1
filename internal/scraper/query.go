package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

// ErrInvalidQuery wraps every query validation failure
var ErrInvalidQuery = errors.New("invalid query")

var validate = validator.New()

// ValidateQuery checks the validate tags on q
func ValidateQuery(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(msgs, "; "))
}

// RequireCourtType fails unless court is of the given type
func RequireCourtType(court models.Court, want models.CourtType) error {
	if court.Type != want || court.Code == "" {
		return fmt.Errorf("%w: %q is not a %s", ErrInvalidQuery, court.Name, want)
	}
	return nil
}
