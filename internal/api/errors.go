package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
)

var errUnknownCourt = errors.New("unknown court")

// Error kinds stored in the query log and returned to clients
const (
	kindInvalidQuery      = "invalid_query"
	kindUnknownCourt      = "unknown_court"
	kindPortalError       = "portal_error"
	kindChallengeRejected = "challenge_rejected"
	kindTransport         = "transport"
	kindTimeout           = "timeout"
	kindInternal          = "internal"
)

// classify maps a failure to its HTTP status and kind
func classify(err error) (int, string) {
	var (
		serverErr    *scraper.ServerError
		transportErr *transport.Error
	)
	switch {
	case errors.Is(err, scraper.ErrInvalidQuery):
		return http.StatusBadRequest, kindInvalidQuery
	case errors.Is(err, errUnknownCourt):
		return http.StatusNotFound, kindUnknownCourt
	case errors.As(err, &serverErr):
		return http.StatusUnprocessableEntity, kindPortalError
	case errors.Is(err, scraper.ErrChallengeRejected):
		return http.StatusServiceUnavailable, kindChallengeRejected
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, captcha.ErrTimeout):
		return http.StatusGatewayTimeout, kindTimeout
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, kindTransport
	}
	return http.StatusInternalServerError, kindInternal
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	_, kind := classify(err)
	return kind
}

func writeError(c *gin.Context, err error) {
	status, kind := classify(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
		"kind":    kind,
	})
}
