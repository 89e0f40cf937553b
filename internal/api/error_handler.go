package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/contaleve/identity-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the domain error taxonomy to deterministic HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := statusForKind(de.Kind)
		if ok {
			msg := de.Message
			if de.Kind == domain.KindDirectoryUnavailable {
				// The wrapped cause is diagnostics only.
				log.Error().Err(de).
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Msg("identity directory failure")
				msg = "identity directory unavailable"
			}
			return status, errorResponse{Error: msg, Code: string(de.Kind)}
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func statusForKind(kind domain.ErrorKind) (int, bool) {
	switch kind {
	case domain.KindInvalidName, domain.KindInvalidNationalID, domain.KindInvalidEmail,
		domain.KindAmbiguousRequest, domain.KindMissingIdentifier:
		return http.StatusBadRequest, true
	case domain.KindDuplicateIdentifier, domain.KindDuplicateEmail:
		return http.StatusConflict, true
	case domain.KindUserNotFound:
		return http.StatusNotFound, true
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, true
	case domain.KindDirectoryUnavailable:
		return http.StatusServiceUnavailable, true
	default:
		return 0, false
	}
}
