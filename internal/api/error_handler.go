package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Adds a Retry-After header to 429 responses.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := resolveError(err, log, c)
		if resp.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
		}
		code := resp.code
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp.ErrorResponse)
	}
}

type resolved struct {
	handler.ErrorResponse
	code int
}

func resolveError(err error, log zerolog.Logger, c echo.Context) resolved {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return resolved{handler.ErrorResponse{Error: fmt.Sprintf("%v", he.Message)}, he.Code}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return resolved{handler.ErrorResponse{Error: ve.Msg}, http.StatusBadRequest}
	}
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		return resolved{handler.ErrorResponse{Error: "too many requests", RetryAfter: rle.RetryAfter}, http.StatusTooManyRequests}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return resolved{handler.ErrorResponse{Error: "bad request"}, http.StatusBadRequest}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return resolved{handler.ErrorResponse{Error: "invalid credentials"}, http.StatusUnauthorized}
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrRefreshConflict):
		return resolved{handler.ErrorResponse{Error: "invalid token"}, http.StatusUnauthorized}
	case errors.Is(err, domain.ErrUnauthorized):
		return resolved{handler.ErrorResponse{Error: "unauthorized"}, http.StatusUnauthorized}
	case errors.Is(err, domain.ErrForbidden):
		return resolved{handler.ErrorResponse{Error: "access forbidden"}, http.StatusForbidden}
	case errors.Is(err, domain.ErrTooManyRequests):
		return resolved{handler.ErrorResponse{Error: "too many requests"}, http.StatusTooManyRequests}
	case errors.Is(err, domain.ErrUserNotFound):
		return resolved{handler.ErrorResponse{Error: "user not found"}, http.StatusNotFound}
	case errors.Is(err, domain.ErrUserExists):
		return resolved{handler.ErrorResponse{Error: "user already exists"}, http.StatusConflict}
	case errors.Is(err, domain.ErrStorage):
		log.Error().Err(err).Str("path", c.Path()).Msg("storage unavailable")
		return resolved{handler.ErrorResponse{Error: "service unavailable"}, http.StatusServiceUnavailable}
	}

	// Unexpected error (hashing, configuration, anything else): log the real
	// cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return resolved{handler.ErrorResponse{Error: "internal server error"}, http.StatusInternalServerError}
}
