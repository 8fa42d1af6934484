package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// maxBodyBytes bounds how much of a request body the body guard will buffer.
const maxBodyBytes = 64 << 10

// RequireBody rejects requests whose body is missing, is not a JSON object, is
// an empty object, or lacks one of fields as a non-blank string. The body is
// restored so the handler can bind it again.
func RequireBody(fields ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil {
				return rejectBody("request body is required")
			}
			raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes+1))
			_ = req.Body.Close()
			if err != nil {
				return rejectBody("request body could not be read")
			}
			if len(raw) > maxBodyBytes {
				return rejectBody("request body too large")
			}
			req.Body = io.NopCloser(bytes.NewReader(raw))

			if len(bytes.TrimSpace(raw)) == 0 {
				return rejectBody("request body is required")
			}
			var obj map[string]any
			if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
				return rejectBody("request body must be a JSON object")
			}
			if len(obj) == 0 {
				return rejectBody("request body must not be empty")
			}
			for _, f := range fields {
				s, ok := obj[f].(string)
				if !ok || strings.TrimSpace(s) == "" {
					return rejectBody("%s is required", f)
				}
			}
			return next(c)
		}
	}
}

func rejectBody(format string, args ...any) error {
	metrics.GuardRejectionsTotal.WithLabelValues("body").Inc()
	return domain.NewValidationError(format, args...)
}
