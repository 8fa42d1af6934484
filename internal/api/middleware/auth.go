package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// identityKey is the echo context key holding the *domain.Identity.
const identityKey = "identity"

// Auth is the identity guard. It requires a verified bearer access token whose
// subject still exists in the store and attaches the normalized identity to
// the context. Every failure is reported as domain.ErrUnauthorized; the cause
// is only logged.
func Auth(tokens ports.TokenService, users ports.ProfileLookup, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c)
			if !ok {
				return rejectIdentity(log, "missing or malformed authorization header")
			}
			if !tokens.VerifyToken(token) {
				return rejectIdentity(log, "token failed verification")
			}
			claims, ok := tokens.DecodeToken(token)
			if !ok || claims.Subject == "" {
				return rejectIdentity(log, "token has no subject")
			}
			if claims.Type == domain.TokenTypeRefresh {
				return rejectIdentity(log, "refresh token used as bearer")
			}

			user, err := users.FindProfile(c.Request().Context(), claims.Subject)
			if err != nil {
				return rejectIdentity(log.With().Err(err).Logger(), "subject lookup failed")
			}

			c.Set(identityKey, domain.IdentityOf(user))
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityFrom returns the identity attached by Auth, if any.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	id, ok := c.Get(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

func rejectIdentity(log zerolog.Logger, reason string) error {
	metrics.GuardRejectionsTotal.WithLabelValues("identity").Inc()
	log.Debug().Str("reason", reason).Msg("identity guard rejected request")
	return domain.ErrUnauthorized
}
