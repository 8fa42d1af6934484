package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// RequireRoles enforces role-based access control. With no roles it passes
// every request through. Otherwise the attached identity must hold a role
// that, expanded through the hierarchy, satisfies one of roles.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	required := append([]domain.Role(nil), roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(required) == 0 {
			return next
		}
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok || len(id.Roles) == 0 || !domain.HasPermission(id.Roles, required) {
				metrics.GuardRejectionsTotal.WithLabelValues("role").Inc()
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
