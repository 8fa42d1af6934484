package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// ctxIdentity returns the identity attached by the identity guard. A route
// registered without the guard has none, which is reported as unauthorized.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("invalid payload")
	}
	return c.Validate(req)
}
