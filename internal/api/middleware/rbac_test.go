package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

func runRoles(identity *domain.Identity, roles ...domain.Role) (bool, error) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if identity != nil {
		c.Set(identityKey, identity)
	}
	called := false
	err := RequireRoles(roles...)(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

func TestRequireRoles(t *testing.T) {
	admin := &domain.Identity{ID: "1", Role: domain.RoleAdmin, Roles: []domain.Role{domain.RoleAdmin}}
	user := &domain.Identity{ID: "2", Role: domain.RoleUser, Roles: []domain.Role{domain.RoleUser}}
	roleless := &domain.Identity{ID: "3"}

	cases := []struct {
		name     string
		identity *domain.Identity
		roles    []domain.Role
		allowed  bool
	}{
		{"no roles declared passes anonymous", nil, nil, true},
		{"admin satisfies user", admin, []domain.Role{domain.RoleUser}, true},
		{"admin satisfies admin", admin, []domain.Role{domain.RoleAdmin}, true},
		{"user denied admin", user, []domain.Role{domain.RoleAdmin}, false},
		{"user allowed admin or user", user, []domain.Role{domain.RoleAdmin, domain.RoleUser}, true},
		{"no identity", nil, []domain.Role{domain.RoleUser}, false},
		{"identity without roles", roleless, []domain.Role{domain.RoleUser}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called, err := runRoles(tc.identity, tc.roles...)
			if tc.allowed {
				if err != nil || !called {
					t.Fatalf("expected pass, got err=%v called=%v", err, called)
				}
				return
			}
			if called {
				t.Fatalf("should not reach next")
			}
			if !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}
