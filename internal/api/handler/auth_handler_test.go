package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn  func(ctx context.Context, in ports.RegisterInput) (*ports.LoginResult, error)
	loginFn     func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	refreshFn   func(ctx context.Context, token string) (*ports.RefreshResult, error)
	loggedInFor string
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.LoginResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*ports.RefreshResult, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) GetLoggedIn(_ context.Context, token string) bool {
	return token != "" && token == s.loggedInFor
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.LoginResult, error) {
			if in.Username != "cam" || in.Password != "Str0ng!Passw0rd" || in.Role != "" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.LoginResult{UserID: "u-1", AccessToken: "a", RefreshToken: "r"}, nil
		},
	}
	c, rec := jsonContext(e, http.MethodPost, "/register", `{"username":"cam","password":"Str0ng!Passw0rd"}`)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["access_token"] != "a" || resp["refresh_token"] != "r" || resp["user_id"] != "u-1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.LoginResult, error) {
			return nil, domain.ErrUserExists
		},
	}
	c, _ := jsonContext(e, http.MethodPost, "/register", `{"username":"bob","password":"Str0ng!Passw0rd","role":"admin"}`)

	if err := NewAuthHandler(stub).Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	cases := map[string]string{
		"not json":                 `not-json`,
		"short username":           `{"username":"ab","password":"Str0ng!Passw0rd"}`,
		"weak password":            `{"username":"cam","password":"password"}`,
		"unknown role":             `{"username":"cam","password":"Str0ng!Passw0rd","role":"root"}`,
		"long password":            `{"username":"cam","password":"Aa1!` + strings.Repeat("x", 80) + `"}`,
		"multibyte over 72 bytes":  `{"username":"cam","password":"Aa1!` + strings.Repeat("é", 40) + `"}`,
		"multibyte under 12 chars": `{"username":"cam","password":"Aa1!éééééé"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				registerFn: func(context.Context, ports.RegisterInput) (*ports.LoginResult, error) {
					t.Fatalf("should not be called")
					return nil, nil
				},
			}
			c, _ := jsonContext(e, http.MethodPost, "/register", body)
			err := NewAuthHandler(stub).Register(c)
			if !errors.Is(err, domain.ErrBadRequest) {
				t.Fatalf("expected ErrBadRequest, got %v", err)
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(_ context.Context, username, password string) (*ports.LoginResult, error) {
			if username != "alice" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.LoginResult{UserID: "u-1", AccessToken: "access", RefreshToken: "refresh"}, nil
		},
	}
	c, rec := jsonContext(e, http.MethodPost, "/login", `{"username":"alice","password":"secret"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["access_token"] != "access" || resp["refresh_token"] != "refresh" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
	if resp["token_type"] != "Bearer" || resp["user_id"] != "u-1" || resp["message"] == "" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, rec := jsonContext(e, http.MethodPost, "/login", `{"username":"alice","password":"bad"}`)

	err := NewAuthHandler(stub).Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must leave rendering to the error handler")
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, token string) (*ports.RefreshResult, error) {
			if token != "old" {
				return nil, domain.ErrInvalidToken
			}
			return &ports.RefreshResult{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPatch, "/auth/refresh", `{"refresh_token":"old"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["access_token"] != "a2" || resp["refresh_token"] != "r2" || resp["message"] == "" {
		t.Fatalf("unexpected payload: %+v", resp)
	}

	c, _ = jsonContext(e, http.MethodPatch, "/auth/refresh", `{"refresh_token":"reused"}`)
	if err := h.Refresh(c); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newEcho()
	c, rec := jsonContext(e, http.MethodGet, "/auth/me", "")
	c.Set("identity", &domain.Identity{ID: "u-1", Username: "cam", Role: domain.RoleUser, Roles: []domain.Role{domain.RoleUser}})

	if err := NewAuthHandler(&stubAuthService{}).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["id"] != "u-1" || resp["username"] != "cam" || resp["role"] != "user" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Me_WithoutIdentity(t *testing.T) {
	e := newEcho()
	c, _ := jsonContext(e, http.MethodGet, "/auth/me", "")
	if err := NewAuthHandler(&stubAuthService{}).Me(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthHandler_Status(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   bool
	}{
		{"no header", "", false},
		{"live token", "Bearer live", true},
		{"dead token", "Bearer dead", false},
		{"malformed header", "live", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			c, rec := jsonContext(e, http.MethodGet, "/auth/status", "")
			if tc.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tc.header)
			}
			if err := NewAuthHandler(&stubAuthService{loggedInFor: "live"}).Status(c); err != nil {
				t.Fatalf("status must never fail: %v", err)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := decode(t, rec)["logged_in"]; got != tc.want {
				t.Fatalf("expected logged_in=%v, got %v", tc.want, got)
			}
		})
	}
}
