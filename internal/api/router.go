package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Deps is everything the router wires into handlers and guards.
type Deps struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Tokens   ports.TokenService
	Profiles ports.ProfileLookup
	Limiter  ports.RateLimiter
	Throttle *middleware.Throttle
	Checks   []handler.DependencyCheck
	Log      zerolog.Logger
	Version  string

	// Registry receives the HTTP metrics and backs /metrics. Nil uses the
	// process-wide default registry.
	Registry *prometheus.Registry
}

// route is one row of the route table. Guards are composed from the flags in
// a fixed order: throttle, body, identity, role, rate.
type route struct {
	method    string
	path      string
	handler   echo.HandlerFunc
	body      []string
	roles     []domain.Role
	auth      bool
	rateLimit bool
	throttle  bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "auth",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	// Inside the metrics middleware so errors are rendered before the status is recorded.
	e.Use(middleware.RequestLogger(d.Log))

	for _, r := range routes(d) {
		e.Add(r.method, r.path, r.handler, guards(d, r)...)
	}

	// --- Operational endpoints (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func routes(d Deps) []route {
	authH := handler.NewAuthHandler(d.Auth)
	userH := handler.NewUserHandler(d.Users)
	roleH := handler.NewRoleHandler(d.Users)
	healthH := handler.NewHealthHandler("auth-service", d.Version)
	readyH := handler.NewHealthDependenciesHandler(d.Checks...)

	admin := []domain.Role{domain.RoleAdmin}
	anyone := []domain.Role{domain.RoleAdmin, domain.RoleUser}

	return []route{
		{method: http.MethodGet, path: "/", handler: healthH.Root},
		{method: http.MethodGet, path: "/health", handler: healthH.Liveness},
		{method: http.MethodGet, path: "/health/ready", handler: readyH.Readiness},

		// --- Credential endpoints ---
		{method: http.MethodPost, path: "/login", handler: authH.Login, body: []string{"username", "password"}, throttle: true},
		{method: http.MethodPost, path: "/register", handler: authH.Register, body: []string{"username", "password"}, throttle: true},
		{method: http.MethodPatch, path: "/auth/refresh", handler: authH.Refresh, body: []string{"refresh_token"}, throttle: true},
		{method: http.MethodGet, path: "/auth/status", handler: authH.Status},
		{method: http.MethodGet, path: "/auth/me", handler: authH.Me, auth: true, rateLimit: true},

		// --- Users ---
		{method: http.MethodGet, path: "/users", handler: userH.List, roles: admin, auth: true, rateLimit: true},
		{method: http.MethodGet, path: "/users/me", handler: userH.Me, roles: anyone, auth: true, rateLimit: true},
		{method: http.MethodPatch, path: "/users/me", handler: userH.ChangePassword, body: []string{"password"}, roles: anyone, auth: true, rateLimit: true},
		{method: http.MethodDelete, path: "/users/:id", handler: userH.Delete, roles: admin, auth: true, rateLimit: true},

		// --- Roles ---
		{method: http.MethodGet, path: "/roles/:id", handler: roleH.Get, roles: admin, auth: true, rateLimit: true},
		{method: http.MethodPatch, path: "/roles/:id", handler: roleH.Update, body: []string{"role"}, roles: admin, auth: true, rateLimit: true},
	}
}

func guards(d Deps, r route) []echo.MiddlewareFunc {
	var mw []echo.MiddlewareFunc
	if r.throttle && d.Throttle != nil {
		mw = append(mw, d.Throttle.Middleware())
	}
	if len(r.body) > 0 {
		mw = append(mw, middleware.RequireBody(r.body...))
	}
	if r.auth {
		mw = append(mw, middleware.Auth(d.Tokens, d.Profiles, d.Log))
	}
	if len(r.roles) > 0 {
		mw = append(mw, middleware.RequireRoles(r.roles...))
	}
	if r.rateLimit && d.Limiter != nil {
		mw = append(mw, middleware.RateLimit(d.Limiter))
	}
	return mw
}
