package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	AuthService ports.AuthService
	Tokens      ports.TokenVerifier
	// Checks are the readiness probes served on /health/ready.
	Checks map[string]handler.CheckFunc
	// CORSOrigin is the single allowed origin; "*" or empty allows any.
	CORSOrigin string
	// Registerer and Gatherer back the HTTP request metrics and /metrics.
	// Nil selects the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Log        zerolog.Logger
}

// route is one entry of the route table. Protected routes run Auth followed
// by RBAC with roles; an empty roles list admits any authenticated caller.
type route struct {
	method    string
	path      string
	handler   echo.HandlerFunc
	protected bool
	roles     []string
}

func routes(auth *handler.AuthHandler, content *handler.ContentHandler) []route {
	return []route{
		{method: http.MethodPost, path: "/api/auth/signup", handler: auth.Signup},
		{method: http.MethodPost, path: "/api/auth/signin", handler: auth.Signin},

		{method: http.MethodGet, path: "/api/test/all", handler: content.Public},
		{method: http.MethodGet, path: "/api/test/user", handler: content.User, protected: true},
		{method: http.MethodGet, path: "/api/test/admin", handler: content.Admin, protected: true, roles: []string{domain.RoleAdmin}},
	}
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer, gatherer := deps.Registerer, deps.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	origin := deps.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{origin},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middleware.HeaderAccessToken,
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	contentHandler := handler.NewContentHandler()
	authMiddleware := middleware.Auth(deps.Tokens)

	for _, r := range routes(authHandler, contentHandler) {
		var mws []echo.MiddlewareFunc
		if r.protected {
			mws = append(mws, authMiddleware, middleware.RBAC(r.roles...))
		}
		e.Add(r.method, r.path, r.handler, mws...)
	}

	// --- Health probes and tooling (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
