// Package router assembles the echo instance: global middleware, the error
// handler and every route group.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/handler"
	"github.com/iliyamo/water-network-api/internal/logging"
	"github.com/iliyamo/water-network-api/internal/metrics"
	"github.com/iliyamo/water-network-api/internal/middleware"
)

// Deps carries everything the routes need. Cache, RateLimit and Metrics
// are optional.
type Deps struct {
	Log      *zap.Logger
	Debug    bool
	Verifier middleware.AccessVerifier

	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Network *handler.NetworkHandler

	Cache     *middleware.ResponseCache
	RateLimit echo.MiddlewareFunc
	Metrics   *metrics.Metrics
}

// New builds the echo instance with all routes registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(d.Log, d.Debug)

	// metrics sees the final status, so the logger below must render errors
	e.Use(d.Metrics.Middleware())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	RegisterRoutes(e, d.Metrics)
	RegisterAuth(e, d.Auth, d.Verifier, d.RateLimit)
	RegisterUsers(e, d.Users, d.Verifier)
	RegisterNetwork(e, d.Network, d.Verifier, d.Cache)
	return e
}

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", m.Handler())
	}
}
