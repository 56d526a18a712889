package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/handler"
	"github.com/iliyamo/water-network-api/internal/middleware"
)

// RegisterAuth registers /api/auth. limit, when set, throttles the whole
// group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, v middleware.AccessVerifier, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	if limit != nil {
		g.Use(limit)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.Authenticate(v))
}

// RegisterUsers registers /api/user. Every route needs a token; listing and
// deleting need admin, reading and updating a profile need the owner or an
// admin.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, v middleware.AccessVerifier) {
	g := e.Group("/api/user")
	g.GET("/users", u.List, middleware.Admin(v)...)
	g.GET("/:id", u.Get, middleware.SelfOrAdmin(v)...)
	g.PUT("/:id", u.Update, middleware.SelfOrAdmin(v)...)
	g.DELETE("/:id", u.Delete, middleware.Admin(v)...)
}
