package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/handler"
	"github.com/iliyamo/water-network-api/internal/middleware"
)

// RegisterNetwork registers /api/network. Reads are public and cached;
// writes are admin-only and purge the cache once they succeed.
func RegisterNetwork(e *echo.Echo, n *handler.NetworkHandler, v middleware.AccessVerifier, cache *middleware.ResponseCache) {
	g := e.Group("/api/network")
	cached := cache.Middleware()
	write := append(middleware.Admin(v), cache.Purge())

	// ---- Nodes ----
	g.GET("/nodes", n.ListNodes, cached)
	g.GET("/nodes/search", n.SearchNodes, cached)
	g.GET("/node/:id", n.GetNode, cached)
	g.POST("/node", n.CreateNode, write...)
	g.PUT("/node/:id", n.UpdateNode, write...)
	g.DELETE("/node/:id", n.DeleteNode, write...)

	// ---- Pipes ----
	g.GET("/pipes", n.ListPipes, cached)
	g.GET("/pipes/search", n.SearchPipes, cached)
	g.GET("/pipe/:id", n.GetPipe, cached)
	g.POST("/pipe", n.CreatePipe, write...)
	g.PUT("/pipe/:id", n.UpdatePipe, write...)
	g.DELETE("/pipe/:id", n.DeletePipe, write...)
}
