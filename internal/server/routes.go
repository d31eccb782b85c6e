package server

import (
	"github.com/dw-outreach/outreach/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the API. write wraps the routes that change state.
func RegisterRoutes(e *echo.Echo, write echo.MiddlewareFunc) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	network := e.Group("/api/network")

	// Graph routes
	network.GET("/graph", routes.GetGraphHandler)
	network.POST("/clients", routes.CreateClientHandler, write)
	network.POST("/entities", routes.CreateEntityHandler, write)
	network.POST("/edges", routes.CreateEdgeHandler, write)
	network.POST("/import", routes.ImportGraphHandler, write)

	// Layout routes
	network.GET("/view", routes.GetViewHandler)
	network.GET("/view.svg", routes.GetViewSVGHandler)

	// Snapshot routes
	network.POST("/snapshots", routes.CreateSnapshotHandler, write)
	network.GET("/snapshots/:id", routes.GetSnapshotHandler)
}
