package server

import (
	"github.com/labstack/echo/v4"

	"github.com/lattice-graph/lattice/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Project routes
	apiRoutes.POST("/projects", routes.CreateProjectHandler)
	apiRoutes.GET("/projects/:id", routes.GetProjectHandler)
	apiRoutes.DELETE("/projects/:id", routes.DeleteProjectHandler)

	// Project query routes
	apiRoutes.POST("/projects/:id/query", routes.QueryProjectHandler)
}
