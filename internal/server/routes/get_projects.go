package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-graph/lattice/internal/server/middleware"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/logger"
	graphstorage "github.com/lattice-graph/lattice/pkg/store/pgx"
)

// GetProjectHandler returns a project and its indexing status.
func GetProjectHandler(c echo.Context) error {
	type getProjectParams struct {
		ProjectID string `param:"id" validate:"required"`
	}

	type getProjectResponse struct {
		Message string          `json:"message"`
		Project *common.Project `json:"project,omitempty"`
	}

	params := new(getProjectParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getProjectResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getProjectResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storageClient := graphstorage.NewGraphDBStorageWithConnection(app.DBConn)

	project, err := storageClient.GetProject(ctx, params.ProjectID)
	if errors.Is(err, graphstorage.ErrProjectNotFound) {
		return c.JSON(http.StatusNotFound, getProjectResponse{
			Message: "Project not found",
		})
	}
	if err != nil {
		logger.Error("Failed to get project", "project_id", params.ProjectID, "err", err)
		return c.JSON(http.StatusInternalServerError, getProjectResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getProjectResponse{
		Message: "OK",
		Project: &project,
	})
}
