package routes

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-graph/lattice/internal/server/middleware"
	"github.com/lattice-graph/lattice/internal/storage"
	"github.com/lattice-graph/lattice/pkg/logger"
	graphstorage "github.com/lattice-graph/lattice/pkg/store/pgx"
)

// DeleteProjectHandler removes a project, its graph artifacts and its
// uploaded corpus files.
func DeleteProjectHandler(c echo.Context) error {
	type deleteProjectParams struct {
		ProjectID string `param:"id" validate:"required"`
	}

	type deleteProjectResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteProjectParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteProjectResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteProjectResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storageClient := graphstorage.NewGraphDBStorageWithConnection(app.DBConn)

	if err := storageClient.DeleteProject(ctx, params.ProjectID); err != nil {
		logger.Error("Failed to delete project", "project_id", params.ProjectID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteProjectResponse{
			Message: "Internal server error",
		})
	}

	prefix := fmt.Sprintf("projects/%s", params.ProjectID)
	if err := storage.DeleteFolder(ctx, app.S3, prefix); err != nil {
		logger.Error("Failed to delete project files", "project_id", params.ProjectID, "err", err)
	}

	return c.JSON(http.StatusOK, deleteProjectResponse{
		Message: "Project deleted successfully",
	})
}
