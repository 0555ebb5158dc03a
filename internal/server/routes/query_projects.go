package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lattice-graph/lattice/internal/server/middleware"
	"github.com/lattice-graph/lattice/internal/util"
	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/query"
	graphstorage "github.com/lattice-graph/lattice/pkg/store/pgx"
)

// QueryProjectHandler answers a question against a finished project.
func QueryProjectHandler(c echo.Context) error {
	type queryProjectRequest struct {
		ProjectID string `param:"id" validate:"required"`
		Query     string `json:"query" validate:"required"`
	}

	type queryProjectResponse struct {
		Message string                   `json:"message"`
		Result  *query.GraphSearchResult `json:"result,omitempty"`
		Metrics *ai.ModelMetrics         `json:"metrics,omitempty"`
	}

	data := new(queryProjectRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryProjectResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryProjectResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	storageClient := graphstorage.NewGraphDBStorageWithConnection(app.DBConn)

	project, err := storageClient.GetProject(ctx, data.ProjectID)
	if errors.Is(err, graphstorage.ErrProjectNotFound) {
		return c.JSON(http.StatusNotFound, queryProjectResponse{
			Message: "Project not found",
		})
	}
	if err != nil {
		logger.Error("Failed to get project", "project_id", data.ProjectID, "err", err)
		return c.JSON(http.StatusInternalServerError, queryProjectResponse{
			Message: "Internal server error",
		})
	}
	if project.Status != common.ProjectStatusFinished {
		return c.JSON(http.StatusConflict, queryProjectResponse{
			Message: "Project is not ready for queries",
		})
	}

	queryClient := query.NewQueryClient(query.NewQueryClientParams{
		TopK: int(util.GetEnvNumeric("QUERY_TOP_K", 5)),
	})

	result, err := queryClient.GraphSearch(ctx, app.AiClient, storageClient, data.ProjectID, data.Query)
	if err != nil {
		logger.Error("[Query] graph search failed", "project_id", data.ProjectID, "err", err)
		return c.JSON(http.StatusInternalServerError, queryProjectResponse{
			Message: "Internal server error",
		})
	}

	metrics := app.AiClient.GetMetrics()
	return c.JSON(http.StatusOK, queryProjectResponse{
		Message: "OK",
		Result:  &result,
		Metrics: &metrics,
	})
}
