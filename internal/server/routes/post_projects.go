package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lattice-graph/lattice/internal/queue"
	"github.com/lattice-graph/lattice/internal/server/middleware"
	"github.com/lattice-graph/lattice/internal/storage"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/logger"
	graphstorage "github.com/lattice-graph/lattice/pkg/store/pgx"
)

// CreateProjectHandler creates a new project from multipart/form-data
// and enqueues an indexing job for the uploaded corpus files.
func CreateProjectHandler(c echo.Context) error {
	type createProjectBody struct {
		Name string `form:"name" validate:"required"`
	}

	type createProjectResponse struct {
		Message string          `json:"message"`
		Project *common.Project `json:"project,omitempty"`
	}

	data := new(createProjectBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createProjectResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createProjectResponse{
			Message: "Invalid request body",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, createProjectResponse{
			Message: "Invalid request body",
		})
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, createProjectResponse{
			Message: "No files provided",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	projectID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createProjectResponse{
			Message: "Internal server error",
		})
	}

	queueFiles := make([]queue.QueueFile, 0, len(uploads))
	for _, file := range uploads {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, createProjectResponse{
				Message: "Could not open file",
			})
		}
		defer src.Close()

		fileID, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createProjectResponse{
				Message: "Internal server error",
			})
		}

		key, err := storage.PutFile(
			ctx,
			app.S3,
			fmt.Sprintf("projects/%s/files", projectID),
			file.Filename,
			fileID,
			src,
		)
		if err != nil {
			logger.Error("Failed to upload file", "err", err)
			return c.JSON(http.StatusInternalServerError, createProjectResponse{
				Message: "Internal server error",
			})
		}

		queueFiles = append(queueFiles, queue.QueueFile{
			ID:       fileID,
			FilePath: key,
			Title:    file.Filename,
			Source:   "s3",
		})
	}

	project := common.Project{
		ID:     projectID,
		Name:   data.Name,
		Status: common.ProjectStatusPending,
	}

	storageClient := graphstorage.NewGraphDBStorageWithConnection(app.DBConn)
	if err := storageClient.CreateProject(ctx, project); err != nil {
		logger.Error("Failed to create project", "err", err)
		return c.JSON(http.StatusInternalServerError, createProjectResponse{
			Message: "Internal server error",
		})
	}

	queueData := queue.QueueIndexJobMsg{
		Message:   "Project created successfully",
		ProjectID: projectID,
		Files:     queueFiles,
	}
	msgBytes, err := json.Marshal(queueData)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createProjectResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.IndexQueue, msgBytes); err != nil {
		logger.Error("Failed to publish index job", "project_id", projectID, "err", err)
		return c.JSON(http.StatusInternalServerError, createProjectResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, createProjectResponse{
		Message: "Project created successfully",
		Project: &project,
	})
}
