package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-graph/lattice/internal/util"
	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/graph"
	"github.com/lattice-graph/lattice/pkg/index"
	"github.com/lattice-graph/lattice/pkg/leaselock"
	"github.com/lattice-graph/lattice/pkg/loader"
	ioloader "github.com/lattice-graph/lattice/pkg/loader/io"
	s3loader "github.com/lattice-graph/lattice/pkg/loader/s3"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/store"
	graphstorage "github.com/lattice-graph/lattice/pkg/store/pgx"
)

// ProcessIndexMessage handles one lattice_index job: it builds the
// project's graph and vector indexes from the corpus files named in the
// message. The project is locked for the duration of the run so two
// workers never index the same project concurrently.
func ProcessIndexMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	aiClient ai.GraphAIClient,
	conn *pgxpool.Pool,
	msg string,
) (err error) {
	data := new(QueueIndexJobMsg)
	if err = json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to parse index message: %w", err)
	}
	if data.ProjectID == "" {
		return fmt.Errorf("index message has no project id")
	}
	projectID := data.ProjectID

	storage := graphstorage.NewGraphDBStorageWithConnection(conn)

	defer func() {
		if err == nil {
			return
		}
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if updateErr := storage.SetProjectStatus(updateCtx, projectID, common.ProjectStatusFailed); updateErr != nil {
			logger.Warn("[Queue] Failed to mark project as failed", "project_id", projectID, "err", updateErr)
		}
	}()

	files, err := buildGraphFiles(data.Files, s3Client)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("index message has no files")
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		TokenEncoder:            util.GetEnvString("GRAPH_TOKEN_ENCODER", "o200k_base"),
		MaxUnitTokens:           int(util.GetEnvNumeric("GRAPH_UNIT_TOKENS", 300)),
		MaxClusterSize:          int(util.GetEnvNumeric("GRAPH_MAX_CLUSTER_SIZE", 10)),
		Resolution:              util.GetEnvFloat("GRAPH_RESOLUTION", 1.2),
		ParallelReports:         int(util.GetEnvNumeric("GRAPH_PARALLEL_REPORTS", 10)),
		IncludeIsolatedEntities: util.GetEnvBool("GRAPH_INCLUDE_ISOLATED", false),
		DedupeExtractions:       util.GetEnvBool("GRAPH_DEDUPE_EXTRACTIONS", false),
	})
	if err != nil {
		return err
	}

	indexer := index.NewIndexer(index.NewIndexerParams{
		Dimensions: int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),
	})

	lockClient := leaselock.New(conn)
	start := time.Now()

	err = lockClient.WithLease(ctx, "project:"+projectID, leaselock.Options{
		TTL:        10 * time.Minute,
		RenewEvery: 4 * time.Minute,
		Wait:       true,
	}, func(ctx context.Context) error {
		if err := storage.SetProjectStatus(ctx, projectID, common.ProjectStatusProcessing); err != nil {
			return err
		}

		if err := graphClient.ProcessGraph(ctx, aiClient, storage, projectID, files); err != nil {
			return err
		}

		return buildIndexes(ctx, indexer, aiClient, storage, projectID)
	})
	if err != nil {
		return err
	}

	if err = storage.SetProjectStatus(ctx, projectID, common.ProjectStatusFinished); err != nil {
		return err
	}

	logger.Info("[Queue] Index job finished",
		"project_id", projectID,
		"files", len(files),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func buildGraphFiles(queueFiles []QueueFile, s3Client *awss3.Client) ([]loader.GraphFile, error) {
	var ioL *ioloader.IOGraphFileLoader
	var s3L *s3loader.S3GraphFileLoader

	files := make([]loader.GraphFile, 0, len(queueFiles))
	for _, file := range queueFiles {
		var fileLoader loader.GraphFileLoader

		switch file.Source {
		case "io":
			if ioL == nil {
				ioL = ioloader.NewIOGraphFileLoader()
			}
			fileLoader = ioL
		case "s3", "":
			if s3L == nil {
				s3L = s3loader.NewS3GraphFileLoaderWithClient(
					util.GetEnvString("AWS_BUCKET", "lattice"),
					s3Client,
				)
			}
			fileLoader = s3L
		default:
			return nil, fmt.Errorf("unknown file source %q for file %s", file.Source, file.ID)
		}

		files = append(files, loader.NewGraphFile(loader.NewGraphFileParams{
			ID:       file.ID,
			FilePath: file.FilePath,
			Title:    file.Title,
			Loader:   fileLoader,
		}))
	}

	return files, nil
}

func buildIndexes(
	ctx context.Context,
	indexer *index.Indexer,
	aiClient ai.GraphAIClient,
	storage store.GraphStorage,
	projectID string,
) error {
	entities, err := storage.GetEntities(ctx, projectID)
	if err != nil {
		return err
	}
	communities, err := storage.GetCommunities(ctx, projectID)
	if err != nil {
		return err
	}
	reports, err := storage.GetCommunityReports(ctx, projectID)
	if err != nil {
		return err
	}

	if err := indexer.BuildEntityIndex(ctx, aiClient, storage, projectID, entities, communities); err != nil {
		return err
	}
	return indexer.BuildReportIndex(ctx, aiClient, storage, projectID, reports)
}
