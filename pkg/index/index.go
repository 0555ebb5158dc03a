package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lattice-graph/lattice/internal/util"
	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/store"
)

// Indexer builds the two vector indexes a project is queried through:
// an entity-level index whose rows carry community membership
// back-references, and a report-level index over the generated
// community reports.
//
// An Indexer should be created using NewIndexer.
type Indexer struct {
	dimensions    int
	maxConcurrent int64
	maxRetries    int
	retryDelay    time.Duration
}

// NewIndexerParams defines the configuration parameters for creating a
// new Indexer.
//
// Dimensions is the width every uploaded embedding must have.
// MaxConcurrentEmbeddings caps parallel embedding requests.
// MaxRetries and RetryDelay control how often a failed embedding call
// is retried before the record falls back to a zero vector.
type NewIndexerParams struct {
	Dimensions              int
	MaxConcurrentEmbeddings int64
	MaxRetries              int
	RetryDelay              time.Duration
}

// NewIndexer creates and returns a new Indexer configured with the
// provided parameters.
func NewIndexer(params NewIndexerParams) *Indexer {
	dimensions := params.Dimensions
	if dimensions <= 0 {
		dimensions = 1536
	}
	maxConcurrent := params.MaxConcurrentEmbeddings
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := params.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &Indexer{
		dimensions:    dimensions,
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
		retryDelay:    retryDelay,
	}
}

// BuildEntityIndex embeds every entity and uploads the entity-level
// index. Each record's content is the entity title and description, and
// its community ids reference every community the entity belongs to.
//
// A record whose embedding keeps failing after all retries is uploaded
// with a zero vector so the index stays complete; the failure is logged.
func (ix *Indexer) BuildEntityIndex(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storage store.GraphStorage,
	projectID string,
	entities []common.Entity,
	communities []common.Community,
) error {
	communityIDs := make(map[string][]string)
	for _, community := range communities {
		for _, entityID := range community.EntityIDs {
			communityIDs[entityID] = append(communityIDs[entityID], strconv.Itoa(community.ID))
		}
	}

	records := make([]store.EntityVectorRecord, len(entities))

	sem := semaphore.NewWeighted(ix.maxConcurrent)
	eg, ectx := errgroup.WithContext(ctx)

	for i, entity := range entities {
		idx := i
		ent := entity
		eg.Go(func() error {
			if err := sem.Acquire(ectx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			content := ent.Title + "\n" + ent.Description
			records[idx] = store.EntityVectorRecord{
				ID:           ent.ID,
				Content:      content,
				Embedding:    ix.embedWithFallback(ectx, aiClient, ent.ID, content),
				CommunityIDs: store.DedupeStrings(communityIDs[ent.ID]),
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("failed to embed entities: %w", err)
	}

	for _, record := range records {
		ix.validate("entity", record.ID, record.Content, record.Embedding)
	}

	if err := storage.UpsertEntityVectors(ctx, projectID, records); err != nil {
		return fmt.Errorf("failed to upload entity index: %w", err)
	}

	logger.Info("[Index] Uploaded entity index", "project", projectID, "records", len(records))
	return nil
}

// BuildReportIndex embeds every community report and uploads the
// report-level index. Record content concatenates the report title,
// summary and finding explanations.
func (ix *Indexer) BuildReportIndex(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storage store.GraphStorage,
	projectID string,
	reports []common.CommunityReport,
) error {
	records := make([]store.ReportVectorRecord, len(reports))

	sem := semaphore.NewWeighted(ix.maxConcurrent)
	eg, ectx := errgroup.WithContext(ctx)

	for i, report := range reports {
		idx := i
		rep := report
		eg.Go(func() error {
			if err := sem.Acquire(ectx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			content := ReportContent(rep)
			records[idx] = store.ReportVectorRecord{
				ID:        rep.ID,
				Content:   content,
				Embedding: ix.embedWithFallback(ectx, aiClient, rep.ID, content),
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("failed to embed reports: %w", err)
	}

	for _, record := range records {
		ix.validate("report", record.ID, record.Content, record.Embedding)
	}

	if err := storage.UpsertReportVectors(ctx, projectID, records); err != nil {
		return fmt.Errorf("failed to upload report index: %w", err)
	}

	logger.Info("[Index] Uploaded report index", "project", projectID, "records", len(records))
	return nil
}

// ReportContent renders the embeddable text of a community report.
func ReportContent(report common.CommunityReport) string {
	var b strings.Builder
	b.WriteString(report.Title)
	b.WriteString("\n")
	b.WriteString(report.Summary)
	for _, finding := range report.Findings {
		b.WriteString("\n")
		b.WriteString(finding.Explanation)
	}
	return b.String()
}

// embedWithFallback embeds the given content with retries. When every
// attempt fails it returns a zero vector of the configured width so the
// record can still be uploaded.
func (ix *Indexer) embedWithFallback(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	recordID string,
	content string,
) []float32 {
	embedding, err := util.RetryWithContextDelay(ctx, ix.maxRetries, ix.retryDelay, func(ctx context.Context) ([]float32, error) {
		return aiClient.GenerateEmbedding(ctx, []byte(content))
	})
	if err != nil {
		logger.Warn("[Index] Embedding failed, uploading zero vector",
			"record", recordID,
			"error", err,
		)
		return make([]float32, ix.dimensions)
	}
	return embedding
}
