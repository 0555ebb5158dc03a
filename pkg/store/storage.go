package store

import (
	"context"

	"github.com/lattice-graph/lattice/pkg/common"
)

// EntityVectorRecord is one row of the entity-level vector index. The
// content is what was embedded; CommunityIDs back-reference every
// community the entity is a member of.
type EntityVectorRecord struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Embedding    []float32 `json:"embedding"`
	CommunityIDs []string  `json:"community_ids"`
}

// ReportVectorRecord is one row of the report-level vector index.
type ReportVectorRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// EntityMatch is an entity index row scored against a query embedding.
type EntityMatch struct {
	Record     EntityVectorRecord
	Similarity float64
}

// ReportMatch is a report index row scored against a query embedding.
type ReportMatch struct {
	Record     ReportVectorRecord
	Similarity float64
}

// GraphStorage defines the interface for persisting and querying graph
// pipeline artifacts. Every method is scoped to a project so multiple
// corpora can share one backing store.
//
// Extraction results are persisted per text unit via AppendExtraction so
// that a crashed run leaves all completed units behind. Replaying a unit
// appends a second copy; HasExtraction lets callers skip already
// processed units when that matters.
type GraphStorage interface {
	CreateProject(ctx context.Context, project common.Project) error
	GetProject(ctx context.Context, id string) (common.Project, error)
	SetProjectStatus(ctx context.Context, id string, status common.ProjectStatus) error

	SaveDocuments(ctx context.Context, projectID string, docs []common.Document) error
	SaveTextUnits(ctx context.Context, projectID string, units []common.TextUnit) error
	GetTextUnits(ctx context.Context, projectID string) ([]common.TextUnit, error)

	AppendExtraction(
		ctx context.Context,
		projectID string,
		unitID string,
		entities []common.Entity,
		relationships []common.Relationship,
	) error
	HasExtraction(ctx context.Context, projectID string, unitID string) (bool, error)
	GetExtractions(ctx context.Context, projectID string) ([]common.Entity, []common.Relationship, error)

	SaveEntities(ctx context.Context, projectID string, entities []common.Entity) error
	GetEntities(ctx context.Context, projectID string) ([]common.Entity, error)
	SaveRelationships(ctx context.Context, projectID string, relationships []common.Relationship) error
	GetRelationships(ctx context.Context, projectID string) ([]common.Relationship, error)

	SaveCommunities(ctx context.Context, projectID string, communities []common.Community) error
	GetCommunities(ctx context.Context, projectID string) ([]common.Community, error)
	SaveCommunityReports(ctx context.Context, projectID string, reports []common.CommunityReport) error
	GetCommunityReports(ctx context.Context, projectID string) ([]common.CommunityReport, error)

	UpsertEntityVectors(ctx context.Context, projectID string, records []EntityVectorRecord) error
	UpsertReportVectors(ctx context.Context, projectID string, records []ReportVectorRecord) error
	SearchEntities(ctx context.Context, projectID string, embedding []float32, limit int) ([]EntityMatch, error)
	SearchReports(ctx context.Context, projectID string, embedding []float32, limit int) ([]ReportMatch, error)

	DeleteProject(ctx context.Context, id string) error
}
