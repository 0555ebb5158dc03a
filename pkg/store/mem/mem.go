package mem

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/store"
)

// ErrProjectNotFound is returned when a project id does not exist.
var ErrProjectNotFound = errors.New("project not found")

type extraction struct {
	unitID        string
	entities      []common.Entity
	relationships []common.Relationship
}

type projectData struct {
	project common.Project

	documents     []common.Document
	units         []common.TextUnit
	extractions   []extraction
	entities      []common.Entity
	relationships []common.Relationship
	communities   []common.Community
	reports       []common.CommunityReport

	entityVectors map[string]store.EntityVectorRecord
	entityOrder   []string
	reportVectors map[string]store.ReportVectorRecord
	reportOrder   []string
}

// MemGraphStorage is an in-memory GraphStorage implementation with
// brute-force cosine similarity search. It backs tests and small local
// runs that should not require a database.
type MemGraphStorage struct {
	mu       sync.RWMutex
	projects map[string]*projectData
}

// NewMemGraphStorage creates an empty in-memory store.
func NewMemGraphStorage() *MemGraphStorage {
	return &MemGraphStorage{
		projects: make(map[string]*projectData),
	}
}

func (s *MemGraphStorage) get(projectID string) (*projectData, error) {
	data, ok := s.projects[projectID]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return data, nil
}

func (s *MemGraphStorage) CreateProject(ctx context.Context, project common.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.Status == "" {
		project.Status = common.ProjectStatusPending
	}

	s.projects[project.ID] = &projectData{
		project:       project,
		entityVectors: make(map[string]store.EntityVectorRecord),
		reportVectors: make(map[string]store.ReportVectorRecord),
	}
	return nil
}

func (s *MemGraphStorage) GetProject(ctx context.Context, id string) (common.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(id)
	if err != nil {
		return common.Project{}, err
	}
	return data.project, nil
}

func (s *MemGraphStorage) SetProjectStatus(ctx context.Context, id string, status common.ProjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(id)
	if err != nil {
		return err
	}
	data.project.Status = status
	return nil
}

func (s *MemGraphStorage) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, id)
	return nil
}

func (s *MemGraphStorage) SaveDocuments(ctx context.Context, projectID string, docs []common.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.documents = append([]common.Document(nil), docs...)
	return nil
}

func (s *MemGraphStorage) SaveTextUnits(ctx context.Context, projectID string, units []common.TextUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.units = append([]common.TextUnit(nil), units...)
	return nil
}

func (s *MemGraphStorage) GetTextUnits(ctx context.Context, projectID string) ([]common.TextUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return append([]common.TextUnit(nil), data.units...), nil
}

func (s *MemGraphStorage) AppendExtraction(
	ctx context.Context,
	projectID string,
	unitID string,
	entities []common.Entity,
	relationships []common.Relationship,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.extractions = append(data.extractions, extraction{
		unitID:        unitID,
		entities:      append([]common.Entity(nil), entities...),
		relationships: append([]common.Relationship(nil), relationships...),
	})
	return nil
}

func (s *MemGraphStorage) HasExtraction(ctx context.Context, projectID string, unitID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return false, err
	}
	for _, ex := range data.extractions {
		if ex.unitID == unitID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemGraphStorage) GetExtractions(ctx context.Context, projectID string) ([]common.Entity, []common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, nil, err
	}

	var entities []common.Entity
	var relationships []common.Relationship
	for _, ex := range data.extractions {
		entities = append(entities, ex.entities...)
		relationships = append(relationships, ex.relationships...)
	}
	return entities, relationships, nil
}

func (s *MemGraphStorage) SaveEntities(ctx context.Context, projectID string, entities []common.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.entities = append([]common.Entity(nil), entities...)
	return nil
}

func (s *MemGraphStorage) GetEntities(ctx context.Context, projectID string) ([]common.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return append([]common.Entity(nil), data.entities...), nil
}

func (s *MemGraphStorage) SaveRelationships(ctx context.Context, projectID string, relationships []common.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.relationships = append([]common.Relationship(nil), relationships...)
	return nil
}

func (s *MemGraphStorage) GetRelationships(ctx context.Context, projectID string) ([]common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return append([]common.Relationship(nil), data.relationships...), nil
}

func (s *MemGraphStorage) SaveCommunities(ctx context.Context, projectID string, communities []common.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.communities = append([]common.Community(nil), communities...)
	return nil
}

func (s *MemGraphStorage) GetCommunities(ctx context.Context, projectID string) ([]common.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return append([]common.Community(nil), data.communities...), nil
}

func (s *MemGraphStorage) SaveCommunityReports(ctx context.Context, projectID string, reports []common.CommunityReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	data.reports = append([]common.CommunityReport(nil), reports...)
	return nil
}

func (s *MemGraphStorage) GetCommunityReports(ctx context.Context, projectID string) ([]common.CommunityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}
	return append([]common.CommunityReport(nil), data.reports...), nil
}

func (s *MemGraphStorage) UpsertEntityVectors(ctx context.Context, projectID string, records []store.EntityVectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	for _, record := range records {
		if _, ok := data.entityVectors[record.ID]; !ok {
			data.entityOrder = append(data.entityOrder, record.ID)
		}
		data.entityVectors[record.ID] = record
	}
	return nil
}

func (s *MemGraphStorage) UpsertReportVectors(ctx context.Context, projectID string, records []store.ReportVectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(projectID)
	if err != nil {
		return err
	}
	for _, record := range records {
		if _, ok := data.reportVectors[record.ID]; !ok {
			data.reportOrder = append(data.reportOrder, record.ID)
		}
		data.reportVectors[record.ID] = record
	}
	return nil
}

func (s *MemGraphStorage) SearchEntities(ctx context.Context, projectID string, embedding []float32, limit int) ([]store.EntityMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}

	matches := make([]store.EntityMatch, 0, len(data.entityOrder))
	for _, id := range data.entityOrder {
		record := data.entityVectors[id]
		matches = append(matches, store.EntityMatch{
			Record:     record,
			Similarity: cosineSimilarity(embedding, record.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemGraphStorage) SearchReports(ctx context.Context, projectID string, embedding []float32, limit int) ([]store.ReportMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(projectID)
	if err != nil {
		return nil, err
	}

	matches := make([]store.ReportMatch, 0, len(data.reportOrder))
	for _, id := range data.reportOrder {
		record := data.reportVectors[id]
		matches = append(matches, store.ReportMatch{
			Record:     record,
			Similarity: cosineSimilarity(embedding, record.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
