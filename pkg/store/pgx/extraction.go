package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lattice-graph/lattice/pkg/common"
)

// AppendExtraction persists one text unit's extraction output as a new
// row. Rows are never overwritten, so replaying a unit produces a
// second row for it.
func (s *GraphDBStorage) AppendExtraction(
	ctx context.Context,
	projectID string,
	unitID string,
	entities []common.Entity,
	relationships []common.Relationship,
) error {
	entityJSON, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("failed to serialize entities: %w", err)
	}
	relationshipJSON, err := json.Marshal(relationships)
	if err != nil {
		return fmt.Errorf("failed to serialize relationships: %w", err)
	}

	_, err = s.conn.Exec(ctx,
		`INSERT INTO extractions (project_id, unit_id, entities, relationships)
		 VALUES ($1, $2, $3, $4)`,
		projectID, unitID, entityJSON, relationshipJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append extraction: %w", err)
	}
	return nil
}

func (s *GraphDBStorage) HasExtraction(ctx context.Context, projectID string, unitID string) (bool, error) {
	var exists bool
	err := s.conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM extractions WHERE project_id = $1 AND unit_id = $2)`,
		projectID, unitID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check extraction: %w", err)
	}
	return exists, nil
}

// GetExtractions returns all persisted extraction output for the
// project in append order.
func (s *GraphDBStorage) GetExtractions(
	ctx context.Context,
	projectID string,
) ([]common.Entity, []common.Relationship, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT entities, relationships FROM extractions
		 WHERE project_id = $1 ORDER BY seq`,
		projectID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load extractions: %w", err)
	}
	defer rows.Close()

	var entities []common.Entity
	var relationships []common.Relationship

	for rows.Next() {
		var entityJSON, relationshipJSON []byte
		if err := rows.Scan(&entityJSON, &relationshipJSON); err != nil {
			return nil, nil, err
		}

		var rowEntities []common.Entity
		if err := json.Unmarshal(entityJSON, &rowEntities); err != nil {
			return nil, nil, fmt.Errorf("failed to parse extraction entities: %w", err)
		}
		var rowRelationships []common.Relationship
		if err := json.Unmarshal(relationshipJSON, &rowRelationships); err != nil {
			return nil, nil, fmt.Errorf("failed to parse extraction relationships: %w", err)
		}

		entities = append(entities, rowEntities...)
		relationships = append(relationships, rowRelationships...)
	}

	return entities, relationships, rows.Err()
}
