package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/store"
)

// SaveEntities replaces the project's finalized entity table.
func (s *GraphDBStorage) SaveEntities(ctx context.Context, projectID string, entities []common.Entity) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM entities WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}

	err = store.ChunkRange(len(entities), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, entity := range entities[start:end] {
			batch.Queue(
				`INSERT INTO entities (project_id, id, title, type, description, text_unit_ids, degree, frequency, x, y)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				projectID, entity.ID, entity.Title, entity.Type, entity.Description,
				entity.TextUnitIDs, entity.Degree, entity.Frequency, entity.X, entity.Y,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save entities: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) GetEntities(ctx context.Context, projectID string) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, title, type, description, text_unit_ids, degree, frequency, x, y
		 FROM entities WHERE project_id = $1 ORDER BY title`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	defer rows.Close()

	var entities []common.Entity
	for rows.Next() {
		var entity common.Entity
		err := rows.Scan(
			&entity.ID, &entity.Title, &entity.Type, &entity.Description,
			&entity.TextUnitIDs, &entity.Degree, &entity.Frequency, &entity.X, &entity.Y,
		)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// SaveRelationships replaces the project's finalized relationship table.
func (s *GraphDBStorage) SaveRelationships(ctx context.Context, projectID string, relationships []common.Relationship) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM relationships WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear relationships: %w", err)
	}

	err = store.ChunkRange(len(relationships), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, rel := range relationships[start:end] {
			batch.Queue(
				`INSERT INTO relationships (project_id, id, source, target, description, text_unit_ids, combined_degree)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				projectID, rel.ID, rel.Source, rel.Target, rel.Description,
				rel.TextUnitIDs, rel.CombinedDegree,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save relationships: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) GetRelationships(ctx context.Context, projectID string) ([]common.Relationship, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, source, target, description, text_unit_ids, combined_degree
		 FROM relationships WHERE project_id = $1 ORDER BY source, target`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	defer rows.Close()

	var relationships []common.Relationship
	for rows.Next() {
		var rel common.Relationship
		err := rows.Scan(
			&rel.ID, &rel.Source, &rel.Target, &rel.Description,
			&rel.TextUnitIDs, &rel.CombinedDegree,
		)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, rel)
	}
	return relationships, rows.Err()
}

// SaveCommunities replaces the project's community table.
func (s *GraphDBStorage) SaveCommunities(ctx context.Context, projectID string, communities []common.Community) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM communities WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear communities: %w", err)
	}

	err = store.ChunkRange(len(communities), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, community := range communities[start:end] {
			batch.Queue(
				`INSERT INTO communities (project_id, id, human_readable_id, title, level, parent, children, entity_ids, relationship_ids, text_unit_ids, period, size)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				projectID, community.ID, community.HumanReadableID, community.Title,
				community.Level, community.Parent, community.Children,
				community.EntityIDs, community.RelationshipIDs, community.TextUnitIDs,
				community.Period, community.Size,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save communities: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) GetCommunities(ctx context.Context, projectID string) ([]common.Community, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, human_readable_id, title, level, parent, children, entity_ids, relationship_ids, text_unit_ids, period, size
		 FROM communities WHERE project_id = $1 ORDER BY level, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load communities: %w", err)
	}
	defer rows.Close()

	var communities []common.Community
	for rows.Next() {
		var community common.Community
		err := rows.Scan(
			&community.ID, &community.HumanReadableID, &community.Title,
			&community.Level, &community.Parent, &community.Children,
			&community.EntityIDs, &community.RelationshipIDs, &community.TextUnitIDs,
			&community.Period, &community.Size,
		)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}
	return communities, rows.Err()
}

// SaveCommunityReports replaces the project's community report table.
func (s *GraphDBStorage) SaveCommunityReports(ctx context.Context, projectID string, reports []common.CommunityReport) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM community_reports WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear community reports: %w", err)
	}

	err = store.ChunkRange(len(reports), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, report := range reports[start:end] {
			findings, err := json.Marshal(report.Findings)
			if err != nil {
				return fmt.Errorf("failed to serialize findings for report %s: %w", report.ID, err)
			}
			batch.Queue(
				`INSERT INTO community_reports (project_id, id, community_id, title, summary, full_content, findings, rank, period, size)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				projectID, report.ID, report.CommunityID, report.Title, report.Summary,
				report.FullContent, findings, report.Rank, report.Period, report.Size,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save community reports: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) GetCommunityReports(ctx context.Context, projectID string) ([]common.CommunityReport, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, community_id, title, summary, full_content, findings, rank, period, size
		 FROM community_reports WHERE project_id = $1 ORDER BY community_id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load community reports: %w", err)
	}
	defer rows.Close()

	var reports []common.CommunityReport
	for rows.Next() {
		var report common.CommunityReport
		var findings []byte
		err := rows.Scan(
			&report.ID, &report.CommunityID, &report.Title, &report.Summary,
			&report.FullContent, &findings, &report.Rank, &report.Period, &report.Size,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(findings, &report.Findings); err != nil {
			return nil, fmt.Errorf("failed to parse findings for report %s: %w", report.ID, err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
