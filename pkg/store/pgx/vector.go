package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/lattice-graph/lattice/pkg/store"
)

// UpsertEntityVectors writes the entity-level index rows, replacing
// existing rows with the same id.
func (s *GraphDBStorage) UpsertEntityVectors(ctx context.Context, projectID string, records []store.EntityVectorRecord) error {
	err := store.ChunkRange(len(records), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, record := range records[start:end] {
			batch.Queue(
				`INSERT INTO entity_vectors (project_id, id, content, embedding, community_ids)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (project_id, id) DO UPDATE
				 SET content = EXCLUDED.content,
				     embedding = EXCLUDED.embedding,
				     community_ids = EXCLUDED.community_ids`,
				projectID, record.ID, record.Content,
				pgvector.NewVector(record.Embedding), record.CommunityIDs,
			)
		}
		return s.conn.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity vectors: %w", err)
	}
	return nil
}

// UpsertReportVectors writes the report-level index rows, replacing
// existing rows with the same id.
func (s *GraphDBStorage) UpsertReportVectors(ctx context.Context, projectID string, records []store.ReportVectorRecord) error {
	err := store.ChunkRange(len(records), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, record := range records[start:end] {
			batch.Queue(
				`INSERT INTO report_vectors (project_id, id, content, embedding)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (project_id, id) DO UPDATE
				 SET content = EXCLUDED.content,
				     embedding = EXCLUDED.embedding`,
				projectID, record.ID, record.Content,
				pgvector.NewVector(record.Embedding),
			)
		}
		return s.conn.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to upsert report vectors: %w", err)
	}
	return nil
}

// SearchEntities returns the entity index rows closest to the query
// embedding by cosine similarity, best first.
func (s *GraphDBStorage) SearchEntities(ctx context.Context, projectID string, embedding []float32, limit int) ([]store.EntityMatch, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, content, embedding, community_ids, 1 - (embedding <=> $2) AS similarity
		 FROM entity_vectors
		 WHERE project_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		projectID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search entity vectors: %w", err)
	}
	defer rows.Close()

	var matches []store.EntityMatch
	for rows.Next() {
		var match store.EntityMatch
		var vec pgvector.Vector
		err := rows.Scan(
			&match.Record.ID, &match.Record.Content, &vec,
			&match.Record.CommunityIDs, &match.Similarity,
		)
		if err != nil {
			return nil, err
		}
		match.Record.Embedding = vec.Slice()
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// SearchReports returns the report index rows closest to the query
// embedding by cosine similarity, best first.
func (s *GraphDBStorage) SearchReports(ctx context.Context, projectID string, embedding []float32, limit int) ([]store.ReportMatch, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, content, embedding, 1 - (embedding <=> $2) AS similarity
		 FROM report_vectors
		 WHERE project_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		projectID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search report vectors: %w", err)
	}
	defer rows.Close()

	var matches []store.ReportMatch
	for rows.Next() {
		var match store.ReportMatch
		var vec pgvector.Vector
		err := rows.Scan(&match.Record.ID, &match.Record.Content, &vec, &match.Similarity)
		if err != nil {
			return nil, err
		}
		match.Record.Embedding = vec.Slice()
		matches = append(matches, match)
	}
	return matches, rows.Err()
}
