package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/lattice-graph/lattice/internal/util"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/store"
)

const saveChunk = 250

// SaveDocuments replaces the project's document table.
func (s *GraphDBStorage) SaveDocuments(ctx context.Context, projectID string, docs []common.Document) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}

	err = store.ChunkRange(len(docs), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, doc := range docs[start:end] {
			batch.Queue(
				`INSERT INTO documents (project_id, id, title, text, text_unit_ids)
				 VALUES ($1, $2, $3, $4, $5)`,
				projectID, doc.ID, doc.Title, util.SanitizePostgresText(doc.Text), doc.TextUnitIDs,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}

	return tx.Commit(ctx)
}

// SaveTextUnits replaces the project's text unit table.
func (s *GraphDBStorage) SaveTextUnits(ctx context.Context, projectID string, units []common.TextUnit) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM text_units WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear text units: %w", err)
	}

	err = store.ChunkRange(len(units), saveChunk, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, unit := range units[start:end] {
			batch.Queue(
				`INSERT INTO text_units (project_id, id, document_id, text, token_count)
				 VALUES ($1, $2, $3, $4, $5)`,
				projectID, unit.ID, unit.DocumentID, util.SanitizePostgresText(unit.Text), unit.TokenCount,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save text units: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) GetTextUnits(ctx context.Context, projectID string) ([]common.TextUnit, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, document_id, text, token_count
		 FROM text_units WHERE project_id = $1 ORDER BY id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load text units: %w", err)
	}
	defer rows.Close()

	var units []common.TextUnit
	for rows.Next() {
		var unit common.TextUnit
		if err := rows.Scan(&unit.ID, &unit.DocumentID, &unit.Text, &unit.TokenCount); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}
