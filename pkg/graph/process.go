package graph

import (
	"context"
	"fmt"

	"github.com/lattice-graph/lattice/internal/util"
	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/store"
)

type extractedTables struct {
	entities      []common.Entity
	relationships []common.Relationship
}

// ExtractUnits runs extraction over the text units one by one, persisting
// each unit's output before moving to the next. A unit's extraction call
// is retried up to MaxRetries times; once exhausted the error is
// returned immediately. Everything extracted so far stays in storage, so
// a retried run will append duplicate rows for the units it repeats
// unless DedupeExtractions is enabled.
func (g *GraphClient) ExtractUnits(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storage store.GraphStorage,
	projectID string,
	units []common.TextUnit,
) error {
	for i, unit := range units {
		if g.dedupeExtractions {
			done, err := storage.HasExtraction(ctx, projectID, unit.ID)
			if err != nil {
				return fmt.Errorf("failed to check extraction state for unit %s: %w", unit.ID, err)
			}
			if done {
				logger.Debug("[Graph] Skipping already extracted unit",
					"unit", unit.ID,
					"progress", fmt.Sprintf("%d/%d", i+1, len(units)),
				)
				continue
			}
		}

		tables, err := util.RetryWithContextDelay(ctx, g.maxRetries, g.retryDelay, func(ctx context.Context) (extractedTables, error) {
			entities, relationships, err := ExtractFromUnit(ctx, aiClient, unit)
			return extractedTables{entities: entities, relationships: relationships}, err
		})
		if err != nil {
			logger.Error("[Graph] Extraction failed",
				"unit", unit.ID,
				"progress", fmt.Sprintf("%d/%d", i+1, len(units)),
				"error", err,
			)
			return err
		}

		if err := storage.AppendExtraction(ctx, projectID, unit.ID, tables.entities, tables.relationships); err != nil {
			return fmt.Errorf("failed to persist extraction for unit %s: %w", unit.ID, err)
		}

		logger.Debug("[Graph] Extracted unit",
			"unit", unit.ID,
			"entities", len(tables.entities),
			"relationships", len(tables.relationships),
			"progress", fmt.Sprintf("%d/%d", i+1, len(units)),
		)
	}

	return nil
}
