package graph

import (
	"context"
	"fmt"

	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/loader"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/store"
)

// ProcessGraph runs the full indexing pipeline for a project: corpus
// loading, chunking, extraction, graph finalization, community detection
// and report generation. Each stage persists its output before the next
// stage starts, so a failed run can be inspected mid-way.
//
// Vector index construction is not part of this pipeline; it runs
// afterwards over the persisted artifacts.
func (g *GraphClient) ProcessGraph(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storage store.GraphStorage,
	projectID string,
	files []loader.GraphFile,
) error {
	docs, err := LoadDocuments(ctx, files)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	logger.Info("[Graph] Loaded corpus", "project", projectID, "documents", len(docs))

	var units []common.TextUnit
	for _, doc := range docs {
		docUnits, err := ChunkDocument(doc, g.tokenEncoder, g.maxUnitTokens)
		if err != nil {
			return fmt.Errorf("failed to chunk document %s: %w", doc.ID, err)
		}
		units = append(units, docUnits...)
	}

	docs, err = LinkDocuments(docs, units)
	if err != nil {
		return err
	}

	if err := storage.SaveDocuments(ctx, projectID, docs); err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}
	if err := storage.SaveTextUnits(ctx, projectID, units); err != nil {
		return fmt.Errorf("failed to save text units: %w", err)
	}
	logger.Info("[Graph] Chunked corpus", "project", projectID, "units", len(units))

	if err := g.ExtractUnits(ctx, aiClient, storage, projectID, units); err != nil {
		return fmt.Errorf("failed to extract units: %w", err)
	}

	rawEntities, rawRelationships, err := storage.GetExtractions(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load extractions: %w", err)
	}
	logger.Info("[Graph] Extraction finished",
		"project", projectID,
		"entities", len(rawEntities),
		"relationships", len(rawRelationships),
	)

	entities, relationships, err := g.FinalizeGraph(rawEntities, rawRelationships)
	if err != nil {
		return fmt.Errorf("failed to finalize graph: %w", err)
	}

	if err := storage.SaveEntities(ctx, projectID, entities); err != nil {
		return fmt.Errorf("failed to save entities: %w", err)
	}
	if err := storage.SaveRelationships(ctx, projectID, relationships); err != nil {
		return fmt.Errorf("failed to save relationships: %w", err)
	}
	logger.Info("[Graph] Finalized graph",
		"project", projectID,
		"entities", len(entities),
		"relationships", len(relationships),
	)

	communities, err := g.DetectCommunities(entities, relationships)
	if err != nil {
		return fmt.Errorf("failed to detect communities: %w", err)
	}
	if err := storage.SaveCommunities(ctx, projectID, communities); err != nil {
		return fmt.Errorf("failed to save communities: %w", err)
	}
	logger.Info("[Graph] Detected communities", "project", projectID, "communities", len(communities))

	reports, err := g.GenerateReports(ctx, aiClient, communities, entities, relationships)
	if err != nil {
		return fmt.Errorf("failed to generate reports: %w", err)
	}
	if err := storage.SaveCommunityReports(ctx, projectID, reports); err != nil {
		return fmt.Errorf("failed to save community reports: %w", err)
	}
	logger.Info("[Graph] Generated reports",
		"project", projectID,
		"reports", len(reports),
		"skipped", len(communities)-len(reports),
	)

	return nil
}
