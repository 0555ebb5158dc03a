package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/logger"
)

type reportFinding struct {
	Summary     string `json:"summary" jsonschema_description:"Short headline of the finding"`
	Explanation string `json:"explanation" jsonschema_description:"Multi-sentence explanation grounded in the community data"`
}

type reportResponse struct {
	Title    string          `json:"title" jsonschema_description:"Short name of the community naming its key entities"`
	Summary  string          `json:"summary" jsonschema_description:"Executive summary of the community's structure"`
	Findings []reportFinding `json:"findings" jsonschema_description:"5-10 key insights about the community"`
}

// GenerateReports produces a natural-language report for every community.
// Report generation runs concurrently, bounded by the client's parallel
// report limit. A community whose report fails is logged and skipped; the
// remaining reports are still returned.
func (g *GraphClient) GenerateReports(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	communities []common.Community,
	entities []common.Entity,
	relationships []common.Relationship,
) ([]common.CommunityReport, error) {
	entitiesByID := make(map[string]common.Entity, len(entities))
	for _, entity := range entities {
		entitiesByID[entity.ID] = entity
	}
	relationshipsByID := make(map[string]common.Relationship, len(relationships))
	for _, rel := range relationships {
		relationshipsByID[rel.ID] = rel
	}

	var mu sync.Mutex
	reports := make([]common.CommunityReport, 0, len(communities))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelReports)

	for _, community := range communities {
		comm := community
		eg.Go(func() error {
			report, err := g.generateReport(ectx, aiClient, comm, entitiesByID, relationshipsByID)
			if err != nil {
				logger.Warn("[Graph] Skipping community report",
					"community", comm.ID,
					"level", comm.Level,
					"error", err,
				)
				return nil
			}

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func (g *GraphClient) generateReport(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	community common.Community,
	entitiesByID map[string]common.Entity,
	relationshipsByID map[string]common.Relationship,
) (common.CommunityReport, error) {
	contextBlock := renderCommunityContext(community, entitiesByID, relationshipsByID)
	prompt := fmt.Sprintf(ai.CommunityReportPrompt, contextBlock)

	var response reportResponse
	err := aiClient.GenerateCompletionWithFormat(
		ctx,
		"community_report",
		"Structured report summarizing a community of related entities",
		prompt,
		&response,
	)
	if err != nil {
		return common.CommunityReport{}, fmt.Errorf("failed to generate report for community %d: %w", community.ID, err)
	}

	fullContent, err := json.Marshal(response)
	if err != nil {
		return common.CommunityReport{}, fmt.Errorf("failed to serialize report for community %d: %w", community.ID, err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return common.CommunityReport{}, fmt.Errorf("failed to generate report id: %w", err)
	}

	findings := make([]common.Finding, len(response.Findings))
	for i, finding := range response.Findings {
		findings[i] = common.Finding{
			Summary:     finding.Summary,
			Explanation: finding.Explanation,
		}
	}

	return common.CommunityReport{
		ID:          id,
		CommunityID: community.ID,
		Title:       response.Title,
		Summary:     response.Summary,
		FullContent: string(fullContent),
		Findings:    findings,
		Period:      community.Period,
		Size:        community.Size,
	}, nil
}

// renderCommunityContext renders the community's entities and
// relationships as markdown tables for the report prompt.
func renderCommunityContext(
	community common.Community,
	entitiesByID map[string]common.Entity,
	relationshipsByID map[string]common.Relationship,
) string {
	var b strings.Builder

	b.WriteString("## Entities\n\n")
	b.WriteString("| id | title | description |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, entityID := range community.EntityIDs {
		entity, ok := entitiesByID[entityID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n",
			entity.ID,
			sanitizeCell(entity.Title),
			sanitizeCell(entity.Description),
		)
	}

	b.WriteString("\n## Relationships\n\n")
	b.WriteString("| id | source | target | description |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, relID := range community.RelationshipIDs {
		rel, ok := relationshipsByID[relID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			rel.ID,
			sanitizeCell(rel.Source),
			sanitizeCell(rel.Target),
			sanitizeCell(rel.Description),
		)
	}

	return b.String()
}

func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "/")
}
