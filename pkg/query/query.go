package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/store"
)

// NoInformationAnswer is returned when local retrieval finds no entities
// for the query. The generation model is not contacted in that case.
const NoInformationAnswer = "No relevant information was found for this query."

// QueryClient answers questions against an indexed project.
//
// A QueryClient should be created using NewQueryClient.
type QueryClient struct {
	topK int
}

// NewQueryClientParams defines the configuration parameters for creating
// a new QueryClient.
//
// TopK bounds both retrieval steps: the number of entities fetched from
// the entity index and the number of reports fetched from the report
// index.
type NewQueryClientParams struct {
	TopK int
}

// NewQueryClient creates and returns a new QueryClient configured with
// the provided parameters.
func NewQueryClient(params NewQueryClientParams) *QueryClient {
	topK := params.TopK
	if topK <= 0 {
		topK = 5
	}
	return &QueryClient{topK: topK}
}

// GraphSearchResult holds the retrieval trace and the generated answer
// of a single graph search.
type GraphSearchResult struct {
	Query               string              `json:"query"`
	Entities            []store.EntityMatch `json:"entities"`
	InferredCommunityID string              `json:"inferred_community_id"`
	Reports             []store.ReportMatch `json:"reports"`
	Answer              string              `json:"answer"`
	NoInformation       bool                `json:"no_information"`
}

// GraphSearch runs the two-stage retrieval and answer generation flow:
//
//  1. Embed the query and search the entity index.
//  2. Tally community ids across the retrieved entities; the most
//     frequent one is the inferred community, ties broken by the order
//     in which ids were first encountered.
//  3. Re-embed the concatenated entity content and search the report
//     index with the refined embedding.
//  4. Generate a grounded answer from the combined entity and report
//     content.
//
// When step 1 retrieves nothing the flow short-circuits with
// NoInformationAnswer and never contacts the generation model.
func (q *QueryClient) GraphSearch(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	storage store.GraphStorage,
	projectID string,
	query string,
) (GraphSearchResult, error) {
	result := GraphSearchResult{Query: query}

	queryEmbedding, err := aiClient.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return result, fmt.Errorf("failed to embed query: %w", err)
	}

	entities, err := storage.SearchEntities(ctx, projectID, queryEmbedding, q.topK)
	if err != nil {
		return result, fmt.Errorf("failed to search entities: %w", err)
	}
	result.Entities = entities

	if len(entities) == 0 {
		logger.Info("[Query] No entities retrieved", "project", projectID)
		result.Answer = NoInformationAnswer
		result.NoInformation = true
		return result, nil
	}

	result.InferredCommunityID = inferCommunity(entities)
	logger.Debug("[Query] Inferred community",
		"project", projectID,
		"community", result.InferredCommunityID,
		"entities", len(entities),
	)

	entityContents := make([]string, len(entities))
	for i, match := range entities {
		entityContents[i] = match.Record.Content
	}

	refinedEmbedding, err := aiClient.GenerateEmbedding(ctx, []byte(strings.Join(entityContents, " ")))
	if err != nil {
		return result, fmt.Errorf("failed to embed combined entity content: %w", err)
	}

	reports, err := storage.SearchReports(ctx, projectID, refinedEmbedding, q.topK)
	if err != nil {
		return result, fmt.Errorf("failed to search reports: %w", err)
	}
	result.Reports = reports

	contents := make([]string, 0, len(entities)+len(reports))
	contents = append(contents, entityContents...)
	for _, match := range reports {
		contents = append(contents, match.Record.Content)
	}

	answer, err := aiClient.GenerateChat(
		ctx,
		[]ai.ChatMessage{{Role: "user", Message: query}},
		ai.WithSystemPrompts(fmt.Sprintf(ai.QueryPrompt, strings.Join(contents, "\n\n---\n\n"))),
	)
	if err != nil {
		return result, fmt.Errorf("failed to generate answer: %w", err)
	}

	result.Answer = answer
	return result, nil
}

// inferCommunity picks the community id appearing most often across the
// retrieved entities. On a tie the id encountered first wins.
func inferCommunity(entities []store.EntityMatch) string {
	counts := make(map[string]int)
	var order []string

	for _, match := range entities {
		for _, id := range match.Record.CommunityIDs {
			if _, seen := counts[id]; !seen {
				order = append(order, id)
			}
			counts[id]++
		}
	}

	best := ""
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best = id
			bestCount = counts[id]
		}
	}

	return best
}
