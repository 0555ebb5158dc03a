package graph

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lattice-graph/lattice/pkg/ai"
	"github.com/lattice-graph/lattice/pkg/common"
)

type extractEntity struct {
	Title       string `json:"title" jsonschema_description:"Name of the entity, capitalized"`
	Type        string `json:"type" jsonschema_description:"Type of the entity, e.g. person, organization, location"`
	Description string `json:"description" jsonschema_description:"Short description of the entity based on the text"`
}

type extractRelationship struct {
	Source      string `json:"source" jsonschema_description:"Title of the source entity"`
	Target      string `json:"target" jsonschema_description:"Title of the target entity"`
	Description string `json:"description" jsonschema_description:"Short description of how source and target relate"`
}

type extractResponse struct {
	Entities      []extractEntity      `json:"entities" jsonschema_description:"All entities found in the text"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"All relationships between the found entities"`
}

// ExtractFromUnit runs entity and relationship extraction on a single
// text unit. Relationships whose endpoints are not in the extracted
// entity set are dropped, so the returned tables are always consistent
// with each other.
func ExtractFromUnit(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	unit common.TextUnit,
) ([]common.Entity, []common.Relationship, error) {
	prompt := fmt.Sprintf(ai.ExtractPrompt, unit.Text)

	var response extractResponse
	err := aiClient.GenerateCompletionWithFormat(
		ctx,
		"extraction",
		"Entities and relationships extracted from a text passage",
		prompt,
		&response,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract from unit %s: %w", unit.ID, err)
	}

	entities := make([]common.Entity, 0, len(response.Entities))
	titles := make(map[string]bool, len(response.Entities))

	for _, entity := range response.Entities {
		title := strings.TrimSpace(entity.Title)
		if title == "" || titles[title] {
			continue
		}
		titles[title] = true

		id, err := gonanoid.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate entity id: %w", err)
		}

		entities = append(entities, common.Entity{
			ID:          id,
			Title:       title,
			Type:        strings.TrimSpace(entity.Type),
			Description: strings.TrimSpace(entity.Description),
			TextUnitIDs: []string{unit.ID},
		})
	}

	relationships := make([]common.Relationship, 0, len(response.Relationships))
	for _, rel := range response.Relationships {
		source := strings.TrimSpace(rel.Source)
		target := strings.TrimSpace(rel.Target)
		if !titles[source] || !titles[target] || source == target {
			continue
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate relationship id: %w", err)
		}

		relationships = append(relationships, common.Relationship{
			ID:          id,
			Source:      source,
			Target:      target,
			Description: strings.TrimSpace(rel.Description),
			TextUnitIDs: []string{unit.ID},
		})
	}

	return entities, relationships, nil
}
