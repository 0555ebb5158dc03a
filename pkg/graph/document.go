package graph

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/lattice-graph/lattice/pkg/common"
	"github.com/lattice-graph/lattice/pkg/loader"
)

// LoadDocuments turns corpus files into Document records. The file's ID is
// used as the document id when present, otherwise a fresh id is generated.
func LoadDocuments(
	ctx context.Context,
	files []loader.GraphFile,
) ([]common.Document, error) {
	docs := make([]common.Document, 0, len(files))
	for _, file := range files {
		text, err := file.GetText(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file.FilePath, err)
		}

		id := file.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return nil, fmt.Errorf("failed to generate document id: %w", err)
			}
		}

		docs = append(docs, common.Document{
			ID:    id,
			Title: file.Title,
			Text:  string(text),
		})
	}
	return docs, nil
}

// LinkDocuments rebuilds the Document → TextUnit back-references. Every unit
// must resolve to a loaded document; a dangling document_id is an error.
func LinkDocuments(
	docs []common.Document,
	units []common.TextUnit,
) ([]common.Document, error) {
	byID := make(map[string]int, len(docs))
	linked := make([]common.Document, len(docs))
	for i, doc := range docs {
		doc.TextUnitIDs = nil
		linked[i] = doc
		byID[doc.ID] = i
	}

	for _, unit := range units {
		idx, ok := byID[unit.DocumentID]
		if !ok {
			return nil, fmt.Errorf("text unit %s references unknown document %s", unit.ID, unit.DocumentID)
		}
		linked[idx].TextUnitIDs = append(linked[idx].TextUnitIDs, unit.ID)
	}

	return linked, nil
}
