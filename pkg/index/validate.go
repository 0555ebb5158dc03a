package index

import (
	"math"

	"github.com/lattice-graph/lattice/pkg/logger"
)

// validate checks an index record before upload and logs every problem it
// finds. Validation never blocks the upload; a flagged record is still
// written so the index stays aligned with the graph tables.
func (ix *Indexer) validate(kind, id, content string, embedding []float32) {
	if id == "" {
		logger.Warn("[Index] Record has empty id", "kind", kind)
	}
	if content == "" {
		logger.Warn("[Index] Record has empty content", "kind", kind, "record", id)
	}
	if len(embedding) != ix.dimensions {
		logger.Warn("[Index] Record has unexpected embedding width",
			"kind", kind,
			"record", id,
			"width", len(embedding),
			"expected", ix.dimensions,
		)
	}
	for _, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			logger.Warn("[Index] Record embedding contains non-finite values",
				"kind", kind,
				"record", id,
			)
			break
		}
	}
}
