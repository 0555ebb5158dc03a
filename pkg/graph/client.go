package graph

import "time"

// GraphClient is the main client for building a graph from a corpus.
// It holds the chunking, clustering and retry configuration shared by
// all pipeline stages.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	tokenEncoder  string
	maxUnitTokens int

	maxClusterSize int
	resolution     float64
	partitioner    Partitioner

	maxRetries      int
	retryDelay      time.Duration
	parallelReports int

	includeIsolatedEntities bool
	dedupeExtractions       bool
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// TokenEncoder specifies the tiktoken encoding used for token budgeting.
// MaxUnitTokens bounds the token width of a text unit.
// MaxClusterSize and Resolution control hierarchical community detection.
// Partitioner overrides the default modularity-based partitioner.
// MaxRetries bounds the attempts for a text unit's extraction call
// before the run aborts; RetryDelay is the pause between attempts.
// ParallelReports caps concurrent community report generation.
// IncludeIsolatedEntities keeps entities without relationships in the
// finalized entity table instead of dropping them.
// DedupeExtractions skips re-extracting a text unit whose extraction
// output has already been persisted.
type NewGraphClientParams struct {
	TokenEncoder  string
	MaxUnitTokens int

	MaxClusterSize int
	Resolution     float64
	Partitioner    Partitioner

	MaxRetries      int
	RetryDelay      time.Duration
	ParallelReports int

	IncludeIsolatedEntities bool
	DedupeExtractions       bool
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	params := graph.NewGraphClientParams{
//		TokenEncoder:   "cl100k_base",
//		MaxUnitTokens:  300,
//		MaxClusterSize: 10,
//		Resolution:     1.2,
//	}
//	client, err := graph.NewGraphClient(params)
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := params.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	maxUnitTokens := params.MaxUnitTokens
	if maxUnitTokens <= 0 {
		maxUnitTokens = 300
	}
	maxClusterSize := params.MaxClusterSize
	if maxClusterSize <= 0 {
		maxClusterSize = 10
	}
	resolution := params.Resolution
	if resolution <= 0 {
		resolution = 1.2
	}
	parallelReports := params.ParallelReports
	if parallelReports <= 0 {
		parallelReports = 10
	}
	partitioner := params.Partitioner
	if partitioner == nil {
		partitioner = &ModularityPartitioner{}
	}

	g := &GraphClient{
		tokenEncoder:  params.TokenEncoder,
		maxUnitTokens: maxUnitTokens,

		maxClusterSize: maxClusterSize,
		resolution:     resolution,
		partitioner:    partitioner,

		maxRetries:      maxRetries,
		retryDelay:      retryDelay,
		parallelReports: parallelReports,

		includeIsolatedEntities: params.IncludeIsolatedEntities,
		dedupeExtractions:       params.DedupeExtractions,
	}

	return g, nil
}
