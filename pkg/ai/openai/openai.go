package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/lattice-graph/lattice/pkg/ai"
)

// GraphOpenAIClient is an OpenAI-backed implementation of ai.GraphAIClient.
// It manages separate clients for embeddings and chat so the two concerns
// can point at different endpoints (e.g. a local embedding server and a
// hosted chat API).
type GraphOpenAIClient struct {
	embeddingModel  string
	chatModel       string
	extractionModel string

	chatURL      string
	chatKey      string
	embeddingURL string
	embeddingKey string

	embeddingLock *semaphore.Weighted
	timeoutMin    int

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration for creating a new
// GraphOpenAIClient.
//
// EmbeddingModel specifies the model used for embeddings.
// ChatModel specifies the model used for reports and answer generation.
// ExtractionModel specifies the model used for structured extraction.
// MaxConcurrentEmbeddings caps in-flight embedding requests (defaults to 10).
// TimeoutMin bounds each embedding request in minutes (defaults to 5).
type NewGraphOpenAIClientParams struct {
	EmbeddingModel  string
	ChatModel       string
	ExtractionModel string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	MaxConcurrentEmbeddings int64
	TimeoutMin              int
}

// NewGraphOpenAIClient creates and returns a new GraphOpenAIClient configured
// with the provided parameters.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		EmbeddingModel:  "text-embedding-3-small",
//		ChatModel:       "gpt-4o-mini",
//		ExtractionModel: "gpt-4o-mini",
//		EmbeddingKey:    os.Getenv("OPENAI_API_KEY"),
//		ChatKey:         os.Getenv("OPENAI_API_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)
	embedClient := newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey)

	maxEmbeddings := params.MaxConcurrentEmbeddings
	if maxEmbeddings <= 0 {
		maxEmbeddings = 10
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 5
	}

	return &GraphOpenAIClient{
		embeddingModel:  params.EmbeddingModel,
		chatModel:       params.ChatModel,
		extractionModel: params.ExtractionModel,

		chatURL:      params.ChatURL,
		chatKey:      params.ChatKey,
		embeddingURL: params.EmbeddingURL,
		embeddingKey: params.EmbeddingKey,

		embeddingLock: semaphore.NewWeighted(maxEmbeddings),
		timeoutMin:    timeoutMin,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient:      chatClient,
		EmbeddingClient: embedClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
