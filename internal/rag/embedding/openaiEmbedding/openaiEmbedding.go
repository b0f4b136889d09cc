package openaiEmbedding

import (
	"context"
	"net/http"
	"sort"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("openai_embedding")

type client struct {
	api        openai.Client
	model      string
	dimension  int
	batchSize  int
	maxRetries int
}

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	BatchSize  int
	MaxRetries int
	HTTPClient *http.Client
}

// New works against the OpenAI API and any server speaking its embeddings
// protocol, such as text-embeddings-inference.
func New(opts Options) embedding.Embedder {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	logger.Info("OpenAI embedding client created", "model", opts.Model, "baseURL", opts.BaseURL)
	return &client{
		api:        openai.NewClient(reqOpts...),
		model:      opts.Model,
		dimension:  opts.Dimension,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
	}
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result := make([][]float32, 0, len(chunks))
	for _, batch := range embedding.Batches(chunks, c.batchSize) {
		res, err := embedding.WithRetry(ctx, c.maxRetries, log, func() (*openai.CreateEmbeddingResponse, error) {
			return c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
				Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
				Model:      openai.EmbeddingModel(c.model),
				Dimensions: openai.Int(int64(c.dimension)),
			})
		})
		if err != nil {
			log.Error("Error getting embeddings from OpenAI", "error", err, "batch", len(batch))
			return nil, err
		}
		result = append(result, toVectors(res.Data)...)
	}
	if err := embedding.CheckDimensions(result, len(chunks), c.dimension); err != nil {
		return nil, err
	}
	return result, nil
}

// toVectors orders the response by input index and narrows to float32.
func toVectors(data []openai.Embedding) [][]float32 {
	sorted := make([]openai.Embedding, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	vectors := make([][]float32, len(sorted))
	for i, e := range sorted {
		vector := make([]float32, len(e.Embedding))
		for j, v := range e.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}
	return vectors
}
