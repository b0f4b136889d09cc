package ollamaEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

var logger = logger_i.NewLogger("ollama_embedding")

type client struct {
	embedder   *embeddings.EmbedderImpl
	dimension  int
	batchSize  int
	maxRetries int
}

type Options struct {
	ServerURL  string
	Model      string
	Dimension  int
	BatchSize  int
	MaxRetries int
	HTTPClient *http.Client
}

// New builds an embedder backed by a local ollama server. The dimension is
// not reported by ollama, so it is taken from configuration and checked on
// every response.
func New(opts Options) (embedding.Embedder, error) {
	llmOpts := []ollama.Option{ollama.WithModel(opts.Model), ollama.WithServerURL(opts.ServerURL)}
	if opts.HTTPClient != nil {
		llmOpts = append(llmOpts, ollama.WithHTTPClient(opts.HTTPClient))
	}
	llm, err := ollama.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama client: %v", commonModels.ErrConfiguration, err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(max(opts.BatchSize, 1)))
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama embedder: %v", commonModels.ErrConfiguration, err)
	}
	logger.Info("Ollama embedding client created", "model", opts.Model, "server", opts.ServerURL)
	return &client{embedder: embedder, dimension: opts.Dimension, batchSize: opts.BatchSize, maxRetries: opts.MaxRetries}, nil
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	vector, err := embedding.WithRetry(ctx, c.maxRetries, log, func() ([]float32, error) {
		return c.embedder.EmbedQuery(ctx, query)
	})
	if err != nil {
		log.Error("Error getting query embedding from ollama", "error", err)
		return nil, err
	}
	if err = embedding.CheckDimensions([][]float32{vector}, 1, c.dimension); err != nil {
		return nil, err
	}
	return vector, nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	vectors, err := embedding.WithRetry(ctx, c.maxRetries, log, func() ([][]float32, error) {
		return c.embedder.EmbedDocuments(ctx, chunks)
	})
	if err != nil {
		log.Error("Error getting embeddings from ollama", "error", err, "chunks", len(chunks))
		return nil, err
	}
	if err = embedding.CheckDimensions(vectors, len(chunks), c.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}
