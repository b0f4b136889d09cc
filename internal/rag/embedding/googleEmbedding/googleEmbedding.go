package googleEmbedding

import (
	"context"
	"fmt"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/embedding"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"google.golang.org/genai"
)

var logger = logger_i.NewLogger("google_embedding")

type client struct {
	genAi      *genai.Client
	model      string
	dimension  int32
	batchSize  int
	maxRetries int
}

type Options struct {
	APIKey     string
	Model      string
	Dimension  int
	BatchSize  int
	MaxRetries int
}

func New(ctx context.Context, opts Options) (embedding.Embedder, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("%w: creating Google embedding client: %v", commonModels.ErrConfiguration, err)
	}
	logger.Info("Google Embedding client created", "model", opts.Model, "dimension", opts.Dimension)
	return &client{
		genAi:      c,
		model:      opts.Model,
		dimension:  int32(opts.Dimension),
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
	}, nil
}

func (c *client) Dimension() int {
	return int(c.dimension)
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	res, err := embedding.WithRetry(ctx, c.maxRetries, log, func() (*genai.EmbedContentResponse, error) {
		return c.doCall(ctx, genai.Text(query), "RETRIEVAL_QUERY")
	})
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	vectors := toVectors(res)
	if err = embedding.CheckDimensions(vectors, 1, c.Dimension()); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result := make([][]float32, 0, len(chunks))
	for _, batch := range embedding.Batches(chunks, c.batchSize) {
		res, err := embedding.WithRetry(ctx, c.maxRetries, log, func() (*genai.EmbedContentResponse, error) {
			return c.doCall(ctx, getContent(batch), "RETRIEVAL_DOCUMENT")
		})
		if err != nil {
			log.Error("Error getting Embeddings from Google", "error", err, "batch", len(batch))
			return nil, err
		}
		result = append(result, toVectors(res)...)
	}
	if err := embedding.CheckDimensions(result, len(chunks), c.Dimension()); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: taskType})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func toVectors(res *genai.EmbedContentResponse) [][]float32 {
	if res == nil {
		return nil
	}
	vectors := make([][]float32, 0, len(res.Embeddings))
	for _, e := range res.Embeddings {
		vectors = append(vectors, e.Values)
	}
	return vectors
}
