package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/llm"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"google.golang.org/genai"
)

var logger = logger_i.NewLogger("llm_gemini")

var errEmptyResponse = errors.New("gemini returned no text")

type llmClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

func New(ctx context.Context, apikey string, modelName string, temperature float64) (llm.Provider, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("%w: creating Gemini client: %v", commonModels.ErrConfiguration, err)
	}
	logger.Info("Gemini client created", "model", modelName)
	return &llmClient{client: c, modelName: modelName, temperature: float32(temperature)}, nil
}

func (c *llmClient) Complete(ctx context.Context, prompt string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: &c.temperature},
	)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", err
	}
	text := result.Text()
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
