package ollama

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/llm"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/tmc/langchaingo/llms"
	langchainOllama "github.com/tmc/langchaingo/llms/ollama"
)

var logger = logger_i.NewLogger("llm_ollama")

type llmClient struct {
	model       llms.Model
	temperature float64
}

func New(serverURL string, modelName string, temperature float64, httpClient *http.Client) (llm.Provider, error) {
	opts := []langchainOllama.Option{langchainOllama.WithModel(modelName), langchainOllama.WithServerURL(serverURL)}
	if httpClient != nil {
		opts = append(opts, langchainOllama.WithHTTPClient(httpClient))
	}
	model, err := langchainOllama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama client: %v", commonModels.ErrConfiguration, err)
	}
	logger.Info("Ollama client created", "model", modelName, "server", serverURL)
	return &llmClient{model: model, temperature: temperature}, nil
}

func (c *llmClient) Complete(ctx context.Context, prompt string) (string, error) {
	answer, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		logger.With("traceId", ctx.Value(config.TRACE_ID_KEY)).Error("Ollama generation failed", "error", err)
		return "", err
	}
	return answer, nil
}
