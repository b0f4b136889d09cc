package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/rag/llm"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger = logger_i.NewLogger("llm_openai")

var errNoChoices = errors.New("openai returned no choices")

type llmClient struct {
	api         openai.Client
	model       string
	temperature float64
}

func New(apiKey string, baseURL string, modelName string, temperature float64, httpClient *http.Client) llm.Provider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	logger.Info("OpenAI client created", "model", modelName, "baseURL", baseURL)
	return &llmClient{api: openai.NewClient(reqOpts...), model: modelName, temperature: temperature}
}

func (c *llmClient) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		logger.With("traceId", ctx.Value(config.TRACE_ID_KEY)).Error("OpenAI completion failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errNoChoices
	}
	return completion.Choices[0].Message.Content, nil
}
