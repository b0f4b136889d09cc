package llm

import "context"

// Provider turns a fully built prompt into an answer.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
