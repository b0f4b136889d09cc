package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Embedder interface {
	// Dimension is the length of every vector the embedder returns.
	Dimension() int
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
}

var retryBackoff = 5 * time.Second

// IsRetryable reports whether err is a provider rate limit.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

// WithRetry runs call once plus up to maxRetries more times while the error is
// retryable. maxRetries 0 disables retrying.
func WithRetry[T any](ctx context.Context, maxRetries int, log *logger_i.Logger, call func() (T, error)) (T, error) {
	result, err := call()
	for attempt := 1; attempt <= maxRetries && IsRetryable(err); attempt++ {
		log.Warn("Rate limit hit, retrying", "attempt", attempt, "backoff", retryBackoff, "error", err)
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(retryBackoff):
		}
		result, err = call()
	}
	return result, err
}

// CheckDimensions verifies that the provider returned one vector of the
// expected length per input.
func CheckDimensions(vectors [][]float32, inputs int, dim int) error {
	if len(vectors) != inputs {
		return fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vectors), inputs)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", commonModels.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// Batches splits texts into groups of at most size.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		out = append(out, texts[start:end])
	}
	return out
}
