package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.True(t, IsRetryable(status.Error(codes.ResourceExhausted, "quota")))
	assert.False(t, IsRetryable(status.Error(codes.InvalidArgument, "bad")))
	assert.True(t, IsRetryable(genai.APIError{Code: 429, Message: "slow down"}))
	assert.False(t, IsRetryable(genai.APIError{Code: 400, Message: "bad request"}))
}

func TestWithRetry(t *testing.T) {
	retryBackoff = time.Millisecond
	log := logger_i.NewLogger("test")
	ctx := context.Background()

	t.Run("disabled by default", func(t *testing.T) {
		calls := 0
		_, err := WithRetry(ctx, 0, log, func() (int, error) {
			calls++
			return 0, status.Error(codes.ResourceExhausted, "quota")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries rate limits until success", func(t *testing.T) {
		calls := 0
		got, err := WithRetry(ctx, 3, log, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, status.Error(codes.ResourceExhausted, "quota")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		_, err := WithRetry(ctx, 3, log, func() (int, error) {
			calls++
			return 0, errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		retryBackoff = time.Hour
		defer func() { retryBackoff = time.Millisecond }()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := WithRetry(cancelled, 3, log, func() (int, error) {
			return 0, status.Error(codes.ResourceExhausted, "quota")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, CheckDimensions([][]float32{{1, 2}, {3, 4}}, 2, 2))
	assert.ErrorIs(t, CheckDimensions([][]float32{{1, 2}, {3}}, 2, 2), commonModels.ErrDimensionMismatch)
	assert.Error(t, CheckDimensions([][]float32{{1, 2}}, 2, 2))
}

func TestBatches(t *testing.T) {
	texts := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Batches(texts, 2))
	assert.Equal(t, [][]string{texts}, Batches(texts, 0))
	assert.Nil(t, Batches(nil, 3))
}
