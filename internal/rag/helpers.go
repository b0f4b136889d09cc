package rag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

func returnOutput(job jobModel.Job, result commonModels.QueryResult) jobModel.Job {
	job.JobPayload.Answer = result.Answer
	job.JobPayload.Sources = result.Sources
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err, "jobId", job.Id)

	code, text := http.StatusInternalServerError, "Internal Server Error"
	switch {
	case errors.Is(err, commonModels.ErrEmptyQuestion):
		code, text, canRetry = http.StatusBadRequest, err.Error(), false
	case errors.Is(err, commonModels.ErrConfiguration):
		canRetry = false
	}
	job.Error = jobModel.JobError{
		Code:    code,
		Message: text,
		Retry:   canRetry,
	}
	job.CurrentStep = jobModel.Error
	job.Status = jobModel.JobStatusError
	return job
}

func (e *Engine) executeEmbeddingStep(ctx context.Context, question string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return e.embedder.GetEmbedding(ctx, question)
}

func (e *Engine) executeVectorSearchStep(ctx context.Context, vector []float32, department string) ([]commonModels.RetrievedChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return e.retrieve(ctx, vector, department)
}

func (e *Engine) executeLLMStep(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return e.llmProvider.Complete(ctx, prompt)
}
