package rag

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract the worker pool depends on.
  - It works in jobs; the worker never sees the index, the LLM or the stores.

2. service (Private Struct):
  - Holds the query engine and the ingest pipeline.
  - Lowercase so nothing outside can reach the collaborators directly.

3. Dependency Injection (NewService):
  - Answerer and Ingester are small interfaces so tests can swap in mocks
    without building a real index.
*/

// Service Worker will only call this service
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type Answerer interface {
	Answer(ctx context.Context, question string, department string) (commonModels.QueryResult, error)
}

type Ingester interface {
	IngestBatch(ctx context.Context, files []commonModels.UploadFile) []commonModels.IngestOutcome
}

type service struct {
	engine   Answerer
	pipeline Ingester
	logger   *logger_i.Logger
}

// NewService constructor
func NewService(engine Answerer, pipeline Ingester) Service {
	return &service{
		engine:   engine,
		pipeline: pipeline,
		logger:   logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.WithTrace(ctx).With("JobId", jobt.Id)
	jobt = logOutput(jobt, jobModel.RAGCall, inMethodLogger)

	result, err := s.engine.Answer(ctx, jobt.JobPayload.Question, jobt.Department)
	if err != nil {
		return s.jobError(jobt, err, "RETRIEVAL_FAILURE", true)
	}
	return returnOutput(jobt, result)
}

// IngestDocument ingests the job's staged files and records one outcome per
// file. Staged copies are removed whatever the outcome.
func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	log := s.logger.WithTrace(ctx).With("JobId", job.Id)
	job = logOutput(job, jobModel.IngestProcessing, log)

	staged := job.JobPayload.IngestFiles
	outcomes := make([]commonModels.IngestOutcome, len(staged))
	var files []commonModels.UploadFile
	var slots []int
	for i, f := range staged {
		content, err := os.ReadFile(f.Path)
		if err != nil {
			outcomes[i] = commonModels.IngestOutcome{
				File:    f.Name,
				Status:  commonModels.StatusFailed,
				Message: fmt.Sprintf("staged upload unreadable: %v", err),
			}
			continue
		}
		files = append(files, commonModels.UploadFile{
			Name:            f.Name,
			Content:         content,
			AccessLevel:     f.AccessLevel,
			OwnerDepartment: f.OwnerDepartment,
		})
		slots = append(slots, i)
	}

	for i, outcome := range s.pipeline.IngestBatch(ctx, files) {
		outcomes[slots[i]] = outcome
	}
	for _, f := range staged {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.Warn("Error removing staged file", "path", f.Path, "error", err)
		}
	}

	job.JobPayload.IngestOutcomes = outcomes
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}
