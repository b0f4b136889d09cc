package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/DocVault/internal/config"
	jobmodel "github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/metrics"
)

func (p *Pool) executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, p.opts.JobTimeout)
	defer cancel()
	log := p.logger.WithTrace(ctxTrace).With("jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
			job.Status = jobmodel.JobStatusError
			job.CurrentStep = jobmodel.Error
			job.Error = jobmodel.JobError{Code: http.StatusInternalServerError, Message: "internal error"}
			job.EndTime = time.Now()
			p.saveJobState(ctxTrace, job)
		}
	}()

	job.Status = jobmodel.JobStatusRunning
	p.saveJobState(ctx, job)

	switch job.JobType {
	case jobmodel.JobTypeIngest:
		job.CurrentStep = jobmodel.IngestProcessing
		job = p.ragService.IngestDocument(ctx, job)
	case jobmodel.JobTypeQuery:
		job.CurrentStep = jobmodel.RAGCall
		job = p.ragService.ProcessRequest(ctx, job)
	default:
		job.Status = jobmodel.JobStatusError
		job.CurrentStep = jobmodel.Error
		job.Error = jobmodel.JobError{Code: http.StatusBadRequest, Message: fmt.Sprintf("unknown job type %q", job.JobType)}
	}

	job.EndTime = time.Now()
	// the final state is written even when the job ran out of time
	p.saveJobState(ctxTrace, job)
	log.Info("Job finished", "status", job.Status, "elapsed", time.Since(start))
}

func (p *Pool) removeWorker(reason string) {
	p.workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
}

func (p *Pool) saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := p.jobService.JobStore.SaveJob(ctx, job); err != nil {
		p.logger.WithTrace(ctx).Error("Failed to save job state", "jobId", job.Id, "status", job.Status, "err", err)
	}
}
