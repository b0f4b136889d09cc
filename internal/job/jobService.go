package job

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/internal/metrics"
)

var ErrJobNotFound = errors.New("job not found")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	// RequestsPerWorker submissions trigger one dispatcher signal.
	RequestsPerWorker int64
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	RequestsPerWorker int64
}

func InitJobService(cfg ServiceConfig) *Service {
	if cfg.RequestsPerWorker < 1 {
		cfg.RequestsPerWorker = 1
	}
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		RequestsPerWorker: cfg.RequestsPerWorker,
	}
}

// Submit persists the job as queued and hands it to the worker pool. It
// blocks while the queue is full, until ctx is done.
func (s *Service) Submit(ctx context.Context, job jobModel.Job) error {
	job.Status = jobModel.JobStatusQueued
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		return err
	}

	select {
	case s.JobChannel <- job:
	case <-ctx.Done():
		s.JobStore.DeleteJob(context.WithoutCancel(ctx), job.Id)
		return ctx.Err()
	}
	metrics.IncrementJobsInQueue()

	// one more worker every RequestsPerWorker jobs, and one per ingest job since
	// ingest holds its worker through several embedding batches. Idle workers
	// retire on their own.
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%s.RequestsPerWorker == 0 || job.JobType == jobModel.JobTypeIngest {
		s.signalDispatcher()
	}
	return nil
}

// signalDispatcher never blocks; a pending signal is enough.
func (s *Service) signalDispatcher() {
	if s.DispatcherChannel == nil {
		return
	}
	select {
	case s.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
	}
}

func (s *Service) Get(ctx context.Context, id string) (jobModel.Job, error) {
	job, ok := s.JobStore.GetJob(ctx, id)
	if !ok {
		return jobModel.Job{}, ErrJobNotFound
	}
	return job, nil
}
