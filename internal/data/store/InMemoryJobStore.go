package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/DocVault/internal/domain/jobModel"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job       jobModel.Job
	expiresAt time.Time
}

// InMemoryJobStore stands in for Redis when it is unreachable. Jobs expire
// after the same TTL the Redis store sets, so finished jobs do not pile up.
type InMemoryJobStore struct {
	jobMutex  sync.RWMutex
	jobMap    map[string]storedJob
	ttl       time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewInMemoryJobStore keeps jobs for ttl after their last save; zero keeps
// them forever.
func NewInMemoryJobStore(ttl time.Duration) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMap: make(map[string]storedJob),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, jobToStored jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()

	now := store.now()
	store.sweep(now)
	entry := storedJob{job: jobToStored}
	if store.ttl > 0 {
		entry.expiresAt = now.Add(store.ttl)
	}
	store.jobMap[jobToStored.Id] = entry
	inMemLogger.WithTrace(ctx).Debug("Saved job to store", "jobId", jobToStored.Id, "status", jobToStored.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	entry, found := store.jobMap[jobId]
	if !found || store.expired(entry, store.now()) {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}

// Len counts stored entries, expired ones not yet swept included.
func (store *InMemoryJobStore) Len() int {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	return len(store.jobMap)
}

func (store *InMemoryJobStore) expired(entry storedJob, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

// sweep drops expired jobs at most once per ttl. Callers hold the write lock.
func (store *InMemoryJobStore) sweep(now time.Time) {
	if store.ttl <= 0 || now.Before(store.nextSweep) {
		return
	}
	store.nextSweep = now.Add(store.ttl)
	for id, entry := range store.jobMap {
		if store.expired(entry, now) {
			delete(store.jobMap, id)
		}
	}
}
