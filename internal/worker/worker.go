package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/job"
	"github.com/akolanti/DocVault/internal/metrics"
	"github.com/akolanti/DocVault/internal/rag"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

type Options struct {
	MinWorkers  int64
	MaxWorkers  int64
	IdleTimeout time.Duration
	JobTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinWorkers:  config.MinWorkerCount,
		MaxWorkers:  config.MaxWorkerCount,
		IdleTimeout: config.IdleWorkerTimeout,
		JobTimeout:  config.JobTimeout,
	}
}

// Pool grows on dispatcher signals up to MaxWorkers and shrinks back to
// MinWorkers as workers sit idle.
type Pool struct {
	jobService *job.Service
	ragService rag.Service
	opts       Options

	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	currentWorkerCount int64
	logger             *logger_i.Logger
}

func NewPool(jobService *job.Service, ragService rag.Service, opts Options) *Pool {
	def := DefaultOptions()
	if opts.MinWorkers < 1 {
		opts.MinWorkers = 1
	}
	if opts.MaxWorkers < opts.MinWorkers {
		opts.MaxWorkers = opts.MinWorkers
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = def.IdleTimeout
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = def.JobTimeout
	}
	return &Pool{
		jobService: jobService,
		ragService: ragService,
		opts:       opts,
		logger:     logger_i.NewLogger("WorkerPool"),
	}
}

// Start spawns the minimum number of workers and the dispatcher. Closing
// stopWorkerChan retires every worker; waitGroup tracks them.
func (p *Pool) Start(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	p.stopWorkerChannel = stopWorkerChan
	p.workerWaitGroup = waitGroup
	p.logger.Info("Initializing worker pool", "min", p.opts.MinWorkers, "max", p.opts.MaxWorkers)
	for i := int64(0); i < p.opts.MinWorkers; i++ {
		p.createWorker()
	}
	go p.dispatcher()
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.currentWorkerCount)
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case _, ok := <-p.jobService.DispatcherChannel:
			if !ok {
				return
			}
			if p.createWorker() {
				p.logger.Info("Created new worker on dispatcher signal", "workerCount", p.WorkerCount())
			}
		case <-p.stopWorkerChannel:
			return
		}
	}
}

// createWorker reserves a slot below MaxWorkers before spawning.
func (p *Pool) createWorker() bool {
	for {
		current := atomic.LoadInt64(&p.currentWorkerCount)
		if current >= p.opts.MaxWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, current, current+1) {
			break
		}
	}
	p.workerWaitGroup.Add(1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
	return true
}

func (p *Pool) worker() {
	for {
		select {
		case currentJob := <-p.jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)

		case <-p.stopWorkerChannel:
			atomic.AddInt64(&p.currentWorkerCount, -1)
			p.removeWorker("Stop worker signal received")
			return

		case <-time.After(p.opts.IdleTimeout):
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout")
				return
			}
		}
	}
}

// tryRetire gives up one slot unless that would drop below MinWorkers.
func (p *Pool) tryRetire() bool {
	for {
		current := atomic.LoadInt64(&p.currentWorkerCount)
		if current <= p.opts.MinWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, current, current-1) {
			return true
		}
	}
}
