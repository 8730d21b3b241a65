package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/pathstore"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("pipeline is stopped")
)

const cleanupInterval = 5 * time.Minute

// Orchestrator runs outline jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	cfg     *config.Manager
	ps      *pathstore.Client
	stats   *Stats
	log     *slog.Logger
	workers int

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and the close of queue against concurrent sends.
	mu      sync.RWMutex
	stopped bool
}

// NewOrchestrator creates the pipeline. Pool and queue sizes are read once;
// engine settings are re-read for every job. ps may be nil.
func NewOrchestrator(cfg *config.Manager, ps *pathstore.Client, log *slog.Logger) *Orchestrator {
	c := cfg.Get()
	return &Orchestrator{
		jobs:    NewJobStore(c.Server.JobTTL),
		queue:   make(chan *Job, c.Server.MaxQueueSize),
		cfg:     cfg,
		ps:      ps,
		stats:   NewStats(c.Server.StatsWindow),
		log:     log,
		workers: c.Server.WorkerCount,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := o.newWorker()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Debug("evicted jobs", "count", n)
				}
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	o.wg.Wait()
}

func (o *Orchestrator) newWorker() *Worker {
	return NewWorker(o.cfg, o.ps, o.stats, o.log)
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		job.Fail(ErrStopped)
		return ErrStopped
	}
	select {
	case o.queue <- job:
		return nil
	default:
		err := fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
		job.Fail(err)
		return err
	}
}

// Extract runs a document synchronously on the caller's goroutine. It
// shares the latency statistics of queued jobs.
func (o *Orchestrator) Extract(ctx context.Context, filename string, data []byte) (*outline.Result, error) {
	return o.newWorker().Extract(ctx, filename, data)
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the extraction latency tracker.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}
