// Package queue runs background jobs: a Redis-backed queue and the worker
// pool that drains it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/api/metrics"
	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

const (
	defaultWorkers = 4
	pollWait       = 2 * time.Second
	// backoff after a queue error so a Redis outage does not spin the workers.
	errorBackoff = time.Second
)

// JobSource is the worker side of a queue.
type JobSource interface {
	// Dequeue returns (nil, nil) when no job arrived within wait.
	Dequeue(ctx context.Context, wait time.Duration) (*domain.Job, error)
	Complete(ctx context.Context, job *domain.Job) error
}

// Dispatcher runs a fixed set of workers that pull jobs from the source and
// hand them to the processor. Every dequeued job is completed exactly once,
// including when the processor panics.
type Dispatcher struct {
	workers   int
	source    JobSource
	processor ports.JobProcessor
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, source JobSource, processor ports.JobProcessor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Dispatcher{
		workers:   numWorkers,
		source:    source,
		processor: processor,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info().Int("workers", d.workers).Msg("starting job workers")
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := d.source.Dequeue(ctx, pollWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error().Err(err).Int("worker_id", id).Msg("dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}
		d.handle(ctx, id, job)
	}
}

func (d *Dispatcher) handle(ctx context.Context, workerID int, job *domain.Job) {
	started := time.Now()
	log := d.log.With().Str("job_id", job.ID).Str("type", string(job.Type)).Int("worker_id", workerID).Logger()

	result, err := d.run(ctx, job)
	if err != nil {
		job.State = domain.JobFailed
		job.Error = err.Error()
		job.ErrorKind = domain.KindName(err)
		log.Warn().Err(err).Str("kind", job.ErrorKind).Msg("job failed")
	} else {
		job.State = domain.JobSucceeded
		job.Result = result
		log.Info().Dur("took", time.Since(started)).Msg("job succeeded")
	}

	// Completion must land even when shutdown cancelled ctx mid-job.
	completeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.source.Complete(completeCtx, job); err != nil {
		log.Error().Err(err).Msg("failed to store job result")
	}

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Type), string(job.State)).Inc()
	metrics.JobDuration.WithLabelValues(string(job.Type)).Observe(time.Since(started).Seconds())
}

func (d *Dispatcher) run(ctx context.Context, job *domain.Job) (result []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	result, err = d.processor.Process(ctx, job)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = domain.Unavailable("worker shutting down")
	}
	return result, err
}
