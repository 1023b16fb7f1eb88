package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/bookbound/library/internal/api/metrics"
	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pendingKey = "jobs:pending"
	// finished jobs are kept this long so late waiters can still read them.
	resultTTL = 24 * time.Hour
)

// Hash fields of a stored job.
const (
	fieldType       = "type"
	fieldPayload    = "payload"
	fieldState      = "state"
	fieldResult     = "result"
	fieldError      = "error"
	fieldErrorKind  = "error_kind"
	fieldEnqueuedAt = "enqueued_at"
	fieldFinishedAt = "finished_at"
)

var ErrJobNotFound = errors.New("job not found")

// RedisQueue stores jobs in a hash per job, hands ids to workers through a
// list and announces completion on a per-job channel.
//
//	job:<id>       hash with the fields above
//	jobs:pending   list of job ids (LPUSH / BRPOP)
//	job:<id>:done  pub/sub channel, one message per completion
type RedisQueue struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisQueue(client redis.UniversalClient) *RedisQueue {
	return &RedisQueue{client: client, now: func() time.Time { return time.Now().UTC() }}
}

func jobKey(id string) string   { return "job:" + id }
func doneChan(id string) string { return "job:" + id + ":done" }

// Enqueue stores the job and pushes it on the pending list in one pipeline.
func (q *RedisQueue) Enqueue(ctx context.Context, jobType domain.JobType, payload any) (domain.JobHandle, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("encode job payload: %w", err)
	}
	h := domain.JobHandle{ID: uuid.NewString(), Type: jobType}

	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, jobKey(h.ID),
			fieldType, string(jobType),
			fieldPayload, raw,
			fieldState, string(domain.JobQueued),
			fieldEnqueuedAt, q.now().Format(time.RFC3339Nano),
		)
		p.LPush(ctx, pendingKey, h.ID)
		return nil
	})
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("enqueue job: %w", err)
	}
	return h, nil
}

// WaitUntilFinished subscribes to the completion channel before reading the
// stored state, so a job finishing in between is never missed.
func (q *RedisQueue) WaitUntilFinished(ctx context.Context, h domain.JobHandle, timeout time.Duration) (*domain.Job, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub := q.client.Subscribe(waitCtx, doneChan(h.ID))
	defer sub.Close()
	if _, err := sub.Receive(waitCtx); err != nil {
		return nil, q.waitErr(ctx, waitCtx, h, fmt.Errorf("subscribe: %w", err))
	}

	job, err := q.Load(waitCtx, h.ID)
	if err != nil {
		return nil, q.waitErr(ctx, waitCtx, h, err)
	}
	if job.Finished() {
		return job, nil
	}

	select {
	case <-sub.Channel():
		job, err := q.Load(waitCtx, h.ID)
		if err != nil {
			return nil, q.waitErr(ctx, waitCtx, h, err)
		}
		return job, nil
	case <-waitCtx.Done():
		return nil, q.waitErr(ctx, waitCtx, h, waitCtx.Err())
	}
}

// waitErr reports context.DeadlineExceeded only when the wait's own timeout
// fired; cancellation of the caller's context is passed through.
func (q *RedisQueue) waitErr(parent, waitCtx context.Context, h domain.JobHandle, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		metrics.JobWaitTimeoutsTotal.WithLabelValues(string(h.Type)).Inc()
		return context.DeadlineExceeded
	}
	return err
}

// Load reads the stored job.
func (q *RedisQueue) Load(ctx context.Context, id string) (*domain.Job, error) {
	fields, err := q.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	job := &domain.Job{
		ID:        id,
		Type:      domain.JobType(fields[fieldType]),
		Payload:   []byte(fields[fieldPayload]),
		State:     domain.JobState(fields[fieldState]),
		Error:     fields[fieldError],
		ErrorKind: fields[fieldErrorKind],
	}
	if r := fields[fieldResult]; r != "" {
		job.Result = []byte(r)
	}
	if t, err := time.Parse(time.RFC3339Nano, fields[fieldEnqueuedAt]); err == nil {
		job.EnqueuedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields[fieldFinishedAt]); err == nil {
		job.FinishedAt = &t
	}
	return job, nil
}

// Dequeue blocks up to wait for the next job and marks it running. It returns
// (nil, nil) when nothing arrived in time.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*domain.Job, error) {
	res, err := q.client.BRPop(ctx, wait, pendingKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	id := res[1]

	if err := q.client.HSet(ctx, jobKey(id), fieldState, string(domain.JobRunning)).Err(); err != nil {
		return nil, fmt.Errorf("mark job %s running: %w", id, err)
	}
	job, err := q.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Complete stores the terminal state of job and wakes its waiters.
func (q *RedisQueue) Complete(ctx context.Context, job *domain.Job) error {
	finished := q.now()
	job.FinishedAt = &finished

	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, jobKey(job.ID),
			fieldState, string(job.State),
			fieldResult, job.Result,
			fieldError, job.Error,
			fieldErrorKind, job.ErrorKind,
			fieldFinishedAt, finished.Format(time.RFC3339Nano),
		)
		p.Expire(ctx, jobKey(job.ID), resultTTL)
		p.Publish(ctx, doneChan(job.ID), string(job.State))
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	return nil
}

var _ ports.JobQueue = (*RedisQueue)(nil)
