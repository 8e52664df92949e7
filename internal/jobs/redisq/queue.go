// Package redisq is a jobs.Publisher and jobs.Consumer backed by a redis list,
// so the API and any number of worker processes can share one queue.
package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dvloznov/statement-insights/internal/jobs"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// PollTimeout is how long one BRPOP waits before checking for shutdown.
const PollTimeout = 2 * time.Second

// errBackoff is how long a worker pauses after a redis error.
const errBackoff = time.Second

// Client is the part of *goredis.Client the queue uses.
type Client interface {
	LPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *goredis.StringSliceCmd
	Close() error
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Queue pushes jobs with LPUSH and pops them with BRPOP, giving FIFO order.
type Queue struct {
	client  Client
	key     string
	store   jobs.JobStore
	workers int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a queue on the list named key. store may be nil.
func New(client Client, key string, workers int, store jobs.JobStore) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{client: client, key: key, workers: workers, store: store}
}

func (q *Queue) PublishProcessStatement(ctx context.Context, p jobs.ProcessStatementJob) (*jobs.Job, error) {
	job, err := jobs.NewProcessStatement(p)
	if err != nil {
		return nil, err
	}
	return job, q.Publish(ctx, job)
}

func (q *Queue) PublishRenderDashboard(ctx context.Context, p jobs.RenderDashboardJob) (*jobs.Job, error) {
	job, err := jobs.NewRenderDashboard(p)
	if err != nil {
		return nil, err
	}
	return job, q.Publish(ctx, job)
}

// Publish pushes the JSON encoding of job onto the list.
func (q *Queue) Publish(ctx context.Context, job *jobs.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.JobID, err)
	}
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", q.key, err)
	}
	return nil
}

// Start launches the workers. They run until ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return errors.New("redis queue already started")
	}

	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()
	log := logger.FromContext(ctx)

	for ctx.Err() == nil {
		job, err := q.pop(ctx)
		switch {
		case errors.Is(err, goredis.Nil):
			continue
		case ctx.Err() != nil:
			return
		case err != nil:
			log.Error().Err(err).Str("queue", q.key).Msg("redis pop failed")
			sleep(ctx, errBackoff)
			continue
		}

		if jobs.Attempt(ctx, job, handler, q.store) {
			next := jobs.Requeued(job)
			time.AfterFunc(job.RetryDelay(), func() {
				if err := q.Publish(context.WithoutCancel(ctx), next); err != nil {
					log.Error().Err(err).Str("job_id", next.JobID).Msg("requeue failed")
				}
			})
		}
	}
}

// pop waits up to PollTimeout for one job. goredis.Nil means the wait timed out.
func (q *Queue) pop(ctx context.Context) (*jobs.Job, error) {
	vals, err := q.client.BRPop(ctx, PollTimeout, q.key).Result()
	if err != nil {
		return nil, err
	}
	// BRPOP replies with [list, value].
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(vals))
	}

	var job jobs.Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job envelope: %w", err)
	}
	return &job, nil
}

// Stop cancels the workers and waits for in-flight jobs.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers and closes the redis client.
func (q *Queue) Close() error {
	if err := q.Stop(context.Background()); err != nil {
		return err
	}
	return q.client.Close()
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
