// Package redisqueue is a durable delayed job queue on Redis. Jobs live in a sorted set
// scored by run time with payloads in a hash; a cron-driven poller claims due jobs with
// a script that removes the entry and its payload together, so each job is delivered to
// one worker.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/automation/pkg/scheduler"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const (
	defaultPrefix       = "automation:jobs"
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// claimScript removes a due job from the schedule and returns its payload in one step.
// Returns nil when another worker claimed it first or the payload is gone.
var claimScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
  return false
end
local payload = redis.call('HGET', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
return payload
`)

type Queue struct {
	client       redis.UniversalClient
	logger       *slog.Logger
	scheduleKey  string
	payloadKey   string
	pollInterval time.Duration
	batchSize    int64
	now          func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	handler scheduler.Handler
}

type Option func(*Queue)

func WithPrefix(prefix string) Option {
	return func(q *Queue) {
		q.scheduleKey = prefix + ":schedule"
		q.payloadKey = prefix + ":payload"
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(q *Queue) { q.pollInterval = interval }
}

func NewQueue(client redis.UniversalClient, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		client:       client,
		logger:       logger.With("module", "redis_queue"),
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		now:          time.Now,
	}

	WithPrefix(defaultPrefix)(q)

	for _, opt := range opts {
		opt(q)
	}

	return q
}

func (q *Queue) Schedule(ctx context.Context, runAt time.Time, job scheduler.Job) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	handle := uuid.NewString()

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.payloadKey, handle, payload)
		pipe.ZAdd(ctx, q.scheduleKey, redis.Z{Score: float64(runAt.UnixMilli()), Member: handle})

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule job: %w", err)
	}

	return handle, nil
}

func (q *Queue) Cancel(ctx context.Context, handle string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.scheduleKey, handle)
		pipe.HDel(ctx, q.payloadKey, handle)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", handle, err)
	}

	return nil
}

// Start polls for due jobs on a cron schedule until ctx is done.
func (q *Queue) Start(ctx context.Context, handler scheduler.Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cron != nil {
		return errors.New("queue already started")
	}

	q.handler = handler
	q.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := q.cron.AddFunc("@every "+q.pollInterval.String(), func() {
		if _, err := q.Poll(ctx); err != nil {
			q.logger.ErrorContext(ctx, "Failed to poll due jobs", "error", err)
		}
	})
	if err != nil {
		q.cron = nil

		return fmt.Errorf("failed to register poller: %w", err)
	}

	q.cron.Start()
	q.logger.InfoContext(ctx, "Redis job queue started", "poll_interval", q.pollInterval)

	go func() {
		<-ctx.Done()
		q.stop()
	}()

	return nil
}

// Poll delivers every job due now and returns how many it claimed.
func (q *Queue) Poll(ctx context.Context) (int, error) {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()

	if handler == nil {
		return 0, errors.New("queue not started")
	}

	handles, err := q.client.ZRangeByScore(ctx, q.scheduleKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: q.batchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due jobs: %w", err)
	}

	claimed := 0

	for _, handle := range handles {
		job, ok, err := q.claim(ctx, handle)
		if err != nil {
			q.logger.ErrorContext(ctx, "Failed to claim job", "job_handle", handle, "error", err)

			continue
		}

		if !ok {
			continue
		}

		claimed++

		if err := handler(ctx, job); err != nil {
			q.logger.ErrorContext(ctx, "Job handler failed", "job_handle", handle, "rule_id", job.RuleID, "error", err)
		}
	}

	return claimed, nil
}

func (q *Queue) claim(ctx context.Context, handle string) (scheduler.Job, bool, error) {
	payload, err := claimScript.Run(ctx, q.client, []string{q.scheduleKey, q.payloadKey}, handle).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return scheduler.Job{}, false, nil
		}

		return scheduler.Job{}, false, err
	}

	var job scheduler.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return scheduler.Job{}, false, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Handle = handle

	return job, true, nil
}

func (q *Queue) stop() {
	q.mu.Lock()
	c := q.cron
	q.cron = nil
	q.handler = nil
	q.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
