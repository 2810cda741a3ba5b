package email

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// reserveScript trims the sliding window, checks the remaining budget and records the
// send in one round trip. Returns 1 when the slot was reserved.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisQuota is a sliding-window send counter shared by every worker.
type RedisQuota struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisQuota(client *redis.Client, limit int, window time.Duration) *RedisQuota {
	return &RedisQuota{
		client: client,
		prefix: "automation:email_quota:",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (q *RedisQuota) Reserve(ctx context.Context, key string) error {
	if q.limit <= 0 {
		return nil
	}

	reserved, err := reserveScript.Run(ctx, q.client, []string{q.prefix + key},
		q.now().UnixMilli(),
		q.window.Milliseconds(),
		q.limit,
		uuid.NewString(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to check email quota: %w", err)
	}

	if reserved == 0 {
		return fmt.Errorf("%w: %d sends per %s", ErrQuotaExceeded, q.limit, q.window)
	}

	return nil
}

// Used returns the number of sends inside the current window.
func (q *RedisQuota) Used(ctx context.Context, key string) (int64, error) {
	from := strconv.FormatInt(q.now().Add(-q.window).UnixMilli(), 10)

	count, err := q.client.ZCount(ctx, q.prefix+key, "("+from, "+inf").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to read email quota: %w", err)
	}

	return count, nil
}

// MemoryQuota is the in-process equivalent of RedisQuota.
type MemoryQuota struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	sends  map[string][]time.Time
}

func NewMemoryQuota(limit int, window time.Duration) *MemoryQuota {
	return &MemoryQuota{limit: limit, window: window, now: time.Now, sends: make(map[string][]time.Time)}
}

func (q *MemoryQuota) Reserve(_ context.Context, key string) error {
	if q.limit <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	cutoff := now.Add(-q.window)
	kept := q.sends[key][:0]

	for _, at := range q.sends[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= q.limit {
		q.sends[key] = kept

		return fmt.Errorf("%w: %d sends per %s", ErrQuotaExceeded, q.limit, q.window)
	}

	q.sends[key] = append(kept, now)

	return nil
}
