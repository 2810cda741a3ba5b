package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/automation/pkg/scheduler"
	schedmemory "github.com/dukex/automation/pkg/scheduler/memory"
	"github.com/dukex/automation/pkg/scheduler/redisqueue"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses a redis:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return redis.NewClient(opts), nil
}

// NewJobQueue builds the delayed job queue. The redis kind needs client.
func NewJobQueue(kind string, client *redis.Client, pollInterval time.Duration, logger *slog.Logger) (scheduler.Queue, error) {
	switch kind {
	case "memory":
		return schedmemory.NewQueue(logger), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("job queue %q requires a redis url", kind)
		}

		opts := []redisqueue.Option{}
		if pollInterval > 0 {
			opts = append(opts, redisqueue.WithPollInterval(pollInterval))
		}

		return redisqueue.NewQueue(client, logger, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported job queue %q", kind)
	}
}
