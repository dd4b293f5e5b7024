package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"transferledger/internal/config"
)

// NewRedisClient connects the Redis used for driver locks, the balance cache
// and idempotent replays. Redis is optional: an empty address returns a nil
// client and the settlement path runs on the database alone.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application, logger logrus.FieldLogger) (*redis.Client, error) {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set, driver locks and balance cache are disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if nrApp != nil {
		client.AddHook(&keyspaceHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	logger.WithFields(logrus.Fields{
		"addr": cfg.Addr,
		"db":   cfg.DB,
	}).Info("Connected to Redis")
	return client, nil
}

// keyspaceHook reports every Redis call as a New Relic datastore segment whose
// collection is the key space it touches, such as "cache:balance" or
// "lock:driver".
type keyspaceHook struct{}

func (h *keyspaceHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *keyspaceHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  cmd.Name(),
				Collection: keyspace(cmd),
			}
			defer segment.End()
		}
		return next(ctx, cmd)
	}
}

func (h *keyspaceHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil && len(cmds) > 0 {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  "pipeline",
				Collection: keyspace(cmds[0]),
			}
			defer segment.End()
		}
		return next(ctx, cmds)
	}
}

// keyspace returns the first two segments of the key a command addresses.
// Scripts carry their first key after the script and the key count.
func keyspace(cmd redis.Cmder) string {
	args := cmd.Args()
	index := 1
	switch cmd.Name() {
	case "eval", "evalsha", "eval_ro", "evalsha_ro":
		index = 3
	}
	if len(args) <= index {
		return "redis"
	}

	key, ok := args[index].(string)
	if !ok || key == "" {
		return "redis"
	}
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + ":" + parts[1]
}
