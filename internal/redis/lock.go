package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when the lock is still held by another
// process after all retries.
var ErrLockNotObtained = errors.New("driver lock not obtained")

const driverLockPrefix = "lock:driver:"

// LockStore handles distributed per-driver locking in Redis.
type LockStore struct {
	locker  *redislock.Client
	backoff time.Duration
	retries int
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{
		locker:  redislock.New(client),
		backoff: 50 * time.Millisecond,
		retries: 40,
	}
}

// AcquireDriverLock obtains the lock for the given driver key, retrying with a
// linear backoff while another holder has it. The returned release func is
// safe to call once the caller is done.
func (s *LockStore) AcquireDriverLock(ctx context.Context, driverKey string, ttl time.Duration) (func(), error) {
	lock, err := s.locker.Obtain(ctx, driverLockPrefix+driverKey, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(s.backoff), s.retries),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockNotObtained
		}
		return nil, err
	}

	return func() {
		// Release with a fresh context: the caller's may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}
