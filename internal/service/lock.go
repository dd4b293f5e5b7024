package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"transferledger/internal/domain"
	"transferledger/internal/redis"
)

// lockDriver takes the distributed per-driver lock when Redis is configured.
// The account row lock inside the unit of work is what serializes ledger
// writes, so failing to obtain this lock only logs.
func lockDriver(ctx context.Context, locks redis.LockStoreInterface, logger logrus.FieldLogger, ttl time.Duration, key domain.DriverKey) func() {
	if locks == nil {
		return func() {}
	}
	release, err := locks.AcquireDriverLock(ctx, key.String(), ttl)
	if err != nil {
		logger.WithError(err).WithField("driver_key", key).Warn("driver lock unavailable")
		return func() {}
	}
	return release
}
