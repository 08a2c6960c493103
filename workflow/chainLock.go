package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/sirupsen/logrus"
)

const chainLockTTL = 30 * time.Second

// acquireChainLock serializes chain building per station+stage across instances.
// Best-effort: without redis, or when the lock cannot be had, the caller proceeds and
// relies on the station row lock and the unique link index inside its transaction.
func (l *HandoverLedger) acquireChainLock(ctx context.Context, stationId int, t models.HandoverType) (release func()) {
	release = func() {}
	if l.Locker == nil {
		return release
	}
	key := fmt.Sprintf("lock:handover:%d:%s", stationId, t)
	lock, err := l.Locker.Obtain(ctx, key, chainLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		l.Logger.WithFields(logrus.Fields{
			"field":      "acquireChainLock",
			"station_id": stationId,
			"type":       t,
		}).Warn("could not obtain redis lock; proceeding without redis lock: " + err.Error())
		return release
	}
	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
			l.Logger.WithFields(logrus.Fields{
				"field":      "acquireChainLock",
				"station_id": stationId,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}
}
