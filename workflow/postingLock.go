package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/broman/realty_backend/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// LedgerLockKey serializes every cashier posting across instances.
const LedgerLockKey = "cashier:ledger"

// PostingLocker is an advisory lock taken around a ledger posting. The balance row lock
// inside the transaction stays authoritative; this only shortens contention on it.
type PostingLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// NoopLocker never blocks. Used when redis is absent or LEDGER_REDIS_LOCK is off.
func NoopLocker() PostingLocker {
	return noopLocker{}
}

// RedisPostingLocker obtains a redislock lock, retrying for a short while.
// Failing to obtain it is logged and the posting proceeds without it.
type RedisPostingLocker struct {
	locker *redislock.Client
	logger *logrus.Logger
	ttl    time.Duration
}

// NewPostingLocker picks the redis locker when redis is connected and the flag allows it.
func NewPostingLocker(rdb *config.Redis, logger *logrus.Logger) PostingLocker {
	if rdb == nil || rdb.Locker == nil || !config.LedgerRedisLockEnabled() {
		return NoopLocker()
	}
	return &RedisPostingLocker{locker: rdb.Locker, logger: logger, ttl: config.LedgerLockTTL()}
}

func (l *RedisPostingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.WithFields(logrus.Fields{
			"field": "RedisPostingLocker",
			"key":   key,
		}).Warn("could not obtain redis lock; proceeding without redis lock")
		return func() {}, nil
	} else if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.WithFields(logrus.Fields{
			"field": "RedisPostingLocker",
			"key":   key,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return func() {}, nil
	}

	return func() {
		// release with a fresh context so a cancelled request still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if releaseErr := lock.Release(releaseCtx); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.logger.WithFields(logrus.Fields{
				"field": "RedisPostingLocker",
				"key":   key,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}, nil
}
