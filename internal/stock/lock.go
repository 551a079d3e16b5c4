package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-stock-service/internal/apperror"
	"github.com/fekuna/omnipos-stock-service/pkg/cache"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker serializes operations on one product across service instances before
// they reach the store. It only reduces transaction conflicts; correctness comes
// from the conditional writes in Tx.Apply.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type nopLocker struct{}

func NewNopLocker() Locker {
	return nopLocker{}
}

func (nopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

type redisLocker struct {
	cache    *cache.RedisClient
	ttl      time.Duration
	attempts int
	backoff  time.Duration
	logger   logger.ZapLogger
}

func NewRedisLocker(c *cache.RedisClient, ttl time.Duration, log logger.ZapLogger) Locker {
	return &redisLocker{
		cache:    c,
		ttl:      ttl,
		attempts: 3,
		backoff:  100 * time.Millisecond,
		logger:   log,
	}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:stock:" + key
	value := uuid.New().String()

	for i := 0; i < l.attempts; i++ {
		ok, err := l.cache.AcquireLock(ctx, lockKey, value, l.ttl)
		if err != nil {
			l.logger.Error("failed to acquire lock redis error", zap.String("key", lockKey), zap.Error(err))
		}
		if ok {
			return func() {
				if err := l.cache.ReleaseLock(context.Background(), lockKey, value); err != nil {
					l.logger.Warn("failed to release lock", zap.String("key", lockKey), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}

	return nil, apperror.ConcurrencyConflict(fmt.Errorf("lock %s is busy", lockKey))
}

// ProductLockKey is the lock key shared by every operation that moves a product's stock.
func ProductLockKey(productID string) string {
	return "product:" + productID
}
