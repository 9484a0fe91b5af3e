package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	orderLockPrefix   = "order-lock:"
	orderLockTTL      = 30 * time.Second
	idempotencyKeyTTL = 24 * time.Hour
)

var ErrLockNotObtained = errors.New("order lock not obtained")

// RedisAdapter provides the per-order mutual-exclusion scope and idempotency
// keys backing concurrent administrative mutations.
type RedisAdapter struct {
	client *redis.Client
	locker *redislock.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{
		client: client,
		locker: redislock.New(client),
	}
}

// WithOrderLock serializes fn against other holders of the same order's lock.
// Contending callers retry briefly instead of failing immediately; a lock
// still held after the backoff window surfaces ErrLockNotObtained.
func (r *RedisAdapter) WithOrderLock(ctx context.Context, orderNumber string, fn func(ctx context.Context) error) error {
	lock, err := r.locker.Obtain(ctx, orderLockPrefix+orderNumber, orderLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("%w: %s", ErrLockNotObtained, orderNumber)
	}
	if err != nil {
		return fmt.Errorf("obtain order lock: %w", err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	return fn(ctx)
}

// SetIdempotency sets a key for idempotency check, returns false if already exists.
func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
