package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkoutLockPrefix = "lock:checkout:"

// CheckoutLock is a short-lived SET NX lock per idempotency key. It only
// turns a double-tap into a clean conflict while the first request is still
// running; the orders unique index decides duplicates.
type CheckoutLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCheckoutLock(rdb *redis.Client, ttl time.Duration) *CheckoutLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CheckoutLock{rdb: rdb, ttl: ttl}
}

// Acquire returns false when another request holds the key.
func (l *CheckoutLock) Acquire(ctx context.Context, key string) (bool, error) {
	return l.rdb.SetNX(ctx, checkoutLockPrefix+key, time.Now().UTC().Format(time.RFC3339Nano), l.ttl).Result()
}

func (l *CheckoutLock) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, checkoutLockPrefix+key).Err()
}
