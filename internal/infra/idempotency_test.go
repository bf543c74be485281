package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewCheckoutLock(rdb, 10*time.Second)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire while held")

	ok, _ = lock.Acquire(ctx, "k2")
	assert.True(t, ok, "keys are independent")

	require.NoError(t, lock.Release(ctx, "k1"))
	ok, _ = lock.Acquire(ctx, "k1")
	assert.True(t, ok)
}

func TestCheckoutLock_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewCheckoutLock(rdb, 5*time.Second)
	ctx := context.Background()

	ok, _ := lock.Acquire(ctx, "k")
	require.True(t, ok)
	mr.FastForward(6 * time.Second)
	ok, _ = lock.Acquire(ctx, "k")
	assert.True(t, ok)
}
