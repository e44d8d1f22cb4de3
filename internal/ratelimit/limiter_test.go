package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, capacity int, refill float64) *Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, capacity, refill, time.Minute)
}

func TestAllowConsumesCapacity(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(t, 2, 1)

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, allowed, "third request should exhaust the bucket")

	// Refill timing comes from Go's clock, not miniredis's, so refill
	// behavior is not asserted here.
}

func TestAllowKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := newTestLimiter(t, 1, 1)

	allowed, err := limiter.Allow(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "client-b")
	require.NoError(t, err)
	assert.True(t, allowed, "a drained bucket must not affect other keys")
}
