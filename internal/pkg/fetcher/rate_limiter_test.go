package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SpacesSameHost(t *testing.T) {
	limiter := NewRateLimiter(50 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimiter_HostsAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(time.Second)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), "a.example"))
	require.NoError(t, limiter.Wait(context.Background(), "b.example"))
	require.NoError(t, limiter.Wait(context.Background(), "C.EXAMPLE"))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiter_ZeroDelayNeverWaits(t *testing.T) {
	limiter := NewRateLimiter(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	require.NoError(t, limiter.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, "example.com"))
}

func TestRateLimiter_SetHostDelay(t *testing.T) {
	limiter := NewRateLimiter(10 * time.Millisecond)
	limiter.SetHostDelay("example.com", 80*time.Millisecond)
	// Shorter delays never loosen the limit.
	limiter.SetHostDelay("example.com", time.Millisecond)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}
