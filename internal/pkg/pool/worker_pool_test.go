package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	results, err := Map(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		// Later items finish first.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, results)
}

func TestMap_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), 4, items, func(_ context.Context, _ int) (struct{}, error) {
		current := inFlight.Add(1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestMap_NonPositiveLimitRunsSequentially(t *testing.T) {
	var inFlight, peak atomic.Int32
	_, err := Map(context.Background(), 0, []int{1, 2, 3}, func(_ context.Context, _ int) (int, error) {
		if n := inFlight.Add(1); n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}

func TestMap_EmptyInput(t *testing.T) {
	results, err := Map(context.Background(), 2, []string{}, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMap_ErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), 1, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := Map(ctx, 2, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}
