package bloomfilter

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVisited_ReturnsFalseForNewSet(t *testing.T) {
	set := NewVisitedSet(1000, 0.01, 0)
	assert.False(t, set.isVisited("new-url"))
	assert.Equal(t, 0, set.Len())
}

func TestCheckAndMark_FirstCallMarks(t *testing.T) {
	set := NewVisitedSet(1000, 0.01, 0)

	url := "http://example.com"
	assert.False(t, set.CheckAndMark(url))
	assert.True(t, set.isVisited(url))
	assert.True(t, set.CheckAndMark(url))
	assert.Equal(t, 1, set.Len())
}

func TestDefaults(t *testing.T) {
	set := NewVisitedSet(0, 0, 0)
	set.CheckAndMark("http://example.com/a")
	set.CheckAndMark("http://example.com/a")
	assert.True(t, set.isVisited("http://example.com/a"))
	assert.Equal(t, 1, set.Len())
}

func TestExactKeys(t *testing.T) {
	set := NewVisitedSet(1000, 0.01, 0)
	set.CheckAndMark("http://example.com/page")
	assert.False(t, set.isVisited("http://example.com/page/"), "no normalization is applied")
	assert.False(t, set.isVisited("https://example.com/page"))
}

// A tiny filter saturates quickly, so the exact set must reject its false positives.
func TestNoFalsePositivesWhenFilterSaturates(t *testing.T) {
	set := NewVisitedSet(1, 0.5, 0)
	for i := 0; i < 500; i++ {
		set.CheckAndMark(fmt.Sprintf("http://example.com/%d", i))
	}
	for i := 500; i < 1000; i++ {
		assert.False(t, set.isVisited(fmt.Sprintf("http://example.com/%d", i)))
	}
	assert.Equal(t, 500, set.Len())
	assert.False(t, set.Saturated())
}

// Past the exact limit the filter alone remembers new URLs.
func TestExactLimitFallsBackToFilter(t *testing.T) {
	set := NewVisitedSet(10000, 0.001, 100)
	for i := 0; i < 1000; i++ {
		assert.False(t, set.CheckAndMark(fmt.Sprintf("http://example.com/%d", i)))
	}

	assert.True(t, set.Saturated())
	assert.Equal(t, 1000, set.Len())
	assert.Len(t, set.exact, 100, "exact set stays within its limit")

	for i := 0; i < 1000; i++ {
		assert.True(t, set.CheckAndMark(fmt.Sprintf("http://example.com/%d", i)), "visited url %d reported unseen", i)
	}

	falsePositives := 0
	for i := 1000; i < 2000; i++ {
		if set.isVisited(fmt.Sprintf("http://example.com/%d", i)) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, 20, "false positive rate far above the configured rate")
}

func TestConcurrentCheckAndMark(t *testing.T) {
	set := NewVisitedSet(1000, 0.01, 0)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !set.CheckAndMark("http://example.com/shared") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one caller may claim a URL")
}
