package bloomfilter

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	defaultCapacity = 10000
	defaultFPRate   = 0.01
)

// Set of URLs already visited during one crawl run. Safe for concurrent use.
//
// The first exactLimit URLs are kept in an exact set as well as in the bloom
// filter, so membership is never wrong while the run stays under the limit.
// Past it, new URLs are recorded in the filter only: memory stays bounded and
// a URL never seen may be reported as visited with probability about fpRate.
// A visited URL is never reported as unseen.
type VisitedSet struct {
	mutex      sync.Mutex
	filter     *bloom.BloomFilter
	exact      map[string]struct{}
	exactLimit int
	overflow   int
}

// Creates a VisitedSet sized for roughly capacity URLs. An exactLimit of 0 or
// less keeps every URL in the exact set.
func NewVisitedSet(capacity int, fpRate float64, exactLimit int) *VisitedSet {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = defaultFPRate
	}
	hint := capacity
	if exactLimit > 0 && exactLimit < hint {
		hint = exactLimit
	}
	return &VisitedSet{
		filter:     bloom.NewWithEstimates(uint(capacity), fpRate),
		exact:      make(map[string]struct{}, hint),
		exactLimit: exactLimit,
	}
}

// Checks if a URL has been visited and marks it as visited. The check and
// the mark happen under one lock, so exactly one caller sees false per URL.
func (v *VisitedSet) CheckAndMark(url string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.containsLocked(url) {
		return true
	}
	v.filter.AddString(url)
	if v.exactLimit > 0 && len(v.exact) >= v.exactLimit {
		v.overflow++
		return false
	}
	v.exact[url] = struct{}{}
	return false
}

// Returns the number of URLs marked.
func (v *VisitedSet) Len() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return len(v.exact) + v.overflow
}

// Reports whether URLs are being stored in the filter only.
func (v *VisitedSet) Saturated() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.overflow > 0
}

func (v *VisitedSet) isVisited(url string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.containsLocked(url)
}

func (v *VisitedSet) containsLocked(url string) bool {
	if !v.filter.TestString(url) {
		return false
	}
	if _, ok := v.exact[url]; ok {
		return true
	}
	// Only the filter knows about overflowed URLs.
	return v.overflow > 0
}
