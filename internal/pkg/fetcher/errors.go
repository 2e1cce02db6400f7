package fetcher

import (
	"errors"
	"fmt"
)

var (
	ErrCrawlingDisallowed = errors.New("crawling disallowed by robots.txt")
	// Wrapped by Result.Aborted when no request was sent.
	ErrNotStarted = errors.New("fetch not started")
)

// A failed retrieval: network error, timeout, non-2xx status or a URL the
// crawler may not fetch.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
