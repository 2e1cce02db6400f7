package queue

import (
	"errors"
	"sync"
)

var ErrEmpty = errors.New("queue is empty")

// A frontier entry: a URL waiting to be fetched and its BFS distance from the seed.
type Entry struct {
	URL   string
	Depth int
}

// Unbounded first in, first out queue of frontier entries. Safe for concurrent use.
type Queue struct {
	mu sync.Mutex
	q  []Entry
}

// Creates an empty queue with room for capacity entries before it grows.
func New(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{q: make([]Entry, 0, capacity)}
}

// Inserts the entry at the back of the queue
func (q *Queue) Insert(entry Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.q = append(q.q, entry)
}

// Removes the oldest entry from the queue
func (q *Queue) Remove() (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.q) == 0 {
		return Entry{}, ErrEmpty
	}
	entry := q.q[0]
	q.q[0] = Entry{}
	q.q = q.q[1:]
	return entry, nil
}

// Returns the oldest entry without removing it
func (q *Queue) Peek() (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.q) == 0 {
		return Entry{}, ErrEmpty
	}
	return q.q[0], nil
}

// Returns the number of entries in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.q)
}

// Returns true if the queue is empty
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}
