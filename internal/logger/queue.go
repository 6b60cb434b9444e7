package logger

import "sync"

// Queue is a bounded FIFO of log events. Producers never block: when the
// queue is full the oldest event is dropped.
type Queue struct {
	mu      sync.Mutex
	events  []Event
	size    int
	dropped int
}

// NewQueue creates a queue holding at most size events
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{size: size}
}

// Push appends an event, evicting the oldest one if needed
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.size {
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, e)
}

// Drain removes and returns all pending events in arrival order
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len reports the number of pending events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped reports how many events were evicted since creation
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
