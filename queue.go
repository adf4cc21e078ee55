package ripple

import (
	"container/list"
	"sync"
)

// Queue is a thread-safe FIFO of pending events.
type Queue struct {
	mu   sync.Mutex
	list *list.List
}

// NewQueue creates and returns a new empty Queue.
func NewQueue() *Queue {
	return &Queue{list: list.New()}
}

// Enqueue adds an Event to the end of the queue.
func (q *Queue) Enqueue(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.PushBack(event)
}

// PushFront puts events back at the head of the queue, keeping their order,
// so a failed batch is retried before anything tracked after it.
func (q *Queue) PushFront(events []Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(events) - 1; i >= 0; i-- {
		q.list.PushFront(events[i])
	}
}

// Drain removes and returns every queued event in order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.sliceLocked()
	q.list.Init()
	return events
}

// IsEmpty reports whether the queue has no elements.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of Events currently in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list.Len()
}

// ToSlice returns a snapshot of the queue in order.
func (q *Queue) ToSlice() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sliceLocked()
}

// LoadFromSlice replaces the queue contents with events.
func (q *Queue) LoadFromSlice(events []Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list.Init()
	for _, event := range events {
		q.list.PushBack(event)
	}
}

func (q *Queue) sliceLocked() []Event {
	events := make([]Event, 0, q.list.Len())
	for e := q.list.Front(); e != nil; e = e.Next() {
		events = append(events, e.Value.(Event))
	}
	return events
}
