// Package queue provides the producer/consumer work queue shared by every
// pipeline stage: a mutex-guarded FIFO with no size limit, a condition variable
// signaled on enqueue and on cancel, transferring ownership of each item
// from enqueuer to dequeuer.
package queue

import "sync"

// Queue is a FIFO of interface{} items (raw or coded frames in practice)
// with blocking dequeue and cooperative cancellation. The zero value is
// not usable; use New.
type Queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	items     []interface{}
	cancelled bool
}

// New returns an empty Queue ready for use.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends item to the tail and wakes one waiting dequeuer.
// Ownership of item transfers to the queue (and, on dequeue, to the
// dequeuer) from this call onward.
func (q *Queue) Enqueue(item interface{}) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// Dequeue blocks until an item is available or the queue is cancelled. It
// returns (item, true) on success, or (nil, false) once cancelled with no
// item available. A Dequeue call racing a concurrent Cancel may still
// return an item enqueued before the cancel took effect.
func (q *Queue) Dequeue() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.cancelled {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Size returns the number of items currently queued, without blocking.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cancel marks the queue cancelled and wakes every blocked dequeuer. Once
// cancelled, Dequeue drains any remaining items before returning (nil,
// false); Enqueue after Cancel is still accepted (a stage finishing its
// own cancellation may still be mid-forward) but nothing new will wake a
// dequeuer that has already observed cancellation and exited.
func (q *Queue) Cancel() {
	q.mu.Lock()
	q.cancelled = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Cancelled reports whether Cancel has been called.
func (q *Queue) Cancelled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancelled
}
