// Package queue implements the bounded Post Queue between the Extractor
// and the Downloader: a buffered channel of model.QueueItem, capacity
// download_concurrency*4, terminated by a single sentinel item. New code
// — the teacher fetches metadata eagerly into a slice rather than
// streaming through a channel — grounded on Go's standard producer/
// consumer channel idiom and the teacher's worker-pool dispatch shape
// (cmd_download_worker.go).
package queue

import (
	"context"

	"booru-dl/internal/model"
)

// Queue is a thin, MPMC-safe wrapper around a buffered channel of
// model.QueueItem. Ordering is FIFO per producer; across producers
// ordering is unspecified, matching spec.md §4.2.
type Queue struct {
	items chan model.QueueItem
}

// New creates a Queue with capacity = concurrency*4.
func New(concurrency int) *Queue {
	capacity := concurrency * 4
	if capacity <= 0 {
		capacity = 4
	}
	return &Queue{items: make(chan model.QueueItem, capacity)}
}

// Send enqueues a post, blocking if the queue is full. This is the only
// backpressure mechanism throttling the extractor to the downloader's
// completion rate.
func (q *Queue) Send(p model.Post) {
	q.items <- model.QueueItem{Post: p}
}

// SendContext enqueues a post, blocking until there is room or ctx is
// cancelled. Used by producers that must remain cancellation-responsive
// while blocked on a full queue.
func (q *Queue) SendContext(ctx context.Context, p model.Post) error {
	select {
	case q.items <- model.QueueItem{Post: p}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close pushes the terminator sentinel, blocking if the queue is full. The
// extractor task calls it once when it finishes; each Downloader worker
// that receives the terminator calls it again to repost the sentinel for
// the remaining workers.
func (q *Queue) Close() {
	q.items <- model.QueueItem{Terminator: true}
}

// Recv receives the next item. ok is false only if the underlying channel
// was closed without a terminator ever being sent (should not happen in
// normal operation, but guards against a producer panic leaving the
// channel open).
func (q *Queue) Recv() (model.QueueItem, bool) {
	item, ok := <-q.items
	return item, ok
}

// Len reports the current queue depth, for tests verifying the
// backpressure bound (spec.md §8 property 6).
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap reports the queue's capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}
