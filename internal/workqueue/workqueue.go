// Package workqueue implements a bounded pool of worker goroutines
// consuming a FIFO of typed work items. Unlike a source that packs a task
// into a single delimited string, each Item here carries its payload as a
// typed field on a Go struct — the queue and wake-up signalling are the
// only things that stay untyped.
package workqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Item is one unit of work: an opaque payload dispatched to Run.
type Item struct {
	ID      string
	Payload any
}

// NewItem creates an Item with a fresh correlation ID.
func NewItem(payload any) Item {
	return Item{ID: uuid.NewString(), Payload: payload}
}

// Handler processes one Item. Errors are the handler's own business: the
// queue does not retry or report them.
type Handler func(Item)

// Queue is a bounded worker pool draining a FIFO work list. Completion
// order across workers is unspecified; enqueue order is preserved as the
// order items become available to be picked up.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Item
	handler  Handler
	workers  int
	stopping bool
	wg       sync.WaitGroup
}

// New creates a Queue with workers goroutines, each invoking handler for
// every dequeued item. Call Start to launch the workers.
func New(workers int, handler Handler) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{handler: handler, workers: workers}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the worker goroutines. Call once.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker()
	}
}

func (q *Queue) runWorker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.stopping {
			q.cond.Wait()
		}
		if len(q.items) == 0 && q.stopping {
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.handler(item)
	}
}

// Enqueue appends an item and wakes one waiting worker.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// Len returns the number of items currently queued (not yet dequeued).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop sets the shutdown flag, wakes every worker, and joins them all.
// Workers finish draining any items already dequeued before exiting, but
// no new items are picked up once Stop has been called and the queue is
// empty.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopping = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
}

// WaitForCompletion blocks until the queue has no pending items. It does
// not stop the workers; call Stop separately to shut the pool down.
func (q *Queue) WaitForCompletion() {
	for {
		q.mu.Lock()
		empty := len(q.items) == 0
		q.mu.Unlock()
		if empty {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
