// Package timerq is a delay queue of one-shot callbacks ordered by fire time.
// A single loop (Run) drives it, and callers can inspect or cancel anything
// still pending.
package timerq

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"
)

// Func is the callback executed when an item fires.
type Func func(ctx context.Context)

// Item describes a pending callback.
type Item struct {
	ID   uint64    `json:"id"`
	Kind string    `json:"kind"`
	Key  string    `json:"key"`
	At   time.Time `json:"at"`
}

type entry struct {
	Item
	fn    Func
	index int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].At.Equal(h[j].At) {
		return h[i].ID < h[j].ID
	}
	return h[i].At.Before(h[j].At)
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is safe for concurrent use.
type Queue struct {
	mu   sync.Mutex
	heap entryHeap
	byID map[uint64]*entry
	seq  uint64
	now  func() time.Time
	wake chan struct{}
	// idle bounds how long Run sleeps when nothing is queued.
	idle time.Duration
}

// New creates an empty queue. now defaults to time.Now.
func New(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{
		byID: make(map[uint64]*entry),
		now:  now,
		wake: make(chan struct{}, 1),
		idle: time.Minute,
	}
}

// Schedule queues fn to run at at and returns its id.
func (q *Queue) Schedule(at time.Time, kind, key string, fn Func) uint64 {
	q.mu.Lock()
	q.seq++
	e := &entry{Item: Item{ID: q.seq, Kind: kind, Key: key, At: at}, fn: fn}
	heap.Push(&q.heap, e)
	q.byID[e.ID] = e
	head := q.heap[0] == e
	q.mu.Unlock()

	if head {
		q.signal()
	}
	return e.ID
}

// After is Schedule relative to the queue clock.
func (q *Queue) After(d time.Duration, kind, key string, fn Func) uint64 {
	return q.Schedule(q.now().Add(d), kind, key, fn)
}

// Cancel removes a pending item. It reports false if the item already fired
// or never existed.
func (q *Queue) Cancel(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, e.index)
	delete(q.byID, id)
	return true
}

// CancelKey removes every pending item of kind with the given key.
func (q *Queue) CancelKey(kind, key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ids []uint64
	for id, e := range q.byID {
		if e.Kind == kind && e.Key == key {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		heap.Remove(&q.heap, q.byID[id].index)
		delete(q.byID, id)
	}
	return len(ids)
}

// Pending lists queued items by fire time.
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, 0, len(q.heap))
	for _, e := range q.heap {
		out = append(out, e.Item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID < out[j].ID
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Len is the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// RunDue fires, in order, every item whose time has come and returns how
// many ran. Callbacks run outside the lock and may schedule new items.
func (q *Queue) RunDue(ctx context.Context) int {
	ran := 0
	for {
		e := q.popDue(q.now())
		if e == nil {
			return ran
		}
		e.fn(ctx)
		ran++
	}
}

// Run drives the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	timer := time.NewTimer(q.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-timer.C:
			q.RunDue(ctx)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(q.nextWait())
	}
}

func (q *Queue) popDue(now time.Time) *entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 || q.heap[0].At.After(now) {
		return nil
	}
	e := heap.Pop(&q.heap).(*entry)
	delete(q.byID, e.ID)
	return e
}

func (q *Queue) nextWait() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return q.idle
	}
	wait := q.heap[0].At.Sub(q.now())
	if wait < 0 {
		return 0
	}
	if wait > q.idle {
		return q.idle
	}
	return wait
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
