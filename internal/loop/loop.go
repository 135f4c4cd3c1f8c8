// Package loop provides the cooperative, single-threaded scheduler a view runs on.
//
// Callbacks registered on a Scheduler never run concurrently with each other. Two drivers share the
// same timer core: EventLoop follows the wall clock, Manual advances only when told to.
package loop

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when work is submitted to a loop that is no longer running.
var ErrStopped = errors.New("event loop stopped")

// DefaultFrameInterval approximates a 60 Hz animation frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Handle identifies a registered callback. The zero Handle is never issued.
type Handle uint64

// Scheduler registers timer and frame callbacks. Every Handle returned must be cancelled exactly once
// unless it is a one-shot that already fired.
type Scheduler interface {
	Every(d time.Duration, fn func(now time.Time)) Handle
	After(d time.Duration, fn func(now time.Time)) Handle
	Frame(fn func(now time.Time)) Handle
	Cancel(h Handle) bool
	Pending() int
	Now() time.Time
}

type entry struct {
	handle   Handle
	due      time.Time
	interval time.Duration
	fn       func(now time.Time)
	index    int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].handle < h[j].handle
	}
	return h[i].due.Before(h[j].due)
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

// core is the timer table shared by both drivers. The caller supplies the current time.
type core struct {
	mu            sync.Mutex
	origin        time.Time
	frameInterval time.Duration
	next          Handle
	queue         entryHeap
	byHandle      map[Handle]*entry
	wake          chan struct{}
}

func newCore(origin time.Time, frameInterval time.Duration) *core {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &core{
		origin:        origin,
		frameInterval: frameInterval,
		byHandle:      make(map[Handle]*entry),
		wake:          make(chan struct{}, 1),
	}
}

func (c *core) schedule(now time.Time, due time.Time, interval time.Duration, fn func(time.Time)) Handle {
	c.mu.Lock()
	c.next++
	e := &entry{handle: c.next, due: due, interval: interval, fn: fn}
	heap.Push(&c.queue, e)
	c.byHandle[e.handle] = e
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return e.handle
}

func (c *core) every(now time.Time, d time.Duration, fn func(time.Time)) Handle {
	if d <= 0 {
		d = c.frameInterval
	}
	return c.schedule(now, now.Add(d), d, fn)
}

func (c *core) after(now time.Time, d time.Duration, fn func(time.Time)) Handle {
	if d < 0 {
		d = 0
	}
	return c.schedule(now, now.Add(d), 0, fn)
}

// frame schedules fn on the next frame boundary strictly after now.
func (c *core) frame(now time.Time, fn func(time.Time)) Handle {
	elapsed := now.Sub(c.origin)
	boundary := (elapsed/c.frameInterval + 1) * c.frameInterval
	return c.schedule(now, c.origin.Add(boundary), 0, fn)
}

func (c *core) cancel(h Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byHandle[h]
	if !ok {
		return false
	}
	delete(c.byHandle, h)
	if e.index >= 0 {
		heap.Remove(&c.queue, e.index)
	}
	return true
}

func (c *core) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byHandle)
}

// nextDue reports the earliest due time, if any.
func (c *core) nextDue() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return time.Time{}, false
	}
	return c.queue[0].due, true
}

// popDue removes and returns the earliest entry due at or before now. Repeating entries are
// rescheduled before the callback runs so the callback may cancel its own handle.
func (c *core) popDue(now time.Time) (*entry, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 || c.queue[0].due.After(now) {
		return nil, time.Time{}, false
	}

	e := c.queue[0]
	due := e.due
	if e.interval > 0 {
		e.due = e.due.Add(e.interval)
		heap.Fix(&c.queue, 0)
	} else {
		heap.Pop(&c.queue)
		delete(c.byHandle, e.handle)
	}
	return e, due, true
}
