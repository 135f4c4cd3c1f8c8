package loop

import (
	"context"
	"sync"
	"time"
)

// Manual is a Scheduler driven by an explicit clock. Time only moves through Advance, which makes it the
// fake clock for tests and the driver for headless simulation runs.
type Manual struct {
	core *core

	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual scheduler starting at origin.
func NewManual(origin time.Time, frameInterval time.Duration) *Manual {
	return &Manual{
		core: newCore(origin, frameInterval),
		now:  origin,
	}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(d time.Duration, fn func(now time.Time)) Handle {
	return m.core.every(m.Now(), d, fn)
}

func (m *Manual) After(d time.Duration, fn func(now time.Time)) Handle {
	return m.core.after(m.Now(), d, fn)
}

func (m *Manual) Frame(fn func(now time.Time)) Handle {
	return m.core.frame(m.Now(), fn)
}

func (m *Manual) Cancel(h Handle) bool {
	return m.core.cancel(h)
}

func (m *Manual) Pending() int {
	return m.core.pending()
}

// Do runs fn inline. It exists so Manual and EventLoop can be used interchangeably by callers that
// marshal work onto the loop.
func (m *Manual) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// Advance moves the clock forward by d, running every callback that becomes due in due-time order.
// It returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	target := m.Now().Add(d)
	fired := 0
	for {
		e, due, ok := m.core.popDue(target)
		if !ok {
			break
		}
		m.mu.Lock()
		if due.After(m.now) {
			m.now = due
		}
		m.mu.Unlock()

		e.fn(due)
		fired++
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
	return fired
}
