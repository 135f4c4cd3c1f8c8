package loop

import (
	"context"
	"sync"
	"time"
)

// EventLoop is the wall-clock driver. Run executes every callback on a single goroutine; other
// goroutines hand work to it with Do.
type EventLoop struct {
	core  *core
	posts chan func()

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewEventLoop creates a loop whose frame boundaries are aligned to the time it was created.
func NewEventLoop(frameInterval time.Duration) *EventLoop {
	return &EventLoop{
		core:  newCore(time.Now(), frameInterval),
		posts: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

func (l *EventLoop) Now() time.Time { return time.Now() }

func (l *EventLoop) Every(d time.Duration, fn func(now time.Time)) Handle {
	return l.core.every(time.Now(), d, fn)
}

func (l *EventLoop) After(d time.Duration, fn func(now time.Time)) Handle {
	return l.core.after(time.Now(), d, fn)
}

func (l *EventLoop) Frame(fn func(now time.Time)) Handle {
	return l.core.frame(time.Now(), fn)
}

func (l *EventLoop) Cancel(h Handle) bool {
	return l.core.cancel(h)
}

func (l *EventLoop) Pending() int {
	return l.core.pending()
}

// Done is closed once Run has returned.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// Run drives the loop until ctx is cancelled. It must be called at most once.
func (l *EventLoop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.mu.Unlock()
	defer close(l.done)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		l.fireDue(time.Now())

		wait := time.Hour
		if due, ok := l.core.nextDue(); ok {
			wait = time.Until(due)
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.posts:
			fn()
		case <-l.core.wake:
		case <-timer.C:
		}
	}
}

func (l *EventLoop) fireDue(now time.Time) {
	for {
		e, due, ok := l.core.popDue(now)
		if !ok {
			return
		}
		e.fn(due)
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.posts <- job:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// Run may have exited between accepting the job and running it.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
