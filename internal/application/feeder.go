package application

import (
	"time"

	"energy-bubbles/internal/loop"
)

type feeding struct {
	handle loop.Handle
	endsAt time.Time
}

// Feeder tracks the transient feeding state started by clicking a bubble. A device already being
// fed ignores further clicks until its timer fires.
type Feeder struct {
	sched    loop.Scheduler
	duration time.Duration
	onDone   func(id int, now time.Time)
	inFlight map[int]feeding
}

func NewFeeder(sched loop.Scheduler, duration time.Duration, onDone func(id int, now time.Time)) *Feeder {
	return &Feeder{
		sched:    sched,
		duration: duration,
		onDone:   onDone,
		inFlight: make(map[int]feeding),
	}
}

// Start begins feeding id. It returns the time feeding ends and whether this call started it;
// a repeat call while feeding returns the original end time and false.
func (f *Feeder) Start(id int) (time.Time, bool) {
	if cur, ok := f.inFlight[id]; ok {
		return cur.endsAt, false
	}

	endsAt := f.sched.Now().Add(f.duration)
	h := f.sched.After(f.duration, func(now time.Time) {
		delete(f.inFlight, id)
		if f.onDone != nil {
			f.onDone(id, now)
		}
	})
	f.inFlight[id] = feeding{handle: h, endsAt: endsAt}
	return endsAt, true
}

// EndsAt reports when id's current feeding finishes.
func (f *Feeder) EndsAt(id int) (time.Time, bool) {
	cur, ok := f.inFlight[id]
	return cur.endsAt, ok
}

func (f *Feeder) Active(id int) bool {
	_, ok := f.inFlight[id]
	return ok
}

// Stop cancels every in-flight feeding without completing it and returns how many were cancelled.
func (f *Feeder) Stop() int {
	n := 0
	for id, cur := range f.inFlight {
		if f.sched.Cancel(cur.handle) {
			n++
		}
		delete(f.inFlight, id)
	}
	return n
}
