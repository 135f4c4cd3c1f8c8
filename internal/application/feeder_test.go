package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"energy-bubbles/internal/application"
	"energy-bubbles/internal/loop"
)

func TestFeeder_StartIsIdempotent(t *testing.T) {
	clock := loop.NewManual(epoch, loop.DefaultFrameInterval)
	var done []int
	f := application.NewFeeder(clock, time.Second, func(id int, now time.Time) {
		done = append(done, id)
		assert.Equal(t, epoch.Add(time.Second), now)
	})

	endsAt, started := f.Start(5)
	assert.True(t, started)
	assert.Equal(t, epoch.Add(time.Second), endsAt)

	clock.Advance(300 * time.Millisecond)
	again, started := f.Start(5)
	assert.False(t, started)
	assert.Equal(t, endsAt, again)
	assert.Equal(t, 1, clock.Pending(), "one timer per device")

	clock.Advance(700 * time.Millisecond)
	assert.Equal(t, []int{5}, done)
	assert.False(t, f.Active(5))

	_, ok := f.EndsAt(5)
	assert.False(t, ok)

	_, started = f.Start(5)
	assert.True(t, started, "can feed again once finished")
}

func TestFeeder_StopCancelsWithoutCompleting(t *testing.T) {
	clock := loop.NewManual(epoch, loop.DefaultFrameInterval)
	completed := 0
	f := application.NewFeeder(clock, time.Second, func(int, time.Time) { completed++ })

	f.Start(1)
	f.Start(2)
	assert.Equal(t, 2, f.Stop())
	assert.Zero(t, clock.Pending())

	clock.Advance(5 * time.Second)
	assert.Zero(t, completed)
}
