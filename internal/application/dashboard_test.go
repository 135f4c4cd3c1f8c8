package application_test

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-bubbles/internal/application"
	"energy-bubbles/internal/domain"
	"energy-bubbles/internal/loop"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingObserver struct {
	snapshots []domain.Snapshot
}

func (r *recordingObserver) Publish(s domain.Snapshot) {
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingObserver) last() domain.Snapshot {
	return r.snapshots[len(r.snapshots)-1]
}

type countingTelemetry struct {
	application.NoopTelemetry
	deviceTicks int
	sourceTicks int
	impulses    int
	fed         []string
}

func (c *countingTelemetry) DevicesUpdated(_ []domain.Device)       { c.deviceTicks++ }
func (c *countingTelemetry) SourcesUpdated(_ []domain.EnergySource) { c.sourceTicks++ }
func (c *countingTelemetry) Impulse()                               { c.impulses++ }
func (c *countingTelemetry) Fed(d domain.Device)                    { c.fed = append(c.fed, d.Name) }

type fixture struct {
	clock     *loop.Manual
	dashboard *application.Dashboard
	observer  *recordingObserver
	telemetry *countingTelemetry
}

func newFixture(t *testing.T, mutate func(*application.Settings)) *fixture {
	t.Helper()

	settings := application.DefaultSettings()
	settings.Layout.Width, settings.Layout.Height = 1200, 800
	if mutate != nil {
		mutate(&settings)
	}

	f := &fixture{
		clock:     loop.NewManual(epoch, loop.DefaultFrameInterval),
		observer:  &recordingObserver{},
		telemetry: &countingTelemetry{},
	}
	f.dashboard = application.NewDashboard(
		"test-view",
		f.clock,
		rand.New(rand.NewPCG(42, 1)),
		settings,
		f.observer,
		f.telemetry,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func TestDashboard_MountRegistersLoops(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.dashboard.Mount())
	assert.Equal(t, 4, f.clock.Pending(), "metrics, sources, impulse and one frame")
	require.Len(t, f.observer.snapshots, 1)

	first := f.observer.last()
	assert.Len(t, first.Devices, 12)
	assert.Len(t, first.Sources, 5)
	assert.Equal(t, 12415.0, first.TotalWatts)
	assert.Equal(t, 1200.0, first.Width)

	assert.ErrorIs(t, f.dashboard.Mount(), application.ErrAlreadyMounted)
}

func TestDashboard_TeardownLeavesNothingPending(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.dashboard.Mount())

	f.clock.Advance(2500 * time.Millisecond)
	_, started, err := f.dashboard.Feed(3)
	require.NoError(t, err)
	require.True(t, started)
	require.Equal(t, 5, f.clock.Pending(), "four loops plus the feeding timer")

	f.dashboard.Teardown()
	assert.Equal(t, 0, f.clock.Pending())

	published := len(f.observer.snapshots)
	assert.Zero(t, f.clock.Advance(time.Minute), "nothing fires after teardown")
	assert.Equal(t, published, len(f.observer.snapshots))

	f.dashboard.Teardown()
	assert.Equal(t, 0, f.clock.Pending())

	_, _, err = f.dashboard.Feed(3)
	assert.ErrorIs(t, err, application.ErrTornDown)
	assert.ErrorIs(t, f.dashboard.Mount(), application.ErrTornDown)
}

func TestDashboard_MetricsTickOncePerSecond(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.dashboard.Mount())

	f.clock.Advance(999 * time.Millisecond)
	for _, d := range f.dashboard.Snapshot().Devices {
		assert.Zero(t, d.Duration)
	}

	f.clock.Advance(time.Millisecond)
	for _, d := range f.dashboard.Snapshot().Devices {
		assert.Equal(t, 1, d.Duration)
	}

	f.clock.Advance(9 * time.Second)
	assert.Equal(t, 11, f.telemetry.deviceTicks, "mount plus ten ticks")
	assert.Equal(t, 10, f.telemetry.impulses)
}

func TestDashboard_SourcesTickEveryFiveSeconds(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.dashboard.Mount())
	seed := domain.DefaultSources()

	f.clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, seed, f.dashboard.Snapshot().Sources)

	f.clock.Advance(time.Millisecond)
	assert.NotEqual(t, seed, f.dashboard.Snapshot().Sources)
	assert.Equal(t, 2, f.telemetry.sourceTicks)
}

func TestDashboard_InvariantsHoldOverTime(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.dashboard.Mount())

	f.clock.Advance(2 * time.Minute)

	var lastSeq uint64
	for _, s := range f.observer.snapshots {
		require.Greater(t, s.Seq, lastSeq, "snapshots are strictly ordered")
		lastSeq = s.Seq

		for _, d := range s.Devices {
			lo, hi := d.PowerBounds()
			require.True(t, d.Power >= lo && d.Power <= hi, "%s power %v", d.Name, d.Power)
			require.True(t, d.Size >= 50 && d.Size <= 200, "%s size %v", d.Name, d.Size)
		}
		for _, src := range s.Sources {
			require.True(t, src.Share >= 0 && src.Share <= 100, "%s share %v", src.Name, src.Share)
		}
	}
}

func TestDashboard_FeedIsReentrancySafe(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.dashboard.Mount())
	f.clock.Advance(100 * time.Millisecond)

	endsAt, started, err := f.dashboard.Feed(7)
	require.NoError(t, err)
	require.True(t, started)
	assert.Equal(t, epoch.Add(1100*time.Millisecond), endsAt)

	f.clock.Advance(400 * time.Millisecond)
	again, startedAgain, err := f.dashboard.Feed(7)
	require.NoError(t, err)
	assert.False(t, startedAgain)
	assert.Equal(t, endsAt, again, "re-feeding leaves the end time unchanged")

	dishwasher := deviceByID(t, f.dashboard.Snapshot(), 7)
	assert.True(t, dishwasher.Feeding)

	f.clock.Advance(600 * time.Millisecond)
	dishwasher = deviceByID(t, f.dashboard.Snapshot(), 7)
	assert.False(t, dishwasher.Feeding)
	assert.Equal(t, domain.MoodContent, dishwasher.Mood)
	assert.Equal(t, endsAt, dishwasher.LastFed)
	assert.Equal(t, []string{"Dishwasher"}, f.telemetry.fed)
}

func TestDashboard_RejectsUnknownDevices(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.dashboard.Feed(1)
	assert.ErrorIs(t, err, application.ErrNotMounted)

	require.NoError(t, f.dashboard.Mount())

	_, _, err = f.dashboard.Feed(404)
	assert.ErrorIs(t, err, application.ErrUnknownDevice)
	assert.ErrorIs(t, f.dashboard.Drag(404, 1, 1), application.ErrUnknownDevice)
	assert.ErrorIs(t, f.dashboard.Release(404), application.ErrUnknownDevice)
}

func TestDashboard_DragHoldsBubble(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.dashboard.Mount())
	f.clock.Advance(3 * time.Second)

	require.NoError(t, f.dashboard.Drag(2, 100, 120))
	f.clock.Advance(2 * time.Second)

	tv := deviceByID(t, f.dashboard.Snapshot(), 2)
	assert.Equal(t, 100.0, tv.X)
	assert.Equal(t, 120.0, tv.Y)

	require.NoError(t, f.dashboard.Release(2))
	f.clock.Advance(2 * time.Second)

	tv = deviceByID(t, f.dashboard.Snapshot(), 2)
	assert.False(t, tv.X == 100 && tv.Y == 120, "released bubble drifts back")
}

func TestDashboard_ZeroSizedContainer(t *testing.T) {
	f := newFixture(t, func(s *application.Settings) {
		s.Layout.Width, s.Layout.Height = 0, 0
	})
	require.NoError(t, f.dashboard.Mount())
	f.clock.Advance(3 * time.Second)

	s := f.dashboard.Snapshot()
	assert.Zero(t, s.Width)
	for _, d := range s.Devices {
		assert.False(t, d.X != d.X || d.Y != d.Y, "no NaN positions")
	}

	f.dashboard.Resize(640, 480)
	assert.Equal(t, 640.0, f.dashboard.Snapshot().Width)
}

func TestDashboard_NormalizedShares(t *testing.T) {
	f := newFixture(t, func(s *application.Settings) {
		s.NormalizeShares = true
	})
	require.NoError(t, f.dashboard.Mount())
	f.clock.Advance(30 * time.Second)

	assert.InDelta(t, 100, domain.TotalShare(f.dashboard.Snapshot().Sources), 1e-9)
}

func TestDashboard_RejectsInvalidSeed(t *testing.T) {
	f := newFixture(t, func(s *application.Settings) {
		s.Devices = []domain.DeviceSpec{{ID: 1, Name: "Broken", Baseline: -1}}
	})

	err := f.dashboard.Mount()
	assert.ErrorIs(t, err, domain.ErrInvalidBaseline)
	assert.Zero(t, f.clock.Pending())
}

func deviceByID(t *testing.T, s domain.Snapshot, id int) domain.DeviceView {
	t.Helper()
	for _, d := range s.Devices {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("device %d not in snapshot", id)
	return domain.DeviceView{}
}
