package application

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"energy-bubbles/internal/domain"
	"energy-bubbles/internal/layout"
	"energy-bubbles/internal/loop"
	"energy-bubbles/internal/simulation"
)

var (
	ErrUnknownDevice  = errors.New("unknown device")
	ErrAlreadyMounted = errors.New("dashboard already mounted")
	ErrNotMounted     = errors.New("dashboard not mounted")
	ErrTornDown       = errors.New("dashboard torn down")
)

type Settings struct {
	MetricsInterval time.Duration
	SourcesInterval time.Duration
	ImpulseInterval time.Duration
	FeedDuration    time.Duration
	NormalizeShares bool
	// Padding is added to every bubble's radius for collision purposes.
	Padding float64
	Layout  layout.Config
	Devices []domain.DeviceSpec
	Sources []domain.EnergySource
}

func DefaultSettings() Settings {
	return Settings{
		MetricsInterval: time.Second,
		SourcesInterval: 5 * time.Second,
		ImpulseInterval: time.Second,
		FeedDuration:    time.Second,
		Padding:         10,
		Layout:          layout.DefaultConfig(),
		Devices:         domain.DefaultDevices(),
		Sources:         domain.DefaultSources(),
	}
}

// Dashboard owns the state of one mounted view: the device and source sets, the layout engine and
// every timer driving them. All methods must be called from the scheduler's loop.
type Dashboard struct {
	id        string
	sched     loop.Scheduler
	rng       simulation.Rand
	settings  Settings
	observer  Observer
	telemetry Telemetry
	logger    *slog.Logger

	devices []domain.Device
	sources []domain.EnergySource
	index   map[int]int
	engine  *layout.Engine
	feeder  *Feeder
	seq     uint64

	mounted   bool
	tornDown  bool
	intervals []loop.Handle
	frame     loop.Handle
}

func NewDashboard(
	id string,
	sched loop.Scheduler,
	rng simulation.Rand,
	settings Settings,
	observer Observer,
	telemetry Telemetry,
	logger *slog.Logger,
) *Dashboard {
	if observer == nil {
		observer = &NoopObserver{}
	}
	if telemetry == nil {
		telemetry = &NoopTelemetry{}
	}

	d := &Dashboard{
		id:        id,
		sched:     sched,
		rng:       rng,
		settings:  settings,
		observer:  observer,
		telemetry: telemetry,
		logger:    logger.With("view", id),
		engine:    layout.New(settings.Layout, rng),
	}
	d.feeder = NewFeeder(sched, settings.FeedDuration, d.onFed)
	return d
}

func (d *Dashboard) ID() string { return d.id }

// Mount seeds the view and starts its three loops: metrics tick, source-mix tick and the per-frame
// layout step, plus the impulse interval that keeps the layout moving.
func (d *Dashboard) Mount() error {
	if d.tornDown {
		return ErrTornDown
	}
	if d.mounted {
		return ErrAlreadyMounted
	}
	if err := domain.ValidateSeed(d.settings.Devices, d.settings.Sources); err != nil {
		return fmt.Errorf("seeding view: %w", err)
	}

	now := d.sched.Now()
	d.setDevices(domain.NewDevices(d.settings.Devices, now))
	d.sources = append([]domain.EnergySource(nil), d.settings.Sources...)
	if d.settings.NormalizeShares {
		d.sources = simulation.Normalize(d.sources)
	}
	d.engine.Seed(layoutNodes(d.devices, d.settings.Padding))

	d.intervals = []loop.Handle{
		d.sched.Every(d.settings.MetricsInterval, d.onMetricsTick),
		d.sched.Every(d.settings.SourcesInterval, d.onSourcesTick),
		d.sched.Every(d.settings.ImpulseInterval, d.onImpulse),
	}
	d.frame = d.sched.Frame(d.onFrame)
	d.mounted = true

	cx, cy := d.engine.Center()
	d.logger.Info("view mounted",
		"devices", len(d.devices),
		"sources", len(d.sources),
		"center_x", cx,
		"center_y", cy,
	)
	if cx == 0 && cy == 0 {
		d.logger.Warn("container has no size, layout centers on origin")
	}

	d.telemetry.DevicesUpdated(d.devices)
	d.telemetry.SourcesUpdated(d.sources)
	d.publish(now)
	return nil
}

// Teardown cancels every timer and frame callback the view registered, including in-flight feedings.
// It is safe to call more than once.
func (d *Dashboard) Teardown() {
	if d.tornDown {
		return
	}
	d.tornDown = true

	cancelled := 0
	for _, h := range d.intervals {
		if d.sched.Cancel(h) {
			cancelled++
		}
	}
	d.intervals = nil
	if d.frame != 0 && d.sched.Cancel(d.frame) {
		cancelled++
	}
	d.frame = 0
	cancelled += d.feeder.Stop()

	d.logger.Info("view torn down", "cancelled", cancelled)
}

func (d *Dashboard) setDevices(devices []domain.Device) {
	d.devices = devices
	if d.index == nil {
		d.index = make(map[int]int, len(devices))
		for i, dev := range devices {
			d.index[dev.ID] = i
		}
	}
}

func (d *Dashboard) onMetricsTick(now time.Time) {
	d.setDevices(simulation.StepDevices(d.devices, d.rng))
	d.engine.Seed(layoutNodes(d.devices, d.settings.Padding))
	d.telemetry.DevicesUpdated(d.devices)
	d.publish(now)
}

func (d *Dashboard) onSourcesTick(now time.Time) {
	sources := simulation.StepSources(d.sources, d.rng)
	if d.settings.NormalizeShares {
		sources = simulation.Normalize(sources)
	}
	d.sources = sources
	d.telemetry.SourcesUpdated(d.sources)
	d.publish(now)
}

func (d *Dashboard) onImpulse(_ time.Time) {
	d.engine.Perturb()
	d.telemetry.Impulse()
}

func (d *Dashboard) onFrame(now time.Time) {
	d.frame = d.sched.Frame(d.onFrame)
	if !d.engine.Step() {
		return
	}
	d.telemetry.FrameStepped(d.engine.Alpha())
	d.publish(now)
}

func (d *Dashboard) onFed(id int, now time.Time) {
	i, ok := d.index[id]
	if !ok {
		return
	}

	devices := append([]domain.Device(nil), d.devices...)
	devices[i].Mood = domain.MoodContent
	devices[i].LastFed = now
	d.devices = devices

	d.logger.Debug("device fed", "device", devices[i].Name)
	d.telemetry.Fed(devices[i])
	d.publish(now)
}

func (d *Dashboard) check(id int) error {
	if d.tornDown {
		return ErrTornDown
	}
	if !d.mounted {
		return ErrNotMounted
	}
	if _, ok := d.index[id]; !ok {
		return fmt.Errorf("device %d: %w", id, ErrUnknownDevice)
	}
	return nil
}

// Feed starts the feeding animation on a device. Feeding a device that is already being fed changes
// nothing; the returned end time is that of the feeding in progress.
func (d *Dashboard) Feed(id int) (time.Time, bool, error) {
	if err := d.check(id); err != nil {
		return time.Time{}, false, err
	}
	endsAt, started := d.feeder.Start(id)
	if started {
		d.publish(d.sched.Now())
	}
	return endsAt, started, nil
}

// Drag holds a bubble under the pointer.
func (d *Dashboard) Drag(id int, x, y float64) error {
	if err := d.check(id); err != nil {
		return err
	}
	d.engine.Drag(id, x, y)
	return nil
}

// Release ends a drag. The bubble is not pinned.
func (d *Dashboard) Release(id int) error {
	if err := d.check(id); err != nil {
		return err
	}
	d.engine.Release(id)
	return nil
}

// Resize records the container's measured size and recenters the layout.
func (d *Dashboard) Resize(w, h float64) {
	d.engine.Resize(w, h)
	if d.mounted && !d.tornDown {
		d.publish(d.sched.Now())
	}
}

// Snapshot builds an immutable picture of the view.
func (d *Dashboard) Snapshot() domain.Snapshot {
	return d.snapshot(d.sched.Now())
}

func (d *Dashboard) TotalWatts() float64 {
	return domain.TotalPower(d.devices)
}

func (d *Dashboard) snapshot(now time.Time) domain.Snapshot {
	views := make([]domain.DeviceView, len(d.devices))
	for i, dev := range d.devices {
		v := domain.DeviceView{
			Device:  dev,
			Size:    domain.BubbleSize(dev.Power),
			Feeding: d.feeder.Active(dev.ID),
		}
		if p, ok := d.engine.Position(dev.ID); ok {
			v.X, v.Y = p.X, p.Y
		}
		views[i] = v
	}

	cx, cy := d.engine.Center()
	return domain.Snapshot{
		Seq:        d.seq,
		At:         now,
		Width:      cx * 2,
		Height:     cy * 2,
		Alpha:      d.engine.Alpha(),
		TotalWatts: domain.TotalPower(d.devices),
		Devices:    views,
		Sources:    append([]domain.EnergySource(nil), d.sources...),
	}
}

func (d *Dashboard) publish(now time.Time) {
	d.seq++
	d.observer.Publish(d.snapshot(now))
}
