// Package metrics exports dashboard activity as Prometheus metrics.
//
// Gauges hold the most recent value reported by any view; counters accumulate across views.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"energy-bubbles/internal/application"
	"energy-bubbles/internal/domain"
)

type Recorder struct {
	devicePower *prometheus.GaugeVec
	sourceShare *prometheus.GaugeVec
	totalPower  prometheus.Gauge
	alpha       prometheus.Gauge
	ticks       *prometheus.CounterVec
	frames      prometheus.Counter
	feedings    *prometheus.CounterVec
	sessions    prometheus.Gauge
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		devicePower: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "energy_bubbles_device_power_watts",
			Help: "Most recent simulated power draw per appliance.",
		}, []string{"device"}),
		sourceShare: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "energy_bubbles_source_share_percent",
			Help: "Most recent simulated share of the generation mix per source.",
		}, []string{"source"}),
		totalPower: factory.NewGauge(prometheus.GaugeOpts{
			Name: "energy_bubbles_total_power_watts",
			Help: "Sum of the most recent appliance power draws.",
		}),
		alpha: factory.NewGauge(prometheus.GaugeOpts{
			Name: "energy_bubbles_layout_alpha",
			Help: "Convergence parameter after the most recent layout step.",
		}),
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_bubbles_ticks_total",
			Help: "Simulator and impulse ticks, by loop.",
		}, []string{"loop"}),
		frames: factory.NewCounter(prometheus.CounterOpts{
			Name: "energy_bubbles_layout_frames_total",
			Help: "Layout integration steps that moved at least one bubble.",
		}),
		feedings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_bubbles_feedings_total",
			Help: "Completed feeding animations per appliance.",
		}, []string{"device"}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "energy_bubbles_sessions_active",
			Help: "Mounted dashboard views.",
		}),
	}
}

func (r *Recorder) DevicesUpdated(devices []domain.Device) {
	for _, d := range devices {
		r.devicePower.WithLabelValues(d.Name).Set(d.Power)
	}
	r.totalPower.Set(domain.TotalPower(devices))
	r.ticks.WithLabelValues("metrics").Inc()
}

func (r *Recorder) SourcesUpdated(sources []domain.EnergySource) {
	for _, s := range sources {
		r.sourceShare.WithLabelValues(s.Name).Set(s.Share)
	}
	r.ticks.WithLabelValues("sources").Inc()
}

func (r *Recorder) FrameStepped(alpha float64) {
	r.frames.Inc()
	r.alpha.Set(alpha)
}

func (r *Recorder) Impulse() {
	r.ticks.WithLabelValues("impulse").Inc()
}

func (r *Recorder) Fed(device domain.Device) {
	r.feedings.WithLabelValues(device.Name).Inc()
}

func (r *Recorder) SessionOpened() { r.sessions.Inc() }
func (r *Recorder) SessionClosed() { r.sessions.Dec() }

var _ application.Telemetry = (*Recorder)(nil)
