package application

import "energy-bubbles/internal/domain"

type Telemetry interface {
	DevicesUpdated(devices []domain.Device)
	SourcesUpdated(sources []domain.EnergySource)
	FrameStepped(alpha float64)
	Impulse()
	Fed(device domain.Device)
}

type NoopTelemetry struct{}

func (n *NoopTelemetry) DevicesUpdated(_ []domain.Device)       {}
func (n *NoopTelemetry) SourcesUpdated(_ []domain.EnergySource) {}
func (n *NoopTelemetry) FrameStepped(_ float64)                 {}
func (n *NoopTelemetry) Impulse()                               {}
func (n *NoopTelemetry) Fed(_ domain.Device)                    {}
