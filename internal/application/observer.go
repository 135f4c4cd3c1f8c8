package application

import "energy-bubbles/internal/domain"

// Observer receives every snapshot a dashboard publishes. It is called on the dashboard's loop and
// must not block.
type Observer interface {
	Publish(snapshot domain.Snapshot)
}

type NoopObserver struct{}

func (n *NoopObserver) Publish(_ domain.Snapshot) {}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snapshot domain.Snapshot)

func (f ObserverFunc) Publish(snapshot domain.Snapshot) { f(snapshot) }
