package application

import (
	"math"

	"energy-bubbles/internal/domain"
	"energy-bubbles/internal/layout"
)

// LayoutNode projects a device onto the narrow shape the layout engine works with. Everything is
// derived from the current power draw, so bubbles grow and shrink as the simulator runs.
func LayoutNode(d domain.Device, padding float64) layout.Node {
	size := domain.BubbleSize(d.Power)
	return layout.Node{
		ID:        d.ID,
		Radius:    size/2 + padding,
		Charge:    -math.Sqrt(size) * 0.5,
		Agitation: math.Sqrt(math.Max(d.Power, 0)) * 0.01,
	}
}

func layoutNodes(devices []domain.Device, padding float64) []layout.Node {
	nodes := make([]layout.Node, len(devices))
	for i, d := range devices {
		nodes[i] = LayoutNode(d, padding)
	}
	return nodes
}
