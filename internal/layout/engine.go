// Package layout is a small force-directed solver for circular nodes.
//
// Each Step runs one semi-implicit Euler integration: velocity forces (repulsion), velocity decay and
// position update, then position constraints (centering, collision). A convergence parameter, alpha,
// scales the velocity forces and decays each step until the layout settles.
package layout

import (
	"math"
)

// Rand is the random capability the solver uses for initial placement, impulses and separating
// coincident nodes.
type Rand interface {
	Float64() float64
}

// Node is everything the solver knows about a body.
type Node struct {
	ID int
	// Radius is the collision radius, padding included.
	Radius float64
	// Charge is the repulsion strength; negative values repel.
	Charge float64
	// Agitation scales the random impulse applied by Perturb.
	Agitation float64
}

// Position is a node's solved location.
type Position struct {
	ID     int
	X, Y   float64
	VX, VY float64
}

type Config struct {
	Width, Height  float64
	VelocityDecay  float64
	Alpha          float64
	AlphaDecay     float64
	AlphaMin       float64
	ImpulseAlpha   float64
	CenterStrength float64
	// Spread is the side of the square around the center new nodes are dropped into.
	Spread float64
}

func DefaultConfig() Config {
	return Config{
		VelocityDecay:  0.3,
		Alpha:          0.3,
		AlphaDecay:     0.02,
		AlphaMin:       0.001,
		ImpulseAlpha:   0.5,
		CenterStrength: 0.15,
		Spread:         100,
	}
}

type body struct {
	Node
	x, y     float64
	vx, vy   float64
	dragging bool
}

// force contributes to node velocities, scaled by alpha.
type force interface {
	apply(bodies []*body, alpha float64)
}

// constraint corrects node positions after integration.
type constraint interface {
	resolve(bodies []*body)
}

type Engine struct {
	cfg         Config
	rng         Rand
	alpha       float64
	alphaTarget float64

	bodies []*body
	byID   map[int]*body

	center      *centering
	forces      []force
	constraints []constraint
}

// New creates an engine with no nodes. A zero-sized container centers on the origin.
func New(cfg Config, rng Rand) *Engine {
	center := &centering{strength: cfg.CenterStrength}
	e := &Engine{
		cfg:   cfg,
		rng:   rng,
		alpha: cfg.Alpha,
		byID:  make(map[int]*body),
		forces: []force{
			repulsion{},
		},
		center: center,
		constraints: []constraint{
			center,
			&collision{strength: 1, rng: rng},
		},
	}
	e.Resize(cfg.Width, cfg.Height)
	return e
}

// Resize moves the centering target to the middle of a w x h container. Non-positive or NaN
// dimensions are treated as zero.
func (e *Engine) Resize(w, h float64) {
	e.cfg.Width, e.cfg.Height = sanitize(w), sanitize(h)
	e.center.x = e.cfg.Width / 2
	e.center.y = e.cfg.Height / 2
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Center returns the current centering target.
func (e *Engine) Center() (x, y float64) {
	return e.center.x, e.center.y
}

// Seed replaces the node set. Nodes already known keep their position and velocity so the layout
// relaxes rather than snaps; new nodes are dropped near the center. Alpha is reset so the new sizes
// take effect.
func (e *Engine) Seed(nodes []Node) {
	bodies := make([]*body, 0, len(nodes))
	byID := make(map[int]*body, len(nodes))

	for _, n := range nodes {
		b, ok := e.byID[n.ID]
		if ok {
			b.Node = n
		} else {
			b = &body{
				Node: n,
				x:    e.center.x + (e.rng.Float64()-0.5)*e.cfg.Spread,
				y:    e.center.y + (e.rng.Float64()-0.5)*e.cfg.Spread,
			}
		}
		bodies = append(bodies, b)
		byID[n.ID] = b
	}

	e.bodies = bodies
	e.byID = byID
	e.alpha = e.cfg.Alpha
}

// Place puts a node at an explicit position with zero velocity.
func (e *Engine) Place(id int, x, y float64) bool {
	b, ok := e.byID[id]
	if !ok {
		return false
	}
	b.x, b.y = x, y
	b.vx, b.vy = 0, 0
	return true
}

// Settled reports whether alpha has decayed below the minimum.
func (e *Engine) Settled() bool {
	return e.alpha < e.cfg.AlphaMin
}

func (e *Engine) Alpha() float64 {
	return e.alpha
}

// Step advances the solver by one tick. It returns false when the layout is settled and nothing moved.
func (e *Engine) Step() bool {
	if e.Settled() {
		return false
	}

	e.alpha += (e.alphaTarget - e.alpha) * e.cfg.AlphaDecay

	for _, f := range e.forces {
		f.apply(e.bodies, e.alpha)
	}

	keep := 1 - e.cfg.VelocityDecay
	for _, b := range e.bodies {
		if b.dragging {
			b.vx, b.vy = 0, 0
			continue
		}
		b.vx *= keep
		b.vy *= keep
		b.x += b.vx
		b.y += b.vy
	}

	for _, c := range e.constraints {
		c.resolve(e.bodies)
	}
	return true
}

// Perturb kicks every free node by a random impulse proportional to its agitation and re-energizes
// the layout.
func (e *Engine) Perturb() {
	for _, b := range e.bodies {
		if b.dragging {
			continue
		}
		b.vx += (e.rng.Float64() - 0.5) * b.Agitation
		b.vy += (e.rng.Float64() - 0.5) * b.Agitation
	}
	e.alpha = e.cfg.ImpulseAlpha
}

// Drag holds a node at the pointer position until Release. The layout keeps running around it.
func (e *Engine) Drag(id int, x, y float64) bool {
	b, ok := e.byID[id]
	if !ok {
		return false
	}
	b.dragging = true
	b.x, b.y = x, y
	b.vx, b.vy = 0, 0
	if e.alpha < e.cfg.Alpha {
		e.alpha = e.cfg.Alpha
	}
	return true
}

// Release lets a dragged node go. It is not pinned and drifts back toward equilibrium.
func (e *Engine) Release(id int) bool {
	b, ok := e.byID[id]
	if !ok {
		return false
	}
	b.dragging = false
	return true
}

// Positions returns the current solution in node order.
func (e *Engine) Positions() []Position {
	out := make([]Position, len(e.bodies))
	for i, b := range e.bodies {
		out[i] = Position{ID: b.ID, X: b.x, Y: b.y, VX: b.vx, VY: b.vy}
	}
	return out
}

// Position returns a single node's location.
func (e *Engine) Position(id int) (Position, bool) {
	b, ok := e.byID[id]
	if !ok {
		return Position{}, false
	}
	return Position{ID: b.ID, X: b.x, Y: b.y, VX: b.vx, VY: b.vy}, true
}
