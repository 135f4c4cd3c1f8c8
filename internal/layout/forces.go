package layout

import "math"

// minDistance2 floors the squared distance used by repulsion so near-coincident nodes do not explode.
const minDistance2 = 1.0

// repulsion pushes every pair apart with a strength given by the other node's charge, falling off
// with distance.
type repulsion struct{}

func (repulsion) apply(bodies []*body, alpha float64) {
	for _, a := range bodies {
		for _, b := range bodies {
			if a == b {
				continue
			}
			dx, dy := b.x-a.x, b.y-a.y
			l := dx*dx + dy*dy
			if l == 0 {
				continue
			}
			if l < minDistance2 {
				l = math.Sqrt(minDistance2 * l)
			}
			w := b.Charge * alpha / l
			a.vx += dx * w
			a.vy += dy * w
		}
	}
}

// centering moves the centroid of the free nodes a fraction of the way toward the target each step.
// It translates the cluster as a whole and never changes distances between free nodes.
type centering struct {
	x, y     float64
	strength float64
}

func (c *centering) resolve(bodies []*body) {
	var sx, sy float64
	n := 0
	for _, b := range bodies {
		if b.dragging {
			continue
		}
		sx += b.x
		sy += b.y
		n++
	}
	if n == 0 {
		return
	}

	dx := (c.x - sx/float64(n)) * c.strength
	dy := (c.y - sy/float64(n)) * c.strength
	for _, b := range bodies {
		if b.dragging {
			continue
		}
		b.x += dx
		b.y += dy
	}
}

// collision separates overlapping circles. With strength 1 a pair ends the pass exactly touching.
// The lighter node (smaller r²) takes the larger share of the correction; dragged nodes do not move.
type collision struct {
	strength float64
	rng      Rand
}

func (c *collision) resolve(bodies []*body) {
	for i, a := range bodies {
		for _, b := range bodies[i+1:] {
			if a.dragging && b.dragging {
				continue
			}

			r := a.Radius + b.Radius
			dx, dy := a.x-b.x, a.y-b.y
			l2 := dx*dx + dy*dy
			if l2 >= r*r {
				continue
			}
			if l2 == 0 {
				theta := c.rng.Float64() * 2 * math.Pi
				dx, dy = math.Cos(theta)*1e-6, math.Sin(theta)*1e-6
				l2 = dx*dx + dy*dy
			}

			l := math.Sqrt(l2)
			k := (r - l) / l * c.strength
			dx *= k
			dy *= k

			ra2, rb2 := a.Radius*a.Radius, b.Radius*b.Radius
			wa := 0.5
			if ra2+rb2 > 0 {
				wa = rb2 / (ra2 + rb2)
			}
			switch {
			case a.dragging:
				wa = 0
			case b.dragging:
				wa = 1
			}

			a.x += dx * wa
			a.y += dy * wa
			b.x -= dx * (1 - wa)
			b.y -= dy * (1 - wa)
		}
	}
}
