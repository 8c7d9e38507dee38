package layout

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
)

// Body is one node as the simulator sees it.
type Body struct {
	Pos    r2.Vec
	Pinned bool
}

// Link joins two bodies by index.
type Link struct {
	Source, Target int
}

// Simulation is a running physics state. Step advances one tick and reports
// whether the system has settled. Pinned bodies never move on their own.
type Simulation interface {
	Step() bool
	Positions() []r2.Vec
	Pin(i int, at r2.Vec)
	Unpin(i int)
	SetAlphaTarget(target float64)
	SetAlpha(alpha float64)
	// Reheat raises alpha to at least the given value.
	Reheat(alpha float64)
	Alpha() float64
}

// Simulator builds a Simulation for one model. Implementations are swappable.
type Simulator interface {
	Simulate(bodies []Body, links []Link, bounds r2.Box, p Params, rng *rand.Rand) Simulation
}

// ForceSimulator is the default: d3 style velocity integration with alpha
// cooling, Barnes-Hut many-body repulsion, link springs and centering.
type ForceSimulator struct{}

func (ForceSimulator) Simulate(bodies []Body, links []Link, bounds r2.Box, p Params, rng *rand.Rand) Simulation {
	s := &forceSim{
		p:      p,
		bounds: bounds,
		rng:    rng,
		alpha:  1,
		bodies: make([]*particle, len(bodies)),
		vel:    make([]r2.Vec, len(bodies)),
		count:  make([]int, len(bodies)),
	}
	for i, b := range bodies {
		s.bodies[i] = &particle{pos: b.Pos, pinned: b.Pinned}
	}
	for _, l := range links {
		if l.Source < 0 || l.Target < 0 || l.Source >= len(bodies) || l.Target >= len(bodies) || l.Source == l.Target {
			continue
		}
		s.links = append(s.links, l)
		s.count[l.Source]++
		s.count[l.Target]++
	}
	return s
}

type particle struct {
	pos    r2.Vec
	pinned bool
}

func (p *particle) Coord2() r2.Vec { return p.pos }
func (p *particle) Mass() float64  { return 1 }

type forceSim struct {
	p      Params
	bounds r2.Box
	rng    *rand.Rand

	bodies []*particle
	vel    []r2.Vec
	links  []Link
	count  []int

	alpha       float64
	alphaTarget float64
}

func (s *forceSim) Alpha() float64 { return s.alpha }

func (s *forceSim) SetAlphaTarget(target float64) { s.alphaTarget = target }

func (s *forceSim) SetAlpha(alpha float64) { s.alpha = alpha }

func (s *forceSim) Reheat(alpha float64) {
	if alpha > s.alpha {
		s.alpha = alpha
	}
}

func (s *forceSim) Pin(i int, at r2.Vec) {
	if i < 0 || i >= len(s.bodies) {
		return
	}
	s.bodies[i].pos = at
	s.bodies[i].pinned = true
	s.vel[i] = r2.Vec{}
}

func (s *forceSim) Unpin(i int) {
	if i < 0 || i >= len(s.bodies) {
		return
	}
	s.bodies[i].pinned = false
}

func (s *forceSim) Positions() []r2.Vec {
	out := make([]r2.Vec, len(s.bodies))
	for i, b := range s.bodies {
		out[i] = b.pos
	}
	return out
}

func (s *forceSim) settled() bool {
	return s.alpha < s.p.AlphaMin && s.alphaTarget < s.p.AlphaMin
}

func (s *forceSim) Step() bool {
	if len(s.bodies) == 0 {
		s.alpha = 0
		return true
	}
	s.alpha += (s.alphaTarget - s.alpha) * s.p.AlphaDecay

	s.applyLinks()
	s.applyCharge()

	for i, b := range s.bodies {
		if b.pinned {
			s.vel[i] = r2.Vec{}
			continue
		}
		s.vel[i].X *= 1 - s.p.VelocityDecay
		s.vel[i].Y *= 1 - s.p.VelocityDecay
		b.pos.X += s.vel[i].X
		b.pos.Y += s.vel[i].Y
	}
	s.applyCenter()
	if s.p.Clamp {
		for _, b := range s.bodies {
			if !b.pinned {
				b.pos = clampTo(s.bounds, b.pos)
			}
		}
	}
	return s.settled()
}

func (s *forceSim) jiggle() float64 { return (s.rng.Float64() - 0.5) * 1e-6 }

func (s *forceSim) applyLinks() {
	for _, l := range s.links {
		src, dst := s.bodies[l.Source], s.bodies[l.Target]
		dx := dst.pos.X + s.vel[l.Target].X - src.pos.X - s.vel[l.Source].X
		dy := dst.pos.Y + s.vel[l.Target].Y - src.pos.Y - s.vel[l.Source].Y
		if dx == 0 {
			dx = s.jiggle()
		}
		if dy == 0 {
			dy = s.jiggle()
		}
		d := math.Hypot(dx, dy)
		strength := 1 / float64(min(s.count[l.Source], s.count[l.Target]))
		k := (d - s.p.LinkDistance) / d * s.alpha * strength
		dx, dy = dx*k, dy*k
		bias := float64(s.count[l.Source]) / float64(s.count[l.Source]+s.count[l.Target])
		s.vel[l.Target].X -= dx * bias
		s.vel[l.Target].Y -= dy * bias
		s.vel[l.Source].X += dx * (1 - bias)
		s.vel[l.Source].Y += dy * (1 - bias)
	}
}

// chargeForce returns the velocity contribution on p1 from mass m2 at offset
// v. Negative strength repels.
func (s *forceSim) chargeForce(_, _ barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
	d2 := v.X*v.X + v.Y*v.Y
	if d2 == 0 {
		return r2.Vec{}
	}
	if d2 < 1 {
		d2 = math.Sqrt(d2)
	}
	k := s.p.ChargeStrength * m2 / d2
	return r2.Vec{X: v.X * k, Y: v.Y * k}
}

func (s *forceSim) applyCharge() {
	if len(s.bodies) < 2 || s.p.ChargeStrength == 0 {
		return
	}
	ps := make([]barneshut.Particle2, len(s.bodies))
	for i, b := range s.bodies {
		ps[i] = b
	}
	plane, err := barneshut.NewPlane(ps)
	for i, b := range s.bodies {
		if b.pinned {
			continue
		}
		var f r2.Vec
		if err == nil {
			f = plane.ForceOn(b, s.p.Theta, s.chargeForce)
		} else {
			f = s.pairwise(i)
		}
		s.vel[i].X += f.X * s.alpha
		s.vel[i].Y += f.Y * s.alpha
	}
}

// pairwise is the exact O(n) sum used when the plane cannot be built, for
// example when bodies share a coordinate.
func (s *forceSim) pairwise(i int) r2.Vec {
	var f r2.Vec
	self := s.bodies[i]
	for j, other := range s.bodies {
		if j == i {
			continue
		}
		v := r2.Vec{X: other.pos.X - self.pos.X, Y: other.pos.Y - self.pos.Y}
		if v.X == 0 && v.Y == 0 {
			v = r2.Vec{X: s.jiggle(), Y: s.jiggle()}
		}
		c := s.chargeForce(self, other, 1, 1, v)
		f.X += c.X
		f.Y += c.Y
	}
	return f
}

func (s *forceSim) applyCenter() {
	if s.p.CenterStrength == 0 {
		return
	}
	var sx, sy float64
	n := 0
	for _, b := range s.bodies {
		if b.pinned {
			continue
		}
		sx += b.pos.X
		sy += b.pos.Y
		n++
	}
	if n == 0 {
		return
	}
	c := center(s.bounds)
	dx := (c.X - sx/float64(n)) * s.p.CenterStrength
	dy := (c.Y - sy/float64(n)) * s.p.CenterStrength
	for _, b := range s.bodies {
		if !b.pinned {
			b.pos.X += dx
			b.pos.Y += dy
		}
	}
}
