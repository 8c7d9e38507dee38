package layout

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestForceSimulatorSpringsApart(t *testing.T) {
	p := DefaultParams()
	bodies := []Body{{Pos: r2.Vec{X: 475, Y: 300}}, {Pos: r2.Vec{X: 485, Y: 300}}}
	s := ForceSimulator{}.Simulate(bodies, []Link{{Source: 0, Target: 1}}, p.Bounds(), p, rand.New(rand.NewSource(1)))

	for i := 0; i < 1000 && !s.Step(); i++ {
	}
	pos := s.Positions()
	d := math.Hypot(pos[1].X-pos[0].X, pos[1].Y-pos[0].Y)
	if d < 50 {
		t.Fatalf("linked bodies should spread towards link distance: got=%v", d)
	}
	if s.Alpha() >= p.AlphaMin {
		t.Fatalf("alpha should cool below alphaMin: got=%v", s.Alpha())
	}
}

func TestForceSimulatorIgnoresBadLinks(t *testing.T) {
	p := DefaultParams()
	bodies := []Body{{Pos: r2.Vec{X: 10, Y: 10}}}
	s := ForceSimulator{}.Simulate(bodies, []Link{{Source: 0, Target: 3}, {Source: 0, Target: 0}}, p.Bounds(), p, rand.New(rand.NewSource(1)))
	s.Step()
	if got := len(s.Positions()); got != 1 {
		t.Fatalf("positions: want=1 got=%v", got)
	}
}

func TestForceSimulatorPinnedDoesNotMove(t *testing.T) {
	p := DefaultParams()
	bodies := []Body{
		{Pos: r2.Vec{X: 100, Y: 100}, Pinned: true},
		{Pos: r2.Vec{X: 101, Y: 100}},
		{Pos: r2.Vec{X: 100, Y: 101}},
	}
	s := ForceSimulator{}.Simulate(bodies, []Link{{0, 1}, {0, 2}}, p.Bounds(), p, rand.New(rand.NewSource(1)))
	for i := 0; i < 200; i++ {
		s.Step()
	}
	if got := s.Positions()[0]; got != (r2.Vec{X: 100, Y: 100}) {
		t.Fatalf("pinned body moved: %+v", got)
	}
	s.Unpin(0)
	s.Reheat(1)
	s.Step()
	if got := s.Positions()[0]; got == (r2.Vec{X: 100, Y: 100}) {
		t.Fatalf("unpinned body should move once reheated")
	}
}
