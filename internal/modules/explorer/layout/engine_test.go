package layout

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

func testParams() Params {
	p := DefaultParams()
	p.Seed = 7
	p.TickInterval = time.Millisecond
	p.FrameInterval = time.Millisecond
	return p
}

func model(ids []string, edges [][2]string) *domain.GraphModel {
	m := domain.NewGraphModel()
	for _, id := range ids {
		m.Add(&domain.Node{Entity: domain.Entity{ID: domain.StableID(id)}})
	}
	for _, e := range edges {
		m.AddEdge(domain.Relationship{Source: domain.StableID(e[0]), Target: domain.StableID(e[1]), Type: "LINKS"})
	}
	return m
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRebuildInheritsAndSeedsNearNeighbor(t *testing.T) {
	e := NewEngine(logger.Nop(), testParams())
	prev := map[domain.StableID]domain.Position{"a": {X: 300, Y: 200, Pinned: true}}
	e.Rebuild(model([]string{"a", "b"}, [][2]string{{"a", "b"}}), prev)

	snap := e.Snapshot()
	a, _ := snap.Node("a")
	if a.Position != prev["a"] {
		t.Fatalf("inherited position: want=%+v got=%+v", prev["a"], a.Position)
	}
	b, _ := snap.Node("b")
	d := math.Hypot(b.X-a.X, b.Y-a.Y)
	if d < 50-1e-9 || d > 100+1e-9 {
		t.Fatalf("seed distance from neighbor: want [50,100] got=%v", d)
	}
	if b.Pinned {
		t.Fatalf("seeded node should not be pinned")
	}
}

func TestRebuildSeedsIsolatedInsideBounds(t *testing.T) {
	e := NewEngine(logger.Nop(), testParams())
	e.Rebuild(model([]string{"a", "b", "c"}, nil), nil)
	b := e.Bounds()
	for _, n := range e.Snapshot().OrderedNodes() {
		if n.X < b.Min.X || n.X > b.Max.X || n.Y < b.Min.Y || n.Y > b.Max.Y {
			t.Fatalf("node %s seeded outside bounds: %+v", n.ID, n.Position)
		}
		if n.X == 0 && n.Y == 0 {
			t.Fatalf("node %s spawned at the origin", n.ID)
		}
	}
}

func TestRebuildRestoresCachedPositions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e := NewEngine(logger.Nop(), testParams(), WithClock(clock.now))

	e.Rebuild(model([]string{"a", "b"}, [][2]string{{"a", "b"}}), nil)
	e.Settle(50)
	before := e.Positions()["b"]

	e.Rebuild(model([]string{"a"}, nil), e.Positions())
	clock.t = clock.t.Add(time.Minute)
	e.Rebuild(model([]string{"a", "b"}, [][2]string{{"a", "b"}}), e.Positions())
	if got := e.Positions()["b"]; got != before {
		t.Fatalf("cached position: want=%+v got=%+v", before, got)
	}
}

func TestRebuildCacheExpires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := testParams()
	p.CacheTTL = time.Second
	e := NewEngine(logger.Nop(), p, WithClock(clock.now))

	e.Rebuild(model([]string{"a", "b"}, nil), nil)
	before := e.Positions()["b"]
	e.Rebuild(model([]string{"a"}, nil), e.Positions())
	clock.t = clock.t.Add(time.Hour)
	e.Rebuild(model([]string{"a", "b"}, nil), e.Positions())
	if got := e.Positions()["b"]; got == before {
		t.Fatalf("expired cache entry was restored: %+v", got)
	}
}

func TestPositionContinuityAcrossRebuild(t *testing.T) {
	e := NewEngine(logger.Nop(), testParams())
	e.Rebuild(model([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}), nil)
	e.Settle(100)
	prev := e.Positions()

	e.Rebuild(model([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}}), prev)
	now := e.Positions()
	for id, p := range prev {
		if now[id] != p {
			t.Fatalf("node %s moved on rebuild: want=%+v got=%+v", id, p, now[id])
		}
	}
}

func TestSettleHoldsPinnedAndClamps(t *testing.T) {
	e := NewEngine(logger.Nop(), testParams())
	pinned := domain.Position{X: 120, Y: 80, Pinned: true}
	e.Rebuild(model([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"a", "c"}}),
		map[domain.StableID]domain.Position{"a": pinned})

	steps := e.Settle(2000)
	if steps >= 2000 {
		t.Fatalf("simulation did not settle: steps=%v", steps)
	}
	pos := e.Positions()
	if pos["a"] != pinned {
		t.Fatalf("pinned node moved: want=%+v got=%+v", pinned, pos["a"])
	}
	b := e.Bounds()
	for id, p := range pos {
		if p.X < b.Min.X || p.X > b.Max.X || p.Y < b.Min.Y || p.Y > b.Max.Y {
			t.Fatalf("node %s escaped bounds: %+v", id, p)
		}
	}
}

func TestPinAndUnpin(t *testing.T) {
	e := NewEngine(logger.Nop(), testParams())
	e.Rebuild(model([]string{"a", "b"}, [][2]string{{"a", "b"}}), nil)

	if err := e.Pin("ghost", 1, 1); !errors.Is(err, domain.ErrUnknownNode) {
		t.Fatalf("want ErrUnknownNode got=%v", err)
	}
	if err := e.Pin("a", 10, 20); err != nil {
		t.Fatalf("pin: %v", err)
	}
	e.Settle(20)
	if got := e.Positions()["a"]; got != (domain.Position{X: 10, Y: 20, Pinned: true}) {
		t.Fatalf("pin not held: %+v", got)
	}
	if got := e.Pinned(); len(got) != 1 {
		t.Fatalf("pinned set: want 1 got=%v", got)
	}
	if err := e.Unpin("a"); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if e.Positions()["a"].Pinned {
		t.Fatalf("unpin did not clear the flag")
	}
}

func TestUnpinRemovedNodeRestoresUnpinned(t *testing.T) {
	e := NewEngine(logger.Nop(), testParams())
	e.Rebuild(model([]string{"a", "b"}, [][2]string{{"a", "b"}}), nil)
	if err := e.Pin("b", 30, 40); err != nil {
		t.Fatalf("pin: %v", err)
	}
	e.Rebuild(model([]string{"a"}, nil), nil)
	if err := e.Unpin("b"); err != nil {
		t.Fatalf("unpin of a cached node: %v", err)
	}
	e.Rebuild(model([]string{"a", "b"}, [][2]string{{"a", "b"}}), nil)
	got := e.Positions()["b"]
	if got.Pinned || got.X != 30 || got.Y != 40 {
		t.Fatalf("restored position: want unpinned at 30,40 got=%+v", got)
	}
}

func TestStartPublishesUntilDone(t *testing.T) {
	p := testParams()
	p.MaxTicks = 30
	e := NewEngine(logger.Nop(), p)
	e.Rebuild(model([]string{"a", "b", "c"}, [][2]string{{"a", "b"}}), nil)

	frames := make(chan Frame, 64)
	e.Start(context.Background(), func(f Frame) {
		select {
		case frames <- f:
		default:
		}
	})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-frames:
			if len(f.Nodes) != 3 {
				t.Fatalf("frame nodes: want=3 got=%v", len(f.Nodes))
			}
			if f.Settled {
				waitStopped(t, e)
				return
			}
		case <-deadline:
			t.Fatalf("no final frame")
		}
	}
}

func TestStartReplacesRunningLoop(t *testing.T) {
	p := testParams()
	p.MaxTicks = 0
	p.AlphaMin = 0
	e := NewEngine(logger.Nop(), p)
	e.Rebuild(model([]string{"a", "b"}, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	count := make(chan struct{}, 1024)
	pub := func(Frame) {
		select {
		case count <- struct{}{}:
		default:
		}
	}
	e.Start(ctx, pub)
	e.Start(ctx, pub)
	if !e.Running() {
		t.Fatalf("loop should be running")
	}
	e.Stop()
	if e.Running() {
		t.Fatalf("loop still running after Stop")
	}
	settledLen := len(count)
	time.Sleep(20 * time.Millisecond)
	if len(count) != settledLen {
		t.Fatalf("frames published after Stop")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	p := testParams()
	p.MaxTicks = 0
	p.AlphaMin = 0
	e := NewEngine(logger.Nop(), p)
	e.Rebuild(model([]string{"a"}, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx, nil)
	cancel()
	waitStopped(t, e)
}

func waitStopped(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.Running() {
		if time.Now().After(deadline) {
			t.Fatalf("loop did not exit")
		}
		time.Sleep(time.Millisecond)
	}
}
