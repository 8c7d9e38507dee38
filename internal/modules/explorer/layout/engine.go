// Package layout positions a GraphModel with an incrementally updated force
// simulation.
package layout

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"gonum.org/v1/gonum/spatial/r2"
)

// NodePosition is one entry of a published frame.
type NodePosition struct {
	ID     domain.StableID `json:"id"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
	Pinned bool            `json:"pinned"`
}

// Frame is a throttled snapshot of the running simulation.
type Frame struct {
	Seq     int            `json:"seq"`
	Alpha   float64        `json:"alpha"`
	Settled bool           `json:"settled"`
	Nodes   []NodePosition `json:"nodes"`
}

// PublishFunc receives frames from the loop goroutine. It must not call back
// into the engine.
type PublishFunc func(Frame)

var ErrNoModel = errors.New("layout: no model loaded")

type Engine struct {
	log    *logger.Logger
	params Params
	sim    Simulator
	now    func() time.Time

	mu     sync.Mutex
	rng    *rand.Rand
	bounds r2.Box
	model  *domain.GraphModel
	ids    []domain.StableID
	index  map[domain.StableID]int
	run    Simulation
	cache  *positionCache
	seq    int

	loop    *loop
	wake    bool
	publish PublishFunc
	parent  context.Context
}

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Engine)

func WithSimulator(s Simulator) Option { return func(e *Engine) { e.sim = s } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(log *logger.Logger, p Params, opts ...Option) *Engine {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		log:    log.Component("layout"),
		params: p,
		sim:    ForceSimulator{},
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)),
		bounds: p.Bounds(),
		model:  domain.NewGraphModel(),
		index:  map[domain.StableID]int{},
		cache:  newPositionCache(p.CacheTTL, p.CacheSize),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetBounds changes the logical area used for random seeding and clamping.
func (e *Engine) SetBounds(b r2.Box) {
	if b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y {
		return
	}
	e.mu.Lock()
	e.bounds = b
	e.mu.Unlock()
}

func (e *Engine) Bounds() r2.Box {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bounds
}

// Rebuild swaps in a new model. Any running loop is stopped first.
//
// Nodes found in previous keep their coordinates and pin. Nodes removed since
// the last model are cached and restored if they come back before the cache
// TTL. Remaining nodes are seeded next to an already placed neighbor, or at a
// random point inside the bounds when isolated.
func (e *Engine) Rebuild(model *domain.GraphModel, previous map[domain.StableID]domain.Position) {
	e.Stop()
	if model == nil {
		model = domain.NewGraphModel()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, old := range e.model.OrderedNodes() {
		if !model.Has(old.ID) {
			e.cache.put(old.ID, old.Position, now)
		}
	}
	e.cache.prune(now)

	placed := map[domain.StableID]bool{}
	var fresh []*domain.Node
	for _, n := range model.OrderedNodes() {
		if p, ok := previous[n.ID]; ok {
			n.Position = p
			placed[n.ID] = true
			continue
		}
		if p, ok := e.cache.take(n.ID, now); ok {
			n.Position = p
			placed[n.ID] = true
			continue
		}
		fresh = append(fresh, n)
	}
	e.seed(model, fresh, placed)

	e.model = model
	e.ids = model.IDs()
	e.index = make(map[domain.StableID]int, len(e.ids))
	bodies := make([]Body, len(e.ids))
	for i, id := range e.ids {
		e.index[id] = i
		n := model.Nodes[id]
		bodies[i] = Body{Pos: r2.Vec{X: n.X, Y: n.Y}, Pinned: n.Pinned}
	}
	links := make([]Link, 0, len(model.Edges))
	for _, rel := range model.Edges {
		links = append(links, Link{Source: e.index[rel.Source], Target: e.index[rel.Target]})
	}
	e.run = e.sim.Simulate(bodies, links, e.bounds, e.params, e.rng)
	if len(fresh)*2 < len(e.ids) {
		// Mostly known positions start warm instead of hot.
		e.run.SetAlpha(e.params.DragAlphaTarget)
	}
	e.seq = 0
	e.log.Debug("layout rebuilt", "nodes", len(e.ids), "edges", len(links), "seeded", len(fresh), "cached", e.cache.len())
}

func (e *Engine) seed(model *domain.GraphModel, fresh []*domain.Node, placed map[domain.StableID]bool) {
	neighbors := map[domain.StableID][]domain.StableID{}
	for _, rel := range model.Edges {
		neighbors[rel.Source] = append(neighbors[rel.Source], rel.Target)
		neighbors[rel.Target] = append(neighbors[rel.Target], rel.Source)
	}
	pending := fresh
	for len(pending) > 0 {
		var next []*domain.Node
		for _, n := range pending {
			anchor, ok := firstPlaced(neighbors[n.ID], placed)
			if !ok {
				next = append(next, n)
				continue
			}
			a := model.Nodes[anchor]
			angle := e.rng.Float64() * 2 * math.Pi
			r := e.params.LinkDistance * (0.5 + 0.5*e.rng.Float64())
			n.Position = domain.Position{X: a.X + r*math.Cos(angle), Y: a.Y + r*math.Sin(angle)}
			placed[n.ID] = true
		}
		if len(next) == len(pending) {
			// Nothing in this component is placed yet: drop its first node at
			// random and keep propagating from it.
			n := next[0]
			n.Position = domain.Position{
				X: e.bounds.Min.X + e.rng.Float64()*(e.bounds.Max.X-e.bounds.Min.X),
				Y: e.bounds.Min.Y + e.rng.Float64()*(e.bounds.Max.Y-e.bounds.Min.Y),
			}
			placed[n.ID] = true
			next = next[1:]
		}
		pending = next
	}
}

func firstPlaced(ids []domain.StableID, placed map[domain.StableID]bool) (domain.StableID, bool) {
	for _, id := range ids {
		if placed[id] {
			return id, true
		}
	}
	return "", false
}

// Start runs the simulation loop until it settles, MaxTicks elapse, ctx ends
// or Stop is called. A running loop is stopped and awaited first.
func (e *Engine) Start(ctx context.Context, publish PublishFunc) {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.parent = ctx
	e.publish = publish
	e.startLocked()
}

// startLocked spawns the loop. If one is already running it is flagged to
// keep going instead.
func (e *Engine) startLocked() {
	if e.loop != nil {
		e.wake = true
		return
	}
	if e.run == nil || e.parent == nil || e.parent.Err() != nil {
		return
	}
	e.wake = false
	ctx, cancel := context.WithCancel(e.parent)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	e.loop = l
	go e.runLoop(ctx, l, e.run, e.publish)
}

// Stop halts the loop and waits for its goroutine to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	l := e.loop
	e.loop = nil
	e.mu.Unlock()
	if l != nil {
		l.cancel()
		<-l.done
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop != nil
}

func (e *Engine) runLoop(ctx context.Context, l *loop, run Simulation, publish PublishFunc) {
	defer close(l.done)
	defer func() {
		e.mu.Lock()
		if e.loop == l {
			e.loop = nil
			if e.wake {
				e.startLocked()
			}
		}
		e.mu.Unlock()
	}()
	defer l.cancel()

	ticker := time.NewTicker(e.params.TickInterval)
	defer ticker.Stop()

	var lastFrame time.Time
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		e.mu.Lock()
		if e.run != run {
			e.mu.Unlock()
			return
		}
		if e.wake {
			e.wake = false
			ticks = 0
		}
		settled := run.Step()
		ticks++
		e.syncLocked()
		done := settled || (e.params.MaxTicks > 0 && ticks >= e.params.MaxTicks)
		var frame *Frame
		if now := e.now(); done || now.Sub(lastFrame) >= e.params.FrameInterval {
			lastFrame = now
			f := e.frameLocked(done)
			frame = &f
		}
		e.mu.Unlock()

		if frame != nil && publish != nil {
			publish(*frame)
		}
		if done {
			return
		}
	}
}

// syncLocked copies simulator positions back into the model.
func (e *Engine) syncLocked() {
	for i, p := range e.run.Positions() {
		n := e.model.Nodes[e.ids[i]]
		n.X, n.Y = p.X, p.Y
	}
}

func (e *Engine) frameLocked(settled bool) Frame {
	e.seq++
	f := Frame{Seq: e.seq, Alpha: e.run.Alpha(), Settled: settled, Nodes: make([]NodePosition, 0, len(e.ids))}
	for _, id := range e.ids {
		n := e.model.Nodes[id]
		f.Nodes = append(f.Nodes, NodePosition{ID: id, X: n.X, Y: n.Y, Pinned: n.Pinned})
	}
	return f
}

// Settle steps synchronously until the simulation settles or maxSteps pass.
// It returns the number of steps taken.
func (e *Engine) Settle(maxSteps int) int {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return 0
	}
	steps := 0
	for steps < maxSteps {
		steps++
		if e.run.Step() {
			break
		}
	}
	e.syncLocked()
	return steps
}

// Frame returns the current positions without advancing the simulation.
func (e *Engine) Frame() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return Frame{Settled: true}
	}
	return e.frameLocked(!e.runningLocked())
}

func (e *Engine) runningLocked() bool { return e.loop != nil }

// Pin fixes a node at p and wakes the loop at the drag alpha target.
func (e *Engine) Pin(id domain.StableID, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		return domain.ErrUnknownNode
	}
	e.run.Pin(i, r2.Vec{X: x, Y: y})
	e.model.Nodes[id].Position = domain.Position{X: x, Y: y, Pinned: true}
	e.run.SetAlphaTarget(e.params.DragAlphaTarget)
	e.run.Reheat(e.params.DragAlphaTarget)
	e.startLocked()
	return nil
}

// Unpin releases a node back to the simulation.
func (e *Engine) Unpin(id domain.StableID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[id]
	if !ok {
		// Removed nodes come back unpinned.
		if e.cache.release(id) {
			return nil
		}
		return domain.ErrUnknownNode
	}
	e.run.Unpin(i)
	e.model.Nodes[id].Pinned = false
	e.run.Reheat(e.params.DragAlphaTarget)
	e.startLocked()
	return nil
}

// Cool drops the alpha target back to zero so the loop can settle.
func (e *Engine) Cool() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != nil {
		e.run.SetAlphaTarget(0)
	}
}

// Reheat restarts a settled simulation at the given alpha.
func (e *Engine) Reheat(alpha float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return
	}
	e.run.Reheat(alpha)
	e.startLocked()
}

// Snapshot returns a deep copy of the positioned model.
func (e *Engine) Snapshot() *domain.GraphModel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Clone()
}

// Positions returns the current position of every node.
func (e *Engine) Positions() map[domain.StableID]domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Positions()
}

// Pinned returns the pinned subset of Positions.
func (e *Engine) Pinned() map[domain.StableID]domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := map[domain.StableID]domain.Position{}
	for id, n := range e.model.Nodes {
		if n.Pinned {
			out[id] = n.Position
		}
	}
	return out
}
