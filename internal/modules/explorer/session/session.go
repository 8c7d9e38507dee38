// Package session binds one user's FilterState to its GraphModel, layout,
// viewport and interaction state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/interaction"
	"github.com/trujjo/neurotome/internal/modules/explorer/layout"
	"github.com/trujjo/neurotome/internal/modules/explorer/normalize"
	"github.com/trujjo/neurotome/internal/modules/explorer/query"
	"github.com/trujjo/neurotome/internal/modules/explorer/viewport"
	"github.com/trujjo/neurotome/internal/observability"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PositionStore persists pinned positions per workspace.
type PositionStore interface {
	Load(ctx context.Context, workspace string) (map[domain.StableID]domain.Position, error)
	Save(ctx context.Context, workspace string, pinned map[domain.StableID]domain.Position) error
}

// Publisher fans session events out to connected clients. SessionClosed
// ends every stream of the session.
type Publisher interface {
	PublishFrame(sessionID string, f layout.Frame)
	PublishDetail(sessionID string, d *interaction.Detail)
	SessionClosed(sessionID string)
}

type Deps struct {
	Log          *logger.Logger
	Builder      *query.Builder
	Normalizer   *normalize.Normalizer
	Executor     domain.Executor
	Positions    PositionStore
	Publisher    Publisher
	Layout       layout.Params
	Viewport     viewport.Options
	DragPolicy   interaction.DragPolicy
	Explore      interaction.ExploreKeys
	QueryTimeout time.Duration
	SettleSteps  int
}

// ApplyOptions tweaks a single apply.
type ApplyOptions struct {
	// Settle runs the layout to convergence before returning instead of
	// starting the animated loop.
	Settle bool
}

type Result struct {
	Generation uint64               `json:"generation"`
	Shape      string               `json:"shape"`
	Model      *domain.GraphModel   `json:"-"`
	Stats      normalize.Stats      `json:"stats"`
	Filters    domain.FilterRequest `json:"filters"`
}

var ErrClosed = errors.New("session closed")

type Session struct {
	ID        string
	Workspace string
	CreatedAt time.Time

	deps     Deps
	log      *logger.Logger
	engine   *layout.Engine
	view     *viewport.Controller
	interact *interaction.Controller

	// life bounds the layout loop; it ends when the session closes.
	life context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	filters   domain.FilterState
	gen       uint64
	inflight  context.CancelFunc
	applied   uint64
	stats     normalize.Stats
	shape     string
	lastErr   error
	persisted map[domain.StableID]domain.Position
	lastUsed  time.Time

	detailMu sync.Mutex
	detail   *interaction.Detail
}

func New(id, workspace string, d Deps) *Session {
	life, stop := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		Workspace: workspace,
		CreatedAt: time.Now(),
		deps:      d,
		log:       d.Log.Component("session").With("session_id", id),
		life:      life,
		stop:      stop,
		filters:   domain.NewFilterState(),
		persisted: map[domain.StableID]domain.Position{},
		lastUsed:  time.Now(),
	}
	s.engine = layout.NewEngine(d.Log, d.Layout)
	s.view = viewport.New(d.Layout.Width, d.Layout.Height, d.Viewport)
	s.interact = interaction.New(s.engine, detailSink{s}, d.DragPolicy)
	return s
}

// LoadPins reads persisted pins for the workspace. They apply to nodes the
// next time those nodes appear.
func (s *Session) LoadPins(ctx context.Context) error {
	if s.deps.Positions == nil {
		return nil
	}
	pins, err := s.deps.Positions.Load(ctx, s.Workspace)
	if err != nil {
		return fmt.Errorf("load pinned positions: %w", err)
	}
	s.mu.Lock()
	for id, p := range pins {
		p.Pinned = true
		s.persisted[id] = p
	}
	s.mu.Unlock()
	s.log.Debug("loaded pinned positions", "workspace", s.Workspace, "count", len(pins))
	return nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) Filters() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

func (s *Session) Tiers() domain.Tiers { return s.deps.Builder.Tiers() }

// Apply makes f the session's filter state and fetches its graph.
//
// Only the newest apply may update the model: starting one cancels the query
// of the previous one, and a result whose generation has been superseded
// returns domain.ErrStaleResponse. On executor failure the previous model
// stays in place.
func (s *Session) Apply(ctx context.Context, f domain.FilterState, opts ApplyOptions) (Result, error) {
	return s.applyWith(ctx, func(cur *domain.FilterState) error {
		*cur = f.Clone()
		return nil
	}, opts)
}

// applyWith edits the filter state under the session lock, so concurrent
// edits compose instead of overwriting each other, then applies the result.
// An error from edit leaves the state and generation untouched.
func (s *Session) applyWith(ctx context.Context, edit func(*domain.FilterState) error, opts ApplyOptions) (Result, error) {
	return s.run(ctx, edit, func(f domain.FilterState) (query.Query, error) {
		return s.deps.Builder.Build(f), nil
	}, opts)
}

// run is the single path that replaces the model. build turns the edited
// filter state into the query to execute.
func (s *Session) run(ctx context.Context, edit func(*domain.FilterState) error, build func(domain.FilterState) (query.Query, error), opts ApplyOptions) (Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "session.apply")
	defer span.End()

	if s.life.Err() != nil {
		return Result{}, ErrClosed
	}

	s.mu.Lock()
	f := s.filters.Clone()
	if err := edit(&f); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	q, err := build(f)
	if err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	var (
		qctx   context.Context
		cancel context.CancelFunc
	)
	if s.deps.QueryTimeout > 0 {
		qctx, cancel = context.WithTimeout(ctx, s.deps.QueryTimeout)
	} else {
		qctx, cancel = context.WithCancel(ctx)
	}
	s.gen++
	gen := s.gen
	if s.inflight != nil {
		s.inflight()
	}
	s.inflight = cancel
	s.filters = f.Clone()
	s.lastUsed = time.Now()
	s.mu.Unlock()
	defer cancel()

	span.SetAttributes(attribute.String("query.shape", q.Shape), attribute.Int64("session.generation", int64(gen)))

	start := time.Now()
	rows, err := s.deps.Executor.Execute(qctx, q.Cypher, q.Params)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		observability.StaleResponses.Inc()
		observability.QueryDuration.WithLabelValues(q.Shape, "stale").Observe(elapsed.Seconds())
		s.log.Debug("discarding stale result", "generation", gen, "current", s.gen)
		return Result{}, domain.ErrStaleResponse
	}
	s.inflight = nil
	if err != nil {
		if !domain.IsConnectionError(err) {
			err = &domain.ConnectionError{Op: "execute", Err: err}
		}
		s.lastErr = err
		observability.QueryDuration.WithLabelValues(q.Shape, "error").Observe(elapsed.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		s.log.Warn("graph query failed; keeping previous model", "shape", q.Shape, "error", err)
		return Result{}, err
	}
	observability.QueryDuration.WithLabelValues(q.Shape, "ok").Observe(elapsed.Seconds())
	observability.QueryRows.WithLabelValues(q.Shape).Observe(float64(len(rows)))

	model, stats := s.deps.Normalizer.Normalize(rows)
	recordDropped(stats)
	for _, issue := range stats.Issues {
		s.log.Debug("dropped malformed record", "row", issue.Row, "reason", issue.Reason)
	}

	previous := make(map[domain.StableID]domain.Position, len(s.persisted))
	for id, p := range s.persisted {
		previous[id] = p
	}
	for id, p := range s.engine.Positions() {
		previous[id] = p
	}
	s.engine.Rebuild(model, previous)
	s.interact.Forget(model)
	if opts.Settle {
		s.engine.Settle(s.settleSteps())
	} else {
		s.engine.Start(s.life, s.publishFrame)
	}

	s.applied = gen
	s.stats = stats
	s.shape = q.Shape
	s.lastErr = nil
	s.log.Info("graph applied",
		"shape", q.Shape,
		"rows", stats.Rows,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"malformed", stats.Malformed,
		"duration_ms", elapsed.Milliseconds(),
	)
	return Result{
		Generation: gen,
		Shape:      q.Shape,
		Model:      s.engine.Snapshot(),
		Stats:      stats,
		Filters:    f.Request(),
	}, nil
}

func (s *Session) settleSteps() int {
	if s.deps.SettleSteps > 0 {
		return s.deps.SettleSteps
	}
	return 1000
}

func recordDropped(st normalize.Stats) {
	if st.EntitiesRejected > 0 {
		observability.NormalizeDropped.WithLabelValues("entity").Add(float64(st.EntitiesRejected))
	}
	if st.LinksDropped > 0 {
		observability.NormalizeDropped.WithLabelValues("link").Add(float64(st.LinksDropped))
	}
	if st.Truncated > 0 {
		observability.NormalizeDropped.WithLabelValues("cap").Add(float64(st.Truncated))
	}
}

// Toggle flips one facet value and applies the result.
func (s *Session) Toggle(ctx context.Context, facet domain.Facet, value string, opts ApplyOptions) (Result, error) {
	tiers := s.Tiers()
	return s.applyWith(ctx, func(f *domain.FilterState) error {
		_, err := f.Toggle(facet, value, tiers)
		return err
	}, opts)
}

// Clear resets every facet and applies.
func (s *Session) Clear(ctx context.Context, opts ApplyOptions) (Result, error) {
	return s.Apply(ctx, domain.NewFilterState(), opts)
}

// Refresh re-runs the current filter state.
func (s *Session) Refresh(ctx context.Context, opts ApplyOptions) (Result, error) {
	return s.applyWith(ctx, keepFilters, opts)
}

// Explore drills into a node: its location scope, one tier finer.
func (s *Session) Explore(ctx context.Context, id domain.StableID, opts ApplyOptions) (Result, error) {
	tiers := s.Tiers()
	return s.applyWith(ctx, func(f *domain.FilterState) error {
		next, err := s.interact.Explore(id, *f, tiers, s.deps.Explore)
		if err != nil {
			return err
		}
		*f = next
		return nil
	}, opts)
}

// Search replaces the model with nodes whose name contains term. The filter
// state is kept, so Refresh returns to the filtered view.
func (s *Session) Search(ctx context.Context, term string, opts ApplyOptions) (Result, error) {
	return s.run(ctx, keepFilters, func(domain.FilterState) (query.Query, error) {
		return s.deps.Builder.Search(term)
	}, opts)
}

// Sample replaces the model with size random nodes and their neighbors.
func (s *Session) Sample(ctx context.Context, size int, opts ApplyOptions) (Result, error) {
	return s.run(ctx, keepFilters, func(domain.FilterState) (query.Query, error) {
		return s.deps.Builder.Random(size), nil
	}, opts)
}

func keepFilters(*domain.FilterState) error { return nil }

type Status struct {
	ID         string               `json:"sessionId"`
	Workspace  string               `json:"workspace"`
	Filters    domain.FilterRequest `json:"filters"`
	Generation uint64               `json:"generation"`
	Applied    uint64               `json:"applied"`
	Shape      string               `json:"shape,omitempty"`
	Stats      normalize.Stats      `json:"stats"`
	LastError  string               `json:"lastError,omitempty"`
	Running    bool                 `json:"layoutRunning"`
	Viewport   viewport.State       `json:"viewport"`
	Selected   *interaction.Detail  `json:"selected,omitempty"`
	DragPolicy string               `json:"dragPolicy"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		ID:         s.ID,
		Workspace:  s.Workspace,
		Filters:    s.filters.Request(),
		Generation: s.gen,
		Applied:    s.applied,
		Shape:      s.shape,
		Stats:      s.stats,
		DragPolicy: s.interact.Policy().String(),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.mu.Unlock()
	st.Selected = s.Detail()
	st.Running = s.engine.Running()
	st.Viewport = s.view.State()
	return st
}

// Graph returns a copy of the current positioned model.
func (s *Session) Graph() *domain.GraphModel {
	s.touch()
	return s.engine.Snapshot()
}

func (s *Session) Frame() layout.Frame { return s.engine.Frame() }

func (s *Session) publishFrame(f layout.Frame) {
	observability.LayoutFrames.Inc()
	if s.deps.Publisher != nil {
		s.deps.Publisher.PublishFrame(s.ID, f)
	}
}

// Close stops the layout loop and abandons any in-flight query.
func (s *Session) Close() {
	s.mu.Lock()
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.gen++
	s.mu.Unlock()
	s.stop()
	s.engine.Stop()
	if s.deps.Publisher != nil {
		s.deps.Publisher.SessionClosed(s.ID)
	}
}
