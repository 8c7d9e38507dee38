package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/facets"
	"github.com/trujjo/neurotome/internal/modules/explorer/session"
	"github.com/trujjo/neurotome/internal/observability"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

// ErrTooManySessions is returned when the cap is reached and every session
// was opened explicitly.
var ErrTooManySessions = domain.ErrTooManySessions

const DefaultWorkspace = "default"

type ExplorerService interface {
	Facets(ctx context.Context, refresh bool) (domain.FacetSnapshot, error)
	Tiers() domain.Tiers

	CreateSession(ctx context.Context, workspace string) (*session.Session, error)
	Session(id string) (*session.Session, error)
	CloseSession(id string) error
	ActiveSessions() int

	// Graph applies req on session id. An empty id opens an implicit
	// session, which is the first to be evicted when the cap is reached.
	Graph(ctx context.Context, id string, req domain.FilterRequest, opts session.ApplyOptions) (*session.Session, session.Result, error)
	// Search and Sample resolve id the same way Graph does.
	Search(ctx context.Context, id, term string, opts session.ApplyOptions) (*session.Session, session.Result, error)
	Sample(ctx context.Context, id string, size int, opts session.ApplyOptions) (*session.Session, session.Result, error)

	Health(ctx context.Context) error
	RunJanitor(ctx context.Context)
	Close()
}

type ExplorerDeps struct {
	Log           *logger.Logger
	Catalog       *facets.Catalog
	Executor      domain.Executor
	Session       session.Deps
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

type explorerService struct {
	log      *logger.Logger
	catalog  *facets.Catalog
	exec     domain.Executor
	deps     session.Deps
	idleTTL  time.Duration
	sweep    time.Duration
	max      int
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*session.Session
	// implicit holds sessions opened by Graph without an id that no request
	// has referenced since.
	implicit map[string]struct{}
}

func NewExplorerService(d ExplorerDeps) ExplorerService {
	return &explorerService{
		log:      d.Log.Component("explorer"),
		catalog:  d.Catalog,
		exec:     d.Executor,
		deps:     d.Session,
		idleTTL:  d.IdleTTL,
		sweep:    d.SweepInterval,
		max:      d.MaxSessions,
		now:      time.Now,
		sessions: map[string]*session.Session{},
		implicit: map[string]struct{}{},
	}
}

func (s *explorerService) Facets(ctx context.Context, refresh bool) (domain.FacetSnapshot, error) {
	if refresh {
		return s.catalog.Refresh(ctx, true)
	}
	return s.catalog.Get(ctx)
}

func (s *explorerService) Tiers() domain.Tiers { return s.deps.Builder.Tiers() }

func (s *explorerService) CreateSession(ctx context.Context, workspace string) (*session.Session, error) {
	return s.open(ctx, workspace, false)
}

func (s *explorerService) open(ctx context.Context, workspace string, implicit bool) (*session.Session, error) {
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		workspace = DefaultWorkspace
	}
	s.mu.Lock()
	var evicted *session.Session
	if s.max > 0 && len(s.sessions) >= s.max {
		evicted = s.oldestImplicitLocked()
		if evicted == nil {
			s.mu.Unlock()
			return nil, ErrTooManySessions
		}
		s.removeLocked(evicted.ID)
	}
	sess := session.New(uuid.NewString(), workspace, s.deps)
	s.sessions[sess.ID] = sess
	if implicit {
		s.implicit[sess.ID] = struct{}{}
	}
	observability.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		s.log.Info("evicted implicit session to make room", "session_id", evicted.ID)
	}
	if err := sess.LoadPins(ctx); err != nil {
		s.log.Warn("starting session without persisted pins", "session_id", sess.ID, "error", err)
	}
	s.log.Info("session created", "session_id", sess.ID, "workspace", workspace, "implicit", implicit)
	return sess, nil
}

// oldestImplicitLocked picks the least recently used implicit session.
func (s *explorerService) oldestImplicitLocked() *session.Session {
	var oldest *session.Session
	for id := range s.implicit {
		sess, ok := s.sessions[id]
		if !ok {
			continue
		}
		if oldest == nil || sess.LastUsed().Before(oldest.LastUsed()) {
			oldest = sess
		}
	}
	return oldest
}

func (s *explorerService) removeLocked(id string) {
	delete(s.sessions, id)
	delete(s.implicit, id)
}

// Session looks up id. A lookup counts as a reference, so an implicit
// session whose id a client sends back is no longer evicted early.
func (s *explorerService) Session(id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(s.implicit, id)
	return sess, nil
}

func (s *explorerService) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.removeLocked(id)
	observability.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	sess.Close()
	s.log.Info("session closed", "session_id", id)
	return nil
}

func (s *explorerService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *explorerService) Graph(ctx context.Context, id string, req domain.FilterRequest, opts session.ApplyOptions) (*session.Session, session.Result, error) {
	f, err := req.ToState(s.Tiers())
	if err != nil {
		return nil, session.Result{}, err
	}
	sess, err := s.resolve(ctx, id)
	if err != nil {
		return nil, session.Result{}, err
	}
	res, err := sess.Apply(ctx, f, opts)
	return sess, res, err
}

func (s *explorerService) Search(ctx context.Context, id, term string, opts session.ApplyOptions) (*session.Session, session.Result, error) {
	if strings.TrimSpace(term) == "" {
		return nil, session.Result{}, domain.ErrEmptySearch
	}
	sess, err := s.resolve(ctx, id)
	if err != nil {
		return nil, session.Result{}, err
	}
	res, err := sess.Search(ctx, term, opts)
	return sess, res, err
}

func (s *explorerService) Sample(ctx context.Context, id string, size int, opts session.ApplyOptions) (*session.Session, session.Result, error) {
	sess, err := s.resolve(ctx, id)
	if err != nil {
		return nil, session.Result{}, err
	}
	res, err := sess.Sample(ctx, size, opts)
	return sess, res, err
}

// resolve looks up id, or opens an implicit session when id is empty.
func (s *explorerService) resolve(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return s.open(ctx, "", true)
	}
	return s.Session(id)
}

func (s *explorerService) Health(ctx context.Context) error {
	if err := s.exec.Ping(ctx); err != nil {
		if domain.IsConnectionError(err) {
			return err
		}
		return &domain.ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

// RunJanitor evicts idle sessions until ctx ends.
func (s *explorerService) RunJanitor(ctx context.Context) {
	if s.idleTTL <= 0 || s.sweep <= 0 {
		return
	}
	t := time.NewTicker(s.sweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.evictIdle(s.now())
		}
	}
}

func (s *explorerService) evictIdle(now time.Time) int {
	s.mu.Lock()
	var idle []*session.Session
	for id, sess := range s.sessions {
		if now.Sub(sess.LastUsed()) > s.idleTTL {
			idle = append(idle, sess)
			s.removeLocked(id)
		}
	}
	observability.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	for _, sess := range idle {
		sess.Close()
		s.log.Debug("evicted idle session", "session_id", sess.ID)
	}
	return len(idle)
}

func (s *explorerService) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = map[string]*session.Session{}
	s.implicit = map[string]struct{}{}
	observability.ActiveSessions.Set(0)
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
}
