package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/facets"
	"github.com/trujjo/neurotome/internal/modules/explorer/interaction"
	"github.com/trujjo/neurotome/internal/modules/explorer/layout"
	"github.com/trujjo/neurotome/internal/modules/explorer/normalize"
	"github.com/trujjo/neurotome/internal/modules/explorer/query"
	"github.com/trujjo/neurotome/internal/modules/explorer/session"
	"github.com/trujjo/neurotome/internal/modules/explorer/viewport"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

type stubExecutor struct {
	pingErr error
}

func (s *stubExecutor) Execute(context.Context, string, map[string]any) ([]domain.RawRow, error) {
	return []domain.RawRow{{Primary: &domain.RawEntity{ID: "femur", Labels: []string{"bone"}}}}, nil
}

func (s *stubExecutor) Ping(context.Context) error { return s.pingErr }

func newTestExplorer(t *testing.T, exec domain.Executor, max int) *explorerService {
	t.Helper()
	log := logger.Nop()
	tiers := domain.DefaultTiers()
	p := layout.DefaultParams()
	p.Seed = 1
	sd := session.Deps{
		Log:        log,
		Builder:    query.NewBuilder(query.Options{TierProperty: "detail", LocationProperty: "location", SublocationProperty: "sublocation", SystemProperty: "system", Tiers: tiers}),
		Normalizer: normalize.New(normalize.Options{Tiers: tiers, NodeCap: 100}),
		Executor:   exec,
		Layout:     p,
		Viewport:   viewport.DefaultOptions(),
		DragPolicy: interaction.PinOnRelease,
	}
	svc := NewExplorerService(ExplorerDeps{
		Log:         log,
		Catalog:     facets.NewCatalog(facets.Deps{Log: log, Tiers: tiers}),
		Executor:    exec,
		Session:     sd,
		IdleTTL:     time.Minute,
		MaxSessions: max,
	}).(*explorerService)
	t.Cleanup(svc.Close)
	return svc
}

func TestGraphCreatesAndReusesSessions(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{}, 0)
	ctx := context.Background()
	sess, res, err := svc.Graph(ctx, "", domain.FilterRequest{Labels: []string{"bone"}}, session.ApplyOptions{Settle: true})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if res.Model.Len() != 1 || svc.ActiveSessions() != 1 {
		t.Fatalf("nodes=%v sessions=%v", res.Model.Len(), svc.ActiveSessions())
	}
	again, _, err := svc.Graph(ctx, sess.ID, domain.FilterRequest{}, session.ApplyOptions{Settle: true})
	if err != nil || again != sess {
		t.Fatalf("reuse: same=%v err=%v", again == sess, err)
	}
	if _, _, err := svc.Graph(ctx, "missing", domain.FilterRequest{}, session.ApplyOptions{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound got=%v", err)
	}
	if _, _, err := svc.Graph(ctx, "", domain.FilterRequest{DetailTiers: []string{"huge"}}, session.ApplyOptions{}); !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("want ErrInvalidTier got=%v", err)
	}
}

func TestSearchAndSampleResolveSessions(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{}, 0)
	ctx := context.Background()
	if _, _, err := svc.Search(ctx, "", "  ", session.ApplyOptions{}); !errors.Is(err, domain.ErrEmptySearch) {
		t.Fatalf("blank term: want ErrEmptySearch got=%v", err)
	}
	if n := svc.ActiveSessions(); n != 0 {
		t.Fatalf("blank term opened a session: sessions=%v", n)
	}
	sess, res, err := svc.Search(ctx, "", "fem", session.ApplyOptions{Settle: true})
	if err != nil || res.Shape != query.ShapeSearch || res.Model.Len() != 1 {
		t.Fatalf("search: shape=%v err=%v", res.Shape, err)
	}
	again, res, err := svc.Sample(ctx, sess.ID, 2, session.ApplyOptions{Settle: true})
	if err != nil || again != sess || res.Shape != query.ShapeRandom {
		t.Fatalf("sample: same=%v shape=%v err=%v", again == sess, res.Shape, err)
	}
	if _, _, err := svc.Sample(ctx, "missing", 2, session.ApplyOptions{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound got=%v", err)
	}
}

func TestSessionLimitAndClose(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{}, 1)
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Workspace != DefaultWorkspace {
		t.Fatalf("workspace: got=%v", sess.Workspace)
	}
	if _, err := svc.CreateSession(ctx, "other"); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("want ErrTooManySessions got=%v", err)
	}
	if err := svc.CloseSession(sess.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.CloseSession(sess.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("double close: want ErrSessionNotFound got=%v", err)
	}
}

func TestImplicitSessionsEvictedAtCap(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{}, 2)
	ctx := context.Background()
	settle := session.ApplyOptions{Settle: true}
	req := domain.FilterRequest{Labels: []string{"bone"}}

	first, _, err := svc.Graph(ctx, "", req, settle)
	if err != nil {
		t.Fatalf("graph 0: %v", err)
	}
	// Sending the id back marks the session as in use.
	if _, _, err := svc.Graph(ctx, first.ID, req, settle); err != nil {
		t.Fatalf("reuse: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, _, err := svc.Graph(ctx, "", req, settle); err != nil {
			t.Fatalf("graph %d: %v", i, err)
		}
		if n := svc.ActiveSessions(); n > 2 {
			t.Fatalf("graph %d: sessions=%d above cap", i, n)
		}
	}
	if _, err := svc.Session(first.ID); err != nil {
		t.Fatalf("referenced session was evicted: %v", err)
	}
}

func TestSessionLimitWithOnlyExplicitSessions(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{}, 1)
	ctx := context.Background()
	if _, err := svc.CreateSession(ctx, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _, err := svc.Graph(ctx, "", domain.FilterRequest{}, session.ApplyOptions{Settle: true})
	if !errors.Is(err, domain.ErrTooManySessions) {
		t.Fatalf("want ErrTooManySessions got=%v", err)
	}
}

func TestEvictIdle(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{}, 0)
	sess, _ := svc.CreateSession(context.Background(), "")
	if n := svc.evictIdle(time.Now()); n != 0 {
		t.Fatalf("fresh session evicted")
	}
	if n := svc.evictIdle(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("idle session not evicted: n=%v", n)
	}
	if _, err := svc.Session(sess.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("evicted session still reachable")
	}
}

func TestHealthWrapsPingFailure(t *testing.T) {
	svc := newTestExplorer(t, &stubExecutor{pingErr: errors.New("dial tcp: refused")}, 0)
	if err := svc.Health(context.Background()); !domain.IsConnectionError(err) {
		t.Fatalf("want ConnectionError got=%v", err)
	}
}
