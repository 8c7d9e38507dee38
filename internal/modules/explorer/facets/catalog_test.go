package facets

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

type fakeSource struct {
	calls      atomic.Int32
	systemsErr error
	gate       chan struct{}
}

func (f *fakeSource) ListLabels(ctx context.Context) ([]string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return []string{"nerve", "muscle"}, nil
}

func (f *fakeSource) ListLocationsTree(ctx context.Context) ([]domain.LocationGroup, error) {
	return []domain.LocationGroup{{Location: "head", Sublocations: []string{"jaw"}}}, nil
}

func (f *fakeSource) ListSystems(ctx context.Context) ([]string, error) {
	if f.systemsErr != nil {
		return nil, f.systemsErr
	}
	return []string{"cns"}, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = b
	return nil
}

func static() domain.FacetSnapshot {
	return domain.FacetSnapshot{
		Labels:    []string{"bone", "nerve"},
		Locations: []domain.LocationGroup{{Location: "head", Sublocations: []string{"brain"}}},
	}
}

func TestRefreshMergesStatic(t *testing.T) {
	src := &fakeSource{}
	c := NewCatalog(Deps{Log: logger.Nop(), Source: src, Static: static(), Tiers: domain.DefaultTiers()})
	snap, err := c.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if want := []string{"bone", "muscle", "nerve"}; !reflect.DeepEqual(snap.Labels, want) {
		t.Fatalf("labels: want=%v got=%v", want, snap.Labels)
	}
	if want := []domain.LocationGroup{{Location: "head", Sublocations: []string{"brain", "jaw"}}}; !reflect.DeepEqual(snap.Locations, want) {
		t.Fatalf("locations: want=%v got=%v", want, snap.Locations)
	}
	if got := c.Parents()["jaw"]; !reflect.DeepEqual(got, []string{"head"}) {
		t.Fatalf("parents: got=%v", got)
	}
	if snap.Sources[FacetLabels] != SourceDB {
		t.Fatalf("sources: %v", snap.Sources)
	}
	if !reflect.DeepEqual(snap.DetailTiers, []string{"major", "intermediate", "minor"}) {
		t.Fatalf("tiers: %v", snap.DetailTiers)
	}
}

func TestRefreshFallsBackPerFacet(t *testing.T) {
	src := &fakeSource{systemsErr: errors.New("procedure not found")}
	c := NewCatalog(Deps{Log: logger.Nop(), Source: src, Static: domain.FacetSnapshot{Systems: []string{"pns"}}, Tiers: domain.DefaultTiers()})
	snap, err := c.Refresh(context.Background(), false)
	if err == nil {
		t.Fatalf("expected joined error for the failing facet")
	}
	if !reflect.DeepEqual(snap.Systems, []string{"pns"}) {
		t.Fatalf("systems should fall back to static: got=%v", snap.Systems)
	}
	if len(snap.Labels) != 2 || snap.Sources[FacetSystems] != SourceStatic {
		t.Fatalf("other facets should still load: %+v", snap)
	}
	if got := c.Snapshot(); !reflect.DeepEqual(got.Systems, []string{"pns"}) {
		t.Fatalf("snapshot not published: %+v", got)
	}
}

func TestRefreshUsesCacheUnlessForced(t *testing.T) {
	src := &fakeSource{}
	cache := &memCache{}
	c := NewCatalog(Deps{Log: logger.Nop(), Source: src, Cache: cache, TTL: time.Minute, Tiers: domain.DefaultTiers()})

	c.Refresh(context.Background(), false)
	snap, _ := c.Refresh(context.Background(), false)
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("cached refresh hit the source: calls=%v", got)
	}
	if snap.Sources[FacetLabels] != SourceCache {
		t.Fatalf("source should be cache: %v", snap.Sources)
	}
	c.Refresh(context.Background(), true)
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("forced refresh should bypass cache: calls=%v", got)
	}
}

func TestRefreshCollapsesConcurrentCalls(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	c := NewCatalog(Deps{Log: logger.Nop(), Source: src, Tiers: domain.DefaultTiers()})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refresh(context.Background(), false)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("singleflight: want 1 fetch got=%v", got)
	}
}

func TestGetBeforeRefreshLoads(t *testing.T) {
	c := NewCatalog(Deps{Log: logger.Nop(), Static: static(), Tiers: domain.DefaultTiers()})
	if got := c.Snapshot().Labels; !reflect.DeepEqual(got, []string{"bone", "nerve"}) {
		t.Fatalf("initial snapshot should be static: %v", got)
	}
	snap, err := c.Get(context.Background())
	if err != nil || snap.Sources[FacetLabels] != SourceStatic {
		t.Fatalf("get without source: err=%v sources=%v", err, snap.Sources)
	}
}
