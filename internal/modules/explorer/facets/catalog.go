// Package facets keeps the enumerable filter values. A snapshot is immutable
// once published; Refresh swaps in a new one.
package facets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/observability"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source enumerates facet values from the graph. Each list is fetched and
// cached independently.
type Source interface {
	ListLabels(ctx context.Context) ([]string, error)
	ListLocationsTree(ctx context.Context) ([]domain.LocationGroup, error)
	ListSystems(ctx context.Context) ([]string, error)
}

// Cache stores JSON-serializable values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

const (
	FacetLabels    = "labels"
	FacetLocations = "locations"
	FacetSystems   = "systems"

	SourceDB     = "db"
	SourceCache  = "cache"
	SourceStatic = "static"

	cachePrefix = "neurotome:facets:"
)

type Deps struct {
	Log    *logger.Logger
	Source Source
	Cache  Cache
	TTL    time.Duration
	Static domain.FacetSnapshot
	Tiers  domain.Tiers
}

type Catalog struct {
	log    *logger.Logger
	src    Source
	cache  Cache
	ttl    time.Duration
	static domain.FacetSnapshot
	tiers  domain.Tiers
	now    func() time.Time

	mu     sync.RWMutex
	snap   domain.FacetSnapshot
	loaded bool

	group singleflight.Group
}

func NewCatalog(d Deps) *Catalog {
	c := &Catalog{
		log:    d.Log.Component("facets"),
		src:    d.Source,
		cache:  d.Cache,
		ttl:    d.TTL,
		static: d.Static,
		tiers:  d.Tiers,
		now:    time.Now,
	}
	c.snap = c.merge(nil, nil, nil, map[string]string{
		FacetLabels: SourceStatic, FacetLocations: SourceStatic, FacetSystems: SourceStatic,
	})
	return c
}

// Snapshot returns the current catalog. Before the first refresh it is the
// static configuration.
func (c *Catalog) Snapshot() domain.FacetSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Parents is the sub-location to location map of the current snapshot.
func (c *Catalog) Parents() map[string][]string {
	return c.Snapshot().Parents()
}

// Get returns the snapshot, populating it on first use.
func (c *Catalog) Get(ctx context.Context) (domain.FacetSnapshot, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return c.Snapshot(), nil
	}
	return c.Refresh(ctx, false)
}

// Refresh fetches every facet concurrently. With force the cache is
// bypassed. Concurrent callers share one fetch. Facets that fail fall back
// to the static configuration; the returned error joins those failures
// while the snapshot is still replaced.
func (c *Catalog) Refresh(ctx context.Context, force bool) (domain.FacetSnapshot, error) {
	key := "refresh"
	if force {
		key = "refresh:force"
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.refresh(ctx, force)
	})
	snap, _ := v.(domain.FacetSnapshot)
	return snap, err
}

func (c *Catalog) refresh(ctx context.Context, force bool) (domain.FacetSnapshot, error) {
	var (
		labels, systems []string
		locations       []domain.LocationGroup
		mu              sync.Mutex
		sources         = map[string]string{}
		errs            []error
	)
	record := func(facet, source string, err error) {
		mu.Lock()
		defer mu.Unlock()
		sources[facet] = source
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", facet, err))
		}
		observability.FacetRefreshes.WithLabelValues(facet, source).Inc()
	}

	var g errgroup.Group
	g.Go(func() error {
		v, src, err := fetch(ctx, c, FacetLabels, force, func(ctx context.Context) ([]string, error) { return c.src.ListLabels(ctx) })
		labels = v
		record(FacetLabels, src, err)
		return nil
	})
	g.Go(func() error {
		v, src, err := fetch(ctx, c, FacetLocations, force, func(ctx context.Context) ([]domain.LocationGroup, error) { return c.src.ListLocationsTree(ctx) })
		locations = v
		record(FacetLocations, src, err)
		return nil
	})
	g.Go(func() error {
		v, src, err := fetch(ctx, c, FacetSystems, force, func(ctx context.Context) ([]string, error) { return c.src.ListSystems(ctx) })
		systems = v
		record(FacetSystems, src, err)
		return nil
	})
	_ = g.Wait()

	snap := c.merge(labels, locations, systems, sources)
	c.mu.Lock()
	c.snap = snap
	c.loaded = true
	c.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		c.log.Warn("facet refresh degraded", "error", err, "sources", sources)
	} else {
		c.log.Info("facet catalog refreshed", "labels", len(snap.Labels), "locations", len(snap.Locations), "systems", len(snap.Systems))
	}
	return snap, err
}

// fetch reads one facet from the cache unless forced, then from the source.
// On source failure it reports the static source and nil values.
func fetch[T any](ctx context.Context, c *Catalog, facet string, force bool, list func(context.Context) ([]T, error)) ([]T, string, error) {
	key := cachePrefix + facet
	if c.cache != nil && !force {
		var cached []T
		ok, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.log.Warn("facet cache read failed", "facet", facet, "error", err)
		} else if ok {
			return cached, SourceCache, nil
		}
	}
	if c.src == nil {
		return nil, SourceStatic, nil
	}
	v, err := list(ctx)
	if err != nil {
		return nil, SourceStatic, err
	}
	if c.cache != nil && c.ttl > 0 {
		if err := c.cache.Set(ctx, key, v, c.ttl); err != nil {
			c.log.Warn("facet cache write failed", "facet", facet, "error", err)
		}
	}
	return v, SourceDB, nil
}

// merge unions fetched values with the static facets, sorted.
func (c *Catalog) merge(labels []string, locations []domain.LocationGroup, systems []string, sources map[string]string) domain.FacetSnapshot {
	tree := map[string]map[string]struct{}{}
	add := func(groups []domain.LocationGroup) {
		for _, g := range groups {
			if g.Location == "" {
				continue
			}
			subs, ok := tree[g.Location]
			if !ok {
				subs = map[string]struct{}{}
				tree[g.Location] = subs
			}
			for _, s := range g.Sublocations {
				if s != "" {
					subs[s] = struct{}{}
				}
			}
		}
	}
	add(c.static.Locations)
	add(locations)

	locs := make([]domain.LocationGroup, 0, len(tree))
	for loc, subs := range tree {
		locs = append(locs, domain.LocationGroup{Location: loc, Sublocations: sortedKeys(subs)})
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].Location < locs[j].Location })

	return domain.FacetSnapshot{
		Labels:      union(c.static.Labels, labels),
		Locations:   locs,
		Systems:     union(c.static.Systems, systems),
		DetailTiers: c.tiers.Strings(),
		RefreshedAt: c.now(),
		Sources:     sources,
	}
}

func union(lists ...[]string) []string {
	set := map[string]struct{}{}
	for _, l := range lists {
		for _, v := range l {
			if v != "" {
				set[v] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
