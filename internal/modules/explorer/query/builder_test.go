package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/trujjo/neurotome/internal/domain"
)

func newTestBuilder() *Builder {
	return NewBuilder(Options{
		TierProperty:        "detail",
		LocationProperty:    "location",
		SublocationProperty: "sublocation",
		SystemProperty:      "system",
		Tiers:               domain.DefaultTiers(),
		ResultCap:           100,
		NeighborLimit:       25,
		Hierarchy: func() map[string][]string {
			return map[string][]string{
				"brain":        {"head"},
				"eye":          {"head"},
				"heart":        {"thorax"},
				"sacral spine": {"spine", "pelvis"},
			}
		},
	})
}

func TestBuildEmptyFilterIsBounded(t *testing.T) {
	q := newTestBuilder().Build(domain.NewFilterState())
	if q.Limit != 100 || q.Params["limit"] != 100 {
		t.Fatalf("limit: want=100 got=%v/%v", q.Limit, q.Params["limit"])
	}
	if !strings.Contains(q.Cypher, "WITH n LIMIT $limit") {
		t.Fatalf("cypher not bounded:\n%s", q.Cypher)
	}
	if q.Shape != "tiers" {
		t.Fatalf("shape: want=tiers got=%v", q.Shape)
	}
	if got := q.Params["tiers"]; !reflect.DeepEqual(got, []string{"major"}) {
		t.Fatalf("empty tier selection means coarsest only: got=%v", got)
	}
}

func TestBuildClausePerFacet(t *testing.T) {
	cases := []struct {
		name    string
		toggles map[domain.Facet][]string
		shape   string
		present []string
		absent  []string
	}{
		{
			name:    "labels only",
			toggles: map[domain.Facet][]string{domain.FacetLabel: {"nerve", "bone"}, domain.FacetDetailTier: {"minor"}},
			shape:   "labels",
			present: []string{"l IN $labels"},
			absent:  []string{"$systems", "$locationScopes", "$tiers"},
		},
		{
			name:    "systems and tiers",
			toggles: map[domain.Facet][]string{domain.FacetSystem: {"cns"}, domain.FacetDetailTier: {"intermediate"}},
			shape:   "systems+tiers",
			present: []string{"n.system IN $systems", "n.detail IN $tiers", "m.detail IN $tiers"},
			absent:  []string{"$labels"},
		},
		{
			name:    "all facets",
			toggles: map[domain.Facet][]string{domain.FacetLabel: {"nerve"}, domain.FacetLocation: {"head"}, domain.FacetSystem: {"cns"}},
			shape:   "labels+scopes+systems+tiers",
			present: []string{"$labels", "$locationScopes", "$systems", "$tiers"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := domain.NewFilterState()
			for facet, values := range tc.toggles {
				for _, v := range values {
					if _, err := f.Toggle(facet, v, domain.DefaultTiers()); err != nil {
						t.Fatalf("toggle: %v", err)
					}
				}
			}
			q := newTestBuilder().Build(f)
			if q.Shape != tc.shape {
				t.Fatalf("shape: want=%v got=%v", tc.shape, q.Shape)
			}
			for _, s := range tc.present {
				if !strings.Contains(q.Cypher, s) {
					t.Fatalf("missing %q in:\n%s", s, q.Cypher)
				}
			}
			for _, s := range tc.absent {
				if strings.Contains(q.Cypher, s) {
					t.Fatalf("unexpected %q in:\n%s", s, q.Cypher)
				}
			}
		})
	}
}

func TestBuildNeverInterpolatesValues(t *testing.T) {
	f := domain.NewFilterState()
	evil := "x' OR 1=1 //"
	f.Toggle(domain.FacetLabel, evil, nil)
	f.Toggle(domain.FacetSystem, evil, nil)
	f.Toggle(domain.FacetSublocation, evil, nil)
	q := newTestBuilder().Build(f)
	if strings.Contains(q.Cypher, evil) {
		t.Fatalf("facet value leaked into cypher:\n%s", q.Cypher)
	}
	if got := q.Params["labels"]; !reflect.DeepEqual(got, []string{evil}) {
		t.Fatalf("labels param: got=%v", got)
	}
}

func TestBuildLocationScopes(t *testing.T) {
	f := domain.NewFilterState()
	f.Toggle(domain.FacetLocation, "head", nil)
	f.Toggle(domain.FacetLocation, "pelvis", nil)
	f.Toggle(domain.FacetSublocation, "brain", nil)
	f.Toggle(domain.FacetSublocation, "heart", nil)
	f.Toggle(domain.FacetSublocation, "sacral spine", nil)
	f.Toggle(domain.FacetSublocation, "atlantis", nil)

	q := newTestBuilder().Build(f)
	want := []any{
		map[string]any{"location": "head", "sublocations": []string{"brain"}},
		map[string]any{"location": "pelvis", "sublocations": []string{"sacral spine"}},
		map[string]any{"location": nil, "sublocations": []string{"atlantis", "heart"}},
	}
	if got := q.Params["locationScopes"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("scopes:\nwant=%v\ngot=%v", want, got)
	}
}

func TestBuildLocationWithoutSublocations(t *testing.T) {
	f := domain.NewFilterState()
	f.Toggle(domain.FacetLocation, "thorax", nil)
	q := newTestBuilder().Build(f)
	want := []any{map[string]any{"location": "thorax", "sublocations": []string{}}}
	if got := q.Params["locationScopes"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("scopes: want=%v got=%v", want, got)
	}
}

func TestBuildTierMonotonicity(t *testing.T) {
	b := newTestBuilder()
	var prev []string
	for _, tier := range []string{"major", "intermediate"} {
		f := domain.NewFilterState()
		if err := f.SelectTier(domain.DetailTier(tier), b.Tiers()); err != nil {
			t.Fatalf("select: %v", err)
		}
		got, _ := b.Build(f).Params["tiers"].([]string)
		for _, p := range prev {
			found := false
			for _, g := range got {
				found = found || g == p
			}
			if !found {
				t.Fatalf("tier %q dropped when widening to %q", p, tier)
			}
		}
		prev = got
	}
	// The finest tier admits every node, so the tier clause disappears.
	f := domain.NewFilterState()
	f.SelectTier(domain.TierMinor, b.Tiers())
	if q := b.Build(f); strings.Contains(q.Cypher, "$tiers") {
		t.Fatalf("finest tier should not filter:\n%s", q.Cypher)
	}
}

func TestBuildDeterministic(t *testing.T) {
	f := domain.NewFilterState()
	for _, l := range []string{"vein", "artery", "nerve"} {
		f.Toggle(domain.FacetLabel, l, nil)
	}
	a := newTestBuilder().Build(f)
	b := newTestBuilder().Build(f.Clone())
	if a.Cypher != b.Cypher || !reflect.DeepEqual(a.Params, b.Params) {
		t.Fatalf("build is not deterministic")
	}
}

func TestRandomSampleIsBounded(t *testing.T) {
	b := newTestBuilder()
	q := b.Random(0)
	if q.Shape != ShapeRandom || q.Params["limit"] != 5 {
		t.Fatalf("default sample: shape=%v limit=%v", q.Shape, q.Params["limit"])
	}
	for _, frag := range []string{"rand() AS sampleKey", "ORDER BY sampleKey", "WITH n LIMIT $limit", "OPTIONAL MATCH (n)-[r]-(m)", "AS links"} {
		if !strings.Contains(q.Cypher, frag) {
			t.Fatalf("random cypher missing %q:\n%s", frag, q.Cypher)
		}
	}
	if q := b.Random(5000); q.Limit != 100 || q.Params["limit"] != 100 {
		t.Fatalf("oversized sample should be capped: got=%v", q.Params["limit"])
	}
}

func TestSearchMatchesNameCaseInsensitively(t *testing.T) {
	b := newTestBuilder()
	q, err := b.Search("  Radial ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if q.Params["term"] != "radial" {
		t.Fatalf("term: want=radial got=%v", q.Params["term"])
	}
	if strings.Contains(q.Cypher, "adial") {
		t.Fatalf("term leaked into cypher:\n%s", q.Cypher)
	}
	if !strings.Contains(q.Cypher, "toLower(toString(n.name)) CONTAINS $term") || !strings.Contains(q.Cypher, "ORDER BY n.name") {
		t.Fatalf("search cypher:\n%s", q.Cypher)
	}
	if q.Shape != ShapeSearch || q.Limit != 100 {
		t.Fatalf("shape=%v limit=%v", q.Shape, q.Limit)
	}
	if _, err := b.Search("   "); !errors.Is(err, domain.ErrEmptySearch) {
		t.Fatalf("blank term: want ErrEmptySearch got=%v", err)
	}
}
