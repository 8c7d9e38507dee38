// Package query turns a FilterState into one bounded, parameterized Cypher
// traversal.
package query

import (
	"fmt"
	"strings"

	"github.com/trujjo/neurotome/internal/domain"
)

// Query is a Cypher template plus its parameters. Facet values only ever
// travel in Params.
type Query struct {
	Cypher string
	Params map[string]any
	Shape  string
	Limit  int
}

// HierarchyFunc returns the sub-location to parent-location map of the
// current facet catalog.
type HierarchyFunc func() map[string][]string

type Options struct {
	TierProperty        string
	LocationProperty    string
	SublocationProperty string
	SystemProperty      string
	NameProperty        string
	Tiers               domain.Tiers
	ResultCap           int
	NeighborLimit       int

	// SampleSize is the default number of start nodes of a random sample.
	SampleSize int
	Hierarchy  HierarchyFunc
}

const (
	ShapeRandom = "random"
	ShapeSearch = "search"
)

type Builder struct {
	opts Options
}

// NewBuilder expects property names that were already validated as plain
// identifiers by config.Validate.
func NewBuilder(opts Options) *Builder {
	if opts.ResultCap <= 0 {
		opts.ResultCap = 100
	}
	if opts.NeighborLimit <= 0 {
		opts.NeighborLimit = 50
	}
	if len(opts.Tiers) == 0 {
		opts.Tiers = domain.DefaultTiers()
	}
	if opts.NameProperty == "" {
		opts.NameProperty = "name"
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 5
	}
	return &Builder{opts: opts}
}

func (b *Builder) Tiers() domain.Tiers { return b.opts.Tiers }

func (b *Builder) ResultCap() int { return b.opts.ResultCap }

// Build is pure: the same FilterState and hierarchy always give the same
// Cypher text and parameters.
func (b *Builder) Build(f domain.FilterState) Query {
	params := map[string]any{
		"limit":         b.opts.ResultCap,
		"neighborLimit": b.opts.NeighborLimit,
	}
	var (
		where []string
		shape []string
	)

	if len(f.Labels) > 0 {
		where = append(where, "ANY(l IN labels(n) WHERE l IN $labels)")
		params["labels"] = f.Labels.Sorted()
		shape = append(shape, "labels")
	}

	if scopes := b.scopes(f); len(scopes) > 0 {
		where = append(where, fmt.Sprintf(
			"ANY(s IN $locationScopes WHERE (s.location IS NULL OR n.%[1]s = s.location) AND (size(s.sublocations) = 0 OR n.%[2]s IN s.sublocations))",
			b.opts.LocationProperty, b.opts.SublocationProperty,
		))
		params["locationScopes"] = scopes
		shape = append(shape, "scopes")
	}

	if len(f.Systems) > 0 {
		where = append(where, fmt.Sprintf("n.%s IN $systems", b.opts.SystemProperty))
		params["systems"] = f.Systems.Sorted()
		shape = append(shape, "systems")
	}

	var neighborTier string
	effective := b.opts.Tiers.Effective(f.DetailTiers)
	if len(effective) < len(b.opts.Tiers) {
		where = append(where, b.tierPredicate("n"))
		neighborTier = b.tierPredicate("m")
		params["tiers"] = domain.TierStrings(effective)
		params["allTiers"] = b.opts.Tiers.Strings()
		shape = append(shape, "tiers")
	}

	var sb strings.Builder
	sb.WriteString("MATCH (n)\n")
	if len(where) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(where, "\n  AND "))
		sb.WriteString("\n")
	}
	sb.WriteString("WITH n LIMIT $limit\n")
	writeOneHop(&sb, neighborTier)

	name := "all"
	if len(shape) > 0 {
		name = strings.Join(shape, "+")
	}
	return Query{Cypher: sb.String(), Params: params, Shape: name, Limit: b.opts.ResultCap}
}

// Random samples size start nodes uniformly and returns them with their
// neighbors. A non-positive size uses the configured sample size; the result
// cap bounds it.
func (b *Builder) Random(size int) Query {
	if size <= 0 {
		size = b.opts.SampleSize
	}
	if size > b.opts.ResultCap {
		size = b.opts.ResultCap
	}
	var sb strings.Builder
	sb.WriteString("MATCH (n)\n")
	sb.WriteString("WITH n, rand() AS sampleKey\n")
	sb.WriteString("ORDER BY sampleKey\n")
	sb.WriteString("WITH n LIMIT $limit\n")
	writeOneHop(&sb, "")
	return Query{
		Cypher: sb.String(),
		Params: map[string]any{"limit": size, "neighborLimit": b.opts.NeighborLimit},
		Shape:  ShapeRandom,
		Limit:  size,
	}
}

// Search matches nodes whose name contains term, case-insensitively, ordered
// by name. The term travels as a parameter.
func (b *Builder) Search(term string) (Query, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Query{}, domain.ErrEmptySearch
	}
	var sb strings.Builder
	sb.WriteString("MATCH (n)\n")
	fmt.Fprintf(&sb, "WHERE n.%[1]s IS NOT NULL AND toLower(toString(n.%[1]s)) CONTAINS $term\n", b.opts.NameProperty)
	fmt.Fprintf(&sb, "WITH n ORDER BY n.%s LIMIT $limit\n", b.opts.NameProperty)
	writeOneHop(&sb, "")
	return Query{
		Cypher: sb.String(),
		Params: map[string]any{
			"term":          strings.ToLower(term),
			"limit":         b.opts.ResultCap,
			"neighborLimit": b.opts.NeighborLimit,
		},
		Shape: ShapeSearch,
		Limit: b.opts.ResultCap,
	}, nil
}

// writeOneHop appends the neighbor expansion shared by every query shape:
// one row per start node with its capped list of {rel, node} links.
func writeOneHop(sb *strings.Builder, neighborWhere string) {
	sb.WriteString("OPTIONAL MATCH (n)-[r]-(m)\n")
	if neighborWhere != "" {
		sb.WriteString("WHERE ")
		sb.WriteString(neighborWhere)
		sb.WriteString("\n")
	}
	sb.WriteString("RETURN n, collect(CASE WHEN r IS NULL THEN NULL ELSE {rel: r, node: m} END)[..$neighborLimit] AS links")
}

// Nodes with a missing or unrecognized tier always pass, so widening the
// tier set can only add nodes.
func (b *Builder) tierPredicate(v string) string {
	p := b.opts.TierProperty
	return fmt.Sprintf("(%[1]s.%[2]s IS NULL OR NOT %[1]s.%[2]s IN $allTiers OR %[1]s.%[2]s IN $tiers)", v, p)
}

// scopes groups active locations with their active sub-locations. A
// sub-location whose parents are all inactive or unknown joins a scope with a
// null location.
func (b *Builder) scopes(f domain.FilterState) []any {
	if len(f.Locations) == 0 && len(f.Sublocations) == 0 {
		return nil
	}
	var parents map[string][]string
	if b.opts.Hierarchy != nil {
		parents = b.opts.Hierarchy()
	}

	bound := map[string][]string{}
	var orphans []string
	for _, sub := range f.Sublocations.Sorted() {
		attached := false
		for _, p := range parents[sub] {
			if f.Locations.Has(p) {
				bound[p] = append(bound[p], sub)
				attached = true
			}
		}
		if !attached {
			orphans = append(orphans, sub)
		}
	}

	var out []any
	for _, loc := range f.Locations.Sorted() {
		subs := bound[loc]
		if subs == nil {
			subs = []string{}
		}
		out = append(out, map[string]any{"location": loc, "sublocations": subs})
	}
	if len(orphans) > 0 {
		out = append(out, map[string]any{"location": nil, "sublocations": orphans})
	}
	return out
}
