// Package normalize merges raw executor rows into a GraphModel.
package normalize

import (
	"fmt"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
)

// maxIssues bounds how many malformed-record details one pass keeps.
const maxIssues = 20

type Options struct {
	TierProperty string
	Tiers        domain.Tiers
	// NodeCap limits admitted entities; zero means unbounded.
	NodeCap int
}

type Stats struct {
	Rows             int `json:"rows"`
	Nodes            int `json:"nodes"`
	Edges            int `json:"edges"`
	EntitiesRejected int `json:"entitiesRejected"`
	LinksDropped     int `json:"linksDropped"`
	DuplicateEdges   int `json:"duplicateEdges"`
	Truncated        int `json:"truncated"`
	// Malformed counts records dropped for bad shape; Issues keeps the first few.
	Malformed int `json:"malformed"`

	Issues []*domain.MalformedRecordError `json:"-"`
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	if len(opts.Tiers) == 0 {
		opts.Tiers = domain.DefaultTiers()
	}
	if opts.TierProperty == "" {
		opts.TierProperty = "detail"
	}
	return &Normalizer{opts: opts}
}

type pass struct {
	opts  Options
	model *domain.GraphModel
	seen  map[domain.EdgeKey]struct{}
	stats Stats
}

// Normalize is deterministic for a given row order. The first sighting of an
// entity fixes its properties; edges are deduplicated by (source, target,
// type) within this call only.
func (n *Normalizer) Normalize(rows []domain.RawRow) (*domain.GraphModel, Stats) {
	p := &pass{
		opts:  n.opts,
		model: domain.NewGraphModel(),
		seen:  map[domain.EdgeKey]struct{}{},
	}
	p.stats.Rows = len(rows)
	for i, row := range rows {
		p.row(i, row)
	}
	p.stats.Nodes = p.model.Len()
	p.stats.Edges = len(p.model.Edges)
	return p.model, p.stats
}

func (p *pass) row(i int, row domain.RawRow) {
	if row.Primary == nil || row.Primary.ID == "" {
		p.stats.EntitiesRejected++
		p.stats.LinksDropped += len(row.Links)
		p.issue(i, "primary entity has no identity")
		return
	}
	if !p.admit(row.Primary) {
		p.stats.LinksDropped += len(row.Links)
		return
	}
	primary := domain.StableID(row.Primary.ID)

	for _, link := range row.Links {
		if link.Rel == nil || link.Neighbor == nil || link.Neighbor.ID == "" {
			p.stats.LinksDropped++
			p.issue(i, "relationship without a neighbor entity")
			continue
		}
		if link.Rel.Type == "" {
			p.stats.LinksDropped++
			p.issue(i, "relationship without a type")
			continue
		}
		neighbor := domain.StableID(link.Neighbor.ID)
		src, dst, ok := direction(link.Rel, primary, neighbor)
		if !ok {
			p.stats.LinksDropped++
			p.issue(i, fmt.Sprintf("relationship %s does not join %s and %s", link.Rel.ID, primary, neighbor))
			continue
		}
		if !p.admit(link.Neighbor) {
			p.stats.LinksDropped++
			continue
		}
		rel := domain.Relationship{
			Source:     src,
			Target:     dst,
			Type:       link.Rel.Type,
			Properties: scalars(link.Rel.Props),
		}
		if _, dup := p.seen[rel.Key()]; dup {
			p.stats.DuplicateEdges++
			continue
		}
		p.seen[rel.Key()] = struct{}{}
		p.model.AddEdge(rel)
	}
}

// admit reports whether the entity is in the model after the call.
func (p *pass) admit(e *domain.RawEntity) bool {
	id := domain.StableID(e.ID)
	if p.model.Has(id) {
		return true
	}
	if p.opts.NodeCap > 0 && p.model.Len() >= p.opts.NodeCap {
		p.stats.Truncated++
		return false
	}
	props := scalars(e.Props)
	tier, _ := props[p.opts.TierProperty].(string)
	p.model.Add(&domain.Node{
		Entity: domain.Entity{
			ID:         id,
			Labels:     orderedSet(e.Labels),
			Properties: props,
		},
		SizeClass: p.opts.Tiers.SizeClass(tier),
	})
	return true
}

func (p *pass) issue(row int, reason string) {
	p.stats.Malformed++
	if len(p.stats.Issues) < maxIssues {
		p.stats.Issues = append(p.stats.Issues, &domain.MalformedRecordError{Row: row, Reason: reason})
	}
}

// direction keeps the database's start/end orientation. A relationship
// without endpoint ids is read as primary -> neighbor.
func direction(r *domain.RawRelationship, primary, neighbor domain.StableID) (domain.StableID, domain.StableID, bool) {
	if r.StartID == "" && r.EndID == "" {
		return primary, neighbor, true
	}
	start, end := domain.StableID(r.StartID), domain.StableID(r.EndID)
	switch {
	case start == primary && end == neighbor:
		return start, end, true
	case start == neighbor && end == primary:
		return start, end, true
	}
	return "", "", false
}

func orderedSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func scalars(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = scalar(v)
	}
	return out
}

func scalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = scalar(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
