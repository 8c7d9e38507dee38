package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/trujjo/neurotome/internal/domain"
)

// Column names produced by the query builder.
const (
	colNode  = "n"
	colLinks = "links"
)

// recordToRow converts one (n, links) record. Structural problems in a single
// link leave that side nil so the normalizer can count and drop it.
func recordToRow(rec *neo4j.Record) (domain.RawRow, error) {
	var row domain.RawRow
	rawNode, ok := rec.Get(colNode)
	if !ok {
		return row, fmt.Errorf("record has no %q column", colNode)
	}
	row.Primary = toEntity(rawNode)

	rawLinks, ok := rec.Get(colLinks)
	if !ok || rawLinks == nil {
		return row, nil
	}
	list, ok := rawLinks.([]any)
	if !ok {
		return row, fmt.Errorf("column %q is %T, want list", colLinks, rawLinks)
	}
	row.Links = toLinks(list)
	return row, nil
}

func toLinks(list []any) []domain.RawLink {
	out := make([]domain.RawLink, 0, len(list))
	for _, item := range list {
		if item == nil {
			continue
		}
		m, ok := item.(map[string]any)
		if !ok {
			out = append(out, domain.RawLink{})
			continue
		}
		out = append(out, domain.RawLink{
			Rel:      toRelationship(m["rel"]),
			Neighbor: toEntity(m["node"]),
		})
	}
	return out
}

func toEntity(v any) *domain.RawEntity {
	switch n := v.(type) {
	case neo4j.Node:
		return &domain.RawEntity{ID: n.ElementId, Labels: n.Labels, Props: n.Props}
	case *neo4j.Node:
		if n == nil {
			return nil
		}
		return &domain.RawEntity{ID: n.ElementId, Labels: n.Labels, Props: n.Props}
	default:
		return nil
	}
}

func toRelationship(v any) *domain.RawRelationship {
	switch r := v.(type) {
	case neo4j.Relationship:
		return &domain.RawRelationship{ID: r.ElementId, StartID: r.StartElementId, EndID: r.EndElementId, Type: r.Type, Props: r.Props}
	case *neo4j.Relationship:
		if r == nil {
			return nil
		}
		return &domain.RawRelationship{ID: r.ElementId, StartID: r.StartElementId, EndID: r.EndElementId, Type: r.Type, Props: r.Props}
	default:
		return nil
	}
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
