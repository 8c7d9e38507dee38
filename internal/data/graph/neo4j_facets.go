package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/trujjo/neurotome/internal/domain"
)

func (r *Reader) ListLabels(ctx context.Context) ([]string, error) {
	var out []string
	err := r.collect(ctx, "labels", "CALL db.labels() YIELD label RETURN label ORDER BY label", func(rec *neo4j.Record) {
		if v, ok := rec.Get("label"); ok {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	})
	return out, err
}

// ListLocationsTree groups distinct sublocation values under their location.
// Property names come from validated config, never from requests.
func (r *Reader) ListLocationsTree(ctx context.Context) ([]domain.LocationGroup, error) {
	loc, sub := r.schema.LocationProperty, r.schema.SublocationProperty
	cypher := fmt.Sprintf(`MATCH (n)
WHERE n.%[1]s IS NOT NULL
WITH n.%[1]s AS location, collect(DISTINCT n.%[2]s) AS sublocations
RETURN location, sublocations
ORDER BY location`, loc, sub)

	var out []domain.LocationGroup
	err := r.collect(ctx, "locations", cypher, func(rec *neo4j.Record) {
		v, _ := rec.Get("location")
		name, ok := v.(string)
		if !ok || name == "" {
			return
		}
		subs, _ := rec.Get("sublocations")
		out = append(out, domain.LocationGroup{Location: name, Sublocations: toStrings(subs)})
	})
	return out, err
}

func (r *Reader) ListSystems(ctx context.Context) ([]string, error) {
	cypher := fmt.Sprintf(`MATCH (n)
WHERE n.%[1]s IS NOT NULL
RETURN DISTINCT n.%[1]s AS system
ORDER BY system`, r.schema.SystemProperty)

	var out []string
	err := r.collect(ctx, "systems", cypher, func(rec *neo4j.Record) {
		if v, ok := rec.Get("system"); ok {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	})
	return out, err
}
