package domain

import "context"

// RawEntity is a node record as returned by the executor.
type RawEntity struct {
	ID     string
	Labels []string
	Props  map[string]any
}

type RawRelationship struct {
	ID      string
	StartID string
	EndID   string
	Type    string
	Props   map[string]any
}

// RawLink is one (relationship, neighbor) pair. Either side may be nil when
// the record was partial.
type RawLink struct {
	Rel      *RawRelationship
	Neighbor *RawEntity
}

// RawRow is a primary entity with its directly connected neighbors.
type RawRow struct {
	Primary *RawEntity
	Links   []RawLink
}

// Executor runs one parameterized read query.
type Executor interface {
	Execute(ctx context.Context, cypher string, params map[string]any) ([]RawRow, error)
	Ping(ctx context.Context) error
}
