package domain

// StableID is the identity the data source assigns to an entity. It is never
// positional and never reused.
type StableID string

type SizeClass string

const (
	SizeLarge  SizeClass = "large"
	SizeMedium SizeClass = "medium"
	SizeSmall  SizeClass = "small"
)

type Entity struct {
	ID         StableID       `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// Name is the display name: the name property, else the first label, else the id.
func (e Entity) Name() string {
	if v, ok := e.Properties["name"].(string); ok && v != "" {
		return v
	}
	if len(e.Labels) > 0 {
		return e.Labels[0]
	}
	return string(e.ID)
}

func (e Entity) StringProperty(key string) string {
	v, _ := e.Properties[key].(string)
	return v
}

type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned"`
}

// Node is an entity placed in a GraphModel.
type Node struct {
	Entity
	Position
	SizeClass SizeClass `json:"sizeClass"`
}

type Relationship struct {
	Source     StableID       `json:"source"`
	Target     StableID       `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EdgeKey identifies an edge for per-pass deduplication.
type EdgeKey struct {
	Source StableID
	Target StableID
	Type   string
}

func (r Relationship) Key() EdgeKey {
	return EdgeKey{Source: r.Source, Target: r.Target, Type: r.Type}
}
