package domain

import (
	"encoding/json"
	"math"
)

// GraphModel is the normalized node/edge structure consumed by layout and
// rendering. Every edge's endpoints are keys in Nodes.
type GraphModel struct {
	Nodes map[StableID]*Node
	Edges []Relationship

	order []StableID
}

func NewGraphModel() *GraphModel {
	return &GraphModel{Nodes: make(map[StableID]*Node)}
}

func (m *GraphModel) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

func (m *GraphModel) Has(id StableID) bool {
	if m == nil {
		return false
	}
	_, ok := m.Nodes[id]
	return ok
}

func (m *GraphModel) Node(id StableID) (*Node, bool) {
	if m == nil {
		return nil, false
	}
	n, ok := m.Nodes[id]
	return n, ok
}

// Add inserts n unless a node with the same id exists; the first arrival wins.
func (m *GraphModel) Add(n *Node) bool {
	if n == nil || n.ID == "" {
		return false
	}
	if _, exists := m.Nodes[n.ID]; exists {
		return false
	}
	m.Nodes[n.ID] = n
	m.order = append(m.order, n.ID)
	return true
}

// AddEdge appends r only when both endpoints are present.
func (m *GraphModel) AddEdge(r Relationship) bool {
	if !m.Has(r.Source) || !m.Has(r.Target) {
		return false
	}
	m.Edges = append(m.Edges, r)
	return true
}

// IDs returns node ids in first-seen order.
func (m *GraphModel) IDs() []StableID {
	if m == nil {
		return nil
	}
	out := make([]StableID, len(m.order))
	copy(out, m.order)
	return out
}

// OrderedNodes returns nodes in first-seen order.
func (m *GraphModel) OrderedNodes() []*Node {
	if m == nil {
		return nil
	}
	out := make([]*Node, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.Nodes[id])
	}
	return out
}

// NeighborCount counts distinct direct neighbors of id over the edge list.
func (m *GraphModel) NeighborCount(id StableID) int {
	if m == nil {
		return 0
	}
	seen := map[StableID]struct{}{}
	for _, e := range m.Edges {
		switch id {
		case e.Source:
			if e.Target != id {
				seen[e.Target] = struct{}{}
			}
		case e.Target:
			seen[e.Source] = struct{}{}
		}
	}
	return len(seen)
}

// Positions snapshots every node position keyed by id.
func (m *GraphModel) Positions() map[StableID]Position {
	out := make(map[StableID]Position, m.Len())
	if m == nil {
		return out
	}
	for id, n := range m.Nodes {
		out[id] = n.Position
	}
	return out
}

// SetPosition updates one node's position; unknown ids are ignored.
func (m *GraphModel) SetPosition(id StableID, p Position) bool {
	n, ok := m.Node(id)
	if !ok {
		return false
	}
	n.Position = p
	return true
}

// Bounds returns the bounding box of all node positions. ok is false for an
// empty model.
func (m *GraphModel) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if m.Len() == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, n := range m.Nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X)
		maxY = math.Max(maxY, n.Y)
	}
	return minX, minY, maxX, maxY, true
}

// Clone deep-copies nodes and edges so a caller can read a model while the
// layout keeps moving the original.
func (m *GraphModel) Clone() *GraphModel {
	out := NewGraphModel()
	if m == nil {
		return out
	}
	for _, id := range m.order {
		n := *m.Nodes[id]
		out.Add(&n)
	}
	out.Edges = append([]Relationship(nil), m.Edges...)
	return out
}

type graphJSON struct {
	Nodes []*Node        `json:"nodes"`
	Edges []Relationship `json:"edges"`
}

func (m *GraphModel) MarshalJSON() ([]byte, error) {
	g := graphJSON{Nodes: m.OrderedNodes(), Edges: m.Edges}
	if g.Nodes == nil {
		g.Nodes = []*Node{}
	}
	if g.Edges == nil {
		g.Edges = []Relationship{}
	}
	return json.Marshal(g)
}
