// Package interaction handles drag, selection and drill-down on the current
// graph.
package interaction

import (
	"fmt"
	"strings"
	"sync"

	"github.com/trujjo/neurotome/internal/domain"
)

// DragPolicy decides what happens to a pin when a drag ends.
type DragPolicy int

const (
	// PinOnRelease keeps the node where it was dropped until Unpin.
	PinOnRelease DragPolicy = iota
	// UnpinOnRelease hands the node back to the simulation on drop.
	UnpinOnRelease
)

func ParseDragPolicy(s string) (DragPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pin":
		return PinOnRelease, nil
	case "unpin":
		return UnpinOnRelease, nil
	}
	return PinOnRelease, fmt.Errorf("unknown drag policy %q", s)
}

func (p DragPolicy) String() string {
	if p == UnpinOnRelease {
		return "unpin"
	}
	return "pin"
}

// Layout is the part of the layout engine that interaction drives.
type Layout interface {
	Pin(id domain.StableID, x, y float64) error
	Unpin(id domain.StableID) error
	Cool()
	Snapshot() *domain.GraphModel
}

// Detail is what a selection surfaces to the detail panel.
type Detail struct {
	domain.Entity
	NeighborCount int `json:"neighborCount"`
}

type DetailSink interface {
	Show(Detail)
	Clear()
}

type Controller struct {
	layout Layout
	sink   DetailSink
	policy DragPolicy

	mu       sync.Mutex
	dragging domain.StableID
	selected domain.StableID
}

func New(layout Layout, sink DetailSink, policy DragPolicy) *Controller {
	return &Controller{layout: layout, sink: sink, policy: policy}
}

func (c *Controller) Policy() DragPolicy { return c.policy }

// DragStart pins the node at the pointer.
func (c *Controller) DragStart(id domain.StableID, x, y float64) error {
	if err := c.layout.Pin(id, x, y); err != nil {
		return err
	}
	c.mu.Lock()
	c.dragging = id
	c.mu.Unlock()
	return nil
}

// Drag moves the pin. A drag without a start is treated as one.
func (c *Controller) Drag(id domain.StableID, x, y float64) error {
	if err := c.layout.Pin(id, x, y); err != nil {
		return err
	}
	c.mu.Lock()
	c.dragging = id
	c.mu.Unlock()
	return nil
}

// DragEnd drops the node at (x, y) and applies the release policy. It
// reports whether the node is still pinned.
func (c *Controller) DragEnd(id domain.StableID, x, y float64) (bool, error) {
	if err := c.layout.Pin(id, x, y); err != nil {
		return false, err
	}
	c.mu.Lock()
	if c.dragging == id {
		c.dragging = ""
	}
	c.mu.Unlock()
	c.layout.Cool()
	if c.policy == UnpinOnRelease {
		return false, c.layout.Unpin(id)
	}
	return true, nil
}

func (c *Controller) Unpin(id domain.StableID) error {
	return c.layout.Unpin(id)
}

// Select surfaces the node and its direct-neighbor count from the current
// model edges.
func (c *Controller) Select(id domain.StableID) (Detail, error) {
	m := c.layout.Snapshot()
	n, ok := m.Node(id)
	if !ok {
		return Detail{}, domain.ErrUnknownNode
	}
	d := Detail{Entity: n.Entity, NeighborCount: m.NeighborCount(id)}
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	if c.sink != nil {
		c.sink.Show(d)
	}
	return d, nil
}

func (c *Controller) Deselect() {
	c.mu.Lock()
	c.selected = ""
	c.mu.Unlock()
	if c.sink != nil {
		c.sink.Clear()
	}
}

func (c *Controller) Selected() (domain.StableID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected, c.selected != ""
}

// Forget clears a selection that no longer exists in the model.
func (c *Controller) Forget(m *domain.GraphModel) {
	c.mu.Lock()
	gone := c.selected != "" && !m.Has(c.selected)
	if gone {
		c.selected = ""
	}
	if c.dragging != "" && !m.Has(c.dragging) {
		c.dragging = ""
	}
	c.mu.Unlock()
	if gone && c.sink != nil {
		c.sink.Clear()
	}
}

// ExploreKeys names the properties used for drill-down scoping.
type ExploreKeys struct {
	Location    string
	Sublocation string
}

// Explore derives the drill-down filter for node id: the current filter
// scoped to the node's location and sub-location, one tier finer.
func (c *Controller) Explore(id domain.StableID, current domain.FilterState, tiers domain.Tiers, keys ExploreKeys) (domain.FilterState, error) {
	m := c.layout.Snapshot()
	n, ok := m.Node(id)
	if !ok {
		return current, domain.ErrUnknownNode
	}
	next := current.Clone()
	loc, sub := n.StringProperty(keys.Location), n.StringProperty(keys.Sublocation)
	// A node with any placement replaces the whole location scope, so a
	// sub-location picked earlier cannot widen the drill-down.
	if loc != "" || sub != "" {
		next.Locations = domain.NewStringSet(loc)
		next.Sublocations = domain.NewStringSet(sub)
	}
	next.RefineTier(tiers)
	return next, nil
}
