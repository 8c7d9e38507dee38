package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Facet names one filter dimension.
type Facet string

const (
	FacetLabel       Facet = "label"
	FacetLocation    Facet = "location"
	FacetSublocation Facet = "sublocation"
	FacetSystem      Facet = "system"
	FacetDetailTier  Facet = "detailTier"
)

func ParseFacet(s string) (Facet, error) {
	switch f := Facet(strings.TrimSpace(s)); f {
	case FacetLabel, FacetLocation, FacetSublocation, FacetSystem, FacetDetailTier:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFacet, s)
}

type StringSet map[string]struct{}

func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns members in lexical order so queries and shape keys are stable.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) clone() StringSet {
	out := make(StringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// toggle flips membership and reports whether v is now active.
func (s StringSet) toggle(v string) bool {
	if s.Has(v) {
		delete(s, v)
		return false
	}
	s[v] = struct{}{}
	return true
}

// FilterState is the set of active facet selections for one session.
// DetailTiers is always empty or a prefix of the configured tier ordering.
type FilterState struct {
	Labels       StringSet
	Locations    StringSet
	Sublocations StringSet
	Systems      StringSet
	DetailTiers  []DetailTier
}

func NewFilterState() FilterState {
	return FilterState{
		Labels:       StringSet{},
		Locations:    StringSet{},
		Sublocations: StringSet{},
		Systems:      StringSet{},
	}
}

func (f FilterState) Clone() FilterState {
	return FilterState{
		Labels:       f.Labels.clone(),
		Locations:    f.Locations.clone(),
		Sublocations: f.Sublocations.clone(),
		Systems:      f.Systems.clone(),
		DetailTiers:  append([]DetailTier(nil), f.DetailTiers...),
	}
}

func (f FilterState) IsEmpty() bool {
	return len(f.Labels) == 0 && len(f.Locations) == 0 && len(f.Sublocations) == 0 &&
		len(f.Systems) == 0 && len(f.DetailTiers) == 0
}

// Toggle flips one facet value and reports whether it is active afterwards.
//
// Selecting tier T makes DetailTiers the prefix ending at T. Deselecting T
// truncates to the prefix ending just before T. Unknown tiers are rejected;
// other unknown values pass through.
func (f *FilterState) Toggle(facet Facet, value string, tiers Tiers) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, fmt.Errorf("empty %s value", facet)
	}
	f.ensure()
	switch facet {
	case FacetLabel:
		return f.Labels.toggle(value), nil
	case FacetLocation:
		return f.Locations.toggle(value), nil
	case FacetSublocation:
		return f.Sublocations.toggle(value), nil
	case FacetSystem:
		return f.Systems.toggle(value), nil
	case FacetDetailTier:
		return f.toggleTier(DetailTier(value), tiers)
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownFacet, facet)
}

func (f *FilterState) toggleTier(t DetailTier, tiers Tiers) (bool, error) {
	i := tiers.Index(t)
	if i < 0 {
		return false, fmt.Errorf("%w: %q", ErrInvalidTier, t)
	}
	if i < len(f.DetailTiers) {
		f.DetailTiers = tiers.Prefix(t)[:i]
		return false, nil
	}
	f.DetailTiers = tiers.Prefix(t)
	return true, nil
}

// SelectTier sets DetailTiers to the prefix ending at t.
func (f *FilterState) SelectTier(t DetailTier, tiers Tiers) error {
	p := tiers.Prefix(t)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTier, t)
	}
	f.DetailTiers = p
	return nil
}

// RefineTier moves the tier selection one step finer. It reports false when
// the finest tier is already included.
func (f *FilterState) RefineTier(tiers Tiers) bool {
	next := len(tiers.Effective(f.DetailTiers))
	if next == 0 || next >= len(tiers) {
		return false
	}
	f.DetailTiers = tiers.Prefix(tiers[next])
	return true
}

func (f *FilterState) Clear() { *f = NewFilterState() }

func (f *FilterState) ensure() {
	if f.Labels == nil {
		f.Labels = StringSet{}
	}
	if f.Locations == nil {
		f.Locations = StringSet{}
	}
	if f.Sublocations == nil {
		f.Sublocations = StringSet{}
	}
	if f.Systems == nil {
		f.Systems = StringSet{}
	}
}

// FilterRequest is the wire shape of a FilterState.
type FilterRequest struct {
	Labels       []string `json:"labels"`
	Locations    []string `json:"locations"`
	Sublocations []string `json:"sublocations"`
	Systems      []string `json:"systems"`
	DetailTiers  []string `json:"detailTiers"`
}

// ToState builds a FilterState. Any tier selection is closed to the prefix
// ending at its finest member; a request naming only unknown tiers fails.
func (r FilterRequest) ToState(tiers Tiers) (FilterState, error) {
	f := FilterState{
		Labels:       NewStringSet(r.Labels...),
		Locations:    NewStringSet(r.Locations...),
		Sublocations: NewStringSet(r.Sublocations...),
		Systems:      NewStringSet(r.Systems...),
	}
	if len(r.DetailTiers) == 0 {
		return f, nil
	}
	selected := make([]DetailTier, 0, len(r.DetailTiers))
	for _, t := range r.DetailTiers {
		dt := DetailTier(strings.TrimSpace(t))
		if !tiers.Contains(dt) {
			return FilterState{}, fmt.Errorf("%w: %q", ErrInvalidTier, t)
		}
		selected = append(selected, dt)
	}
	f.DetailTiers = tiers.Close(selected)
	return f, nil
}

func (f FilterState) Request() FilterRequest {
	return FilterRequest{
		Labels:       f.Labels.Sorted(),
		Locations:    f.Locations.Sorted(),
		Sublocations: f.Sublocations.Sorted(),
		Systems:      f.Systems.Sorted(),
		DetailTiers:  TierStrings(f.DetailTiers),
	}
}
