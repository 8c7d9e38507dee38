package domain

import "time"

type LocationGroup struct {
	Location     string   `json:"location"`
	Sublocations []string `json:"sublocations"`
}

// FacetSnapshot is an immutable view of the enumerable facet values.
type FacetSnapshot struct {
	Labels      []string        `json:"labels"`
	Locations   []LocationGroup `json:"locations"`
	Systems     []string        `json:"systems"`
	DetailTiers []string        `json:"detailTiers"`
	RefreshedAt time.Time       `json:"refreshedAt"`
	// Sources records where each facet came from: db, cache or static.
	Sources map[string]string `json:"sources,omitempty"`
}

// Parents maps each sub-location to the locations that contain it. A
// sub-location may appear under more than one location.
func (s FacetSnapshot) Parents() map[string][]string {
	out := map[string][]string{}
	for _, g := range s.Locations {
		for _, sub := range g.Sublocations {
			out[sub] = append(out[sub], g.Location)
		}
	}
	return out
}
