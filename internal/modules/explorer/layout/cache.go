package layout

import (
	"sort"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
)

type cachedPosition struct {
	pos domain.Position
	at  time.Time
}

// positionCache remembers where removed nodes were, so toggling a filter
// back on restores them in place.
type positionCache struct {
	ttl   time.Duration
	limit int
	items map[domain.StableID]cachedPosition
}

func newPositionCache(ttl time.Duration, limit int) *positionCache {
	return &positionCache{ttl: ttl, limit: limit, items: map[domain.StableID]cachedPosition{}}
}

func (c *positionCache) put(id domain.StableID, p domain.Position, now time.Time) {
	if c.limit <= 0 || c.ttl <= 0 {
		return
	}
	c.items[id] = cachedPosition{pos: p, at: now}
}

// take returns and forgets a live entry.
func (c *positionCache) take(id domain.StableID, now time.Time) (domain.Position, bool) {
	it, ok := c.items[id]
	if !ok {
		return domain.Position{}, false
	}
	delete(c.items, id)
	if now.Sub(it.at) > c.ttl {
		return domain.Position{}, false
	}
	return it.pos, true
}

// release clears the pin of a cached entry. It reports whether id was cached.
func (c *positionCache) release(id domain.StableID) bool {
	it, ok := c.items[id]
	if !ok {
		return false
	}
	it.pos.Pinned = false
	c.items[id] = it
	return true
}

// prune drops expired entries, then the oldest ones above the size limit.
func (c *positionCache) prune(now time.Time) {
	for id, it := range c.items {
		if now.Sub(it.at) > c.ttl {
			delete(c.items, id)
		}
	}
	if len(c.items) <= c.limit {
		return
	}
	type entry struct {
		id domain.StableID
		at time.Time
	}
	all := make([]entry, 0, len(c.items))
	for id, it := range c.items {
		all = append(all, entry{id, it.at})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].at.Equal(all[j].at) {
			return all[i].id < all[j].id
		}
		return all[i].at.Before(all[j].at)
	})
	for _, e := range all[:len(all)-c.limit] {
		delete(c.items, e.id)
	}
}

func (c *positionCache) len() int { return len(c.items) }
