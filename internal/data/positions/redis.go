package positions

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/trujjo/neurotome/internal/data/cache"
	"github.com/trujjo/neurotome/internal/domain"
)

const redisPrefix = "neurotome:pins:"

type pinJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Redis stores each workspace's pin set as one JSON value that expires ttl
// after the last save.
type Redis struct {
	rdb   goredis.Cmdable
	cache *cache.JSONCache
	ttl   time.Duration
}

func NewRedis(rdb goredis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, cache: cache.NewJSONCache(rdb), ttl: ttl}
}

func (r *Redis) Load(ctx context.Context, workspace string) (map[domain.StableID]domain.Position, error) {
	var raw map[string]pinJSON
	if _, err := r.cache.Get(ctx, redisPrefix+workspace, &raw); err != nil {
		return nil, err
	}
	out := make(map[domain.StableID]domain.Position, len(raw))
	for id, p := range raw {
		out[domain.StableID(id)] = domain.Position{X: p.X, Y: p.Y, Pinned: true}
	}
	return out, nil
}

func (r *Redis) Save(ctx context.Context, workspace string, pinned map[domain.StableID]domain.Position) error {
	key := redisPrefix + workspace
	if len(pinned) == 0 {
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clear pins %s: %w", workspace, err)
		}
		return nil
	}
	raw := make(map[string]pinJSON, len(pinned))
	for id, p := range pinned {
		raw[string(id)] = pinJSON{X: p.X, Y: p.Y}
	}
	return r.cache.Set(ctx, key, raw, r.ttl)
}
