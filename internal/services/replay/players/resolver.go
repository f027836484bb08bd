// Package players resolves player ids to display names.
//
// Name resolution is cosmetic: replay state is computed entirely over ids, so
// a failed lookup degrades to narrating by id instead of failing the
// operation.
package players

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/dugout/internal/platform/timeouts"
)

const (
	cacheKeyPrefix = "player:name:"
	cacheTTL       = 24 * time.Hour
)

// Source is the authoritative name lookup, normally the roster store.
type Source interface {
	PlayerNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Resolver resolves names through an optional Redis read-through cache in
// front of the source.
type Resolver struct {
	source Source
	cache  *redis.Client
}

// NewResolver builds a resolver. The cache client may be nil, in which case
// every lookup goes to the source.
func NewResolver(source Source, cache *redis.Client) *Resolver {
	return &Resolver{source: source, cache: cache}
}

// Names resolves ids to display names. Lookups are bounded by the name-lookup
// timeout; on any failure the ids in question are simply absent from the
// result. Names never returns an error.
func (r *Resolver) Names(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	if r == nil || r.source == nil || len(ids) == 0 {
		return names
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.NameLookup)
	defer cancel()

	pending := dedupe(ids)
	pending = r.fromCache(ctx, pending, names)
	if len(pending) == 0 {
		return names
	}

	resolved, err := r.source.PlayerNames(ctx, pending)
	if err != nil {
		log.Printf("player name lookup failed: %v", err)
		return names
	}
	for id, name := range resolved {
		names[id] = name
	}
	r.fillCache(ctx, resolved)
	return names
}

// fromCache moves cache hits into names and returns the ids still pending.
func (r *Resolver) fromCache(ctx context.Context, ids []string, names map[string]string) []string {
	if r.cache == nil || len(ids) == 0 {
		return ids
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKeyPrefix + id
	}
	values, err := r.cache.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("player name cache read failed: %v", err)
		return ids
	}

	var pending []string
	for i, value := range values {
		name, ok := value.(string)
		if !ok || name == "" {
			pending = append(pending, ids[i])
			continue
		}
		names[ids[i]] = name
	}
	return pending
}

func (r *Resolver) fillCache(ctx context.Context, resolved map[string]string) {
	if r.cache == nil || len(resolved) == 0 {
		return
	}
	pipe := r.cache.Pipeline()
	for id, name := range resolved {
		pipe.Set(ctx, cacheKeyPrefix+id, name, cacheTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("player name cache write failed: %v", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
