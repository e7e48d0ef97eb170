package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
	"github.com/DanielHemmis/BggCollections/pkg/metrics"
)

const defaultCacheTTL = 24 * time.Hour

const (
	cacheHit   = "hit"
	cacheMiss  = "miss"
	cacheError = "error"
)

// cacheStore is the subset of the redis client the cache needs.
type cacheStore interface {
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ThingKey(gameID int64) string
}

// CachedLookupParams configure a CachedLookup.
type CachedLookupParams struct {
	Next    Lookup
	Store   cacheStore
	TTL     time.Duration
	Logger  *logger.Logger
	Metrics *metrics.AggregationMetrics
}

// CachedLookup serves metadata from redis and forwards only the misses.
// Metadata changes slowly, so entries live for TTL. Cache failures fall
// through to the wrapped lookup.
type CachedLookup struct {
	next    Lookup
	store   cacheStore
	ttl     time.Duration
	logg    *logger.Logger
	metrics *metrics.AggregationMetrics
}

// NewCachedLookup wraps params.Next with a redis cache.
func NewCachedLookup(params CachedLookupParams) (*CachedLookup, error) {
	if params.Next == nil {
		return nil, fmt.Errorf("next lookup required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedLookup{
		next:    params.Next,
		store:   params.Store,
		ttl:     ttl,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

// LookupBatch implements Lookup.
func (c *CachedLookup) LookupBatch(ctx context.Context, ids []catalog.GameID) ([]catalog.GameMetadata, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.store.ThingKey(int64(id))
	}

	cached, err := c.store.GetMany(ctx, keys...)
	if err != nil {
		c.metrics.IncCache(cacheError)
		c.logg.Error(ctx, "metadata cache read failed", err)
		cached = nil
	}

	out := make([]catalog.GameMetadata, 0, len(ids))
	misses := make([]catalog.GameID, 0, len(ids))
	for i, id := range ids {
		raw, ok := cached[keys[i]]
		if !ok {
			c.metrics.IncCache(cacheMiss)
			misses = append(misses, id)
			continue
		}
		var meta catalog.GameMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.GameID != id {
			c.metrics.IncCache(cacheMiss)
			misses = append(misses, id)
			continue
		}
		c.metrics.IncCache(cacheHit)
		out = append(out, meta)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.next.LookupBatch(ctx, misses)
	for _, meta := range fetched {
		c.write(ctx, meta)
	}
	out = append(out, fetched...)
	return out, err
}

func (c *CachedLookup) write(ctx context.Context, meta catalog.GameMetadata) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.store.ThingKey(int64(meta.GameID)), payload, c.ttl); err != nil {
		c.metrics.IncCache(cacheError)
		c.logg.Warn(c.logg.WithGameID(ctx, int64(meta.GameID)), "metadata cache write failed")
	}
}
