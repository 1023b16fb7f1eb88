package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

// DefaultCatalogTTL bounds how long catalog answers are reused.
const DefaultCatalogTTL = 6 * time.Hour

// missMarker is cached for ISBNs the catalog does not know, so repeated
// imports of an unknown ISBN do not hit the upstream API every time.
const missMarker = "-"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogCache decorates a CatalogLookup with a Redis read-through cache.
// Key format: catalog:isbn:<isbn> and catalog:q:<max>:<query>
type CatalogCache struct {
	next   ports.CatalogLookup
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCatalogCache wraps next. A non-positive ttl selects DefaultCatalogTTL.
func NewCatalogCache(next ports.CatalogLookup, client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "catalog_cache").Logger(),
	}
}

func (c *CatalogCache) SearchByISBN(ctx context.Context, isbn string) (*domain.CatalogVolume, error) {
	key := "catalog:isbn:" + isbn

	raw, hit := c.get(ctx, key)
	if hit {
		if raw == missMarker {
			return nil, domain.ErrCatalogNoMatch
		}
		var v domain.CatalogVolume
		if err := json.UnmarshalFromString(raw, &v); err == nil {
			return &v, nil
		}
	}

	v, err := c.next.SearchByISBN(ctx, isbn)
	if errors.Is(err, domain.ErrCatalogNoMatch) {
		c.set(ctx, key, missMarker)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if encoded, err := json.MarshalToString(v); err == nil {
		c.set(ctx, key, encoded)
	}
	return v, nil
}

func (c *CatalogCache) Search(ctx context.Context, query string, maxResults int) ([]domain.CatalogVolume, error) {
	key := fmt.Sprintf("catalog:q:%d:%s", maxResults, strings.ToLower(strings.TrimSpace(query)))

	if raw, hit := c.get(ctx, key); hit {
		var vs []domain.CatalogVolume
		if err := json.UnmarshalFromString(raw, &vs); err == nil {
			return vs, nil
		}
	}

	vs, err := c.next.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.MarshalToString(vs); err == nil {
		c.set(ctx, key, encoded)
	}
	return vs, nil
}

// get treats every Redis failure as a miss; the cache never fails a lookup.
func (c *CatalogCache) get(ctx context.Context, key string) (string, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
		return "", false
	}
	return raw, true
}

func (c *CatalogCache) set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
}

var _ ports.CatalogLookup = (*CatalogCache)(nil)
