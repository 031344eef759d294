package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// OptionCache caches per-token option catalogs as JSON blobs. Catalogs are
// append-only, so the only invalidation trigger is an option being added.
type OptionCache struct {
	rdb *redis.Client
}

var _ domain.OptionCache = (*OptionCache)(nil)

// NewOptionCache creates an OptionCache backed by the given Client.
func NewOptionCache(c *Client) *OptionCache {
	return &OptionCache{rdb: c.Underlying()}
}

func catalogKey(token string) string {
	return "options:" + token
}

// GetCatalog returns the cached catalog for token. The second return value
// reports whether the cache held an entry.
func (oc *OptionCache) GetCatalog(ctx context.Context, token string) ([]domain.StakeOption, bool, error) {
	data, err := oc.rdb.Get(ctx, catalogKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get catalog %s: %w", token, err)
	}

	var opts []domain.StakeOption
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, false, fmt.Errorf("redis: decode catalog %s: %w", token, err)
	}
	return opts, true, nil
}

// SetCatalog stores the catalog for token with the given TTL.
func (oc *OptionCache) SetCatalog(ctx context.Context, token string, opts []domain.StakeOption, ttl time.Duration) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("redis: encode catalog %s: %w", token, err)
	}
	if err := oc.rdb.Set(ctx, catalogKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set catalog %s: %w", token, err)
	}
	return nil
}

// Invalidate drops the cached catalog for token.
func (oc *OptionCache) Invalidate(ctx context.Context, token string) error {
	if err := oc.rdb.Del(ctx, catalogKey(token)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate catalog %s: %w", token, err)
	}
	return nil
}
