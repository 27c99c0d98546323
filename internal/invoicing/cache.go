package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cachePrefix = "invoicing"

// Cache stores per-owner values under a version that changes whenever the
// owner's invoices change.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(owner uuid.UUID) string {
	return fmt.Sprintf("%s:%s:version", cachePrefix, owner)
}

// Version returns the owner's cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context, owner uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(owner)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes an owner scoped key carrying the current version.
func (c *Cache) BuildKey(ctx context.Context, owner uuid.UUID, parts ...string) (string, error) {
	ver, err := c.Version(ctx, owner)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:v%d", cachePrefix, owner, strings.Join(parts, ":"), ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Store writes value under key.
func (c *Cache) Store(ctx context.Context, key string, value any) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every key of owner by advancing its version.
func (c *Cache) Bump(ctx context.Context, owner uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(owner)).Err()
}
