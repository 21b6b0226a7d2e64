package masterdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-retail/internal/platform/cache"
)

// CachedLookup serves Lookup reads from Redis, loading misses through the
// wrapped Lookup. Concurrent misses for the same key share one load.
type CachedLookup struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedLookup wraps next. A nil client disables caching.
func NewCachedLookup(next Lookup, client *redis.Client, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, client: client, ttl: ttl}
}

func (c *CachedLookup) versionKey(tenantID int64) string {
	return cache.Key("masterdata", "version", strconv.FormatInt(tenantID, 10))
}

// version returns the tenant cache generation, initialising when missing.
func (c *CachedLookup) version(ctx context.Context, tenantID int64) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, c.versionKey(tenantID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return ver, err
}

func (c *CachedLookup) key(ctx context.Context, tenantID int64, parts ...string) (string, error) {
	ver, err := c.version(ctx, tenantID)
	if err != nil {
		return "", err
	}
	all := append([]string{"masterdata", strconv.FormatInt(tenantID, 10), "v" + strconv.FormatInt(ver, 10)}, parts...)
	return cache.Key(all...), nil
}

// Bump invalidates every cached entry of the tenant.
func (c *CachedLookup) Bump(ctx context.Context, tenantID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(tenantID)).Err()
}

func (c *CachedLookup) fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dest)
	}
}

// ProductsByIDs implements Lookup.
func (c *CachedLookup) ProductsByIDs(ctx context.Context, tenantID int64, ids []int64) (map[int64]Product, error) {
	if c.client == nil {
		return c.next.ProductsByIDs(ctx, tenantID, ids)
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	key, err := c.key(ctx, tenantID, "products", strings.Join(parts, ","))
	if err != nil {
		return c.next.ProductsByIDs(ctx, tenantID, ids)
	}
	out := map[int64]Product{}
	err = c.fetch(ctx, key, &out, func(ctx context.Context) (any, error) {
		return c.next.ProductsByIDs(ctx, tenantID, sorted)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Counterparty implements Lookup.
func (c *CachedLookup) Counterparty(ctx context.Context, tenantID, id int64) (Counterparty, error) {
	if c.client == nil {
		return c.next.Counterparty(ctx, tenantID, id)
	}
	key, err := c.key(ctx, tenantID, "counterparty", strconv.FormatInt(id, 10))
	if err != nil {
		return c.next.Counterparty(ctx, tenantID, id)
	}
	var cp Counterparty
	err = c.fetch(ctx, key, &cp, func(ctx context.Context) (any, error) {
		return c.next.Counterparty(ctx, tenantID, id)
	})
	return cp, err
}

// Fallback implements Lookup.
func (c *CachedLookup) Fallback(ctx context.Context, tenantID int64, kind CounterpartyKind) (Counterparty, error) {
	if c.client == nil {
		return c.next.Fallback(ctx, tenantID, kind)
	}
	key, err := c.key(ctx, tenantID, "fallback", string(kind))
	if err != nil {
		return c.next.Fallback(ctx, tenantID, kind)
	}
	var cp Counterparty
	err = c.fetch(ctx, key, &cp, func(ctx context.Context) (any, error) {
		return c.next.Fallback(ctx, tenantID, kind)
	})
	if err != nil {
		return Counterparty{}, fmt.Errorf("fallback %s: %w", kind, err)
	}
	return cp, nil
}
