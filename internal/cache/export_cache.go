// Package cache stores rendered GEDCOM exports so repeated downloads of an
// unchanged tree skip the database walk.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// ExportCache keeps the latest GEDCOM rendering of each tree.
type ExportCache interface {
	Get(ctx context.Context, treeID uint) ([]byte, bool, error)
	Set(ctx context.Context, treeID uint, gedcom []byte) error
	Invalidate(ctx context.Context, treeID uint) error
}

type redisExportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisExportCache returns a cache backed by client. Entries expire after
// ttl; zero keeps them until invalidated.
func NewRedisExportCache(client *redis.Client, ttl time.Duration) ExportCache {
	return &redisExportCache{client: client, ttl: ttl}
}

func exportKey(treeID uint) string {
	return fmt.Sprintf("heirloom:tree:%d:gedcom", treeID)
}

func (c *redisExportCache) Get(ctx context.Context, treeID uint) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, exportKey(treeID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get export of tree %d", treeID)
	}
	return data, true, nil
}

func (c *redisExportCache) Set(ctx context.Context, treeID uint, gedcom []byte) error {
	err := c.client.Set(ctx, exportKey(treeID), gedcom, c.ttl).Err()
	return errors.Wrapf(err, "store export of tree %d", treeID)
}

func (c *redisExportCache) Invalidate(ctx context.Context, treeID uint) error {
	err := c.client.Del(ctx, exportKey(treeID)).Err()
	return errors.Wrapf(err, "invalidate export of tree %d", treeID)
}

// NoopExportCache never stores anything. It is used when Redis is not
// configured.
type NoopExportCache struct{}

func (NoopExportCache) Get(context.Context, uint) ([]byte, bool, error) { return nil, false, nil }

func (NoopExportCache) Set(context.Context, uint, []byte) error { return nil }

func (NoopExportCache) Invalidate(context.Context, uint) error { return nil }

// MemoryExportCache is an in-process cache, handy for tests and one-shot
// CLI runs.
type MemoryExportCache struct {
	mu      sync.Mutex
	entries map[uint][]byte
}

func NewMemoryExportCache() *MemoryExportCache {
	return &MemoryExportCache{entries: make(map[uint][]byte)}
}

func (c *MemoryExportCache) Get(_ context.Context, treeID uint) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[treeID]
	return data, ok, nil
}

func (c *MemoryExportCache) Set(_ context.Context, treeID uint, gedcom []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[treeID] = append([]byte(nil), gedcom...)
	return nil
}

func (c *MemoryExportCache) Invalidate(_ context.Context, treeID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, treeID)
	return nil
}
