package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

func SearchKey(query string, page, limit int) string {
	return fmt.Sprintf("search:%s:%d:%d", strings.ToLower(strings.TrimSpace(query)), page, limit)
}

func ISBNKey(isbn string) string {
	return "isbn:" + isbn
}

// Cache stores JSON values in a Store. Store failures are logged and
// behave as misses so callers fall through to the source.
type Cache struct {
	store  Store
	log    *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, log *zap.Logger) *Cache {
	return &Cache{
		store: store,
		log:   log.Named("cache"),
	}
}

func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	b, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("store.Get", zap.String("key", key), zap.Error(err))
		c.misses.Add(1)
		return false
	}
	if !ok {
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warn("decode cached value", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		c.misses.Add(1)
		return false
	}
	c.hits.Add(1)
	return true
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Error("encode value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, b, ttl); err != nil {
		c.log.Warn("store.Set", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.Warn("store.Delete", zap.String("key", key), zap.Error(err))
	}
}

// DeletePattern removes keys matching a Go regular expression.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, errs.New(errs.InvalidParams, "invalid cache pattern").
			WithDetails(map[string]string{"field": "pattern", "value": pattern})
	}
	n, err := c.store.DeletePattern(ctx, re)
	if err != nil {
		c.log.Warn("store.DeletePattern", zap.String("pattern", pattern), zap.Error(err))
	}
	return n, nil
}

func (c *Cache) Clear(ctx context.Context) int {
	n, err := c.store.Clear(ctx)
	if err != nil {
		c.log.Warn("store.Clear", zap.Error(err))
	}
	return n
}

func (c *Cache) Stats(ctx context.Context) model.CacheStats {
	n, err := c.store.Len(ctx)
	if err != nil {
		c.log.Warn("store.Len", zap.Error(err))
	}
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return model.CacheStats{
		Backend: c.store.Name(),
		Entries: n,
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}
}
