// Package cache は有効期限付きのインメモリキャッシュを提供します。
// generator.ImageCacher を満たす最小限の実装です。
package cache

import (
	"sync"
	"time"
)

type item struct {
	value     any
	expiresAt time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// TTLCache は期限切れを遅延評価で破棄するスレッドセーフなキャッシュです。
type TTLCache struct {
	mu         sync.RWMutex
	items      map[string]item
	defaultTTL time.Duration
}

// New は TTLCache を初期化します。defaultTTL <= 0 は無期限として扱います。
func New(defaultTTL time.Duration) *TTLCache {
	return &TTLCache{
		items:      make(map[string]item),
		defaultTTL: defaultTTL,
	}
}

// Get は、指定されたキーに紐づくアイテムを取得します。期限切れは存在しない扱いです。
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || it.expired(time.Now()) {
		return nil, false
	}
	return it.value, true
}

// Set は、指定されたキーと値、有効期限でアイテムを保存します。
// d <= 0 のときは構築時の defaultTTL を使います。
func (c *TTLCache) Set(key string, value any, d time.Duration) {
	if d <= 0 {
		d = c.defaultTTL
	}
	var expiresAt time.Time
	if d > 0 {
		expiresAt = time.Now().Add(d)
	}

	c.mu.Lock()
	c.items[key] = item{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete はキーを明示的に破棄します。
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeleteExpired は期限切れのアイテムをまとめて破棄します。
// 定期実行する場合は呼び出し側でタイマーを回してください。
func (c *TTLCache) DeleteExpired() {
	now := time.Now()
	c.mu.Lock()
	for key, it := range c.items {
		if it.expired(now) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}

// Len は現在保持しているアイテム数を返します（期限切れ含む）。
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
