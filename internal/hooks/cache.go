package hooks

import (
	"context"
	"sync"
)

// cache is a keyed result cache with manual revalidation. A key is fetched
// once; later reads return the stored value until Revalidate or Mutate.
// Errors are not cached, so the next read fetches again.
type cache[V any] struct {
	mu      sync.Mutex
	entries map[string]V
}

func newCache[V any]() *cache[V] {
	return &cache[V]{entries: make(map[string]V)}
}

func (c *cache[V]) get(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	v, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}
	return c.revalidate(ctx, key, fetch)
}

func (c *cache[V]) revalidate(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.mutate(key, v)
	return v, nil
}

func (c *cache[V]) mutate(key string, v V) {
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}

func (c *cache[V]) peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *cache[V]) forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// forgetWhere drops every entry match reports true for.
func (c *cache[V]) forgetWhere(match func(key string, v V) bool) {
	c.mu.Lock()
	for k, v := range c.entries {
		if match(k, v) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

func (c *cache[V]) clear() {
	c.mu.Lock()
	c.entries = make(map[string]V)
	c.mu.Unlock()
}
