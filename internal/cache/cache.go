// Package cache holds catalog snapshots between upstream fetches. Keys embed
// the full filter state that produced a snapshot, so a response fetched for
// one filter state can never be served for a newer, different one.
package cache

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is implemented by the in-process TTL map and the redis client.
// Values are kept as JSON so both backends behave identically.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, val any)
	Delete(ctx context.Context, key string)
}

type Memory struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

type entry struct {
	raw []byte
	exp time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Memory{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

func (c *Memory) Get(_ context.Context, key string, dest any) bool {
	now := time.Now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return false
	}

	return json.Unmarshal(e.raw, dest) == nil
}

func (c *Memory) Set(_ context.Context, key string, val any) {
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.m[key] = entry{raw: raw, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *Memory) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry)
	c.mu.Unlock()
}
