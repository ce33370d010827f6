package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// CanonicalJSON serialises v with object keys sorted, matching spec.md's
// cache key grammar: tool:{tool_name}|input:{canonical_json(args)}.
func CanonicalJSON(v any) string {
	return canonicalize(v)
}

func canonicalize(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			kb, _ := json.Marshal(k)
			out += string(kb) + ":" + canonicalize(val[k])
		}
		return out + "}"
	case []any:
		out := "["
		for i, item := range val {
			if i > 0 {
				out += ","
			}
			out += canonicalize(item)
		}
		return out + "]"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "null"
		}
		return string(b)
	}
}

// CacheKey builds the grammar key for a tool invocation.
func CacheKey(toolName string, args map[string]any) string {
	return fmt.Sprintf("tool:%s|input:%s", toolName, CanonicalJSON(args))
}

// Cache is the shared tool-result cache for a single crew run. Per
// spec.md §5 ("Shared resources"): writers use a fine-grained lock keyed by
// cache key, readers take a read-only view. Go has no native per-key lock,
// so a sharded set of mutexes approximates it without serialising unrelated
// keys behind one global lock.
type Cache struct {
	shardCount int
	shards     []cacheShard
}

type cacheShard struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewCache builds a Cache with a fixed number of shards; 32 comfortably
// spreads contention for a single crew run's tool traffic.
func NewCache() *Cache {
	const shardCount = 32
	c := &Cache{shardCount: shardCount, shards: make([]cacheShard, shardCount)}
	for i := range c.shards {
		c.shards[i].data = make(map[string]any)
	}
	return c
}

func (c *Cache) shardFor(key string) *cacheShard {
	h := fnv32(key)
	return &c.shards[h%uint32(c.shardCount)]
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

func (c *Cache) Get(key string) (any, bool) {
	shard := c.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	v, ok := shard.data[key]
	return v, ok
}

func (c *Cache) Set(key string, value any) {
	shard := c.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.data[key] = value
}
