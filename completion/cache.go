package completion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tluyben/huntflow/schema"
)

// Cache memoizes successful completions keyed by prompt and output schema.
// Failures are never cached.
type Cache struct {
	next  Client
	store *lru.Cache[string, any]
}

// NewCache wraps next with an LRU cache holding up to size results.
func NewCache(next Client, size int) (*Cache, error) {
	store, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("creating completion cache: %w", err)
	}
	return &Cache{next: next, store: store}, nil
}

// Complete implements Client.
func (c *Cache) Complete(ctx context.Context, prompt string, out schema.Schema) (any, error) {
	key, err := cacheKey(prompt, out)
	if err != nil {
		return nil, err
	}
	if v, ok := c.store.Get(key); ok {
		return clone(v), nil
	}

	v, err := c.next.Complete(ctx, prompt, out)
	if err != nil {
		return nil, err
	}
	c.store.Add(key, clone(v))
	return v, nil
}

// Len reports the number of cached results.
func (c *Cache) Len() int { return c.store.Len() }

// Purge drops every cached result.
func (c *Cache) Purge() { c.store.Purge() }

func cacheKey(prompt string, out schema.Schema) (string, error) {
	doc, err := schema.Document(out)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write(doc)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// clone deep-copies parsed JSON so callers cannot mutate cached entries.
func clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = clone(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = clone(e)
		}
		return s
	default:
		return v
	}
}
