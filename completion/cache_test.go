package completion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/huntflow/completion"
	"github.com/tluyben/huntflow/schema"
)

func TestCacheHit(t *testing.T) {
	calls := 0
	next := completion.Func(func(ctx context.Context, prompt string, out schema.Schema) (any, error) {
		calls++
		return map[string]any{"isSuspicious": true, "tags": []any{"a"}}, nil
	})

	cache, err := completion.NewCache(next, 8)
	require.NoError(t, err)

	first, err := cache.Complete(context.Background(), "p", verdict)
	require.NoError(t, err)
	second, err := cache.Complete(context.Background(), "p", verdict)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Len())

	// Mutating a returned value must not leak into the cache.
	second.(map[string]any)["tags"].([]any)[0] = "mutated"
	third, err := cache.Complete(context.Background(), "p", verdict)
	require.NoError(t, err)
	assert.Equal(t, "a", third.(map[string]any)["tags"].([]any)[0])
}

func TestCacheKeysOnSchema(t *testing.T) {
	calls := 0
	next := completion.Func(func(ctx context.Context, prompt string, out schema.Schema) (any, error) {
		calls++
		return map[string]any{}, nil
	})
	cache, err := completion.NewCache(next, 8)
	require.NoError(t, err)

	other := schema.MustObject(schema.Required("queries", schema.ArrayOf(schema.TextSchema()), ""))
	_, err = cache.Complete(context.Background(), "p", verdict)
	require.NoError(t, err)
	_, err = cache.Complete(context.Background(), "p", other)
	require.NoError(t, err)
	_, err = cache.Complete(context.Background(), "q", verdict)
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
}

func TestCacheSkipsFailures(t *testing.T) {
	calls := 0
	next := completion.Func(func(ctx context.Context, prompt string, out schema.Schema) (any, error) {
		calls++
		return nil, &completion.Error{Kind: completion.Timeout, Err: errors.New("slow")}
	})
	cache, err := completion.NewCache(next, 8)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := cache.Complete(context.Background(), "p", verdict)
		assert.ErrorIs(t, err, completion.ErrTimeout)
	}
	assert.Equal(t, 2, calls)
	assert.Zero(t, cache.Len())
}

func TestNewCacheRejectsZeroSize(t *testing.T) {
	_, err := completion.NewCache(completion.Func(nil), 0)
	assert.Error(t, err)
}
