package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/huntflow/chain"
)

func TestParseInput(t *testing.T) {
	in, err := parseInput(` {"objective": "find paths to domain admin", "hopLimit": 3} `)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"objective": "find paths to domain admin", "hopLimit": 3.0}, in)

	in, err = parseInput("")
	require.NoError(t, err)
	assert.Empty(t, in)

	_, err = parseInput(`["not", "an", "object"]`)
	assert.Error(t, err)

	_, err = parseInput(`{"objective":`)
	assert.Error(t, err)
}

func TestApplyJQ(t *testing.T) {
	result := map[string]any{
		"queries":   []any{"MATCH (n:User) RETURN n", "MATCH (c:Computer) RETURN c"},
		"reasoning": "r",
	}

	values, err := applyJQ(result, ".queries[]")
	require.NoError(t, err)
	assert.Equal(t, []any{"MATCH (n:User) RETURN n", "MATCH (c:Computer) RETURN c"}, values)

	values, err = applyJQ(result, ".queries | length")
	require.NoError(t, err)
	assert.Equal(t, []any{2}, values)

	_, err = applyJQ(result, ".queries[")
	assert.Error(t, err)

	_, err = applyJQ(result, ".reasoning[]")
	assert.Error(t, err)
}

func TestApplyJQOnHops(t *testing.T) {
	hops := []chain.Hop{
		{Flow: "detect-suspicious-observables", Output: map[string]any{"isSuspicious": true}},
		{Flow: "suggest-graph-queries", Output: map[string]any{"queries": []any{"q"}}},
	}
	values, err := applyJQ(hops, "[.[].flow]")
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"detect-suspicious-observables", "suggest-graph-queries"}}, values)
}
