package flow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/huntflow/flow"
)

type suggestIn struct {
	EnvironmentDescription string   `json:"environmentDescription"`
	Observables            []string `json:"observables"`
}

type suggestOut struct {
	Queries   []string `json:"queries"`
	Reasoning string   `json:"reasoning"`
}

func TestInvoke(t *testing.T) {
	client := &stub{reply: map[string]any{
		"queries":   []any{"MATCH (u:User {hasspn:true}) RETURN u"},
		"reasoning": "SPN accounts are kerberoastable",
	}}
	ex := flow.NewExecutor(builtinRegistry(t), client)

	out, err := flow.Invoke[suggestIn, suggestOut](context.Background(), ex, "suggest-graph-queries", suggestIn{
		EnvironmentDescription: "AD forest corp.local",
		Observables:            []string{"4769 RC4 ticket"},
	})
	require.NoError(t, err)
	assert.Equal(t, suggestOut{
		Queries:   []string{"MATCH (u:User {hasspn:true}) RETURN u"},
		Reasoning: "SPN accounts are kerberoastable",
	}, out)
	assert.Contains(t, client.prompts[0], "Observables: 4769 RC4 ticket, ")
}

func TestInvokeNilSliceIsInvalidInput(t *testing.T) {
	ex := flow.NewExecutor(builtinRegistry(t), &stub{})

	_, err := flow.Invoke[suggestIn, suggestOut](context.Background(), ex, "suggest-graph-queries", suggestIn{
		EnvironmentDescription: "AD forest",
	})
	assert.ErrorIs(t, err, flow.ErrInvalidInput)
}
