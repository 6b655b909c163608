package chain_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/huntflow/chain"
	"github.com/tluyben/huntflow/completion"
	"github.com/tluyben/huntflow/flow"
	"github.com/tluyben/huntflow/schema"
	"github.com/tluyben/huntflow/types"
)

func builtinExecutor(t *testing.T, suspicious bool) *flow.Executor {
	t.Helper()
	defs, err := flow.Builtin()
	require.NoError(t, err)
	reg, err := flow.NewRegistry(defs...)
	require.NoError(t, err)

	return flow.NewExecutor(reg, completion.Func(func(_ context.Context, p string, _ schema.Schema) (any, error) {
		if strings.Contains(p, "Observable Type:") {
			return map[string]any{"isSuspicious": suspicious, "aiTag": "anomalous_admin_right", "reasoning": "dev user with admin rights"}, nil
		}
		return map[string]any{"queries": []any{"MATCH (u:User {name:'J.DOE'})-[:AdminTo]->(c) RETURN c"}, "reasoning": "r"}, nil
	}))
}

var observable = map[string]any{
	"observableType":  "admin_rights",
	"observableValue": "j.doe -> workstation-123",
	"sourceHost":      "workstation-123",
	"collectedAt":     "2024-05-01T10:00:00Z",
	"agentId":         "agent-003",
}

func TestRunFollowsSuspiciousObservable(t *testing.T) {
	r := chain.New(builtinExecutor(t, true))

	hops, err := r.Run(context.Background(), "detect-suspicious-observables", observable)
	require.NoError(t, err)
	require.Len(t, hops, 2)

	assert.Equal(t, "detect-suspicious-observables", hops[0].Flow)
	assert.Equal(t, true, hops[0].Output["isSuspicious"])

	assert.Equal(t, "suggest-graph-queries", hops[1].Flow)
	assert.Equal(t, "Host workstation-123 monitored by agent agent-003", hops[1].Input["environmentDescription"])
	assert.Equal(t, []any{"admin_rights: j.doe -> workstation-123 (anomalous_admin_right)"}, hops[1].Input["observables"])
	assert.Len(t, hops[1].Output["queries"], 1)
}

func TestRunStopsAtEnd(t *testing.T) {
	r := chain.New(builtinExecutor(t, false))

	hops, err := r.Run(context.Background(), "detect-suspicious-observables", observable)
	require.NoError(t, err)
	require.Len(t, hops, 1)
	assert.Equal(t, false, hops[0].Output["isSuspicious"])
}

func TestRunWithoutSteps(t *testing.T) {
	r := chain.New(builtinExecutor(t, true))

	hops, err := r.Run(context.Background(), "suggest-graph-queries", map[string]any{
		"environmentDescription": "AD forest",
		"observables":            []any{"x"},
	})
	require.NoError(t, err)
	assert.Len(t, hops, 1)
}

func TestRunPropagatesFlowErrors(t *testing.T) {
	r := chain.New(builtinExecutor(t, true))

	hops, err := r.Run(context.Background(), "detect-suspicious-observables", map[string]any{"observableType": "x"})
	assert.ErrorIs(t, err, flow.ErrInvalidInput)
	assert.Empty(t, hops)
}

func loopExecutor(t *testing.T, steps ...types.FlowStep) *flow.Executor {
	t.Helper()
	obj := schema.MustObject(schema.Required("n", schema.NumberSchema(), ""))
	def, err := flow.NewDefinition("count", "", obj, obj, "n={{n}}", steps...)
	require.NoError(t, err)
	reg, err := flow.NewRegistry(def)
	require.NoError(t, err)

	return flow.NewExecutor(reg, completion.Func(func(_ context.Context, p string, _ schema.Schema) (any, error) {
		var n float64
		switch strings.TrimPrefix(p, "n=") {
		case "0":
			n = 1
		case "1":
			n = 2
		default:
			n = 3
		}
		return map[string]any{"n": n}, nil
	}))
}

func TestRunHopLimit(t *testing.T) {
	ex := loopExecutor(t, types.FlowStep{Validate: "true", Next: "count"})
	r := chain.New(ex, chain.WithMaxHops(3))

	hops, err := r.Run(context.Background(), "count", map[string]any{"n": 0.0})
	assert.ErrorIs(t, err, chain.ErrMaxHops)
	assert.Len(t, hops, 3)
}

func TestRunGuardOnOutput(t *testing.T) {
	ex := loopExecutor(t, types.FlowStep{Validate: "output.n < 2", Next: "count"})
	r := chain.New(ex)

	hops, err := r.Run(context.Background(), "count", map[string]any{"n": 0.0})
	require.NoError(t, err)
	require.Len(t, hops, 2)
	assert.Equal(t, 2.0, hops[1].Output["n"])
}

func TestRunInputExpression(t *testing.T) {
	ex := loopExecutor(t,
		types.FlowStep{Validate: "input.n === 0", Next: "count", Input: "({n: output.n + 1})"},
		types.FlowStep{Validate: "true", Next: flow.End},
	)
	r := chain.New(ex)

	hops, err := r.Run(context.Background(), "count", map[string]any{"n": 0.0})
	require.NoError(t, err)
	require.Len(t, hops, 2)
	assert.EqualValues(t, 2, hops[1].Input["n"])
}

func TestRunBadGuard(t *testing.T) {
	ex := loopExecutor(t, types.FlowStep{Validate: "output.n <", Next: "count"})

	hops, err := chain.New(ex).Run(context.Background(), "count", map[string]any{"n": 0.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error evaluating JS condition")
	assert.Len(t, hops, 1)
}

func TestRunInputMustBeObject(t *testing.T) {
	ex := loopExecutor(t, types.FlowStep{Validate: "true", Next: "count", Input: "output.n"})

	_, err := chain.New(ex).Run(context.Background(), "count", map[string]any{"n": 0.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must produce an object")
}
