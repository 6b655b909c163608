// Package chain follows the flow steps declared by a definition, running
// one flow after another while their JavaScript guards hold.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/tluyben/huntflow/flow"
	"github.com/tluyben/huntflow/types"
)

// DefaultMaxHops bounds the number of flows one Run may execute.
const DefaultMaxHops = 8

// ErrMaxHops is returned when a chain is still going after the hop limit.
var ErrMaxHops = errors.New("chain exceeded hop limit")

// Hop is one executed flow in a chain.
type Hop struct {
	Flow   string         `json:"flow"`
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
}

type Runner struct {
	ex      *flow.Executor
	maxHops int
}

type Option func(*Runner)

func WithMaxHops(n int) Option {
	return func(r *Runner) {
		r.maxHops = n
	}
}

func New(ex *flow.Executor, opts ...Option) *Runner {
	r := &Runner{ex: ex, maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the named flow and then, repeatedly, the first step whose
// guard is true. It stops at "$END" or when no guard holds. Every hop is an
// ordinary executor invocation; the hops completed before a failure are
// returned along with the error.
func (r *Runner) Run(ctx context.Context, name string, input map[string]any) ([]Hop, error) {
	var hops []Hop
	for {
		if len(hops) >= r.maxHops {
			return hops, fmt.Errorf("%w (%d) before %s", ErrMaxHops, r.maxHops, name)
		}

		out, err := r.ex.Execute(ctx, name, input)
		if err != nil {
			return hops, err
		}
		hops = append(hops, Hop{Flow: name, Input: input, Output: out})

		def, _ := r.ex.Registry().Lookup(name)
		step, ok, err := selectStep(def.Steps(), input, out)
		if err != nil {
			return hops, fmt.Errorf("flow %s: %w", name, err)
		}
		if !ok || step.Next == flow.End {
			return hops, nil
		}

		next := out
		if step.Input != "" {
			next, err = evaluateInput(step.Input, input, out)
			if err != nil {
				return hops, fmt.Errorf("flow %s: step to %s: %w", name, step.Next, err)
			}
		}
		name, input = step.Next, next
	}
}

func selectStep(steps []types.FlowStep, input, output map[string]any) (types.FlowStep, bool, error) {
	for i, step := range steps {
		valid, err := evaluateJSCondition(step.Validate, map[string]any{
			"input":  input,
			"output": output,
		})
		if err != nil {
			return types.FlowStep{}, false, fmt.Errorf("step %d: %w", i, err)
		}
		if valid {
			return step, true, nil
		}
	}
	return types.FlowStep{}, false, nil
}

func evaluateJSCondition(code string, variables map[string]any) (bool, error) {
	if code == "" {
		return true, nil
	}
	vm := goja.New()
	for k, v := range variables {
		if err := vm.Set(k, v); err != nil {
			return false, err
		}
	}
	result, err := vm.RunString(code)
	if err != nil {
		return false, fmt.Errorf("error evaluating JS condition: %w", err)
	}
	return result.ToBoolean(), nil
}

func evaluateInput(code string, input, output map[string]any) (map[string]any, error) {
	vm := goja.New()
	if err := vm.Set("input", input); err != nil {
		return nil, err
	}
	if err := vm.Set("output", output); err != nil {
		return nil, err
	}
	result, err := vm.RunString(code)
	if err != nil {
		return nil, fmt.Errorf("error evaluating JS input: %w", err)
	}
	obj, ok := result.Export().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input expression must produce an object, got %q", result.String())
	}
	return obj, nil
}
