package hunt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/tluyben/huntflow/flow"
)

// Observable is an artifact collected by an agent, as exported by the
// collection pipeline.
type Observable struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Value          string `json:"value"`
	SourceHost     string `json:"sourceHost"`
	CollectedAt    string `json:"collectedAt"`
	AgentID        string `json:"agentId"`
	AssociatedUser string `json:"associatedUser,omitempty"`
}

// Input returns the flow input describing o.
func (o Observable) Input() DetectSuspiciousObservablesInput {
	return DetectSuspiciousObservablesInput{
		ObservableType:  o.Type,
		ObservableValue: o.Value,
		SourceHost:      o.SourceHost,
		CollectedAt:     o.CollectedAt,
		AgentID:         o.AgentID,
	}
}

// Verdict is the triage outcome for one observable. Err is set when the
// invocation failed, in which case the other result fields are zero.
type Verdict struct {
	Observable Observable `json:"observable"`
	DetectSuspiciousObservablesOutput
	Err error `json:"-"`
}

// TriageObservables runs DetectSuspiciousObservables for every observable
// with at most workers invocations in flight. Results are returned in input
// order; a failed invocation only affects its own Verdict.
func TriageObservables(ctx context.Context, ex *flow.Executor, observables []Observable, workers int) []Verdict {
	verdicts := make([]Verdict, len(observables))
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, o := range observables {
		g.Go(func() error {
			out, err := DetectSuspiciousObservables(ctx, ex, o.Input())
			verdicts[i] = Verdict{Observable: o, DetectSuspiciousObservablesOutput: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}

// ReadObservables reads a JSON array of observables from path.
func ReadObservables(path string) ([]Observable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	var observables []Observable
	if err := json.Unmarshal(data, &observables); err != nil {
		return nil, fmt.Errorf("error parsing file %s: %w", path, err)
	}
	return observables, nil
}
