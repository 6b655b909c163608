package flow

import (
	"context"
	"encoding/json"
	"fmt"
)

// Invoke runs the named flow with a Go value as input and decodes the
// validated output into Out. In is converted to the input object through its
// JSON encoding, so json tags name the fields.
func Invoke[In, Out any](ctx context.Context, e *Executor, name string, in In) (Out, error) {
	var out Out

	data, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("encoding %s input: %w", name, err)
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return out, fmt.Errorf("encoding %s input: %w", name, err)
	}

	result, err := e.Execute(ctx, name, input)
	if err != nil {
		return out, err
	}

	data, err = json.Marshal(result)
	if err != nil {
		return out, fmt.Errorf("decoding %s output: %w", name, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %s output: %w", name, err)
	}
	return out, nil
}
