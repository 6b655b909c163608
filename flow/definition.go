// Package flow defines typed AI flows and executes them: validate the input,
// render the prompt, ask the completion client, validate the output.
package flow

import (
	"fmt"

	"github.com/tluyben/huntflow/prompt"
	"github.com/tluyben/huntflow/schema"
	"github.com/tluyben/huntflow/types"
)

// End is the step target that stops a chain.
const End = "$END"

// Definition is a named flow: input and output schemas, a compiled prompt
// template, and optional chain steps. Definitions are immutable.
type Definition struct {
	name        string
	description string
	input       schema.Schema
	output      schema.Schema
	template    *prompt.Template
	steps       []types.FlowStep
}

// NewDefinition compiles promptSrc against the input schema and checks that
// both schemas describe valid JSON Schema documents.
func NewDefinition(name, description string, input, output schema.Schema, promptSrc string, steps ...types.FlowStep) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("flow has no name")
	}
	if input.Kind() != schema.Object || output.Kind() != schema.Object {
		return nil, fmt.Errorf("flow %s: input and output must be object schemas", name)
	}
	if err := schema.Check(input); err != nil {
		return nil, fmt.Errorf("flow %s: input schema: %w", name, err)
	}
	if err := schema.Check(output); err != nil {
		return nil, fmt.Errorf("flow %s: output schema: %w", name, err)
	}
	tmpl, err := prompt.Compile(promptSrc, input)
	if err != nil {
		return nil, fmt.Errorf("flow %s: prompt: %w", name, err)
	}
	for i, s := range steps {
		if s.Next == "" {
			return nil, fmt.Errorf("flow %s: step %d has no next flow", name, i)
		}
	}
	return &Definition{
		name:        name,
		description: description,
		input:       input,
		output:      output,
		template:    tmpl,
		steps:       append([]types.FlowStep(nil), steps...),
	}, nil
}

// FromFile builds a Definition from its flow-file form.
func FromFile(f types.Flow) (*Definition, error) {
	in, err := schema.FromProperties(f.Input)
	if err != nil {
		return nil, fmt.Errorf("flow %s: input: %w", f.Name, err)
	}
	out, err := schema.FromProperties(f.Output)
	if err != nil {
		return nil, fmt.Errorf("flow %s: output: %w", f.Name, err)
	}
	return NewDefinition(f.Name, f.Description, in, out, f.Prompt, f.FlowSteps...)
}

func (d *Definition) Name() string { return d.name }
func (d *Definition) Description() string { return d.description }
func (d *Definition) Input() schema.Schema { return d.input }
func (d *Definition) Output() schema.Schema { return d.output }
func (d *Definition) Template() *prompt.Template { return d.template }
func (d *Definition) Steps() []types.FlowStep { return append([]types.FlowStep(nil), d.steps...) }
