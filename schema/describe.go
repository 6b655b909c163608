package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
)

// Draft is the JSON Schema dialect emitted by Document.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Describe renders s as a JSON Schema so a text-generation service can be
// told what shape to produce. Object properties keep declaration order.
func Describe(s Schema) *jsonschema.Schema {
	switch s.kind {
	case Text:
		return &jsonschema.Schema{Type: "string"}
	case Number:
		return &jsonschema.Schema{Type: "number"}
	case Boolean:
		return &jsonschema.Schema{Type: "boolean"}
	case Array:
		return &jsonschema.Schema{Type: "array", Items: Describe(*s.elem)}
	case Object:
		out := &jsonschema.Schema{
			Type:       "object",
			Properties: jsonschema.NewProperties(),
		}
		for _, f := range s.fields {
			prop := Describe(f.Schema)
			prop.Description = f.Description
			out.Properties.Set(f.Name, prop)
			if !f.Optional {
				out.Required = append(out.Required, f.Name)
			}
		}
		return out
	default:
		return &jsonschema.Schema{}
	}
}

// Document returns the JSON encoding of Describe(s) with the $schema
// keyword set.
func Document(s Schema) ([]byte, error) {
	d := Describe(s)
	d.Version = Draft
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return data, nil
}

// Check compiles the JSON Schema description of s to make sure it is a
// well-formed document that services will accept.
func Check(s Schema) error {
	data, err := Document(s)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshaling schema: %w", err)
	}

	compiler := santhosh.NewCompiler()
	if err := compiler.AddResource("describe.json", doc); err != nil {
		return fmt.Errorf("adding schema resource: %w", err)
	}
	if _, err := compiler.Compile("describe.json"); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	return nil
}
