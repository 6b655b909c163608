package schema

import (
	"fmt"

	"github.com/tluyben/huntflow/types"
)

// FromProperties builds an object schema from the property list of a flow
// file.
func FromProperties(props []types.Property) (Schema, error) {
	fields := make([]Field, 0, len(props))
	for _, p := range props {
		if p.Name == "" {
			return Schema{}, fmt.Errorf("property of type %q has no name", p.Type)
		}
		s, err := propertySchema(p)
		if err != nil {
			return Schema{}, fmt.Errorf("property %s: %w", p.Name, err)
		}
		fields = append(fields, Field{
			Name:        p.Name,
			Schema:      s,
			Optional:    p.Optional,
			Description: p.Description,
		})
	}
	return ObjectOf(fields...)
}

func propertySchema(p types.Property) (Schema, error) {
	switch p.Type {
	case "string", "text":
		return TextSchema(), nil
	case "number", "integer":
		return NumberSchema(), nil
	case "boolean", "bool":
		return BooleanSchema(), nil
	case "array":
		if p.Items == nil {
			return Schema{}, fmt.Errorf("array has no items")
		}
		elem, err := propertySchema(*p.Items)
		if err != nil {
			return Schema{}, fmt.Errorf("items: %w", err)
		}
		return ArrayOf(elem), nil
	case "object":
		return FromProperties(p.Properties)
	default:
		return Schema{}, fmt.Errorf("unknown type: %q", p.Type)
	}
}
