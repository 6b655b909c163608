// Package schema describes the structural shape of flow inputs and outputs
// and validates runtime values against it.
//
// A Schema is an immutable tagged tree: a primitive kind (text, number,
// boolean), an array of an element schema, or an object made of named
// fields. The same validator serves both flow inputs and model outputs.
package schema

import "fmt"

// Kind identifies the variant of a Schema node.
type Kind int

const (
	Text Kind = iota + 1
	Number
	Boolean
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Schema is one node of a schema tree. The zero value is not a valid schema;
// use the constructors.
type Schema struct {
	kind   Kind
	elem   *Schema
	fields []Field
}

// Field is a named member of an object schema. Description is documentation
// only and never enforced.
type Field struct {
	Name        string
	Schema      Schema
	Optional    bool
	Description string
}

// TextSchema returns a schema accepting strings.
func TextSchema() Schema { return Schema{kind: Text} }

// NumberSchema returns a schema accepting any integer or floating point value.
func NumberSchema() Schema { return Schema{kind: Number} }

// BooleanSchema returns a schema accepting booleans.
func BooleanSchema() Schema { return Schema{kind: Boolean} }

// ArrayOf returns a schema accepting ordered sequences whose elements all
// conform to elem.
func ArrayOf(elem Schema) Schema {
	e := elem
	return Schema{kind: Array, elem: &e}
}

// ObjectOf returns an object schema with the given fields, in order.
// Field names must be unique.
func ObjectOf(fields ...Field) (Schema, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return Schema{}, fmt.Errorf("object field has no name")
		}
		if seen[f.Name] {
			return Schema{}, fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Schema.kind == 0 {
			return Schema{}, fmt.Errorf("field %q has no schema", f.Name)
		}
		seen[f.Name] = true
	}
	return Schema{kind: Object, fields: append([]Field(nil), fields...)}, nil
}

// MustObject is like ObjectOf but panics on error. It is meant for schemas
// declared in code.
func MustObject(fields ...Field) Schema {
	s, err := ObjectOf(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Required declares a non-optional field.
func Required(name string, s Schema, desc string) Field {
	return Field{Name: name, Schema: s, Description: desc}
}

// Optional declares a field that may be absent.
func Optional(name string, s Schema, desc string) Field {
	return Field{Name: name, Schema: s, Optional: true, Description: desc}
}

// Kind reports the variant of the schema.
func (s Schema) Kind() Kind { return s.kind }

// Elem returns the element schema of an array schema.
func (s Schema) Elem() (Schema, bool) {
	if s.kind != Array || s.elem == nil {
		return Schema{}, false
	}
	return *s.elem, true
}

// Fields returns a copy of the fields of an object schema.
func (s Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field looks up a field of an object schema by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
