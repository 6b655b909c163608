package prompt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tluyben/huntflow/schema"
)

type scope struct {
	input map[string]any
	this  any
}

// Render fills the template from input. It is pure: the same template and
// input always produce the same text.
func (t *Template) Render(input map[string]any) (string, error) {
	var sb strings.Builder
	if err := t.render(&sb, t.nodes, scope{input: input}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (t *Template) render(sb *strings.Builder, nodes []Node, sc scope) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case Literal:
			sb.WriteString(n.Text)

		case FieldRef:
			if n.This {
				sb.WriteString(stringify(elementValue(sc.this, n.Key)))
				continue
			}
			v, err := t.lookup(sc.input, n.Name)
			if err != nil {
				return err
			}
			sb.WriteString(stringify(v))

		case Conditional:
			v, err := t.lookup(sc.input, n.Field)
			if err != nil {
				return err
			}
			body := n.Body
			if v == nil {
				body = n.Else
			}
			if err := t.render(sb, body, sc); err != nil {
				return err
			}

		case Iteration:
			v, err := t.lookup(sc.input, n.Field)
			if err != nil {
				return err
			}
			if v == nil {
				continue
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return schema.Mismatch(n.Field, schema.Array, v)
			}
			for i := 0; i < rv.Len(); i++ {
				inner := scope{input: sc.input, this: rv.Index(i).Interface()}
				if err := t.render(sb, n.Body, inner); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// lookup returns the value of a top-level field, or nil when it is absent.
// Names outside the bound schema (or, for an unbound template, outside the
// input) are rejected.
func (t *Template) lookup(input map[string]any, name string) (any, error) {
	if t.fields != nil {
		if !t.fields[name] {
			return nil, schema.NewUnknownField(name)
		}
		return input[name], nil
	}
	v, ok := input[name]
	if !ok {
		return nil, schema.NewUnknownField(name)
	}
	return v, nil
}

func elementValue(elem any, key string) any {
	if key == "" {
		return elem
	}
	obj, ok := schema.AsObject(elem)
	if !ok {
		return nil
	}
	return obj[key]
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if !isScalar(item) {
				return toJSON(v)
			}
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct, reflect.Pointer:
		return toJSON(v)
	default:
		return fmt.Sprint(v)
	}
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
		return false
	default:
		return true
	}
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
