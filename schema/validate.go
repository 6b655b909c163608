package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Validate checks value against s. It returns nil or a *ValidationError
// describing the first violation found. Fields not declared by an object
// schema are ignored. Optional fields that are absent, or present with a
// null value, are not validated.
func Validate(s Schema, value any) error {
	if err := validate(s, value, ""); err != nil {
		return err
	}
	return nil
}

func validate(s Schema, value any, path string) *ValidationError {
	switch s.kind {
	case Text:
		if _, ok := value.(string); !ok {
			return Mismatch(path, Text, value)
		}
	case Number:
		if !isNumber(value) {
			return Mismatch(path, Number, value)
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return Mismatch(path, Boolean, value)
		}
	case Array:
		return validateArray(s, value, path)
	case Object:
		return validateObject(s, value, path)
	default:
		return &ValidationError{Kind: TypeMismatch, Path: path, Actual: describeValue(value)}
	}
	return nil
}

func validateArray(s Schema, value any, path string) *ValidationError {
	if value == nil {
		return Mismatch(path, Array, value)
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return Mismatch(path, Array, value)
	}
	for i := 0; i < v.Len(); i++ {
		item := v.Index(i).Interface()
		if err := validate(*s.elem, item, path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func validateObject(s Schema, value any, path string) *ValidationError {
	obj, ok := AsObject(value)
	if !ok {
		return Mismatch(path, Object, value)
	}
	for _, f := range s.fields {
		fieldPath := joinPath(path, f.Name)
		val, present := obj[f.Name]
		if !present {
			if f.Optional {
				continue
			}
			return missing(fieldPath)
		}
		if val == nil && f.Optional {
			continue
		}
		if err := validate(f.Schema, val, fieldPath); err != nil {
			return err
		}
	}
	return nil
}

// AsObject returns value as a string-keyed map. Maps with string keys are
// converted directly; structs go through their JSON encoding.
func AsObject(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return v, true
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, false
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

func isNumber(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.(json.Number); ok {
		return true
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func describeValue(value any) string {
	if value == nil {
		return "null"
	}
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if isNumber(value) {
		return "number"
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
