package schema

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ValidationError.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota + 1
	MissingField
	UnknownField
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case MissingField:
		return "MissingField"
	case UnknownField:
		return "UnknownField"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching against a ValidationError's kind.
var (
	ErrTypeMismatch = errors.New("type mismatch")
	ErrMissingField = errors.New("missing field")
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError reports why a value does not conform to a schema. Path
// locates the offending value, e.g. "hits[2].name"; it is empty for the root.
type ValidationError struct {
	Kind     ErrorKind
	Path     string
	Expected Kind
	Actual   string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("missing field %q", e.Path)
	case UnknownField:
		return fmt.Sprintf("unknown field %q", e.Path)
	default:
		if e.Path == "" {
			return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
		}
		return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Expected, e.Actual)
	}
}

// Is matches the package sentinels by kind.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrTypeMismatch:
		return e.Kind == TypeMismatch
	case ErrMissingField:
		return e.Kind == MissingField
	case ErrUnknownField:
		return e.Kind == UnknownField
	}
	return false
}

// NewUnknownField reports a reference to a field the schema does not declare.
func NewUnknownField(name string) *ValidationError {
	return &ValidationError{Kind: UnknownField, Path: name}
}

// Mismatch reports a value at path whose runtime type is not expected.
func Mismatch(path string, expected Kind, v any) *ValidationError {
	return &ValidationError{
		Kind:     TypeMismatch,
		Path:     path,
		Expected: expected,
		Actual:   describeValue(v),
	}
}

func missing(path string) *ValidationError {
	return &ValidationError{Kind: MissingField, Path: path}
}
