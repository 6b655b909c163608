package flow

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a flow invocation failure.
type ErrorKind int

const (
	UnknownFlow ErrorKind = iota + 1
	InvalidInput
	Upstream
	InvalidOutput
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownFlow:
		return "UnknownFlow"
	case InvalidInput:
		return "InvalidInput"
	case Upstream:
		return "Upstream"
	case InvalidOutput:
		return "InvalidOutput"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	ErrUnknownFlow   = errors.New("unknown flow")
	ErrInvalidInput  = errors.New("invalid flow input")
	ErrUpstream      = errors.New("completion failed")
	ErrInvalidOutput = errors.New("invalid flow output")
)

// Error is the failure returned by Executor.Execute. Err holds the
// *schema.ValidationError or *completion.Error behind it.
type Error struct {
	Kind ErrorKind
	Flow string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnknownFlow:
		return fmt.Sprintf("flow %q not found", e.Flow)
	case InvalidInput:
		return fmt.Sprintf("flow %s: invalid input: %v", e.Flow, e.Err)
	case Upstream:
		return fmt.Sprintf("flow %s: %v", e.Flow, e.Err)
	case InvalidOutput:
		return fmt.Sprintf("flow %s: invalid output: %v", e.Flow, e.Err)
	default:
		return fmt.Sprintf("flow %s: %v", e.Flow, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnknownFlow:
		return e.Kind == UnknownFlow
	case ErrInvalidInput:
		return e.Kind == InvalidInput
	case ErrUpstream:
		return e.Kind == Upstream
	case ErrInvalidOutput:
		return e.Kind == InvalidOutput
	}
	return false
}
