// Package completion sends rendered prompts to a text-generation service and
// returns the structured value it produced.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tluyben/huntflow/schema"
)

// Client completes a prompt, instructing the service to answer with a value
// shaped like out. The returned value is parsed JSON (map[string]any,
// []any, string, float64, bool) and has not been validated against out.
type Client interface {
	Complete(ctx context.Context, prompt string, out schema.Schema) (any, error)
}

// Func adapts a function to the Client interface.
type Func func(ctx context.Context, prompt string, out schema.Schema) (any, error)

func (f Func) Complete(ctx context.Context, prompt string, out schema.Schema) (any, error) {
	return f(ctx, prompt, out)
}

// ErrorKind classifies a completion failure.
type ErrorKind int

const (
	Timeout ErrorKind = iota + 1
	ServiceError
	MalformedOutput
)

func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "Timeout"
	case ServiceError:
		return "ServiceError"
	case MalformedOutput:
		return "MalformedOutput"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching against an Error's kind.
var (
	ErrTimeout         = errors.New("completion timed out")
	ErrServiceError    = errors.New("completion service error")
	ErrMalformedOutput = errors.New("malformed completion output")
)

// Error is returned by every Client in this package.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(": ")
	}
	switch e.Kind {
	case Timeout:
		sb.WriteString("timed out")
	case ServiceError:
		sb.WriteString("service error")
	case MalformedOutput:
		sb.WriteString("malformed output")
	default:
		sb.WriteString(e.Kind.String())
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == Timeout
	case ErrServiceError:
		return e.Kind == ServiceError
	case ErrMalformedOutput:
		return e.Kind == MalformedOutput
	}
	return false
}

// ParseOutput extracts the structured value from raw model text. A Markdown
// code fence around the payload is stripped first.
func ParseOutput(text string) (any, error) {
	_, body := extractCodeBlock(text)
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &Error{Kind: MalformedOutput, Err: errors.New("empty response")}
	}
	if !gjson.Valid(body) {
		return nil, &Error{Kind: MalformedOutput, Err: fmt.Errorf("response is not JSON: %.80q", body)}
	}
	return gjson.Parse(body).Value(), nil
}

// Instructions returns the system prompt that tells a service which JSON
// shape to produce.
func Instructions(out schema.Schema) (string, error) {
	doc, err := schema.Document(out)
	if err != nil {
		return "", err
	}
	return "You are a cybersecurity analysis assistant. Respond only with a single " +
		"JSON object that conforms to the following JSON Schema. Do not add prose " +
		"or code fences.\n\n" + string(doc), nil
}

var codeBlock = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")

func extractCodeBlock(input string) (lang string, content string) {
	matches := codeBlock.FindStringSubmatch(input)
	if len(matches) > 0 {
		return strings.TrimSpace(matches[1]), strings.TrimSpace(matches[2])
	}
	return "", input
}

// transportError classifies an error from the transport layer.
func transportError(ctx context.Context, provider string, err error) *Error {
	if isTimeout(ctx, err) {
		return &Error{Kind: Timeout, Provider: provider, Err: err}
	}
	return &Error{Kind: ServiceError, Provider: provider, Err: err}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func withProvider(err error, provider string) error {
	var ce *Error
	if errors.As(err, &ce) && ce.Provider == "" {
		ce.Provider = provider
	}
	return err
}
