package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tluyben/huntflow/completion"
	"github.com/tluyben/huntflow/logging"
	"github.com/tluyben/huntflow/schema"
)

// State is the stage an invocation has reached.
type State int

const (
	Idle State = iota
	ValidatingInput
	Rendering
	AwaitingCompletion
	ValidatingOutput
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ValidatingInput:
		return "ValidatingInput"
	case Rendering:
		return "Rendering"
	case AwaitingCompletion:
		return "AwaitingCompletion"
	case ValidatingOutput:
		return "ValidatingOutput"
	case Done:
		return "Done"
	default:
		return "Failed"
	}
}

// Executor runs flows from a registry against a completion client.
// Invocations are independent; an Executor is safe for concurrent use.
type Executor struct {
	registry *Registry
	client   completion.Client
	logger   *slog.Logger
	tracer   trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithTracer sets the tracer; the global otel tracer is used otherwise.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = t
	}
}

func NewExecutor(registry *Registry, client completion.Client, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		client:   client,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/tluyben/huntflow/flow")
	}
	return e
}

func (e *Executor) Registry() *Registry { return e.registry }

// Execute invokes the named flow once. The returned object has been
// validated against the flow's output schema. Failures are *Error values.
func (e *Executor) Execute(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	id := uuid.NewString()
	log := e.logger.With(logging.Flow(name), logging.Invocation(id))

	ctx, span := e.tracer.Start(ctx, "flow.execute", trace.WithAttributes(
		attribute.String("flow.name", name),
		attribute.String("flow.invocation_id", id),
	))
	defer span.End()

	start := time.Now()
	state := Idle
	fail := func(kind ErrorKind, err error) (map[string]any, error) {
		ferr := &Error{Kind: kind, Flow: name, Err: err}
		log.Warn("flow failed",
			slog.String("kind", kind.String()),
			logging.State(state.String()),
			logging.Err(err),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		span.SetAttributes(
			attribute.String("flow.state", Failed.String()),
			attribute.String("flow.error_kind", kind.String()),
		)
		span.RecordError(ferr)
		span.SetStatus(codes.Error, ferr.Error())
		return nil, ferr
	}

	def, ok := e.registry.Lookup(name)
	if !ok {
		return fail(UnknownFlow, nil)
	}

	state = ValidatingInput
	if err := schema.Validate(def.Input(), input); err != nil {
		return fail(InvalidInput, err)
	}

	state = Rendering
	text, err := def.Template().Render(input)
	if err != nil {
		return fail(InvalidInput, err)
	}
	log.Debug("prompt rendered", slog.Int("prompt_bytes", len(text)))

	state = AwaitingCompletion
	raw, err := e.client.Complete(ctx, text, def.Output())
	if err != nil {
		var ce *completion.Error
		if !errors.As(err, &ce) {
			err = &completion.Error{Kind: completion.ServiceError, Err: err}
		}
		return fail(Upstream, err)
	}

	state = ValidatingOutput
	if err := schema.Validate(def.Output(), raw); err != nil {
		return fail(InvalidOutput, err)
	}
	out, _ := schema.AsObject(raw)

	state = Done
	log.Info("flow completed",
		logging.State(state.String()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	span.SetAttributes(attribute.String("flow.state", state.String()))
	span.SetStatus(codes.Ok, "")
	return out, nil
}
