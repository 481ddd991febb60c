package wirespec

import (
	"context"

	"github.com/wirespec/wirespec/schema"
)

// Implementation is a function body supplied by a service implementer. The
// gate passes the validated event payload as Args, bound by name.
type Implementation func(ctx context.Context, args Args) (any, error)

// Args is a validated event payload, keyed by argument name.
type Args map[string]any

// String returns the named argument as a string, or "" when absent or not
// a string.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns the named argument as a bool, or false when absent or not a
// bool.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Int returns the named argument as an int64 when it carries an integral
// numeric value.
func (a Args) Int(name string) (int64, bool) {
	f, ok := numericValue(a[name])
	if !ok || !isIntegral(a[name]) {
		return 0, false
	}
	return int64(f), true
}

// Float returns the named argument as a float64 when it carries a numeric
// value.
func (a Args) Float(name string) (float64, bool) {
	return numericValue(a[name])
}

// Guard wraps a function implementation with the contract validation gate:
// inbound events are validated against a schema synthesized from the
// function's declared arguments, and results against the declared return
// schema, before anything reaches the other side.
type Guard struct {
	service  *Service
	function *Function
	event    *Validator
	ret      *Validator // nil when the function declares no return
}

// NewGuard compiles the validation gate for the named function. The event
// schema requires exactly the declared arguments and permits nothing else.
func NewGuard(svc *Service, name string) (*Guard, error) {
	fn, err := svc.Function(name)
	if err != nil {
		return nil, err
	}
	eventSchema := eventSchemaFor(fn)
	event, err := NewValidator(eventSchema, svc.ResolveRef)
	if err != nil {
		return nil, err
	}
	g := &Guard{service: svc, function: fn, event: event}
	if ret := fn.Return(); ret != nil {
		g.ret, err = NewValidator(ret.Schema, svc.ResolveRef)
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

func eventSchemaFor(fn *Function) *schema.Schema {
	strict := false
	s := &schema.Schema{
		Type:                 "object",
		Properties:           map[string]*schema.Schema{},
		AdditionalProperties: &strict,
	}
	for _, arg := range fn.Arguments() {
		s.Properties[arg.Name] = arg.Schema
		s.Required = append(s.Required, arg.Name)
	}
	return s
}

// ValidateEvent checks an inbound payload map against the synthesized
// argument schema. A missing argument, an extra field, or a field failing
// its schema yields a ContractError.
func (g *Guard) ValidateEvent(event map[string]any) error {
	if err := g.event.Validate(anyMap(event)); err != nil {
		iss, _ := AsIssues(err)
		return &ContractError{Subject: g.function.Name(), Stage: StageEvent, Issues: iss}
	}
	return nil
}

// ValidateReturn checks an implementation result against the declared
// return schema. For functions without a return it always passes; the
// result is discarded elsewhere.
func (g *Guard) ValidateReturn(result any) error {
	if g.ret == nil {
		return nil
	}
	if err := g.ret.Validate(result); err != nil {
		iss, _ := AsIssues(err)
		return &ContractError{Subject: g.function.Name(), Stage: StageReturn, Issues: iss}
	}
	return nil
}

// Wrap composes the gate around an implementation, returning an entry point
// with the same success behavior plus validation on both edges. The entry
// point carries the function's name and description for introspection.
func (g *Guard) Wrap(impl Implementation) *Entrypoint {
	return &Entrypoint{
		name:        g.function.Name(),
		description: g.function.Description(),
		guard:       g,
		impl:        impl,
	}
}

// Entrypoint is a guarded function implementation.
type Entrypoint struct {
	name        string
	description string
	guard       *Guard
	impl        Implementation
}

// Name returns the wrapped function's declared name.
func (e *Entrypoint) Name() string { return e.name }

// Description returns the wrapped function's declared description.
func (e *Entrypoint) Description() string { return e.description }

// Invoke validates the event, invokes the implementation with the bound
// arguments, and validates the result. When the function declares no
// return, the implementation's result is discarded: commands return
// nothing observable. A return-schema mismatch is detectable only after
// the implementation has run.
func (e *Entrypoint) Invoke(ctx context.Context, event map[string]any) (any, error) {
	if err := e.guard.ValidateEvent(event); err != nil {
		return nil, err
	}
	result, err := e.impl(ctx, Args(event))
	if err != nil {
		return nil, err
	}
	if e.guard.function.Return() == nil {
		return nil, nil
	}
	if err := e.guard.ValidateReturn(result); err != nil {
		return nil, err
	}
	return result, nil
}

func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
