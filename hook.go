package wirespec

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// RoutingDescriptor is an opaque identifier telling an external invocation
// or publish collaborator where to send a remote call, such as a function
// locator string.
type RoutingDescriptor string

// Invoker is the external invocation collaborator consulted when a call
// routes to a remote target. It owns its own timeout and cancellation
// semantics; failures surface unmodified as TransportError or AccessError.
type Invoker interface {
	Invoke(ctx context.Context, target RoutingDescriptor, payload map[string]any) (any, error)
}

// Publisher is the external publish collaborator for remotely routed
// messages.
type Publisher interface {
	Publish(ctx context.Context, target RoutingDescriptor, message any) error
}

// Hook is the dispatch registry for one service: it maps function and
// message names to an active binding, either a local implementation or a
// remote routing descriptor, and routes each call through the contract
// validation gate regardless of which.
//
// Activation is scoped to a context: Bind derives a context carrying the
// hook, Current reads the innermost one. Concurrent call chains never
// observe each other's bindings because each carries its own context.
type Hook struct {
	service   *Service
	invoker   Invoker
	publisher Publisher
	log       *slog.Logger

	mu         sync.RWMutex
	remote     map[string]RoutingDescriptor
	functions  map[string]*Entrypoint
	receivers  map[string]Receiver
	guards     map[string]*Guard
	messengers map[string]*Messenger
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithInvoker supplies the external invocation collaborator.
func WithInvoker(inv Invoker) HookOption {
	return func(h *Hook) { h.invoker = inv }
}

// WithPublisher supplies the external publish collaborator.
func WithPublisher(pub Publisher) HookOption {
	return func(h *Hook) { h.publisher = pub }
}

// WithLogger supplies the logger used for dispatch tracing.
func WithLogger(log *slog.Logger) HookOption {
	return func(h *Hook) { h.log = log }
}

// NewHook creates a dispatch registry bound to a service.
func NewHook(svc *Service, opts ...HookOption) *Hook {
	h := &Hook{
		service:    svc,
		log:        slog.Default(),
		remote:     map[string]RoutingDescriptor{},
		functions:  map[string]*Entrypoint{},
		receivers:  map[string]Receiver{},
		guards:     map[string]*Guard{},
		messengers: map[string]*Messenger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Service returns the service the hook dispatches for.
func (h *Hook) Service() *Service { return h.service }

// Define registers a remote routing target for a declared function or
// message name.
func (h *Hook) Define(name string, target RoutingDescriptor) error {
	if _, err := h.service.Function(name); err != nil {
		if _, err := h.service.Message(name); err != nil {
			return &UnknownDeclarationError{Kind: "function or message", Name: name}
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remote[name] = target
	return nil
}

// Implement attaches a local implementation to a declared function,
// wrapping it in the contract validation gate. The returned entry point is
// also recorded as the name's local binding for Call.
func (h *Hook) Implement(name string, impl Implementation) (*Entrypoint, error) {
	guard, err := NewGuard(h.service, name)
	if err != nil {
		return nil, err
	}
	entry := guard.Wrap(impl)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.functions[name] = entry
	h.guards[name] = guard
	return entry, nil
}

// Receive attaches a local receiver to a declared message, recorded as the
// name's local binding for Send. The returned entry point delivers
// envelopes per-message.
func (h *Hook) Receive(name string, receiver Receiver) (*MessageEntrypoint, error) {
	m, err := NewMessenger(h.service, name)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receivers[name] = receiver
	h.messengers[name] = m
	return m.Wrap(receiver), nil
}

// ReceiveBatch attaches a batch receiver to a declared message. For local
// sends the receiver sees one-element batches.
func (h *Hook) ReceiveBatch(name string, receiver BatchReceiver) (*MessageEntrypoint, error) {
	m, err := NewMessenger(h.service, name)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.receivers[name] = func(ctx context.Context, message any) error {
		return receiver(ctx, []any{message})
	}
	h.messengers[name] = m
	return m.WrapBatch(receiver), nil
}

type hookKey struct{}

// Bind derives a context with this hook as the current one. Binds nest:
// the derived context shadows any outer hook for its dynamic extent, and
// the outer context is untouched.
func (h *Hook) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, hookKey{}, h)
}

// Current returns the innermost hook bound to ctx, or ErrNoActiveHook.
func Current(ctx context.Context) (*Hook, error) {
	h, ok := ctx.Value(hookKey{}).(*Hook)
	if !ok {
		return nil, ErrNoActiveHook
	}
	return h, nil
}

// Call routes a function call through the active binding for name: a local
// implementation is invoked through its gate, a remote target goes to the
// Invoker with the payload validated first and the result passed back
// through the return guard. Neither binding registered is an UnboundCallError.
func (h *Hook) Call(ctx context.Context, name string, payload map[string]any) (any, error) {
	fn, err := h.service.Function(name)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	entry := h.functions[name]
	target, remote := h.remote[name]
	h.mu.RUnlock()

	id := uuid.NewString()
	if entry != nil {
		h.log.DebugContext(ctx, "dispatch call", "function", name, "route", "local", "id", id)
		return entry.Invoke(ctx, payload)
	}
	if !remote {
		return nil, &UnboundCallError{Name: name}
	}
	guard, err := h.guard(name)
	if err != nil {
		return nil, err
	}
	if err := guard.ValidateEvent(payload); err != nil {
		return nil, err
	}
	if h.invoker == nil {
		return nil, &TransportError{Op: "invoke", Target: target, Err: errors.New("no invoker configured")}
	}
	h.log.DebugContext(ctx, "dispatch call", "function", name, "route", "remote", "target", string(target), "id", id)
	result, err := h.invoker.Invoke(ctx, target, payload)
	if err != nil {
		return nil, err
	}
	if fn.Return() == nil {
		return nil, nil
	}
	if err := guard.ValidateReturn(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Send routes a message through the active binding for name: a locally
// bound receiver is invoked with the validated message, a remote target
// goes to the Publisher. Neither binding registered is an UnboundCallError.
func (h *Hook) Send(ctx context.Context, name string, message any) error {
	messenger, err := h.messenger(name)
	if err != nil {
		return err
	}
	if err := messenger.Validate(message); err != nil {
		return err
	}
	h.mu.RLock()
	receiver := h.receivers[name]
	target, remote := h.remote[name]
	h.mu.RUnlock()

	id := uuid.NewString()
	if receiver != nil {
		h.log.DebugContext(ctx, "dispatch send", "message", name, "route", "local", "id", id)
		return receiver(ctx, message)
	}
	if !remote {
		return &UnboundCallError{Name: name}
	}
	if h.publisher == nil {
		return &TransportError{Op: "publish", Target: target, Err: errors.New("no publisher configured")}
	}
	h.log.DebugContext(ctx, "dispatch send", "message", name, "route", "remote", "target", string(target), "id", id)
	return h.publisher.Publish(ctx, target, message)
}

func (h *Hook) guard(name string) (*Guard, error) {
	h.mu.RLock()
	guard := h.guards[name]
	h.mu.RUnlock()
	if guard != nil {
		return guard, nil
	}
	guard, err := NewGuard(h.service, name)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.guards[name] = guard
	h.mu.Unlock()
	return guard, nil
}

func (h *Hook) messenger(name string) (*Messenger, error) {
	h.mu.RLock()
	m := h.messengers[name]
	h.mu.RUnlock()
	if m != nil {
		return m, nil
	}
	m, err := NewMessenger(h.service, name)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.messengers[name] = m
	h.mu.Unlock()
	return m, nil
}
