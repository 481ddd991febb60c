package wirespec_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wirespec "github.com/wirespec/wirespec"
	"github.com/wirespec/wirespec/schema"
)

func hookService(t *testing.T) *wirespec.Service {
	t.Helper()
	svc := wirespec.New("test", "0.0.0", "...")
	fn := wirespec.NewFunction("double", "...")
	require.NoError(t, fn.DeclareArgument(&wirespec.Argument{
		Name:   "n",
		Schema: &schema.Schema{Type: "integer"},
	}))
	fn.SetReturn(&wirespec.Return{Schema: &schema.Schema{Type: "integer"}})
	require.NoError(t, svc.DeclareFunction(fn))

	fire := wirespec.NewFunction("fire", "...")
	require.NoError(t, fire.DeclareArgument(&wirespec.Argument{
		Name:   "target",
		Schema: &schema.Schema{Type: "string"},
	}))
	require.NoError(t, svc.DeclareFunction(fire))

	require.NoError(t, svc.DeclareMessage(&wirespec.Message{
		Name:   "ping",
		Schema: &schema.Schema{Type: "string"},
	}))
	return svc
}

type stubInvoker struct {
	target  wirespec.RoutingDescriptor
	payload map[string]any
	result  any
	err     error
}

func (s *stubInvoker) Invoke(ctx context.Context, target wirespec.RoutingDescriptor, payload map[string]any) (any, error) {
	s.target = target
	s.payload = payload
	return s.result, s.err
}

type stubPublisher struct {
	target  wirespec.RoutingDescriptor
	message any
	err     error
}

func (s *stubPublisher) Publish(ctx context.Context, target wirespec.RoutingDescriptor, message any) error {
	s.target = target
	s.message = message
	return s.err
}

func TestCurrentOutsideBind(t *testing.T) {
	_, err := wirespec.Current(context.Background())
	assert.ErrorIs(t, err, wirespec.ErrNoActiveHook)
}

func TestBindNesting(t *testing.T) {
	svc := hookService(t)
	hookA := wirespec.NewHook(svc)
	hookB := wirespec.NewHook(svc)

	ctx := context.Background()
	ctxA := hookA.Bind(ctx)

	current, err := wirespec.Current(ctxA)
	require.NoError(t, err)
	assert.Same(t, hookA, current)

	ctxB := hookB.Bind(ctxA)
	current, err = wirespec.Current(ctxB)
	require.NoError(t, err)
	assert.Same(t, hookB, current)

	// exiting B's scope restores A exactly
	current, err = wirespec.Current(ctxA)
	require.NoError(t, err)
	assert.Same(t, hookA, current)

	_, err = wirespec.Current(ctx)
	assert.ErrorIs(t, err, wirespec.ErrNoActiveHook)
}

func TestBindIsolatedAcrossGoroutines(t *testing.T) {
	svc := hookService(t)
	hookA := wirespec.NewHook(svc)
	hookB := wirespec.NewHook(svc)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		h := hookA
		if i%2 == 1 {
			h = hookB
		}
		wg.Add(1)
		go func(want *wirespec.Hook) {
			defer wg.Done()
			ctx := want.Bind(context.Background())
			got, err := wirespec.Current(ctx)
			assert.NoError(t, err)
			assert.Same(t, want, got)
		}(h)
	}
	wg.Wait()
}

func TestCallLocalThroughGate(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))
	entry, err := hook.Implement("double", func(ctx context.Context, args wirespec.Args) (any, error) {
		n, _ := args.Int("n")
		return n * 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "double", entry.Name())

	ctx := hook.Bind(context.Background())
	result, err := hook.Call(ctx, "double", map[string]any{"n": 21})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)

	// the gate rejects malformed payloads before the implementation runs
	var contract *wirespec.ContractError
	_, err = hook.Call(ctx, "double", map[string]any{"n": "21"})
	require.ErrorAs(t, err, &contract)
}

func TestCallRemote(t *testing.T) {
	inv := &stubInvoker{result: 42}
	hook := wirespec.NewHook(hookService(t), wirespec.WithInvoker(inv))
	require.NoError(t, hook.Define("double", "arn:aws:lambda:eu-west-2:000000000000:function:double"))

	ctx := hook.Bind(context.Background())
	result, err := hook.Call(ctx, "double", map[string]any{"n": 21})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, wirespec.RoutingDescriptor("arn:aws:lambda:eu-west-2:000000000000:function:double"), inv.target)
	assert.Equal(t, map[string]any{"n": 21}, inv.payload)
}

func TestCallRemoteEventValidatedFirst(t *testing.T) {
	inv := &stubInvoker{result: 42}
	hook := wirespec.NewHook(hookService(t), wirespec.WithInvoker(inv))
	require.NoError(t, hook.Define("double", "remote"))

	var contract *wirespec.ContractError
	_, err := hook.Call(context.Background(), "double", map[string]any{"n": "bad"})
	require.ErrorAs(t, err, &contract)
	assert.Nil(t, inv.payload, "invoker must not be reached with a malformed payload")
}

func TestCallRemoteResultThroughReturnGuard(t *testing.T) {
	inv := &stubInvoker{result: "not an integer"}
	hook := wirespec.NewHook(hookService(t), wirespec.WithInvoker(inv))
	require.NoError(t, hook.Define("double", "remote"))

	var contract *wirespec.ContractError
	_, err := hook.Call(context.Background(), "double", map[string]any{"n": 21})
	require.ErrorAs(t, err, &contract)
	assert.Equal(t, wirespec.StageReturn, contract.Stage)
}

func TestCallRemoteNoReturnDiscardsResult(t *testing.T) {
	inv := &stubInvoker{result: map[string]any{"anything": true}}
	hook := wirespec.NewHook(hookService(t), wirespec.WithInvoker(inv))
	require.NoError(t, hook.Define("fire", "remote"))

	result, err := hook.Call(context.Background(), "fire", map[string]any{"target": "x"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCallRemoteTransportErrorPropagates(t *testing.T) {
	boom := &wirespec.TransportError{Op: "invoke", Target: "remote", Err: assert.AnError}
	inv := &stubInvoker{err: boom}
	hook := wirespec.NewHook(hookService(t), wirespec.WithInvoker(inv))
	require.NoError(t, hook.Define("double", "remote"))

	_, err := hook.Call(context.Background(), "double", map[string]any{"n": 1})
	assert.ErrorIs(t, err, boom)
}

func TestCallUnbound(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))

	var unbound *wirespec.UnboundCallError
	_, err := hook.Call(context.Background(), "double", map[string]any{"n": 1})
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "double", unbound.Name)
}

func TestCallUnknownFunction(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))

	var unknown *wirespec.UnknownDeclarationError
	_, err := hook.Call(context.Background(), "missing", nil)
	require.ErrorAs(t, err, &unknown)
}

func TestLocalShadowsRemote(t *testing.T) {
	inv := &stubInvoker{result: 0}
	hook := wirespec.NewHook(hookService(t), wirespec.WithInvoker(inv))
	require.NoError(t, hook.Define("double", "remote"))
	_, err := hook.Implement("double", func(ctx context.Context, args wirespec.Args) (any, error) {
		n, _ := args.Int("n")
		return n * 2, nil
	})
	require.NoError(t, err)

	result, err := hook.Call(context.Background(), "double", map[string]any{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(6), result)
	assert.Nil(t, inv.payload, "local binding takes precedence")
}

func TestDefineUnknownName(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))
	var unknown *wirespec.UnknownDeclarationError
	err := hook.Define("missing", "remote")
	require.ErrorAs(t, err, &unknown)
}

func TestSendLocal(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))
	var received []any
	_, err := hook.Receive("ping", func(ctx context.Context, message any) error {
		received = append(received, message)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, hook.Send(context.Background(), "ping", "hello"))
	assert.Equal(t, []any{"hello"}, received)

	var contract *wirespec.ContractError
	err = hook.Send(context.Background(), "ping", 7)
	require.ErrorAs(t, err, &contract)
	assert.Len(t, received, 1)
}

func TestSendRemote(t *testing.T) {
	pub := &stubPublisher{}
	hook := wirespec.NewHook(hookService(t), wirespec.WithPublisher(pub))
	require.NoError(t, hook.Define("ping", "arn:aws:sns:eu-west-2:000000000000:ping"))

	require.NoError(t, hook.Send(context.Background(), "ping", "hello"))
	assert.Equal(t, "hello", pub.message)
	assert.Equal(t, wirespec.RoutingDescriptor("arn:aws:sns:eu-west-2:000000000000:ping"), pub.target)
}

func TestSendUnbound(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))
	var unbound *wirespec.UnboundCallError
	err := hook.Send(context.Background(), "ping", "hello")
	require.ErrorAs(t, err, &unbound)
}

func TestMessengerSendThroughCurrentHook(t *testing.T) {
	svc := hookService(t)
	hook := wirespec.NewHook(svc)
	var received []any
	_, err := hook.Receive("ping", func(ctx context.Context, message any) error {
		received = append(received, message)
		return nil
	})
	require.NoError(t, err)

	m, err := wirespec.NewMessenger(svc, "ping")
	require.NoError(t, err)

	// outside any bind scope there is no hook to route through
	err = m.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, wirespec.ErrNoActiveHook)

	ctx := hook.Bind(context.Background())
	require.NoError(t, m.Send(ctx, "hello"))
	assert.Equal(t, []any{"hello"}, received)
}

func TestReceiveBatchLocalSend(t *testing.T) {
	hook := wirespec.NewHook(hookService(t))
	var batches [][]any
	_, err := hook.ReceiveBatch("ping", func(ctx context.Context, messages []any) error {
		batches = append(batches, messages)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, hook.Send(context.Background(), "ping", "hello"))
	require.Len(t, batches, 1)
	assert.Equal(t, []any{"hello"}, batches[0])
}
