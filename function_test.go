package wirespec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wirespec "github.com/wirespec/wirespec"
	"github.com/wirespec/wirespec/schema"
)

// testService mirrors a function with a const argument, a string argument,
// and a numeric return.
func testService(t *testing.T) *wirespec.Service {
	t.Helper()
	svc := wirespec.New("test", "0.0.0", "...")
	fn := wirespec.NewFunction("test", "a test function")
	require.NoError(t, fn.DeclareArgument(&wirespec.Argument{
		Name:   "foo",
		Schema: &schema.Schema{HasConst: true, Const: "bar"},
	}))
	require.NoError(t, fn.DeclareArgument(&wirespec.Argument{
		Name:   "spam",
		Schema: &schema.Schema{Type: "string"},
	}))
	fn.SetReturn(&wirespec.Return{Schema: &schema.Schema{Type: "number"}})
	require.NoError(t, svc.DeclareFunction(fn))
	return svc
}

func TestGuardValidateEvent(t *testing.T) {
	guard, err := wirespec.NewGuard(testService(t), "test")
	require.NoError(t, err)

	assert.NoError(t, guard.ValidateEvent(map[string]any{"foo": "bar", "spam": "eggs"}))

	var contract *wirespec.ContractError

	// superfluous field
	err = guard.ValidateEvent(map[string]any{"foo": "bar", "spam": "eggs", "up": "down"})
	require.ErrorAs(t, err, &contract)
	assert.Equal(t, wirespec.StageEvent, contract.Stage)
	assert.Equal(t, "test", contract.Subject)

	// missing required argument
	err = guard.ValidateEvent(map[string]any{"foo": "bar"})
	require.ErrorAs(t, err, &contract)

	// field failing its schema
	err = guard.ValidateEvent(map[string]any{"foo": "bar", "spam": 100})
	require.ErrorAs(t, err, &contract)
}

func TestGuardValidateReturn(t *testing.T) {
	guard, err := wirespec.NewGuard(testService(t), "test")
	require.NoError(t, err)

	assert.NoError(t, guard.ValidateReturn(500))
	assert.NoError(t, guard.ValidateReturn(0.5))

	var contract *wirespec.ContractError
	err = guard.ValidateReturn("not number")
	require.ErrorAs(t, err, &contract)
	assert.Equal(t, wirespec.StageReturn, contract.Stage)
}

func TestGuardUnknownFunction(t *testing.T) {
	var unknown *wirespec.UnknownDeclarationError
	_, err := wirespec.NewGuard(testService(t), "missing")
	require.ErrorAs(t, err, &unknown)
}

func TestWrapInvoke(t *testing.T) {
	guard, err := wirespec.NewGuard(testService(t), "test")
	require.NoError(t, err)

	entry := guard.Wrap(func(ctx context.Context, args wirespec.Args) (any, error) {
		assert.Equal(t, "bar", args.String("foo"))
		assert.Equal(t, "eggs", args.String("spam"))
		return 500, nil
	})
	assert.Equal(t, "test", entry.Name())
	assert.Equal(t, "a test function", entry.Description())

	result, err := entry.Invoke(context.Background(), map[string]any{"foo": "bar", "spam": "eggs"})
	require.NoError(t, err)
	assert.Equal(t, 500, result)
}

func TestWrapInvalidEventNeverInvokes(t *testing.T) {
	guard, err := wirespec.NewGuard(testService(t), "test")
	require.NoError(t, err)

	entry := guard.Wrap(func(ctx context.Context, args wirespec.Args) (any, error) {
		t.Fatal("should not have been called")
		return nil, nil
	})

	var contract *wirespec.ContractError
	_, err = entry.Invoke(context.Background(), map[string]any{"foo": "bar"})
	require.ErrorAs(t, err, &contract)
}

func TestWrapInvalidReturnAfterInvocation(t *testing.T) {
	guard, err := wirespec.NewGuard(testService(t), "test")
	require.NoError(t, err)

	called := false
	entry := guard.Wrap(func(ctx context.Context, args wirespec.Args) (any, error) {
		called = true
		return "not number", nil
	})

	var contract *wirespec.ContractError
	_, err = entry.Invoke(context.Background(), map[string]any{"foo": "bar", "spam": "eggs"})
	require.ErrorAs(t, err, &contract)
	assert.Equal(t, wirespec.StageReturn, contract.Stage)
	assert.True(t, called, "return validation runs only after the implementation")
}

func TestWrapNoReturnDiscardsResult(t *testing.T) {
	svc := wirespec.New("test", "0.0.0", "...")
	fn := wirespec.NewFunction("fire", "...")
	require.NoError(t, fn.DeclareArgument(&wirespec.Argument{
		Name:   "target",
		Schema: &schema.Schema{Type: "string"},
	}))
	require.NoError(t, svc.DeclareFunction(fn))

	guard, err := wirespec.NewGuard(svc, "fire")
	require.NoError(t, err)
	entry := guard.Wrap(func(ctx context.Context, args wirespec.Args) (any, error) {
		return "side effect result", nil
	})

	result, err := entry.Invoke(context.Background(), map[string]any{"target": "x"})
	require.NoError(t, err)
	assert.Nil(t, result, "commands return nothing observable")
}

func TestWrapImplementationErrorPropagates(t *testing.T) {
	guard, err := wirespec.NewGuard(testService(t), "test")
	require.NoError(t, err)

	boom := assert.AnError
	entry := guard.Wrap(func(ctx context.Context, args wirespec.Args) (any, error) {
		return nil, boom
	})
	_, err = entry.Invoke(context.Background(), map[string]any{"foo": "bar", "spam": "eggs"})
	assert.ErrorIs(t, err, boom)
}

func TestArgsAccessors(t *testing.T) {
	args := wirespec.Args{"s": "x", "b": true, "i": 7.0, "f": 2.5}
	assert.Equal(t, "x", args.String("s"))
	assert.True(t, args.Bool("b"))

	i, ok := args.Int("i")
	require.True(t, ok)
	assert.Equal(t, int64(7), i)

	_, ok = args.Int("f")
	assert.False(t, ok)

	f, ok := args.Float("f")
	require.True(t, ok)
	assert.Equal(t, 2.5, f)
}
