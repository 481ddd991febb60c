package wirespec_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wirespec "github.com/wirespec/wirespec"
	"github.com/wirespec/wirespec/descriptor"
	"github.com/wirespec/wirespec/schema"
)

func TestCompileType(t *testing.T) {
	svc, err := wirespec.FromYAML([]byte(gameSpec))
	require.NoError(t, err)

	player, err := wirespec.CompileType(svc, "player")
	require.NoError(t, err)
	want := &descriptor.Union{Members: []descriptor.Descriptor{
		&descriptor.Literal{Value: "noughts"},
		&descriptor.Literal{Value: "crosses"},
	}}
	assert.Empty(t, cmp.Diff(want, player))

	position, err := wirespec.CompileType(svc, "position")
	require.NoError(t, err)
	assert.Equal(t, descriptor.KindTuple, position.Kind())

	_, err = wirespec.CompileType(svc, "board")
	var unknown *wirespec.UnknownDeclarationError
	require.ErrorAs(t, err, &unknown)
}

func TestCompileFunction(t *testing.T) {
	svc, err := wirespec.FromYAML([]byte(gameSpec))
	require.NoError(t, err)

	fd, err := wirespec.CompileFunction(svc, "make-move")
	require.NoError(t, err)
	assert.Equal(t, "make-move", fd.Name)
	require.Len(t, fd.Arguments, 2)
	assert.Equal(t, "player", fd.Arguments[0].Name)
	assert.Empty(t, cmp.Diff(&descriptor.Reference{TypeName: "player"}, fd.Arguments[0].Descriptor))
	assert.Empty(t, cmp.Diff(&descriptor.Reference{TypeName: "position"}, fd.Arguments[1].Descriptor))
	assert.Empty(t, cmp.Diff(&descriptor.Bool{}, fd.Return))

	forfeit, err := wirespec.CompileFunction(svc, "forfeit")
	require.NoError(t, err)
	assert.Nil(t, forfeit.Return)
}

func TestCompileFunctionArgumentRecordNaming(t *testing.T) {
	svc := wirespec.New("test", "0.0.0", "...")
	fn := wirespec.NewFunction("start-game", "...")
	require.NoError(t, svc.DeclareFunction(fn))
	require.NoError(t, fn.DeclareArgument(&wirespec.Argument{
		Name: "options",
		Schema: &schema.Schema{
			Type: "object",
			Properties: map[string]*schema.Schema{
				"board-size": {Type: "integer"},
			},
			Required: []string{"board-size"},
		},
	}))
	fn.SetReturn(&wirespec.Return{Schema: &schema.Schema{
		Type:       "object",
		Properties: map[string]*schema.Schema{"id": {Type: "string"}},
		Required:   []string{"id"},
	}})

	fd, err := wirespec.CompileFunction(svc, "start-game")
	require.NoError(t, err)

	arg := fd.Arguments[0].Descriptor.(*descriptor.Record)
	assert.Equal(t, "StartGameOptions", arg.Name)
	assert.Equal(t, descriptor.KindInt, arg.Required["board-size"].Kind())

	ret := fd.Return.(*descriptor.Record)
	assert.Equal(t, "StartGameReturn", ret.Name)
}
