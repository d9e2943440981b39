package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchema_ArrayAndEnum(t *testing.T) {
	schema := BuildSchema(
		Param{Name: "path", Type: "text", Description: "a path", Required: true},
		Param{Name: "tags", Type: "text[]", Description: "tags"},
		Param{Name: "mode", Type: "text", Enum: []string{"a", "b"}},
	)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(schema, &decoded))
	assert.Equal(t, "object", decoded["type"])
	props := decoded["properties"].(map[string]any)

	path := props["path"].(map[string]any)
	assert.Equal(t, "string", path["type"])

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	items := tags["items"].(map[string]any)
	assert.Equal(t, "string", items["type"])

	mode := props["mode"].(map[string]any)
	assert.ElementsMatch(t, []any{"a", "b"}, mode["enum"])

	required := decoded["required"].([]any)
	assert.Equal(t, []any{"path"}, required)
}

func TestCompileSchema_ValidateArgs(t *testing.T) {
	schema := BuildSchema(
		Param{Name: "min", Type: "number", Required: true},
		Param{Name: "max", Type: "number", Required: true},
	)
	compiled, err := CompileSchema(schema)
	require.NoError(t, err)

	require.NoError(t, ValidateArgs(compiled, []byte(`{"min":1,"max":100}`)))
	assert.Error(t, ValidateArgs(compiled, []byte(`{"min":"x"}`)))
}

func TestRegistry_BasicOps(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.List())

	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_WithExtra_Overrides(t *testing.T) {
	root := NewRegistry()
	root.Register(&stubTool{name: "t1"})

	view := root.WithExtra(&stubTool{name: "t1", tag: "extra"})
	got, ok := view.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "extra", got.(*stubTool).tag)

	rootGot, ok := root.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "", rootGot.(*stubTool).tag)
}

func TestRegistry_WithExtra_SeesParentMutations(t *testing.T) {
	root := NewRegistry()
	view := root.WithExtra()

	root.Register(&stubTool{name: "late"})
	_, ok := view.Get("late")
	assert.True(t, ok, "view must delegate to parent and see later registrations")
}

type stubTool struct {
	name string
	tag  string
}

func (s *stubTool) Name() string                 { return s.name }
func (s *stubTool) Description() string          { return "stub" }
func (s *stubTool) InputSchema() json.RawMessage { return BuildSchema() }
func (s *stubTool) Execute(_ context.Context, _ json.RawMessage) (Result, error) {
	return Result{}, nil
}
