package interp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/hosteval"
	"github.com/vibelang/vibe/internal/provider"
	"github.com/vibelang/vibe/internal/tool"
)

type fakeProvider struct {
	responses []provider.Response
	calls     int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

func TestDriver_RunToCompletion_SimpleAICall(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.ModelDeclaration{Name: "m"},
		&ast.LetDeclaration{Name: "greeting", Type: "text", Init: &ast.VibeExpression{
			Keyword: "do",
			Prompt:  &ast.StringLiteral{Value: "say hi"},
			Model:   "m",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})

	d := &Driver{Provider: &fakeProvider{responses: []provider.Response{
		{Content: "hi there", StopReason: "stop"},
	}}}
	err := d.RunToCompletion(context.Background(), rt)
	require.Nil(t, err)
	require.Equal(t, StatusCompleted, rt.Status)

	b, ok := rt.CallStack[0].lookup("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi there", b.Value.Text)
}

func TestDriver_RunToCompletion_AskUser(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.LetDeclaration{Name: "name", Type: "text", Init: &ast.AskExpression{Prompt: &ast.StringLiteral{Value: "your name?"}}},
	}})

	d := &Driver{AskUser: func(ctx context.Context, prompt string) (string, error) {
		assert.Equal(t, "your name?", prompt)
		return "ada", nil
	}}
	err := d.RunToCompletion(context.Background(), rt)
	require.Nil(t, err)
	require.Equal(t, StatusCompleted, rt.Status)
	b, _ := rt.CallStack[0].lookup("name")
	assert.Equal(t, "ada", b.Value.Text)
}

func TestDriver_RunToCompletion_ToolRound(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.ToolRegistry.Register(&echoTool{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.ModelDeclaration{Name: "m", Tools: []string{"echo"}},
		&ast.LetDeclaration{Name: "out", Type: "text", Init: &ast.VibeExpression{
			Keyword: "do",
			Prompt:  &ast.StringLiteral{Value: "echo something"},
			Model:   "m",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})

	d := &Driver{Provider: &fakeProvider{responses: []provider.Response{
		{StopReason: "tool_use", ToolCalls: []provider.ToolCall{{ID: "1", Name: "echo", Arguments: json.RawMessage(`{"msg":"hi"}`)}}},
		{Content: "done", StopReason: "stop"},
	}}}
	err := d.RunToCompletion(context.Background(), rt)
	require.Nil(t, err, "%v", err)
	require.Equal(t, StatusCompleted, rt.Status)
	b, _ := rt.CallStack[0].lookup("out")
	assert.Equal(t, "done", b.Value.Text)
}

// echoTool is a minimal tool.Tool used to exercise driveTool dispatch.
type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(tool.Param{Name: "msg", Type: "text", Required: true})
}
func (echoTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	return tool.Result{Output: args}, nil
}

var _ = hosteval.Request{}
