package interp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/provider"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/value"
)

func TestAICall_TextResult_SuspendsThenResumes(t *testing.T) {
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
	rt.Run()
	require.Equal(t, StatusAwaitingAI, rt.Status)
	require.NotNil(t, rt.PendingAI)
	assert.Equal(t, "say hi", rt.PendingAI.Request.Messages[1].Content)

	rerr := rt.ResumeWithAIResponse(provider.Response{Content: "hi there", StopReason: "stop"})
	require.Nil(t, rerr)
	rt.Run()
	require.Equal(t, StatusCompleted, rt.Status, "%v", rt.Err)

	b, ok := rt.CallStack[0].lookup("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi there", b.Value.Text)
}

func TestAICall_StructuredTarget(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.ModelDeclaration{Name: "m"},
		&ast.LetDeclaration{Name: "score", Type: "number", Init: &ast.VibeExpression{
			Keyword: "do",
			Prompt:  &ast.StringLiteral{Value: "rate this 1-10"},
			Model:   "m",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})
	rt.Run()
	require.Equal(t, StatusAwaitingAI, rt.Status)
	require.NotNil(t, rt.PendingAI.Request.ResponseSchema)

	rerr := rt.ResumeWithAIResponse(provider.Response{ParsedValue: json.RawMessage(`7`), StopReason: "stop"})
	require.Nil(t, rerr)
	rt.Run()
	require.Equal(t, StatusCompleted, rt.Status, "%v", rt.Err)

	b, _ := rt.CallStack[0].lookup("score")
	assert.Equal(t, float64(7), b.Value.Number)
}

func TestAICall_ToolRound_ThenFinalAnswer(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.ModelDeclaration{Name: "m", Tools: []string{"lookup"}},
		&ast.LetDeclaration{Name: "out", Type: "text", Init: &ast.VibeExpression{
			Keyword: "vibe",
			Prompt:  &ast.StringLiteral{Value: "look something up"},
			Model:   "m",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})
	rt.Run()
	require.Equal(t, StatusAwaitingAI, rt.Status)

	toolCall := provider.ToolCall{ID: "call-1", Name: "lookup", Arguments: json.RawMessage(`{"q":"vibe"}`)}
	rerr := rt.ResumeWithAIResponse(provider.Response{ToolCalls: []provider.ToolCall{toolCall}, StopReason: "tool_use"})
	require.Nil(t, rerr)
	rt.Run()
	require.Equal(t, StatusAwaitingTool, rt.Status)
	require.NotNil(t, rt.PendingTool)
	assert.Equal(t, "lookup", rt.PendingTool.Name)

	rerr = rt.ResumeWithToolResult(ToolOutcome{Output: json.RawMessage(`{"found":true}`)})
	require.Nil(t, rerr)
	rt.Run()
	require.Equal(t, StatusAwaitingAI, rt.Status)

	rerr = rt.ResumeWithAIResponse(provider.Response{Content: "done", StopReason: "stop"})
	require.Nil(t, rerr)
	rt.Run()
	require.Equal(t, StatusCompleted, rt.Status, "%v", rt.Err)

	b, _ := rt.CallStack[0].lookup("out")
	assert.Equal(t, "done", b.Value.Text)
}

func TestAICall_UndefinedModelFailsWithReferenceError(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.LetDeclaration{Name: "greeting", Type: "text", Init: &ast.VibeExpression{
			Keyword: "do",
			Prompt:  &ast.StringLiteral{Value: "hi"},
			Model:   "notAModel",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})
	rt.Run()
	require.Equal(t, StatusFailed, rt.Status)
	require.Equal(t, "reference", string(rt.Err.Kind))
}

func TestAICall_NonModelIdentifierFailsWithTypeError(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.CallStack = []*Frame{newFrame("<entry>", 0)}
	rt.CallStack[0].declare("notAModel", &Binding{Value: value.Text("plain text"), Type: value.Type{Base: value.KindText}})
	instrs := lowerDeclaration("greeting", "text", &ast.VibeExpression{
		Keyword: "do",
		Prompt:  &ast.StringLiteral{Value: "hi"},
		Model:   "notAModel",
		Context: ast.ContextKind{Kind: "default"},
	}, false, &ast.LetDeclaration{})
	rt.push(instrs...)
	rt.Run()
	require.Equal(t, StatusFailed, rt.Status)
	require.Equal(t, "type", string(rt.Err.Kind))
}

func TestAICall_RequestToolsFilteredToModelBinding(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.ToolRegistry.Register(&echoTool{})
	rt.ToolRegistry.Register(&noopTool{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.ModelDeclaration{Name: "m", Tools: []string{"echo"}},
		&ast.LetDeclaration{Name: "out", Type: "text", Init: &ast.VibeExpression{
			Keyword: "do",
			Prompt:  &ast.StringLiteral{Value: "hi"},
			Model:   "m",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})
	rt.Run()
	require.Equal(t, StatusAwaitingAI, rt.Status)
	names := make([]string, len(rt.PendingAI.Request.Tools))
	for i, d := range rt.PendingAI.Request.Tools {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"echo"}, names)
}

type noopTool struct{}

func (noopTool) Name() string                 { return "noop" }
func (noopTool) Description() string          { return "does nothing" }
func (noopTool) InputSchema() json.RawMessage { return tool.BuildSchema() }
func (noopTool) Execute(context.Context, json.RawMessage) (tool.Result, error) {
	return tool.Result{}, nil
}

func TestAICall_ExceedsMaxToolRoundsFails(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{MaxToolRounds: 1})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.ModelDeclaration{Name: "m", Tools: []string{"noop"}},
		&ast.ExpressionStatement{Expr: &ast.VibeExpression{
			Keyword: "do",
			Prompt:  &ast.StringLiteral{Value: "loop forever"},
			Model:   "m",
			Context: ast.ContextKind{Kind: "default"},
		}},
	}})
	rt.Run()
	toolCall := provider.ToolCall{ID: "c1", Name: "noop", Arguments: json.RawMessage(`{}`)}

	require.Nil(t, rt.ResumeWithAIResponse(provider.Response{ToolCalls: []provider.ToolCall{toolCall}, StopReason: "tool_use"}))
	rt.Run()
	require.Nil(t, rt.ResumeWithToolResult(ToolOutcome{Output: json.RawMessage(`{}`)}))
	rt.Run()
	require.Equal(t, StatusAwaitingAI, rt.Status)

	rerr := rt.ResumeWithAIResponse(provider.Response{ToolCalls: []provider.ToolCall{toolCall}, StopReason: "tool_use"})
	require.NotNil(t, rerr)
	assert.Equal(t, "ai", string(rerr.Kind))
}

func TestUserPrompt_SuspendsThenResumes(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	Load(rt, &ast.Program{Statements: []ast.Node{
		&ast.LetDeclaration{Name: "name", Type: "text", Init: &ast.AskExpression{Prompt: &ast.StringLiteral{Value: "your name?"}}},
	}})
	rt.Run()
	require.Equal(t, StatusAwaitingUser, rt.Status)
	require.Equal(t, "your name?", rt.PendingUser.Prompt)

	require.Nil(t, rt.ResumeWithUserInput("ada"))
	rt.Run()
	require.Equal(t, StatusCompleted, rt.Status, "%v", rt.Err)
	b, _ := rt.CallStack[0].lookup("name")
	assert.Equal(t, "ada", b.Value.Text)
}

func TestTsEval_SuspendsThenResumes(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.CallStack = []*Frame{newFrame("<entry>", 0)}
	rt.CallStack[0].declare("base", &Binding{Value: value.Number(4), Type: value.Type{Base: value.KindNumber}})

	instrs := lowerDeclaration("squared", "number", &ast.TsBlock{Params: []string{"base"}, Body: "return base*base"}, false, &ast.LetDeclaration{})
	rt.push(instrs...)
	rt.Run()
	require.Equal(t, StatusAwaitingTS, rt.Status)
	require.Equal(t, []any{float64(4)}, rt.PendingTS.ParamValues)

	require.Nil(t, rt.ResumeWithTsValue(json.RawMessage(`16`), ""))
	rt.Run()
	require.Equal(t, StatusCompleted, rt.Status, "%v", rt.Err)
	b, _ := rt.CallStack[0].lookup("squared")
	assert.Equal(t, float64(16), b.Value.Number)
}

func TestTsEval_FailureFailsProgram(t *testing.T) {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.CallStack = []*Frame{newFrame("<entry>", 0)}
	instrs := lowerDeclaration("x", "", &ast.TsBlock{Body: "throw new Error('boom')"}, false, &ast.LetDeclaration{})
	rt.push(instrs...)
	rt.Run()
	require.Equal(t, StatusAwaitingTS, rt.Status)

	rerr := rt.ResumeWithTsValue(nil, "boom")
	require.NotNil(t, rerr)
	require.Equal(t, StatusFailed, rt.Status)
}
