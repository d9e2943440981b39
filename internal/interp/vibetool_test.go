package interp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/hosteval"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/value"
)

// TestVibeTool_TsBodyDispatchesThroughHostEvaluator exercises a tool whose
// entire body is a ts(...) block, wiring its host-eval suspension through
// the parent runtime's evaluator instead of rejecting it.
func TestVibeTool_TsBodyDispatchesThroughHostEvaluator(t *testing.T) {
	evaluator := hosteval.NewEvaluator()
	if !evaluator.Runtime.IsTsxReady() {
		t.Skip("skipping: no tsx-capable Node.js runtime on PATH")
	}

	decl := &ast.ToolDeclaration{
		Name:        "randomNumber",
		Description: "returns a fixed number",
		Params: []ast.Param{
			{Name: "min", Type: "number"},
			{Name: "max", Type: "number"},
		},
		ReturnType: "number",
		Body:       &ast.TsBlock{Params: []string{"min", "max"}, Body: "return 42"},
	}

	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.HostEval = evaluator
	vt := NewVibeTool(decl, rt)

	result, err := vt.Execute(context.Background(), json.RawMessage(`{"min":1,"max":100}`))
	require.NoError(t, err)
	require.Empty(t, result.Err)
	assert.JSONEq(t, "42", string(result.Output))
}

// TestVibeTool_BlockBodyWithTsStatementDispatches covers the shape from the
// mandatory scenario: a tool body that is a statement block containing a
// single `return ts(...)` statement.
func TestVibeTool_BlockBodyWithTsStatementDispatches(t *testing.T) {
	evaluator := hosteval.NewEvaluator()
	if !evaluator.Runtime.IsTsxReady() {
		t.Skip("skipping: no tsx-capable Node.js runtime on PATH")
	}

	decl := &ast.ToolDeclaration{
		Name:       "randomNumber",
		Params:     []ast.Param{{Name: "min", Type: "number"}, {Name: "max", Type: "number"}},
		ReturnType: "number",
		Body: &ast.BlockStatement{Statements: []ast.Node{
			&ast.ReturnStatement{Value: &ast.TsBlock{Params: []string{"min", "max"}, Body: "return 42"}},
		}},
	}

	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.HostEval = evaluator
	vt := NewVibeTool(decl, rt)

	result, err := vt.Execute(context.Background(), json.RawMessage(`{"min":1,"max":100}`))
	require.NoError(t, err)
	require.Empty(t, result.Err)
	assert.JSONEq(t, "42", string(result.Output))
}

// TestVibeTool_NestedAICallRejected keeps the one remaining restriction: a
// tool body may not itself suspend on do/vibe/ask.
func TestVibeTool_NestedAICallRejected(t *testing.T) {
	decl := &ast.ToolDeclaration{
		Name:       "asksAI",
		ReturnType: "text",
		Body: &ast.BlockStatement{Statements: []ast.Node{
			&ast.ReturnStatement{Value: &ast.VibeExpression{
				Keyword: "do",
				Prompt:  &ast.StringLiteral{Value: "hi"},
				Model:   "m",
				Context: ast.ContextKind{Kind: "default"},
			}},
		}},
	}

	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.Models["m"] = &ModelConfig{Name: "m", Fields: map[string]value.Value{}}
	vt := NewVibeTool(decl, rt)

	result, err := vt.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, result.Err, "do/vibe/ask")
}
