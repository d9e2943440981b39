package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeProgram_RoundTrip(t *testing.T) {
	prog := &Program{Statements: []Node{
		&LetDeclaration{Name: "x", Type: "number", Init: &NumberLiteral{Value: 42}},
		&IfStatement{
			Cond: &BinaryExpression{Op: "<", Left: &Identifier{Name: "x"}, Right: &NumberLiteral{Value: 10}},
			Then: &BlockStatement{Statements: []Node{
				&ExpressionStatement{Expr: &AssignmentExpression{Target: &Identifier{Name: "x"}, Value: &NumberLiteral{Value: 1}}},
			}},
			Else: &BlockStatement{Statements: []Node{
				&ReturnStatement{Value: &Identifier{Name: "x"}},
			}},
		},
		&FunctionDeclaration{
			Name:       "greet",
			Params:     []Param{{Name: "name", Type: "text"}},
			ReturnType: "text",
			Body: &BlockStatement{Statements: []Node{
				&ReturnStatement{Value: &TemplateLiteral{Raw: "hi {name}"}},
			}},
		},
		&ToolDeclaration{
			Name:        "echo",
			Description: "echoes input",
			Params:      []Param{{Name: "msg", Type: "text"}},
			ReturnType:  "text",
			Body:        &TsBlock{Params: []string{"msg"}, Body: "return msg"},
		},
		&ExpressionStatement{Expr: &VibeExpression{
			Keyword: "do",
			Prompt:  &StringLiteral{Value: "say hi"},
			Context: ContextKind{Kind: "variable", Variable: "x"},
			Target:  "text",
		}},
		&ExpressionStatement{Expr: &AskExpression{Prompt: &StringLiteral{Value: "your name?"}}},
	}}

	data, err := EncodeProgram(prog)
	require.NoError(t, err)

	decoded, err := DecodeProgram(data)
	require.NoError(t, err)
	require.Len(t, decoded.Statements, len(prog.Statements))

	let, ok := decoded.Statements[0].(*LetDeclaration)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
	assert.Equal(t, "number", let.Type)
	num, ok := let.Init.(*NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, float64(42), num.Value)

	ifStmt, ok := decoded.Statements[1].(*IfStatement)
	require.True(t, ok)
	require.NotNil(t, ifStmt.Else)
	elseBlock, ok := ifStmt.Else.(*BlockStatement)
	require.True(t, ok)
	require.Len(t, elseBlock.Statements, 1)

	fn, ok := decoded.Statements[2].(*FunctionDeclaration)
	require.True(t, ok)
	assert.Equal(t, "greet", fn.Name)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "name", fn.Params[0].Name)

	tool, ok := decoded.Statements[3].(*ToolDeclaration)
	require.True(t, ok)
	tsBody, ok := tool.Body.(*TsBlock)
	require.True(t, ok)
	assert.Equal(t, "return msg", tsBody.Body)

	vibeStmt, ok := decoded.Statements[4].(*ExpressionStatement)
	require.True(t, ok)
	vibe, ok := vibeStmt.Expr.(*VibeExpression)
	require.True(t, ok)
	assert.Equal(t, "do", vibe.Keyword)
	assert.Equal(t, "variable", vibe.Context.Kind)
	assert.Equal(t, "x", vibe.Context.Variable)

	askStmt, ok := decoded.Statements[5].(*ExpressionStatement)
	require.True(t, ok)
	ask, ok := askStmt.Expr.(*AskExpression)
	require.True(t, ok)
	prompt, ok := ask.Prompt.(*StringLiteral)
	require.True(t, ok)
	assert.Equal(t, "your name?", prompt.Value)
}

func TestDecodeProgram_UnknownNodeType(t *testing.T) {
	_, err := DecodeProgram([]byte(`{"type":"Program","statements":[{"type":"Bogus"}]}`))
	require.Error(t, err)
}
