package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/value"
)

func newTestRuntime() *Runtime {
	rt := NewRuntime(tool.NewRegistry(), Options{})
	rt.CallStack = []*Frame{newFrame("<entry>", 0)}
	return rt
}

func TestEvalPureExpr_Literals(t *testing.T) {
	rt := newTestRuntime()

	v, err := rt.evalPureExpr(&ast.StringLiteral{Value: "hi"})
	require.Nil(t, err)
	assert.Equal(t, "hi", v.Text)

	v, err = rt.evalPureExpr(&ast.NumberLiteral{Value: 3})
	require.Nil(t, err)
	assert.Equal(t, float64(3), v.Number)

	v, err = rt.evalPureExpr(&ast.BooleanLiteral{Value: true})
	require.Nil(t, err)
	assert.True(t, v.Bool)

	v, err = rt.evalPureExpr(&ast.NullLiteral{})
	require.Nil(t, err)
	assert.Equal(t, value.KindNull, v.Type.Base)
}

func TestEvalPureExpr_Identifier(t *testing.T) {
	rt := newTestRuntime()
	rt.currentFrame().declare("x", &Binding{Value: value.Number(42), Type: value.Type{Base: value.KindNumber}})

	v, err := rt.evalPureExpr(&ast.Identifier{Name: "x"})
	require.Nil(t, err)
	assert.Equal(t, float64(42), v.Number)

	_, err = rt.evalPureExpr(&ast.Identifier{Name: "undefined_var"})
	require.NotNil(t, err)
	assert.Equal(t, "reference", string(err.Kind))
}

func TestEvalBinary_ArithmeticAndComparison(t *testing.T) {
	rt := newTestRuntime()
	add := &ast.BinaryExpression{Op: "+", Left: &ast.NumberLiteral{Value: 2}, Right: &ast.NumberLiteral{Value: 3}}
	v, err := rt.evalPureExpr(add)
	require.Nil(t, err)
	assert.Equal(t, float64(5), v.Number)

	concat := &ast.BinaryExpression{Op: "+", Left: &ast.StringLiteral{Value: "a"}, Right: &ast.StringLiteral{Value: "b"}}
	v, err = rt.evalPureExpr(concat)
	require.Nil(t, err)
	assert.Equal(t, "ab", v.Text)

	lt := &ast.BinaryExpression{Op: "<", Left: &ast.NumberLiteral{Value: 1}, Right: &ast.NumberLiteral{Value: 2}}
	v, err = rt.evalPureExpr(lt)
	require.Nil(t, err)
	assert.True(t, v.Bool)

	divZero := &ast.BinaryExpression{Op: "/", Left: &ast.NumberLiteral{Value: 1}, Right: &ast.NumberLiteral{Value: 0}}
	_, err = rt.evalPureExpr(divZero)
	require.NotNil(t, err)
}

func TestEvalBinary_ShortCircuit(t *testing.T) {
	rt := newTestRuntime()
	and := &ast.BinaryExpression{Op: "&&", Left: &ast.BooleanLiteral{Value: false}, Right: &ast.Identifier{Name: "nope"}}
	v, err := rt.evalPureExpr(and)
	require.Nil(t, err)
	assert.False(t, v.Bool)

	or := &ast.BinaryExpression{Op: "||", Left: &ast.BooleanLiteral{Value: true}, Right: &ast.Identifier{Name: "nope"}}
	v, err = rt.evalPureExpr(or)
	require.Nil(t, err)
	assert.True(t, v.Bool)
}

func TestEvalArrayAndIndex(t *testing.T) {
	rt := newTestRuntime()
	arr := &ast.ArrayLiteral{Elements: []ast.Node{
		&ast.NumberLiteral{Value: 10},
		&ast.NumberLiteral{Value: 20},
	}}
	v, err := rt.evalPureExpr(arr)
	require.Nil(t, err)
	assert.Len(t, v.Array, 2)
	assert.True(t, v.Type.IsArray())

	rt.currentFrame().declare("xs", &Binding{Value: v, Type: v.Type})
	idx := &ast.IndexExpression{Object: &ast.Identifier{Name: "xs"}, Index: &ast.NumberLiteral{Value: 1}}
	elem, err := rt.evalPureExpr(idx)
	require.Nil(t, err)
	assert.Equal(t, float64(20), elem.Number)

	oob := &ast.IndexExpression{Object: &ast.Identifier{Name: "xs"}, Index: &ast.NumberLiteral{Value: 9}}
	_, err = rt.evalPureExpr(oob)
	require.NotNil(t, err)
}

func TestEvalObjectAndMember(t *testing.T) {
	rt := newTestRuntime()
	obj := &ast.ObjectLiteral{Fields: []ast.ObjectField{
		{Key: "name", Value: &ast.StringLiteral{Value: "vibe"}},
	}}
	v, err := rt.evalPureExpr(obj)
	require.Nil(t, err)
	assert.Equal(t, value.KindJSON, v.Type.Base)

	rt.currentFrame().declare("o", &Binding{Value: v, Type: v.Type})
	member := &ast.MemberExpression{Object: &ast.Identifier{Name: "o"}, Property: "name"}
	field, err := rt.evalPureExpr(member)
	require.Nil(t, err)
	assert.Equal(t, "vibe", field.Text)

	missing := &ast.MemberExpression{Object: &ast.Identifier{Name: "o"}, Property: "missing"}
	field, err = rt.evalPureExpr(missing)
	require.Nil(t, err)
	assert.Equal(t, value.KindNull, field.Type.Base)
}

func TestEvalRange(t *testing.T) {
	rt := newTestRuntime()
	r := &ast.RangeExpression{Start: &ast.NumberLiteral{Value: 1}, End: &ast.NumberLiteral{Value: 3}, Inclusive: true}
	v, err := rt.evalPureExpr(r)
	require.Nil(t, err)
	assert.Len(t, v.Array, 3)
	assert.Equal(t, float64(1), v.Array[0].Number)
	assert.Equal(t, float64(3), v.Array[2].Number)
}

func TestEvalTemplateRaw_Interpolation(t *testing.T) {
	rt := newTestRuntime()
	rt.currentFrame().declare("name", &Binding{Value: value.Text("world"), Type: value.Type{Base: value.KindText}})
	v, err := rt.evalTemplateRaw("hello {name}!", &ast.TemplateLiteral{})
	require.Nil(t, err)
	assert.Equal(t, "hello world!", v.Text)
}

func TestEvalTemplateRaw_MemberPath(t *testing.T) {
	rt := newTestRuntime()
	rt.currentFrame().declare("user", &Binding{Value: value.JSONObject(map[string]any{"name": "ada"}), Type: value.Type{Base: value.KindJSON}})
	v, err := rt.evalTemplateRaw("hi {user.name}", &ast.TemplateLiteral{})
	require.Nil(t, err)
	assert.Equal(t, "hi ada", v.Text)
}
