package interp

import (
	"regexp"
	"strings"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/value"
	"github.com/vibelang/vibe/internal/verr"
)

// evalPureExpr evaluates an expression that cannot suspend: everything
// except VibeExpression, AskExpression, TsBlock, and CallExpression
// (calls may invoke a function whose body does suspend, so calls are
// lowered to explicit instructions instead — see lower.go).
func (rt *Runtime) evalPureExpr(node ast.Node) (value.Value, *verr.Error) {
	switch n := node.(type) {
	case *ast.StringLiteral:
		return value.Text(n.Value), nil
	case *ast.NumberLiteral:
		return value.Number(n.Value), nil
	case *ast.BooleanLiteral:
		return value.Bool(n.Value), nil
	case *ast.NullLiteral:
		return value.Null(), nil
	case *ast.TemplateLiteral:
		return rt.evalTemplateRaw(n.Raw, n)
	case *ast.Identifier:
		return rt.resolveIdentifier(n)
	case *ast.ArrayLiteral:
		return rt.evalArrayLiteral(n)
	case *ast.ObjectLiteral:
		return rt.evalObjectLiteral(n)
	case *ast.BinaryExpression:
		return rt.evalBinary(n)
	case *ast.UnaryExpression:
		return rt.evalUnary(n)
	case *ast.MemberExpression:
		return rt.evalMember(n)
	case *ast.IndexExpression:
		return rt.evalIndex(n)
	case *ast.RangeExpression:
		return rt.evalRange(n)
	default:
		return value.Value{}, verr.New(verr.KindInternal, node.Loc(), "expression kind %T cannot be evaluated as a pure expression", node)
	}
}

func (rt *Runtime) resolveIdentifier(n *ast.Identifier) (value.Value, *verr.Error) {
	if b, ok := rt.currentFrame().lookup(n.Name); ok {
		return b.Value, nil
	}
	if len(rt.CallStack) > 0 {
		if b, ok := rt.CallStack[0].lookup(n.Name); ok {
			return b.Value, nil
		}
	}
	if m, ok := rt.Models[n.Name]; ok {
		return value.Value{Type: value.Type{Base: value.KindModel}, Opaque: m}, nil
	}
	if _, ok := rt.Functions[n.Name]; ok {
		return value.Value{Type: value.Type{Base: value.KindAny}, Opaque: n.Name}, nil
	}
	return value.Value{}, verr.New(verr.KindReference, n.Loc(), "undefined identifier %q", n.Name)
}

func (rt *Runtime) evalArrayLiteral(n *ast.ArrayLiteral) (value.Value, *verr.Error) {
	elems := make([]value.Value, len(n.Elements))
	elemBase := value.KindAny
	elemDepth := 0
	for i, e := range n.Elements {
		v, err := rt.evalPureExpr(e)
		if err != nil {
			return value.Value{}, err
		}
		elems[i] = v
		if i == 0 {
			elemBase, elemDepth = v.Type.Base, v.Type.Depth
		}
	}
	return value.Value{Type: value.Type{Base: elemBase, Depth: elemDepth + 1}, Array: elems}, nil
}

func (rt *Runtime) evalObjectLiteral(n *ast.ObjectLiteral) (value.Value, *verr.Error) {
	obj := make(map[string]any, len(n.Fields))
	for _, f := range n.Fields {
		v, err := rt.evalPureExpr(f.Value)
		if err != nil {
			return value.Value{}, err
		}
		obj[f.Key] = value.ToJSON(v)
	}
	return value.JSONObject(obj), nil
}

func (rt *Runtime) evalRange(n *ast.RangeExpression) (value.Value, *verr.Error) {
	start, err := rt.evalPureExpr(n.Start)
	if err != nil {
		return value.Value{}, err
	}
	end, err := rt.evalPureExpr(n.End)
	if err != nil {
		return value.Value{}, err
	}
	if start.Type.Base != value.KindNumber || end.Type.Base != value.KindNumber {
		return value.Value{}, verr.New(verr.KindType, n.Loc(), "range bounds must be numbers")
	}
	lo, hi := int(start.Number), int(end.Number)
	var elems []value.Value
	if n.Inclusive {
		for i := lo; i <= hi; i++ {
			elems = append(elems, value.Number(float64(i)))
		}
	} else {
		for i := lo; i < hi; i++ {
			elems = append(elems, value.Number(float64(i)))
		}
	}
	return value.Array(value.KindNumber, 0, elems), nil
}

func (rt *Runtime) evalMember(n *ast.MemberExpression) (value.Value, *verr.Error) {
	obj, err := rt.evalPureExpr(n.Object)
	if err != nil {
		return value.Value{}, err
	}
	if obj.Type.Base != value.KindJSON {
		return value.Value{}, verr.New(verr.KindType, n.Loc(), "cannot access property %q of non-json value", n.Property)
	}
	raw, ok := obj.JSON[n.Property]
	if !ok {
		return value.Null(), nil
	}
	return fromPlainJSON(raw), nil
}

func (rt *Runtime) evalIndex(n *ast.IndexExpression) (value.Value, *verr.Error) {
	obj, err := rt.evalPureExpr(n.Object)
	if err != nil {
		return value.Value{}, err
	}
	idx, err := rt.evalPureExpr(n.Index)
	if err != nil {
		return value.Value{}, err
	}
	if !obj.Type.IsArray() {
		return value.Value{}, verr.New(verr.KindType, n.Loc(), "cannot index a non-array value")
	}
	if idx.Type.Base != value.KindNumber {
		return value.Value{}, verr.New(verr.KindType, n.Loc(), "array index must be a number")
	}
	i := int(idx.Number)
	if i < 0 || i >= len(obj.Array) {
		return value.Value{}, verr.New(verr.KindType, n.Loc(), "array index %d out of bounds (length %d)", i, len(obj.Array))
	}
	return obj.Array[i], nil
}

// fromPlainJSON lifts a json.Unmarshal-shaped `any` back into a Value,
// used when reading fields out of a KindJSON payload.
func fromPlainJSON(raw any) value.Value {
	switch t := raw.(type) {
	case string:
		return value.Text(t)
	case float64:
		return value.Number(t)
	case bool:
		return value.Bool(t)
	case nil:
		return value.Null()
	case map[string]any:
		return value.JSONObject(t)
	case []any:
		elems := make([]value.Value, len(t))
		for i, e := range t {
			elems[i] = fromPlainJSON(e)
		}
		base := value.KindAny
		if len(elems) > 0 {
			base = elems[0].Type.Base
		}
		return value.Array(base, 0, elems)
	default:
		return value.Null()
	}
}

func (rt *Runtime) evalUnary(n *ast.UnaryExpression) (value.Value, *verr.Error) {
	v, err := rt.evalPureExpr(n.Operand)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case "!":
		if v.Type.Base != value.KindBoolean {
			return value.Value{}, verr.New(verr.KindType, n.Loc(), "operator ! requires a boolean operand")
		}
		return value.Bool(!v.Bool), nil
	case "-":
		if v.Type.Base != value.KindNumber {
			return value.Value{}, verr.New(verr.KindType, n.Loc(), "unary - requires a number operand")
		}
		return value.Number(-v.Number), nil
	default:
		return value.Value{}, verr.New(verr.KindInternal, n.Loc(), "unknown unary operator %q", n.Op)
	}
}

func (rt *Runtime) evalBinary(n *ast.BinaryExpression) (value.Value, *verr.Error) {
	left, err := rt.evalPureExpr(n.Left)
	if err != nil {
		return value.Value{}, err
	}

	if n.Op == "&&" {
		if left.Type.Base != value.KindBoolean {
			return value.Value{}, verr.New(verr.KindType, n.Loc(), "operator && requires boolean operands")
		}
		if !left.Bool {
			return value.Bool(false), nil
		}
		right, err := rt.evalPureExpr(n.Right)
		if err != nil {
			return value.Value{}, err
		}
		return right, nil
	}
	if n.Op == "||" {
		if left.Type.Base != value.KindBoolean {
			return value.Value{}, verr.New(verr.KindType, n.Loc(), "operator || requires boolean operands")
		}
		if left.Bool {
			return value.Bool(true), nil
		}
		right, err := rt.evalPureExpr(n.Right)
		if err != nil {
			return value.Value{}, err
		}
		return right, nil
	}

	right, err := rt.evalPureExpr(n.Right)
	if err != nil {
		return value.Value{}, err
	}

	switch n.Op {
	case "+":
		if left.Type.Base == value.KindNumber && right.Type.Base == value.KindNumber {
			return value.Number(left.Number + right.Number), nil
		}
		return value.Text(stringifyOperand(left) + stringifyOperand(right)), nil
	case "-", "*", "/", "%":
		if left.Type.Base != value.KindNumber || right.Type.Base != value.KindNumber {
			return value.Value{}, verr.New(verr.KindType, n.Loc(), "operator %s requires numeric operands", n.Op)
		}
		switch n.Op {
		case "-":
			return value.Number(left.Number - right.Number), nil
		case "*":
			return value.Number(left.Number * right.Number), nil
		case "/":
			if right.Number == 0 {
				return value.Value{}, verr.New(verr.KindType, n.Loc(), "division by zero")
			}
			return value.Number(left.Number / right.Number), nil
		case "%":
			if right.Number == 0 {
				return value.Value{}, verr.New(verr.KindType, n.Loc(), "modulo by zero")
			}
			return value.Number(float64(int(left.Number) % int(right.Number))), nil
		}
	case "==":
		return value.Bool(valuesEqual(left, right)), nil
	case "!=":
		return value.Bool(!valuesEqual(left, right)), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(n, left, right)
	}
	return value.Value{}, verr.New(verr.KindInternal, n.Loc(), "unknown binary operator %q", n.Op)
}

func compareOrdered(n *ast.BinaryExpression, left, right value.Value) (value.Value, *verr.Error) {
	var cmp int
	switch {
	case left.Type.Base == value.KindNumber && right.Type.Base == value.KindNumber:
		switch {
		case left.Number < right.Number:
			cmp = -1
		case left.Number > right.Number:
			cmp = 1
		}
	case (left.Type.Base == value.KindText || left.Type.Base == value.KindPrompt) &&
		(right.Type.Base == value.KindText || right.Type.Base == value.KindPrompt):
		cmp = strings.Compare(left.Text, right.Text)
	default:
		return value.Value{}, verr.New(verr.KindType, n.Loc(), "operator %s requires two numbers or two strings", n.Op)
	}
	switch n.Op {
	case "<":
		return value.Bool(cmp < 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	case ">=":
		return value.Bool(cmp >= 0), nil
	}
	return value.Value{}, verr.New(verr.KindInternal, n.Loc(), "unreachable comparison operator %q", n.Op)
}

func valuesEqual(a, b value.Value) bool {
	if a.Type.Base != b.Type.Base || a.Type.Depth != b.Type.Depth {
		return false
	}
	switch a.Type.Base {
	case value.KindNumber:
		return a.Number == b.Number
	case value.KindBoolean:
		return a.Bool == b.Bool
	case value.KindText, value.KindPrompt:
		return a.Text == b.Text
	case value.KindNull:
		return true
	default:
		am, _ := value.MarshalJSON(a)
		bm, _ := value.MarshalJSON(b)
		return am == bm
	}
}

func stringifyOperand(v value.Value) string {
	switch v.Type.Base {
	case value.KindText, value.KindPrompt:
		return v.Text
	default:
		s, _ := value.MarshalJSON(v)
		return s
	}
}

var interpPlaceholder = regexp.MustCompile(`\$?\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// evalTemplateRaw resolves {name}/{name.field} placeholders (each also
// accepted with a leading "$", as ${name}) in raw
// template text, per the interpolate instruction (spec §4.F). Each
// placeholder is looked up as an identifier in the current scope, then
// recursively through any `.field` JSON member accesses. loc is used
// only to tag errors with a source location.
func (rt *Runtime) evalTemplateRaw(raw string, loc ast.Node) (value.Value, *verr.Error) {
	var outerErr *verr.Error
	result := interpPlaceholder.ReplaceAllStringFunc(raw, func(match string) string {
		if outerErr != nil {
			return ""
		}
		path := interpPlaceholder.FindStringSubmatch(match)[1]
		parts := strings.Split(path, ".")
		v, err := rt.resolveIdentifier(&ast.Identifier{Name: parts[0]})
		if err != nil {
			outerErr = err
			return ""
		}
		for _, field := range parts[1:] {
			if v.Type.Base != value.KindJSON {
				outerErr = verr.New(verr.KindType, loc.Loc(), "cannot access %q on non-json value in template", field)
				return ""
			}
			raw, ok := v.JSON[field]
			if !ok {
				v = value.Null()
				continue
			}
			v = fromPlainJSON(raw)
		}
		return stringifyOperand(v)
	})
	if outerErr != nil {
		return value.Value{}, outerErr
	}
	return value.Text(result), nil
}

// textForPrompt renders v the way a prompt/text-context expression does,
// used by the ai_call and ts_eval reducers to build the prompt string and
// host-code argument values.
func textForPrompt(v value.Value) string {
	return stringifyOperand(v)
}
