package interp

import (
	"fmt"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/value"
)

var destructureCounter int

func nextDestructureTemp() string {
	destructureCounter++
	return fmt.Sprintf("__destructure_%d", destructureCounter)
}

// Load registers the program's top-level declarations and lowers its
// statements onto the entry frame's instruction stack (spec §4.F
// lowering strategy).
func Load(rt *Runtime, prog *ast.Program) {
	entry := newFrame("<entry>", 0)
	rt.CallStack = []*Frame{entry}

	registerDeclarations(rt, prog.Statements)
	RegisterVibeTools(rt)

	var instrs []Instr
	for _, stmt := range prog.Statements {
		instrs = append(instrs, lowerStatement(stmt)...)
	}
	rt.push(instrs...)
}

// registerDeclarations walks top-level statements once, registering
// functions/tools/models so forward references resolve regardless of
// source order.
func registerDeclarations(rt *Runtime, stmts []ast.Node) {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *ast.FunctionDeclaration:
			rt.Functions[n.Name] = n
		case *ast.ToolDeclaration:
			rt.ToolDecls[n.Name] = n
		case *ast.ModelDeclaration:
			rt.Models[n.Name] = &ModelConfig{Name: n.Name, Fields: map[string]value.Value{}, Tools: n.Tools}
			for _, f := range n.Fields {
				v, err := rt.evalPureExpr(f.Value)
				if err == nil {
					rt.Models[n.Name].Fields[f.Name] = v
				}
			}
		case *ast.ExportDeclaration:
			registerDeclarations(rt, []ast.Node{n.Decl})
		}
	}
}

// lowerBlock wraps a block's statements in push_scope/pop_scope so block
//-local declarations shadow outer scope and don't leak past the block.
func lowerBlock(b *ast.BlockStatement) []Instr {
	if b == nil {
		return nil
	}
	out := []Instr{{Kind: KPushScope, Node: b}}
	for _, s := range b.Statements {
		out = append(out, lowerStatement(s)...)
	}
	out = append(out, Instr{Kind: KPopScope, Node: b})
	return out
}

func lowerStatement(node ast.Node) []Instr {
	switch n := node.(type) {
	case *ast.LetDeclaration:
		return lowerDeclaration(n.Name, n.Type, n.Init, false, node)
	case *ast.ConstDeclaration:
		return lowerDeclaration(n.Name, n.Type, n.Init, true, node)
	case *ast.DestructuringDeclaration:
		return lowerDestructuring(n)
	case *ast.FunctionDeclaration, *ast.ToolDeclaration, *ast.ModelDeclaration:
		return nil // registered up front by registerDeclarations
	case *ast.ImportDeclaration:
		return nil // module resolution happens before this package ever sees the program
	case *ast.ExportDeclaration:
		return lowerStatement(n.Decl)
	case *ast.ExpressionStatement:
		instrs := lowerExprInstrs(n.Expr, "")
		return append(instrs, Instr{Kind: KDiscard, Node: n})
	case *ast.ReturnStatement:
		if n.Value == nil {
			return []Instr{{Kind: KRet, Node: n, HasInit: false}}
		}
		instrs := lowerExprInstrs(n.Value, "")
		return append(instrs, Instr{Kind: KRet, Node: n, HasInit: true})
	case *ast.IfStatement:
		elseInstrs := lowerElse(n.Else)
		return []Instr{{
			Kind:     KJumpIfNot,
			Node:     n,
			CondNode: n.Cond,
			Then:     lowerBlock(n.Then),
			Else:     elseInstrs,
		}}
	case *ast.WhileStatement:
		return []Instr{{Kind: KLoopWhile, Node: n, CondNode: n.Cond, WhileBody: n.Body}}
	case *ast.ForInStatement:
		return []Instr{{Kind: KLoopForIn, Node: n, LoopVar: n.VarName, IterNode: n.Iterable, ForInBody: n.Body}}
	case *ast.BlockStatement:
		return lowerBlock(n)
	default:
		// Unknown statement kinds lower to nothing rather than panicking;
		// the analyzer stage (outside this module) is responsible for
		// rejecting malformed programs before they reach the interpreter.
		return nil
	}
}

func lowerElse(n ast.Node) []Instr {
	switch e := n.(type) {
	case nil:
		return nil
	case *ast.BlockStatement:
		return lowerBlock(e)
	case *ast.IfStatement:
		return lowerStatement(e)
	default:
		return nil
	}
}

func lowerDeclaration(name, typeAnnot string, init ast.Node, isConst bool, node ast.Node) []Instr {
	declInstr := Instr{Kind: KDeclareResult, Node: node, Name: name, TypeAnnot: typeAnnot, IsConst: isConst}
	if init == nil {
		declInstr.HasInit = false
		return []Instr{declInstr}
	}
	declInstr.HasInit = true
	instrs := lowerExprInstrs(init, typeAnnot)
	return append(instrs, declInstr)
}

func lowerDestructuring(n *ast.DestructuringDeclaration) []Instr {
	tmp := nextDestructureTemp()
	out := lowerExprInstrs(n.Init, "")
	out = append(out, Instr{Kind: KDeclareResult, Node: n, Name: tmp, TypeAnnot: "json", IsConst: true, HasInit: true})
	for i, name := range n.Names {
		typ := ""
		if i < len(n.Types) {
			typ = n.Types[i]
		}
		member := &ast.MemberExpression{Object: &ast.Identifier{Name: tmp}, Property: name}
		out = append(out, Instr{Kind: KExecExpression, Node: member})
		out = append(out, Instr{Kind: KDeclareResult, Node: n, Name: name, TypeAnnot: typ, IsConst: n.IsConst, HasInit: true})
	}
	return out
}

// lowerExprInstrs lowers an expression used in value position (a let/
// const initializer, an assignment's value, a bare expression
// statement, a call argument, or an array/object literal element).
// declaredType is the nearest enclosing declaration's type annotation,
// threaded down so a direct ai_call/user_prompt/ts_eval child knows what
// structured output to request; it is "" everywhere else.
func lowerExprInstrs(node ast.Node, declaredType string) []Instr {
	switch n := node.(type) {
	case *ast.VibeExpression:
		return []Instr{{
			Kind:         KAICall,
			Node:         n,
			Keyword:      n.Keyword,
			PromptNode:   n.Prompt,
			ContextKind:  n.Context,
			ModelName:    n.Model,
			DeclaredType: declaredType,
		}}
	case *ast.AskExpression:
		return []Instr{{Kind: KUserPrompt, Node: n, PromptNode: n.Prompt, DeclaredType: declaredType}}
	case *ast.TsBlock:
		return []Instr{{Kind: KTsEval, Node: n, TSParams: n.Params, TSBody: n.Body, DeclaredType: declaredType}}
	case *ast.CallExpression:
		var out []Instr
		for _, a := range n.Args {
			out = append(out, lowerExprInstrs(a, "")...)
			out = append(out, Instr{Kind: KPushResult, Node: a})
		}
		out = append(out, Instr{Kind: KCall, Node: n, Callee: n.Callee, Count: len(n.Args)})
		return out
	case *ast.AssignmentExpression:
		out := lowerExprInstrs(n.Value, "")
		out = append(out, Instr{Kind: KAssign, Node: n, Target: n.Target})
		return out
	case *ast.ArrayLiteral:
		var out []Instr
		for _, e := range n.Elements {
			out = append(out, lowerExprInstrs(e, "")...)
			out = append(out, Instr{Kind: KPushResult, Node: e})
		}
		out = append(out, Instr{Kind: KMaterializeArray, Node: n, Count: len(n.Elements)})
		return out
	case *ast.ObjectLiteral:
		var out []Instr
		keys := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			out = append(out, lowerExprInstrs(f.Value, "")...)
			out = append(out, Instr{Kind: KPushResult, Node: f.Value})
			keys[i] = f.Key
		}
		out = append(out, Instr{Kind: KMaterializeObject, Node: n, Count: len(n.Fields), Keys: keys})
		return out
	case *ast.TemplateLiteral:
		return []Instr{{Kind: KInterpolate, Node: n, Template: n.Raw}}
	default:
		return []Instr{{Kind: KExecExpression, Node: n}}
	}
}
