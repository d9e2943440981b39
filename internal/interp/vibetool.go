package interp

import (
	"context"
	"encoding/json"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/hosteval"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/value"
	"github.com/vibelang/vibe/internal/vctx"
)

// VibeTool adapts a Vibe `tool` declaration (spec §4.C "declared kind") to
// the tool.Tool interface so it can sit in the same registry as the native
// builtins and be dispatched identically by an ai_call round.
//
// Simplification: a Vibe tool's body must not itself suspend on do/vibe/ask
// (no nested AI calls or interactive prompts). A ts(...) body is fine — its
// host evaluation is driven synchronously inside Execute, the same way
// Driver.driveTS drives one at the top level — so tool dispatch still never
// needs to thread a second suspension back through the provider round.
type VibeTool struct {
	Decl   *ast.ToolDeclaration
	Parent *Runtime
	Schema json.RawMessage
}

// RegisterVibeTools registers every Vibe-defined `tool` declaration
// collected during lowering into rt.ToolRegistry, so ai_call rounds can
// dispatch to them exactly like a native builtin.
func RegisterVibeTools(rt *Runtime) {
	for _, decl := range rt.ToolDecls {
		rt.ToolRegistry.Register(NewVibeTool(decl, rt))
	}
}

// NewVibeTool builds a VibeTool, deriving its JSON Schema from the
// declaration's typed parameter list via tool.BuildSchema.
func NewVibeTool(decl *ast.ToolDeclaration, parent *Runtime) *VibeTool {
	params := make([]tool.Param, len(decl.Params))
	for i, p := range decl.Params {
		params[i] = tool.Param{Name: p.Name, Type: p.Type, Required: true}
	}
	return &VibeTool{Decl: decl, Parent: parent, Schema: tool.BuildSchema(params...)}
}

func (t *VibeTool) Name() string                 { return t.Decl.Name }
func (t *VibeTool) Description() string          { return t.Decl.Description }
func (t *VibeTool) InputSchema() json.RawMessage { return t.Schema }

// Execute binds args into a fresh call frame (sharing the parent's
// functions/models/tool registry) and runs the declared body to
// completion via a synchronous sub-Runtime.
func (t *VibeTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var raw map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &raw); err != nil {
			return tool.Result{Err: "invalid arguments: " + err.Error()}, nil
		}
	}

	sub := &Runtime{
		Status:       StatusRunning,
		ToolRegistry: t.Parent.ToolRegistry,
		HostEval:     t.Parent.HostEval,
		Functions:    t.Parent.Functions,
		ToolDecls:    t.Parent.ToolDecls,
		Models:       t.Parent.Models,
		Options:      t.Parent.Options,
	}
	frame := newFrame(t.Decl.Name, 0)
	for _, p := range t.Decl.Params {
		hostVal, ok := raw[p.Name]
		v := fromPlainJSON(hostVal)
		if !ok {
			v = value.Null()
		}
		typ, err := sub.resolveBindType(p.Type, v, t.Decl)
		if err != nil {
			return tool.Result{Err: err.Error()}, nil
		}
		validated, verrVal := value.ValidateValue(v, typ)
		if verrVal != nil {
			return tool.Result{Err: verrVal.Error()}, nil
		}
		frame.declare(p.Name, &Binding{Value: validated, Type: typ})
		frame.Log.Append(vctx.Entry{Kind: vctx.EntryVariable, Name: p.Name, Value: validated, Type: typ, Source: vctx.SourceCode})
	}
	sub.CallStack = []*Frame{frame}

	var bodyInstrs []Instr
	switch body := t.Decl.Body.(type) {
	case *ast.BlockStatement:
		bodyInstrs = lowerBlock(body)
	case *ast.TsBlock:
		// A bare ts(...) body stands in for `return ts(...) { ... }`.
		bodyInstrs = lowerExprInstrs(body, t.Decl.ReturnType)
		bodyInstrs = append(bodyInstrs, Instr{Kind: KRet, Node: body, HasInit: true})
	default:
		return tool.Result{Err: "tool body is neither a statement block nor a ts(...) block"}, nil
	}
	sub.push(append(bodyInstrs, Instr{Kind: KLeaveFrame, Node: t.Decl})...)

	sub.Run()
	for sub.Status == StatusAwaitingTS {
		pt := sub.PendingTS
		result, failure := t.Parent.HostEval.Eval(ctx, hosteval.Request{Params: pt.Params, ParamValues: pt.ParamValues, Body: pt.Body})
		if failure != nil {
			sub.ResumeWithTsValue(nil, failure.Error())
		} else {
			sub.ResumeWithTsValue(result.Value, "")
		}
		sub.Run()
	}
	if sub.Status == StatusFailed {
		return tool.Result{Err: sub.Err.Error()}, nil
	}
	if sub.Status != StatusCompleted {
		return tool.Result{Err: "tool body suspended on do/vibe/ask, which Vibe tools may not do"}, nil
	}

	out, err := json.Marshal(value.ToJSON(frame.ReturnValue))
	if err != nil {
		return tool.Result{Err: err.Error()}, nil
	}
	return tool.Result{Output: out}, nil
}
