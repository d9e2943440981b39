package interp

import (
	"encoding/json"
	"fmt"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/provider"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/value"
	"github.com/vibelang/vibe/internal/vctx"
	"github.com/vibelang/vibe/internal/verr"
)

// Run steps the interpreter until it suspends (status moves away from
// running), completes, or fails. It is safe to call again after a
// ResumeWith* call transitions status back to running.
func (rt *Runtime) Run() {
	for rt.Status == StatusRunning {
		in, ok := rt.pop()
		if !ok {
			if len(rt.CallStack) <= 1 {
				rt.Status = StatusCompleted
			} else {
				// Safety net: an unbalanced call stack with no remaining
				// instructions should not happen if lowering is correct.
				rt.CallStack = rt.CallStack[:1]
				rt.Status = StatusCompleted
			}
			return
		}
		if err := rt.reduce(in); err != nil {
			rt.fail(err)
			return
		}
	}
}

func (rt *Runtime) reduce(in Instr) *verr.Error {
	switch in.Kind {
	case KPushScope:
		rt.currentFrame().pushScope()
	case KPopScope:
		rt.currentFrame().popScope()
	case KDiscard:
		// LastResult is intentionally left in place; nothing consumes it.
	case KPushResult:
		rt.pushValue(rt.LastResult)
	case KLoadConst:
		rt.LastResult = in.ConstValue
	case KExecExpression:
		v, err := rt.evalPureExpr(in.Node)
		if err != nil {
			return err
		}
		rt.LastResult = v
	case KInterpolate:
		v, err := rt.evalTemplateRaw(in.Template, in.Node)
		if err != nil {
			return err
		}
		rt.LastResult = v
	case KMaterializeArray:
		return rt.reduceMaterializeArray(in)
	case KMaterializeObject:
		return rt.reduceMaterializeObject(in)
	case KDeclareResult:
		return rt.reduceDeclare(in)
	case KAssign:
		return rt.reduceAssign(in)
	case KCall:
		return rt.reduceCall(in)
	case KLeaveFrame:
		return rt.reduceLeaveFrame(in)
	case KRet:
		return rt.reduceReturn(in)
	case KJumpIfNot:
		return rt.reduceJumpIfNot(in)
	case KLoopWhile:
		return rt.reduceLoopWhile(in)
	case KLoopForIn:
		return rt.reduceLoopForIn(in)
	case KAICall:
		return rt.reduceAICall(in)
	case KUserPrompt:
		return rt.reduceUserPrompt(in)
	case KTsEval:
		return rt.reduceTsEval(in)
	default:
		return verr.New(verr.KindInternal, in.Node.Loc(), "unhandled instruction kind %q", in.Kind)
	}
	return nil
}

func (rt *Runtime) reduceMaterializeArray(in Instr) *verr.Error {
	elems := rt.popValues(in.Count)
	base, depth := value.KindAny, 0
	if len(elems) > 0 {
		base, depth = elems[0].Type.Base, elems[0].Type.Depth
	}
	rt.LastResult = value.Value{Type: value.Type{Base: base, Depth: depth + 1}, Array: elems}
	return nil
}

func (rt *Runtime) reduceMaterializeObject(in Instr) *verr.Error {
	elems := rt.popValues(in.Count)
	obj := make(map[string]any, len(elems))
	for i, k := range in.Keys {
		if i < len(elems) {
			obj[k] = value.ToJSON(elems[i])
		}
	}
	rt.LastResult = value.JSONObject(obj)
	return nil
}

func sourceOfDecl(node ast.Node) vctx.Source {
	var init ast.Node
	switch n := node.(type) {
	case *ast.LetDeclaration:
		init = n.Init
	case *ast.ConstDeclaration:
		init = n.Init
	default:
		return vctx.SourceCode
	}
	switch init.(type) {
	case *ast.VibeExpression:
		return vctx.SourceAI
	case *ast.TsBlock:
		return vctx.SourceTool
	default:
		return vctx.SourceCode
	}
}

func (rt *Runtime) reduceDeclare(in Instr) *verr.Error {
	var v value.Value
	if in.HasInit {
		v = rt.LastResult
	} else {
		v = value.Null()
	}

	typ, err := rt.resolveBindType(in.TypeAnnot, v, in.Node)
	if err != nil {
		return err
	}
	validated, verrVal := value.ValidateValue(v, typ)
	if verrVal != nil {
		return verr.Wrap(verr.KindType, in.Node.Loc(), verrVal, "cannot bind %q: %v", in.Name, verrVal)
	}

	f := rt.currentFrame()
	f.declare(in.Name, &Binding{Value: validated, Type: typ, IsConst: in.IsConst})
	f.Log.Append(vctx.Entry{
		Kind:    vctx.EntryVariable,
		Name:    in.Name,
		Value:   validated,
		Type:    typ,
		IsConst: in.IsConst,
		Source:  sourceOfDecl(in.Node),
	})
	return nil
}

func (rt *Runtime) resolveBindType(annot string, v value.Value, loc ast.Node) (value.Type, *verr.Error) {
	if annot == "" {
		if t, ok := value.InferFromHostValue(v); ok {
			return t, nil
		}
		return v.Type, nil
	}
	t, err := value.ParseType(annot)
	if err != nil {
		return value.Type{}, verr.Wrap(verr.KindType, loc.Loc(), err, "invalid type annotation %q", annot)
	}
	return t, nil
}

func (rt *Runtime) reduceAssign(in Instr) *verr.Error {
	v := rt.LastResult
	assignExpr, _ := in.Node.(*ast.AssignmentExpression)

	switch t := in.Target.(type) {
	case *ast.Identifier:
		b, ok := rt.currentFrame().lookup(t.Name)
		if !ok {
			b, ok = rt.CallStack[0].lookup(t.Name)
		}
		if !ok {
			return verr.New(verr.KindReference, t.Loc(), "undefined identifier %q", t.Name)
		}
		if b.IsConst && rt.currentFrame().Log.ConstWriteCount(t.Name) >= 1 {
			return verr.New(verr.KindType, t.Loc(), "cannot assign to const %q", t.Name)
		}
		validated, verrVal := value.ValidateValue(v, b.Type)
		if verrVal != nil {
			return verr.Wrap(verr.KindType, t.Loc(), verrVal, "cannot assign to %q: %v", t.Name, verrVal)
		}
		b.Value = validated
		source := vctx.SourceCode
		if assignExpr != nil {
			switch assignExpr.Value.(type) {
			case *ast.VibeExpression:
				source = vctx.SourceAI
			case *ast.TsBlock:
				source = vctx.SourceTool
			}
		}
		rt.currentFrame().Log.Append(vctx.Entry{Kind: vctx.EntryVariable, Name: t.Name, Value: validated, Type: b.Type, IsConst: b.IsConst, Source: source})
		return nil

	case *ast.MemberExpression:
		ident, ok := t.Object.(*ast.Identifier)
		if !ok {
			return verr.New(verr.KindInternal, t.Loc(), "assignment to a computed object expression is not supported")
		}
		b, ok := rt.currentFrame().lookup(ident.Name)
		if !ok {
			return verr.New(verr.KindReference, t.Loc(), "undefined identifier %q", ident.Name)
		}
		if b.Value.Type.Base != value.KindJSON {
			return verr.New(verr.KindType, t.Loc(), "cannot assign a property on a non-json value")
		}
		if b.Value.JSON == nil {
			b.Value.JSON = map[string]any{}
		}
		b.Value.JSON[t.Property] = value.ToJSON(v)
		rt.currentFrame().Log.Append(vctx.Entry{Kind: vctx.EntryVariable, Name: ident.Name, Value: b.Value, Type: b.Type, IsConst: b.IsConst, Source: vctx.SourceCode})
		return nil

	case *ast.IndexExpression:
		ident, ok := t.Object.(*ast.Identifier)
		if !ok {
			return verr.New(verr.KindInternal, t.Loc(), "assignment to a computed array expression is not supported")
		}
		b, ok := rt.currentFrame().lookup(ident.Name)
		if !ok {
			return verr.New(verr.KindReference, t.Loc(), "undefined identifier %q", ident.Name)
		}
		idx, err := rt.evalPureExpr(t.Index)
		if err != nil {
			return err
		}
		if !b.Value.Type.IsArray() || idx.Type.Base != value.KindNumber {
			return verr.New(verr.KindType, t.Loc(), "index assignment requires an array and a numeric index")
		}
		i := int(idx.Number)
		if i < 0 || i >= len(b.Value.Array) {
			return verr.New(verr.KindType, t.Loc(), "array index %d out of bounds (length %d)", i, len(b.Value.Array))
		}
		b.Value.Array[i] = v
		rt.currentFrame().Log.Append(vctx.Entry{Kind: vctx.EntryVariable, Name: ident.Name, Value: b.Value, Type: b.Type, IsConst: b.IsConst, Source: vctx.SourceCode})
		return nil

	default:
		return verr.New(verr.KindInternal, in.Node.Loc(), "unsupported assignment target %T", in.Target)
	}
}

func (rt *Runtime) reduceCall(in Instr) *verr.Error {
	args := rt.popValues(in.Count)
	ident, ok := in.Callee.(*ast.Identifier)
	if !ok {
		return verr.New(verr.KindInternal, in.Node.Loc(), "only named function calls are supported")
	}
	fn, ok := rt.Functions[ident.Name]
	if !ok {
		return verr.New(verr.KindReference, ident.Loc(), "undefined function %q", ident.Name)
	}
	if len(args) != len(fn.Params) {
		return verr.New(verr.KindType, in.Node.Loc(), "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
	}

	childFrame := newFrame(fn.Name, len(rt.CallStack))
	for i, p := range fn.Params {
		typ, verr2 := rt.resolveBindType(p.Type, args[i], in.Node)
		if verr2 != nil {
			return verr2
		}
		validated, verrVal := value.ValidateValue(args[i], typ)
		if verrVal != nil {
			return verr.Wrap(verr.KindType, in.Node.Loc(), verrVal, "argument %q: %v", p.Name, verrVal)
		}
		childFrame.declare(p.Name, &Binding{Value: validated, Type: typ})
		childFrame.Log.Append(vctx.Entry{Kind: vctx.EntryVariable, Name: p.Name, Value: validated, Type: typ, Source: vctx.SourceCode})
	}

	rt.CallStack = append(rt.CallStack, childFrame)
	body := lowerBlock(fn.Body)
	combined := append(body, Instr{Kind: KLeaveFrame, Node: fn})
	rt.push(combined...)
	return nil
}

func (rt *Runtime) reduceLeaveFrame(_ Instr) *verr.Error {
	f := rt.currentFrame()
	ret := f.ReturnValue
	if !f.Returning {
		ret = value.Null()
	}
	if len(rt.CallStack) > 1 {
		rt.CallStack = rt.CallStack[:len(rt.CallStack)-1]
	}
	rt.LastResult = ret
	return nil
}

func (rt *Runtime) reduceReturn(in Instr) *verr.Error {
	f := rt.currentFrame()
	if in.HasInit {
		f.ReturnValue = rt.LastResult
	} else {
		f.ReturnValue = value.Null()
	}
	f.Returning = true

	for {
		top, ok := rt.pop()
		if !ok {
			return verr.New(verr.KindInternal, in.Node.Loc(), "return statement outside a function call")
		}
		if top.Kind == KLeaveFrame {
			rt.push(top)
			return nil
		}
	}
}

func (rt *Runtime) reduceJumpIfNot(in Instr) *verr.Error {
	cond, err := rt.evalPureExpr(in.CondNode)
	if err != nil {
		return err
	}
	if cond.Type.Base != value.KindBoolean {
		return verr.New(verr.KindType, in.CondNode.Loc(), "if condition must be a boolean")
	}
	if cond.Bool {
		rt.push(in.Then...)
	} else {
		rt.push(in.Else...)
	}
	return nil
}

func (rt *Runtime) reduceLoopWhile(in Instr) *verr.Error {
	cond, err := rt.evalPureExpr(in.CondNode)
	if err != nil {
		return err
	}
	if cond.Type.Base != value.KindBoolean {
		return verr.New(verr.KindType, in.CondNode.Loc(), "while condition must be a boolean")
	}
	if !cond.Bool {
		return nil
	}
	body := lowerBlock(in.WhileBody)
	continuation := Instr{Kind: KLoopWhile, Node: in.Node, CondNode: in.CondNode, WhileBody: in.WhileBody}
	combined := append(body, continuation)
	rt.push(combined...)
	return nil
}

func (rt *Runtime) reduceLoopForIn(in Instr) *verr.Error {
	values := in.IterValues
	if !in.IterStarted {
		iterVal, err := rt.evalPureExpr(in.IterNode)
		if err != nil {
			return err
		}
		if !iterVal.Type.IsArray() {
			return verr.New(verr.KindType, in.IterNode.Loc(), "for..in requires an array")
		}
		values = iterVal.Array
	}
	if len(values) == 0 {
		return nil
	}
	elem := values[0]
	rest := values[1:]

	continuation := Instr{Kind: KLoopForIn, Node: in.Node, LoopVar: in.LoopVar, IterNode: in.IterNode, ForInBody: in.ForInBody, IterStarted: true, IterValues: rest}

	out := []Instr{
		{Kind: KPushScope, Node: in.Node},
		{Kind: KLoadConst, Node: in.Node, ConstValue: elem},
		{Kind: KDeclareResult, Node: in.Node, Name: in.LoopVar, HasInit: true},
	}
	out = append(out, lowerBlock(in.ForInBody)...)
	out = append(out, Instr{Kind: KPopScope, Node: in.Node}, continuation)
	rt.push(out...)
	return nil
}

// ── ai_call ──

func schemaForValueType(t value.Type) json.RawMessage {
	var leaf map[string]any
	switch t.Base {
	case value.KindNumber:
		leaf = map[string]any{"type": "number"}
	case value.KindBoolean:
		leaf = map[string]any{"type": "boolean"}
	case value.KindJSON:
		leaf = map[string]any{"type": "object"}
	default:
		leaf = map[string]any{"type": "string"}
	}
	cur := leaf
	for i := 0; i < t.Depth; i++ {
		cur = map[string]any{"type": "array", "items": cur}
	}
	b, _ := json.Marshal(cur)
	return b
}

func (rt *Runtime) contextTextFor(ck ast.ContextKind) string {
	switch ck.Kind {
	case "local":
		return vctx.Format(rt.localContext(), "")
	case "variable":
		if text, ok := rt.variableContext(ck.Variable); ok {
			return text
		}
		return ""
	default:
		return vctx.Format(rt.globalContext(), "")
	}
}

func toProviderDefs(defs []tool.Definition) []provider.ToolDefinition {
	out := make([]provider.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = provider.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}

// filterToolDefs restricts defs to the names bound on the active model's
// `tools: [...]` config, so the AI request never sees the whole registry
// (spec §4.C/§4.D).
func filterToolDefs(defs []tool.Definition, names []string) []tool.Definition {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	out := make([]tool.Definition, 0, len(allowed))
	for _, d := range defs {
		if allowed[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

// resolveModel looks up modelName the same way an identifier resolves
// (local scope first, falling back to the program's top-level model
// declarations) and requires it to be bound to a model record.
func (rt *Runtime) resolveModel(name string, loc verr.Location) (*ModelConfig, *verr.Error) {
	if b, ok := rt.currentFrame().lookup(name); ok {
		m, ok := b.Value.Opaque.(*ModelConfig)
		if !ok || b.Value.Type.Base != value.KindModel {
			return nil, verr.New(verr.KindType, loc, "%q is not a model", name)
		}
		return m, nil
	}
	if m, ok := rt.Models[name]; ok {
		return m, nil
	}
	return nil, verr.New(verr.KindReference, loc, "undefined model %q", name)
}

func (rt *Runtime) reduceAICall(in Instr) *verr.Error {
	promptVal, err := rt.evalPureExpr(in.PromptNode)
	if err != nil {
		return err
	}
	promptText := textForPrompt(promptVal)
	contextText := rt.contextTextFor(in.ContextKind)

	model, err := rt.resolveModel(in.ModelName, in.Node.Loc())
	if err != nil {
		return err
	}

	targetType, hasTarget := resolveDeclaredTypeOptional(in.DeclaredType)

	// Text-like targets are read from the plain response content (see
	// resolveAIValue), so only the other typed targets request a schema.
	var schema json.RawMessage
	switch {
	case !hasTarget, targetType.Base == value.KindAny:
	case targetType.Base == value.KindText, targetType.Base == value.KindPrompt, targetType.Base == value.KindAIResult:
	default:
		schema = schemaForValueType(targetType)
	}

	toolsView := rt.toolsForFrame()
	req := provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: contextText},
			{Role: provider.RoleUser, Content: promptText},
		},
		Tools:          toProviderDefs(filterToolDefs(toolsView.Definitions(), model.Tools)),
		ResponseSchema: schema,
	}
	if name, ok := model.Fields["name"]; ok {
		req.Model = name.Text
	}

	rt.PendingAI = &PendingAI{
		Request:    req,
		TargetType: targetType,
		HasTarget:  hasTarget,
		ToolsView:  toolsView,
		Keyword:    in.Keyword,
		Prompt:     promptText,
	}
	rt.Status = StatusAwaitingAI
	return nil
}

func resolveDeclaredTypeOptional(annot string) (value.Type, bool) {
	if annot == "" {
		return value.Type{}, false
	}
	t, err := value.ParseType(annot)
	if err != nil {
		return value.Type{}, false
	}
	return t, true
}

// ResumeWithAIResponse feeds one provider round back into the runtime. If
// the response requests tool calls, the runtime suspends again as
// awaiting_tool for the first one; otherwise it parses the final value,
// stores it as LastResult (the following declare/assign instruction binds
// it), and returns to running.
func (rt *Runtime) ResumeWithAIResponse(resp provider.Response) *verr.Error {
	pa := rt.PendingAI
	if pa == nil || rt.Status != StatusAwaitingAI {
		return verr.New(verr.KindInternal, verr.Location{}, "resumeWithAIResponse called without a pending ai_call")
	}

	rt.currentFrame().Log.Append(vctx.Entry{Kind: vctx.EntryPrompt, AIType: pa.Keyword, Prompt: pa.Prompt})

	if resp.StopReason == "tool_use" && len(resp.ToolCalls) > 0 {
		pa.RoundCount++
		if pa.RoundCount > rt.Options.MaxToolRounds {
			rt.PendingAI = nil
			rerr := verr.New(verr.KindAI, verr.Location{}, "exceeded maximum of %d tool-calling rounds", rt.Options.MaxToolRounds)
			rt.fail(rerr)
			return rerr
		}
		pa.Request.Messages = append(pa.Request.Messages, provider.Message{Role: provider.RoleAssistant, ToolCalls: resp.ToolCalls})
		pa.RemainingTools = append([]provider.ToolCall(nil), resp.ToolCalls...)
		rt.dispatchNextPendingTool()
		return nil
	}

	v, verrVal := rt.resolveAIValue(resp, pa)
	if verrVal != nil {
		rt.PendingAI = nil
		rt.fail(verrVal)
		return verrVal
	}
	rt.LastResult = v
	rt.PendingAI = nil
	rt.Status = StatusRunning
	return nil
}

func (rt *Runtime) resolveAIValue(resp provider.Response, pa *PendingAI) (value.Value, *verr.Error) {
	if pa.HasTarget && pa.TargetType.Base == value.KindAIResult {
		return value.Value{Type: value.Type{Base: value.KindAIResult}, Text: resp.Content, ToolCalls: pa.ToolCalls}, nil
	}
	if !pa.HasTarget || pa.TargetType.Base == value.KindText || pa.TargetType.Base == value.KindPrompt {
		return value.Text(resp.Content), nil
	}
	if resp.ParsedValue == nil {
		return value.Value{}, verr.New(verr.KindAI, verr.Location{}, "provider returned no structured value for a %s target", pa.TargetType)
	}
	var raw any
	if err := json.Unmarshal(resp.ParsedValue, &raw); err != nil {
		return value.Value{}, verr.Wrap(verr.KindAI, verr.Location{}, err, "malformed structured output")
	}
	v := fromPlainJSON(raw)
	validated, verrVal := value.ValidateValue(v, pa.TargetType)
	if verrVal != nil {
		return value.Value{}, verr.Wrap(verr.KindAI, verr.Location{}, verrVal, "structured output did not match declared type")
	}
	return validated, nil
}

// dispatchNextPendingTool suspends as awaiting_tool for the next
// not-yet-dispatched tool call, or re-suspends as awaiting_ai for the
// next round if none remain.
func (rt *Runtime) dispatchNextPendingTool() {
	pa := rt.PendingAI
	if len(pa.RemainingTools) == 0 {
		rt.Status = StatusAwaitingAI
		return
	}
	next := pa.RemainingTools[0]
	pa.RemainingTools = pa.RemainingTools[1:]
	pa.CurrentTool = &next
	rt.PendingTool = &PendingToolCall{ID: next.ID, Name: next.Name, Args: next.Arguments}
	rt.Status = StatusAwaitingTool
}

// ResumeWithToolResult feeds one tool's outcome back into the pending AI
// round. Tool failures are recorded as an observation, never as a fatal
// program error (spec §7's ToolError policy).
func (rt *Runtime) ResumeWithToolResult(outcome ToolOutcome) *verr.Error {
	pa := rt.PendingAI
	if pa == nil || rt.Status != StatusAwaitingTool || pa.CurrentTool == nil {
		return verr.New(verr.KindInternal, verr.Location{}, "resumeWithToolResult called without a pending tool dispatch")
	}
	tc := *pa.CurrentTool
	pa.CurrentTool = nil

	rt.currentFrame().Log.Append(vctx.Entry{
		Kind:     vctx.EntryToolCall,
		ToolName: tc.Name,
		Args:     tc.Arguments,
		Result:   outcome.Output,
		ToolErr:  outcome.Err,
	})
	pa.ToolCalls = append(pa.ToolCalls, value.ToolCall{Name: tc.Name, Args: tc.Arguments, Result: outcome.Output, Err: outcome.Err})

	content := string(outcome.Output)
	if outcome.Err != "" {
		content = fmt.Sprintf("error: %s", outcome.Err)
	}
	pa.Request.Messages = append(pa.Request.Messages, provider.Message{
		Role:       provider.RoleTool,
		Content:    content,
		ToolCallID: tc.ID,
		Name:       tc.Name,
	})

	rt.PendingTool = nil
	rt.Status = StatusRunning
	rt.dispatchNextPendingTool()
	return nil
}

// ToolOutcome is the caller-supplied result of dispatching a PendingTool.
type ToolOutcome struct {
	Output json.RawMessage
	Err    string
}

// ── user_prompt ──

func (rt *Runtime) reduceUserPrompt(in Instr) *verr.Error {
	promptVal, err := rt.evalPureExpr(in.PromptNode)
	if err != nil {
		return err
	}
	targetType, hasTarget := resolveDeclaredTypeOptional(in.DeclaredType)
	rt.PendingUser = &PendingUser{Prompt: textForPrompt(promptVal), TargetType: targetType, HasTarget: hasTarget}
	rt.Status = StatusAwaitingUser
	return nil
}

// ResumeWithUserInput feeds interactive user input back into the runtime.
func (rt *Runtime) ResumeWithUserInput(text string) *verr.Error {
	pu := rt.PendingUser
	if pu == nil || rt.Status != StatusAwaitingUser {
		return verr.New(verr.KindInternal, verr.Location{}, "resumeWithUserInput called without a pending ask")
	}
	rt.currentFrame().Log.Append(vctx.Entry{Kind: vctx.EntryPrompt, AIType: "ask", Prompt: pu.Prompt})

	target := value.Type{Base: value.KindText}
	if pu.HasTarget {
		target = pu.TargetType
	}
	validated, verrVal := value.ValidateValue(value.Text(text), target)
	if verrVal != nil {
		rt.PendingUser = nil
		rerr := verr.Wrap(verr.KindType, verr.Location{}, verrVal, "user input did not match declared type")
		rt.fail(rerr)
		return rerr
	}
	rt.LastResult = validated
	rt.PendingUser = nil
	rt.Status = StatusRunning
	return nil
}

// ── ts_eval ──

func (rt *Runtime) reduceTsEval(in Instr) *verr.Error {
	paramValues := make([]any, 0, len(in.TSParams))
	for _, name := range in.TSParams {
		v, err := rt.resolveIdentifier(&ast.Identifier{Name: name})
		if err != nil {
			return err
		}
		paramValues = append(paramValues, value.ToJSON(v))
	}
	targetType, hasTarget := resolveDeclaredTypeOptional(in.DeclaredType)
	rt.PendingTS = &PendingTS{Params: in.TSParams, ParamValues: paramValues, Body: in.TSBody, TargetType: targetType, HasTarget: hasTarget}
	rt.Status = StatusAwaitingTS
	return nil
}

// ResumeWithTsValue feeds a host-code evaluation outcome back into the
// runtime. A non-empty failMsg fails the program (spec §4.E has no
// try/catch construct to recover from a host-code exception).
func (rt *Runtime) ResumeWithTsValue(raw json.RawMessage, failMsg string) *verr.Error {
	pt := rt.PendingTS
	if pt == nil || rt.Status != StatusAwaitingTS {
		return verr.New(verr.KindInternal, verr.Location{}, "resumeWithTsValue called without a pending ts_eval")
	}
	rt.PendingTS = nil
	if failMsg != "" {
		rerr := verr.New(verr.KindInternal, verr.Location{}, "ts_eval failed: %s", failMsg)
		rt.fail(rerr)
		return rerr
	}

	var decoded any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			rerr := verr.Wrap(verr.KindType, verr.Location{}, err, "malformed ts_eval result")
			rt.fail(rerr)
			return rerr
		}
	}
	v := fromPlainJSON(decoded)
	target := value.Type{Base: value.KindJSON}
	if pt.HasTarget {
		target = pt.TargetType
	} else if t, ok := value.InferFromHostValue(v); ok {
		target = t
	}
	validated, verrVal := value.ValidateValue(v, target)
	if verrVal != nil {
		rerr := verr.Wrap(verr.KindType, verr.Location{}, verrVal, "ts_eval result did not match declared type")
		rt.fail(rerr)
		return rerr
	}
	rt.LastResult = validated
	rt.Status = StatusRunning
	return nil
}
