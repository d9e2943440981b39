// Package interp implements the Vibe interpreter core (spec §4.F): an
// instruction-stack state machine that lowers an ast.Program into a stack
// of small typed instructions and steps through them one reduction at a
// time, suspending whenever it needs an AI response, user input, a tool
// result, or a host-code (ts_eval) result, and resuming once the caller
// supplies one. Apart from VibeTool.Execute (which runs a Vibe tool's
// ts(...) body through the runtime's HostEval evaluator) and the Driver,
// the package performs no I/O itself — every external
// effect is represented as a Pending* value the caller must fulfil and
// feed back through a ResumeWith* method, mirroring the teacher's
// internal/core generic Prep/Exec/Post node lifecycle but generalized
// from a single synchronous Exec to an externally-driven suspend point.
package interp

import (
	"encoding/json"

	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/hosteval"
	"github.com/vibelang/vibe/internal/provider"
	"github.com/vibelang/vibe/internal/tool"
	"github.com/vibelang/vibe/internal/value"
	"github.com/vibelang/vibe/internal/vctx"
	"github.com/vibelang/vibe/internal/verr"
)

// Status is one of the runtime's seven lifecycle states (spec §3).
type Status string

const (
	StatusRunning      Status = "running"
	StatusAwaitingAI   Status = "awaiting_ai"
	StatusAwaitingUser Status = "awaiting_user"
	StatusAwaitingTool Status = "awaiting_tool"
	StatusAwaitingTS   Status = "awaiting_ts"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Binding is a variable's current slot: its value, declared type, and
// const-ness (const enforcement lives in Frame.Log.ConstWriteCount, which
// counts code/ai/tool-sourced writes against invariant 5).
type Binding struct {
	Value   value.Value
	Type    value.Type
	IsConst bool
}

// Frame is one call frame: a block-scope stack (innermost scope last, for
// shadowing) plus the ordered context log the frame accumulates.
type Frame struct {
	Log    *vctx.Frame
	Scopes []map[string]*Binding
	Tools  *tool.Registry // frame-local view; nil uses the program-wide registry

	Returning   bool
	ReturnValue value.Value
}

func newFrame(name string, depth int) *Frame {
	return &Frame{
		Log:    &vctx.Frame{Name: name, Depth: depth},
		Scopes: []map[string]*Binding{make(map[string]*Binding)},
	}
}

func (f *Frame) pushScope() { f.Scopes = append(f.Scopes, make(map[string]*Binding)) }

func (f *Frame) popScope() {
	if len(f.Scopes) > 1 {
		f.Scopes = f.Scopes[:len(f.Scopes)-1]
	}
}

func (f *Frame) declare(name string, b *Binding) {
	f.Scopes[len(f.Scopes)-1][name] = b
}

func (f *Frame) lookup(name string) (*Binding, bool) {
	for i := len(f.Scopes) - 1; i >= 0; i-- {
		if b, ok := f.Scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// ModelConfig is the resolved value of a `model` declaration: a provider
// binding plus the field values supplied in source (spec §4.A KindModel).
type ModelConfig struct {
	Name   string
	Fields map[string]value.Value
	Tools  []string
}

// PendingAI is the suspended state of an in-flight AI round (ai_call).
// The caller executes one provider.Request and feeds the response back
// through ResumeWithAIResponse.
type PendingAI struct {
	Request    provider.Request
	TargetType value.Type
	HasTarget  bool
	ToolsView  *tool.Registry

	Keyword string // "do" | "vibe"
	Prompt  string

	RoundCount     int
	ToolCalls      []value.ToolCall   // accumulated across rounds, for the ai_result value
	RemainingTools []provider.ToolCall // tool calls from the current AI response not yet dispatched
	CurrentTool    *provider.ToolCall  // the one awaiting a ResumeWithToolResult
}

// PendingToolCall is one AI-requested tool invocation awaiting dispatch.
type PendingToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// PendingUser is a suspended `ask` expression awaiting interactive input.
type PendingUser struct {
	Prompt     string
	TargetType value.Type
	HasTarget  bool
}

// PendingTS is a suspended ts(...) block awaiting host evaluation.
type PendingTS struct {
	Params      []string
	ParamValues []any
	Body        string
	TargetType  value.Type
	HasTarget   bool
}

// Options configures bounds on the interpreter's internal loops.
type Options struct {
	MaxToolRounds int // default 16, per spec §9's resolved Open Question
}

func (o Options) withDefaults() Options {
	if o.MaxToolRounds <= 0 {
		o.MaxToolRounds = 16
	}
	return o
}

// Runtime is the full interpreter state (spec §3 "Runtime state"). It is
// the unit of serialization a host would snapshot to persist a paused
// program, though this implementation only exposes it in memory.
type Runtime struct {
	Status Status

	CallStack  []*Frame
	InstrStack []Instr

	LastResult value.Value
	ValueStack []value.Value // operand stack for array/object literals and call arguments

	PendingAI   *PendingAI
	PendingTool *PendingToolCall
	PendingUser *PendingUser
	PendingTS   *PendingTS

	ToolRegistry *tool.Registry

	// HostEval lets a Vibe-defined tool (vibetool.go) resolve a ts(...)
	// body synchronously inside its own Execute, the same evaluator the
	// Driver uses for top-level ts(...) suspensions.
	HostEval *hosteval.Evaluator

	Functions map[string]*ast.FunctionDeclaration
	ToolDecls map[string]*ast.ToolDeclaration
	Models    map[string]*ModelConfig

	ExecutionLog []string

	Options Options
	Err     *verr.Error
}

// NewRuntime builds a Runtime ready to load a program via Load.
func NewRuntime(registry *tool.Registry, opts Options) *Runtime {
	return &Runtime{
		Status:       StatusRunning,
		ToolRegistry: registry,
		Functions:    make(map[string]*ast.FunctionDeclaration),
		ToolDecls:    make(map[string]*ast.ToolDeclaration),
		Models:       make(map[string]*ModelConfig),
		Options:      opts.withDefaults(),
	}
}

// currentFrame returns the innermost call frame.
func (rt *Runtime) currentFrame() *Frame { return rt.CallStack[len(rt.CallStack)-1] }

// push appends instructions so the first slice element runs next (LIFO
// push in reverse order), matching the "pushed in reverse order for
// left-to-right evaluation" lowering strategy (spec §4.F).
func (rt *Runtime) push(instrs ...Instr) {
	for i := len(instrs) - 1; i >= 0; i-- {
		rt.InstrStack = append(rt.InstrStack, instrs[i])
	}
}

func (rt *Runtime) pop() (Instr, bool) {
	n := len(rt.InstrStack)
	if n == 0 {
		return Instr{}, false
	}
	in := rt.InstrStack[n-1]
	rt.InstrStack = rt.InstrStack[:n-1]
	return in, true
}

func (rt *Runtime) pushValue(v value.Value) { rt.ValueStack = append(rt.ValueStack, v) }

func (rt *Runtime) popValue() value.Value {
	n := len(rt.ValueStack)
	v := rt.ValueStack[n-1]
	rt.ValueStack = rt.ValueStack[:n-1]
	return v
}

func (rt *Runtime) popValues(n int) []value.Value {
	start := len(rt.ValueStack) - n
	out := append([]value.Value(nil), rt.ValueStack[start:]...)
	rt.ValueStack = rt.ValueStack[:start]
	return out
}

func (rt *Runtime) fail(err *verr.Error) {
	rt.Err = err
	rt.Status = StatusFailed
}

func (rt *Runtime) log(msg string) {
	rt.ExecutionLog = append(rt.ExecutionLog, msg)
}

// localContext builds the localContext view (innermost frame only).
func (rt *Runtime) localContext() vctx.View {
	return vctx.Local(rt.frameLogs())
}

// globalContext builds the globalContext view (every frame, call order).
func (rt *Runtime) globalContext() vctx.View {
	return vctx.Global(rt.frameLogs())
}

func (rt *Runtime) frameLogs() []vctx.Frame {
	out := make([]vctx.Frame, len(rt.CallStack))
	for i, f := range rt.CallStack {
		out[i] = *f.Log
	}
	return out
}

// variableContext renders the `variable(name)` context kind: the named
// binding's value, stringified (array values concatenated per element).
func (rt *Runtime) variableContext(name string) (string, bool) {
	b, ok := rt.currentFrame().lookup(name)
	if !ok {
		return "", false
	}
	return vctx.VariableConcat(b.Value), true
}

func (rt *Runtime) toolsForFrame() *tool.Registry {
	if f := rt.currentFrame(); f.Tools != nil {
		return f.Tools
	}
	return rt.ToolRegistry
}
