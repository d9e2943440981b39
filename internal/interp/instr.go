package interp

import (
	"github.com/vibelang/vibe/internal/ast"
	"github.com/vibelang/vibe/internal/value"
)

// InstrKind discriminates the interpreter's instruction vocabulary
// (spec §4.F). Each kind carries only the Instr fields its reducer in
// step.go reads; the rest are zero.
type InstrKind string

const (
	KExecStatement     InstrKind = "exec_statement"
	KExecExpression    InstrKind = "exec_expression"
	KBindLet           InstrKind = "bind_let"
	KAssign            InstrKind = "assign"
	KCall              InstrKind = "call"
	KRet               InstrKind = "ret"
	KPushScope         InstrKind = "push_scope"
	KPopScope          InstrKind = "pop_scope"
	KEnterFrame        InstrKind = "enter_frame"
	KLeaveFrame        InstrKind = "leave_frame"
	KJumpIfNot         InstrKind = "jump_if_not"
	KLoopWhile         InstrKind = "loop_while"
	KLoopForIn         InstrKind = "loop_for_in"
	KAICall            InstrKind = "ai_call"
	KUserPrompt        InstrKind = "user_prompt"
	KToolDispatch      InstrKind = "tool_dispatch"
	KTsEval            InstrKind = "ts_eval"
	KMaterializeArray  InstrKind = "materialize_array"
	KMaterializeObject InstrKind = "materialize_object"
	KInterpolate       InstrKind = "interpolate"

	// Internal bookkeeping kinds. Not named in the spec vocabulary, but
	// needed to sequence a multi-step reduction (store-then-continue)
	// without resorting to Go-level recursion, which would block a
	// suspension buried inside a sub-expression.
	KDeclareResult InstrKind = "declare_result" // binds LastResult under Name/TypeAnnot/IsConst
	KAssignResult  InstrKind = "assign_result"  // stores LastResult into Target
	KPushResult    InstrKind = "push_result"    // pushes LastResult onto the value stack
	KDiscard       InstrKind = "discard"        // drops LastResult (bare expression statements)
	KLoadConst     InstrKind = "load_const"     // sets LastResult to a pre-computed value (for-in loop variable)
)

// Instr is a single instruction-stack entry: a flat discriminated union
// rather than an interface-per-kind hierarchy. Every reducer in step.go
// is a plain function over *Runtime and an Instr value, which keeps the
// stack a plain []Instr (copyable, inspectable) instead of boxed
// interfaces.
type Instr struct {
	Kind InstrKind
	Node ast.Node // originating AST node, for location-tagged errors

	// bind_let / declare_result
	Name      string
	TypeAnnot string // "" = untyped/inferred
	IsConst   bool
	HasInit   bool

	// assign / assign_result
	Target ast.Node

	// push_scope/pop_scope, enter_frame/leave_frame
	FrameName string

	// jump_if_not: Then/Else are the pre-lowered continuations; the
	// reducer evaluates CondNode synchronously (conditions never suspend)
	// and pushes whichever continuation applies.
	CondNode ast.Node
	Then     []Instr
	Else     []Instr

	// loop_while: re-pushes itself after Body when CondNode still holds.
	WhileBody *ast.BlockStatement

	// loop_for_in: IterNode is evaluated once, synchronously, on first
	// entry (iterables never suspend); IterValues/IterStarted track the
	// remaining elements across re-pushed continuations.
	LoopVar     string
	IterNode    ast.Node
	ForInBody   *ast.BlockStatement
	IterStarted bool
	IterValues  []value.Value

	// call: arguments are pushed onto the value stack by preceding
	// push_result instructions; Count says how many to pop.
	Callee ast.Node

	// materialize_array / materialize_object / call argument count
	Count int
	Keys  []string

	// load_const
	ConstValue value.Value

	// interpolate
	Template string

	// ai_call
	Keyword     string
	PromptNode  ast.Node
	ContextKind ast.ContextKind
	ModelName   string

	// ts_eval
	TSParams []string
	TSBody   string

	// DeclaredType is the type annotation of the let/const declaration
	// (or, for a Vibe tool's ts(...) body, the tool's return type) that
	// immediately wraps an ai_call/user_prompt/ts_eval instruction,
	// threaded down at lowering time so the reducer can request
	// schema-constrained structured output (spec §4.D). "" means no
	// target type was known at lowering time (an assignment or a bare
	// expression statement), and the reducer defaults to requesting text.
	DeclaredType string
}
