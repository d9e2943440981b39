// Package ast defines the node kinds the runtime consumes. The lexer,
// parser, and semantic analyzer that produce an ast.Program are external
// collaborators (see spec §1, §6) — this package only fixes the shape of
// their output so the interpreter has something concrete to lower.
package ast

import "github.com/vibelang/vibe/internal/verr"

// Node is implemented by every AST node. Loc returns the node's source
// location, used for location-tagged runtime errors.
type Node interface {
	Loc() verr.Location
}

// base embeds into every concrete node to provide Loc() without repeating
// the three fields everywhere.
type base struct {
	File   string
	Line   int
	Column int
}

func (b base) Loc() verr.Location {
	return verr.Location{File: b.File, Line: b.Line, Column: b.Column}
}

// ── Program & statements ──

type Program struct {
	base
	Statements []Node
}

type LetDeclaration struct {
	base
	Name string
	Type string // annotation, "" = untyped/inferred
	Init Node   // expression, may be nil
}

type ConstDeclaration struct {
	base
	Name string
	Type string
	Init Node
}

type DestructuringDeclaration struct {
	base
	Names   []string
	Types   []string // parallel to Names; "" where unannotated
	IsConst bool
	Init    Node
}

type Param struct {
	Name string
	Type string
}

type FunctionDeclaration struct {
	base
	Name       string
	Params     []Param
	ReturnType string
	Body       *BlockStatement
}

// ToolDeclaration declares a callable tool exposed to the AI. Body is
// either a TsBlock or a sequence of Vibe statements (BlockStatement).
type ToolDeclaration struct {
	base
	Name        string
	Description string
	Params      []Param
	ReturnType  string
	Body        Node
}

type ModelField struct {
	Name  string
	Value Node
}

// ModelDeclaration declares an opaque provider configuration record.
type ModelDeclaration struct {
	base
	Name   string
	Fields []ModelField
	Tools  []string // names of tool declarations bound to this model
}

type ExpressionStatement struct {
	base
	Expr Node
}

type ReturnStatement struct {
	base
	Value Node // may be nil
}

type IfStatement struct {
	base
	Cond Node
	Then *BlockStatement
	Else Node // *BlockStatement or *IfStatement, may be nil
}

type ForInStatement struct {
	base
	VarName  string
	Iterable Node // RangeExpression or any array-valued expression
	Body     *BlockStatement
}

type WhileStatement struct {
	base
	Cond Node
	Body *BlockStatement
}

type ImportDeclaration struct {
	base
	Module  string
	Symbols []string
}

type ExportDeclaration struct {
	base
	Decl Node
}

type BlockStatement struct {
	base
	Statements []Node
}

// ── Expressions ──

type Identifier struct {
	base
	Name string
}

type StringLiteral struct {
	base
	Value string
}

type NumberLiteral struct {
	base
	Value float64
}

type BooleanLiteral struct {
	base
	Value bool
}

type NullLiteral struct {
	base
}

// TemplateLiteral holds the raw source text; {name}/${name} placeholders
// are resolved at the interpolate instruction (§4.F), not at parse time.
type TemplateLiteral struct {
	base
	Raw string
}

type ArrayLiteral struct {
	base
	Elements []Node
}

type ObjectField struct {
	Key   string
	Value Node
}

type ObjectLiteral struct {
	base
	Fields []ObjectField
}

type BinaryExpression struct {
	base
	Op          string
	Left, Right Node
}

type UnaryExpression struct {
	base
	Op      string
	Operand Node
}

type MemberExpression struct {
	base
	Object   Node
	Property string
}

type IndexExpression struct {
	base
	Object Node
	Index  Node
}

type AssignmentExpression struct {
	base
	Target Node // Identifier, MemberExpression, or IndexExpression
	Value  Node
}

type CallExpression struct {
	base
	Callee Node
	Args   []Node
}

// RangeExpression describes `for i in 0..10`.
type RangeExpression struct {
	base
	Start, End Node
	Inclusive  bool
}

// ContextKind selects which context serialization feeds an AI call.
type ContextKind struct {
	Kind     string // "default" (global), "local", or "variable"
	Variable string // set when Kind == "variable"
}

// VibeExpression is the `do`/`vibe`/`ask`-adjacent AI call node. `ask` is
// represented by the separate AskExpression below (it never hits a model).
type VibeExpression struct {
	base
	Keyword string // "do" or "vibe" — both denote an AI call
	Prompt  Node   // expression evaluating to text/prompt
	Model   string // identifier of the bound model variable
	Context ContextKind
	Target  string // declared/assigned variable's annotation, resolved by the caller
}

// TsBlock is an embedded host-code block: ts(params) { body }.
type TsBlock struct {
	base
	Params []string
	Body   string // raw host-language source, opaque to this module
}

// AskExpression prompts the interactive user (not the AI) for input.
type AskExpression struct {
	base
	Prompt Node
}
