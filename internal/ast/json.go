package ast

import (
	"encoding/json"
	"fmt"
)

// DecodeProgram parses a JSON-serialized AST into a *Program. This is the
// "read from a serialized JSON AST for demos/tests" front-end named by
// spec §2.I: since the lexer/parser/analyzer are out of scope, cmd/vibe
// loads programs this way rather than from Vibe source text.
func DecodeProgram(data []byte) (*Program, error) {
	n, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	prog, ok := n.(*Program)
	if !ok {
		return nil, fmt.Errorf("ast: top-level JSON node is %T, want Program", n)
	}
	return prog, nil
}

// EncodeProgram serializes a *Program back to the same JSON shape
// DecodeProgram reads, round-tripping a hand-built AST for fixtures.
func EncodeProgram(prog *Program) ([]byte, error) {
	return encodeNode(prog)
}

type wireHead struct {
	Type string `json:"type"`
}

type wireBase struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (b wireBase) toBase() base { return base{File: b.File, Line: b.Line, Column: b.Column} }

func baseToWire(b base) wireBase {
	return wireBase{File: b.File, Line: b.Line, Column: b.Column}
}

type paramWire struct {
	Name string `json:"name"`
	Type string `json:"valueType"`
}

type objectFieldWire struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type modelFieldWire struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type contextKindWire struct {
	Kind     string `json:"kind"`
	Variable string `json:"variable,omitempty"`
}

func decodeNodes(raw []json.RawMessage) ([]Node, error) {
	out := make([]Node, len(raw))
	for i, r := range raw {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func encodeNodes(nodes []Node) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(nodes))
	for i, n := range nodes {
		raw, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

// decodeOptionalNode decodes raw into a Node, returning nil, nil if raw is
// empty or a JSON null — used for the several fields (ReturnStatement.Value,
// IfStatement.Else, ...) that may be absent.
func decodeOptionalNode(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return decodeNode(raw)
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var head wireHead
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("ast: decoding node head: %w", err)
	}

	switch head.Type {
	case "Program":
		var w struct {
			wireBase
			Statements []json.RawMessage `json:"statements"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		stmts, err := decodeNodes(w.Statements)
		if err != nil {
			return nil, err
		}
		return &Program{base: w.toBase(), Statements: stmts}, nil

	case "LetDeclaration":
		var w struct {
			wireBase
			Name string          `json:"name"`
			Type string          `json:"valueType"`
			Init json.RawMessage `json:"init"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		init, err := decodeOptionalNode(w.Init)
		if err != nil {
			return nil, err
		}
		return &LetDeclaration{base: w.toBase(), Name: w.Name, Type: w.Type, Init: init}, nil

	case "ConstDeclaration":
		var w struct {
			wireBase
			Name string          `json:"name"`
			Type string          `json:"valueType"`
			Init json.RawMessage `json:"init"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		init, err := decodeOptionalNode(w.Init)
		if err != nil {
			return nil, err
		}
		return &ConstDeclaration{base: w.toBase(), Name: w.Name, Type: w.Type, Init: init}, nil

	case "DestructuringDeclaration":
		var w struct {
			wireBase
			Names   []string        `json:"names"`
			Types   []string        `json:"valueTypes"`
			IsConst bool            `json:"isConst"`
			Init    json.RawMessage `json:"init"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		init, err := decodeOptionalNode(w.Init)
		if err != nil {
			return nil, err
		}
		return &DestructuringDeclaration{base: w.toBase(), Names: w.Names, Types: w.Types, IsConst: w.IsConst, Init: init}, nil

	case "FunctionDeclaration":
		var w struct {
			wireBase
			Name       string          `json:"name"`
			Params     []paramWire     `json:"params"`
			ReturnType string          `json:"returnType"`
			Body       json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		body, err := decodeNode(w.Body)
		if err != nil {
			return nil, err
		}
		block, ok := body.(*BlockStatement)
		if !ok {
			return nil, fmt.Errorf("ast: FunctionDeclaration.body must be a BlockStatement, got %T", body)
		}
		return &FunctionDeclaration{base: w.toBase(), Name: w.Name, Params: decodeParams(w.Params), ReturnType: w.ReturnType, Body: block}, nil

	case "ToolDeclaration":
		var w struct {
			wireBase
			Name        string          `json:"name"`
			Description string          `json:"description"`
			Params      []paramWire     `json:"params"`
			ReturnType  string          `json:"returnType"`
			Body        json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		body, err := decodeNode(w.Body)
		if err != nil {
			return nil, err
		}
		return &ToolDeclaration{base: w.toBase(), Name: w.Name, Description: w.Description, Params: decodeParams(w.Params), ReturnType: w.ReturnType, Body: body}, nil

	case "ModelDeclaration":
		var w struct {
			wireBase
			Name   string           `json:"name"`
			Fields []modelFieldWire `json:"fields"`
			Tools  []string         `json:"tools"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		fields := make([]ModelField, len(w.Fields))
		for i, f := range w.Fields {
			v, err := decodeNode(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = ModelField{Name: f.Name, Value: v}
		}
		return &ModelDeclaration{base: w.toBase(), Name: w.Name, Fields: fields, Tools: w.Tools}, nil

	case "ExpressionStatement":
		var w struct {
			wireBase
			Expr json.RawMessage `json:"expr"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		expr, err := decodeNode(w.Expr)
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{base: w.toBase(), Expr: expr}, nil

	case "ReturnStatement":
		var w struct {
			wireBase
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		val, err := decodeOptionalNode(w.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{base: w.toBase(), Value: val}, nil

	case "IfStatement":
		var w struct {
			wireBase
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		cond, err := decodeNode(w.Cond)
		if err != nil {
			return nil, err
		}
		thenNode, err := decodeNode(w.Then)
		if err != nil {
			return nil, err
		}
		thenBlock, ok := thenNode.(*BlockStatement)
		if !ok {
			return nil, fmt.Errorf("ast: IfStatement.then must be a BlockStatement, got %T", thenNode)
		}
		elseNode, err := decodeOptionalNode(w.Else)
		if err != nil {
			return nil, err
		}
		return &IfStatement{base: w.toBase(), Cond: cond, Then: thenBlock, Else: elseNode}, nil

	case "ForInStatement":
		var w struct {
			wireBase
			VarName  string          `json:"varName"`
			Iterable json.RawMessage `json:"iterable"`
			Body     json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		iterable, err := decodeNode(w.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(w.Body)
		if err != nil {
			return nil, err
		}
		block, ok := body.(*BlockStatement)
		if !ok {
			return nil, fmt.Errorf("ast: ForInStatement.body must be a BlockStatement, got %T", body)
		}
		return &ForInStatement{base: w.toBase(), VarName: w.VarName, Iterable: iterable, Body: block}, nil

	case "WhileStatement":
		var w struct {
			wireBase
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		cond, err := decodeNode(w.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(w.Body)
		if err != nil {
			return nil, err
		}
		block, ok := body.(*BlockStatement)
		if !ok {
			return nil, fmt.Errorf("ast: WhileStatement.body must be a BlockStatement, got %T", body)
		}
		return &WhileStatement{base: w.toBase(), Cond: cond, Body: block}, nil

	case "ImportDeclaration":
		var w struct {
			wireBase
			Module  string   `json:"module"`
			Symbols []string `json:"symbols"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &ImportDeclaration{base: w.toBase(), Module: w.Module, Symbols: w.Symbols}, nil

	case "ExportDeclaration":
		var w struct {
			wireBase
			Decl json.RawMessage `json:"decl"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		decl, err := decodeNode(w.Decl)
		if err != nil {
			return nil, err
		}
		return &ExportDeclaration{base: w.toBase(), Decl: decl}, nil

	case "BlockStatement":
		var w struct {
			wireBase
			Statements []json.RawMessage `json:"statements"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		stmts, err := decodeNodes(w.Statements)
		if err != nil {
			return nil, err
		}
		return &BlockStatement{base: w.toBase(), Statements: stmts}, nil

	case "Identifier":
		var w struct {
			wireBase
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &Identifier{base: w.toBase(), Name: w.Name}, nil

	case "StringLiteral":
		var w struct {
			wireBase
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &StringLiteral{base: w.toBase(), Value: w.Value}, nil

	case "NumberLiteral":
		var w struct {
			wireBase
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &NumberLiteral{base: w.toBase(), Value: w.Value}, nil

	case "BooleanLiteral":
		var w struct {
			wireBase
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &BooleanLiteral{base: w.toBase(), Value: w.Value}, nil

	case "NullLiteral":
		var w struct{ wireBase }
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &NullLiteral{base: w.toBase()}, nil

	case "TemplateLiteral":
		var w struct {
			wireBase
			Raw string `json:"raw"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &TemplateLiteral{base: w.toBase(), Raw: w.Raw}, nil

	case "ArrayLiteral":
		var w struct {
			wireBase
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		elems, err := decodeNodes(w.Elements)
		if err != nil {
			return nil, err
		}
		return &ArrayLiteral{base: w.toBase(), Elements: elems}, nil

	case "ObjectLiteral":
		var w struct {
			wireBase
			Fields []objectFieldWire `json:"fields"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		fields := make([]ObjectField, len(w.Fields))
		for i, f := range w.Fields {
			v, err := decodeNode(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = ObjectField{Key: f.Key, Value: v}
		}
		return &ObjectLiteral{base: w.toBase(), Fields: fields}, nil

	case "BinaryExpression":
		var w struct {
			wireBase
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		left, err := decodeNode(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(w.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{base: w.toBase(), Op: w.Op, Left: left, Right: right}, nil

	case "UnaryExpression":
		var w struct {
			wireBase
			Op      string          `json:"op"`
			Operand json.RawMessage `json:"operand"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		operand, err := decodeNode(w.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{base: w.toBase(), Op: w.Op, Operand: operand}, nil

	case "MemberExpression":
		var w struct {
			wireBase
			Object   json.RawMessage `json:"object"`
			Property string          `json:"property"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		obj, err := decodeNode(w.Object)
		if err != nil {
			return nil, err
		}
		return &MemberExpression{base: w.toBase(), Object: obj, Property: w.Property}, nil

	case "IndexExpression":
		var w struct {
			wireBase
			Object json.RawMessage `json:"object"`
			Index  json.RawMessage `json:"index"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		obj, err := decodeNode(w.Object)
		if err != nil {
			return nil, err
		}
		idx, err := decodeNode(w.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpression{base: w.toBase(), Object: obj, Index: idx}, nil

	case "AssignmentExpression":
		var w struct {
			wireBase
			Target json.RawMessage `json:"target"`
			Value  json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		target, err := decodeNode(w.Target)
		if err != nil {
			return nil, err
		}
		val, err := decodeNode(w.Value)
		if err != nil {
			return nil, err
		}
		return &AssignmentExpression{base: w.toBase(), Target: target, Value: val}, nil

	case "CallExpression":
		var w struct {
			wireBase
			Callee json.RawMessage   `json:"callee"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		callee, err := decodeNode(w.Callee)
		if err != nil {
			return nil, err
		}
		args, err := decodeNodes(w.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpression{base: w.toBase(), Callee: callee, Args: args}, nil

	case "RangeExpression":
		var w struct {
			wireBase
			Start     json.RawMessage `json:"start"`
			End       json.RawMessage `json:"end"`
			Inclusive bool            `json:"inclusive"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		start, err := decodeNode(w.Start)
		if err != nil {
			return nil, err
		}
		end, err := decodeNode(w.End)
		if err != nil {
			return nil, err
		}
		return &RangeExpression{base: w.toBase(), Start: start, End: end, Inclusive: w.Inclusive}, nil

	case "VibeExpression":
		var w struct {
			wireBase
			Keyword string          `json:"keyword"`
			Prompt  json.RawMessage `json:"prompt"`
			Model   string          `json:"model"`
			Context contextKindWire `json:"context"`
			Target  string          `json:"target"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		prompt, err := decodeNode(w.Prompt)
		if err != nil {
			return nil, err
		}
		return &VibeExpression{
			base:    w.toBase(),
			Keyword: w.Keyword,
			Prompt:  prompt,
			Model:   w.Model,
			Context: ContextKind{Kind: w.Context.Kind, Variable: w.Context.Variable},
			Target:  w.Target,
		}, nil

	case "TsBlock":
		var w struct {
			wireBase
			Params []string `json:"params"`
			Source string   `json:"source"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return &TsBlock{base: w.toBase(), Params: w.Params, Body: w.Source}, nil

	case "AskExpression":
		var w struct {
			wireBase
			Prompt json.RawMessage `json:"prompt"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		prompt, err := decodeNode(w.Prompt)
		if err != nil {
			return nil, err
		}
		return &AskExpression{base: w.toBase(), Prompt: prompt}, nil

	default:
		return nil, fmt.Errorf("ast: unknown node type %q", head.Type)
	}
}

func decodeParams(ws []paramWire) []Param {
	out := make([]Param, len(ws))
	for i, w := range ws {
		out[i] = Param{Name: w.Name, Type: w.Type}
	}
	return out
}

func encodeParams(ps []Param) []paramWire {
	out := make([]paramWire, len(ps))
	for i, p := range ps {
		out[i] = paramWire{Name: p.Name, Type: p.Type}
	}
	return out
}

// encodeNode mirrors decodeNode in reverse, used by EncodeProgram and by
// tests that round-trip hand-built fixtures through JSON.
func encodeNode(n Node) (json.RawMessage, error) {
	if n == nil {
		return json.Marshal(nil)
	}

	switch v := n.(type) {
	case *Program:
		stmts, err := encodeNodes(v.Statements)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Statements []json.RawMessage `json:"statements"`
		}{"Program", baseToWire(v.base), stmts})

	case *LetDeclaration:
		init, err := encodeOptionalNode(v.Init)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Name string          `json:"name"`
			Vt   string          `json:"valueType"`
			Init json.RawMessage `json:"init,omitempty"`
		}{"LetDeclaration", baseToWire(v.base), v.Name, v.Type, init})

	case *ConstDeclaration:
		init, err := encodeOptionalNode(v.Init)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Name string          `json:"name"`
			Vt   string          `json:"valueType"`
			Init json.RawMessage `json:"init,omitempty"`
		}{"ConstDeclaration", baseToWire(v.base), v.Name, v.Type, init})

	case *DestructuringDeclaration:
		init, err := encodeOptionalNode(v.Init)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type    string `json:"type"`
			wireBase
			Names   []string        `json:"names"`
			Types   []string        `json:"valueTypes"`
			IsConst bool            `json:"isConst"`
			Init    json.RawMessage `json:"init,omitempty"`
		}{"DestructuringDeclaration", baseToWire(v.base), v.Names, v.Types, v.IsConst, init})

	case *FunctionDeclaration:
		body, err := encodeNode(v.Body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Name       string          `json:"name"`
			Params     []paramWire     `json:"params"`
			ReturnType string          `json:"returnType"`
			Body       json.RawMessage `json:"body"`
		}{"FunctionDeclaration", baseToWire(v.base), v.Name, encodeParams(v.Params), v.ReturnType, body})

	case *ToolDeclaration:
		body, err := encodeNode(v.Body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Name        string          `json:"name"`
			Description string          `json:"description"`
			Params      []paramWire     `json:"params"`
			ReturnType  string          `json:"returnType"`
			Body        json.RawMessage `json:"body"`
		}{"ToolDeclaration", baseToWire(v.base), v.Name, v.Description, encodeParams(v.Params), v.ReturnType, body})

	case *ModelDeclaration:
		fields := make([]modelFieldWire, len(v.Fields))
		for i, f := range v.Fields {
			val, err := encodeNode(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = modelFieldWire{Name: f.Name, Value: val}
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Name   string           `json:"name"`
			Fields []modelFieldWire `json:"fields"`
			Tools  []string         `json:"tools"`
		}{"ModelDeclaration", baseToWire(v.base), v.Name, fields, v.Tools})

	case *ExpressionStatement:
		expr, err := encodeNode(v.Expr)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Expr json.RawMessage `json:"expr"`
		}{"ExpressionStatement", baseToWire(v.base), expr})

	case *ReturnStatement:
		val, err := encodeOptionalNode(v.Value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Value json.RawMessage `json:"value,omitempty"`
		}{"ReturnStatement", baseToWire(v.base), val})

	case *IfStatement:
		cond, err := encodeNode(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := encodeNode(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := encodeOptionalNode(v.Else)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else,omitempty"`
		}{"IfStatement", baseToWire(v.base), cond, then, els})

	case *ForInStatement:
		iterable, err := encodeNode(v.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := encodeNode(v.Body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			VarName  string          `json:"varName"`
			Iterable json.RawMessage `json:"iterable"`
			Body     json.RawMessage `json:"body"`
		}{"ForInStatement", baseToWire(v.base), v.VarName, iterable, body})

	case *WhileStatement:
		cond, err := encodeNode(v.Cond)
		if err != nil {
			return nil, err
		}
		body, err := encodeNode(v.Body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}{"WhileStatement", baseToWire(v.base), cond, body})

	case *ImportDeclaration:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Module  string   `json:"module"`
			Symbols []string `json:"symbols"`
		}{"ImportDeclaration", baseToWire(v.base), v.Module, v.Symbols})

	case *ExportDeclaration:
		decl, err := encodeNode(v.Decl)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Decl json.RawMessage `json:"decl"`
		}{"ExportDeclaration", baseToWire(v.base), decl})

	case *BlockStatement:
		stmts, err := encodeNodes(v.Statements)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Statements []json.RawMessage `json:"statements"`
		}{"BlockStatement", baseToWire(v.base), stmts})

	case *Identifier:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Name string `json:"name"`
		}{"Identifier", baseToWire(v.base), v.Name})

	case *StringLiteral:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Value string `json:"value"`
		}{"StringLiteral", baseToWire(v.base), v.Value})

	case *NumberLiteral:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Value float64 `json:"value"`
		}{"NumberLiteral", baseToWire(v.base), v.Value})

	case *BooleanLiteral:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Value bool `json:"value"`
		}{"BooleanLiteral", baseToWire(v.base), v.Value})

	case *NullLiteral:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
		}{"NullLiteral", baseToWire(v.base)})

	case *TemplateLiteral:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Raw string `json:"raw"`
		}{"TemplateLiteral", baseToWire(v.base), v.Raw})

	case *ArrayLiteral:
		elems, err := encodeNodes(v.Elements)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Elements []json.RawMessage `json:"elements"`
		}{"ArrayLiteral", baseToWire(v.base), elems})

	case *ObjectLiteral:
		fields := make([]objectFieldWire, len(v.Fields))
		for i, f := range v.Fields {
			val, err := encodeNode(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = objectFieldWire{Key: f.Key, Value: val}
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Fields []objectFieldWire `json:"fields"`
		}{"ObjectLiteral", baseToWire(v.base), fields})

	case *BinaryExpression:
		left, err := encodeNode(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(v.Right)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}{"BinaryExpression", baseToWire(v.base), v.Op, left, right})

	case *UnaryExpression:
		operand, err := encodeNode(v.Operand)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Op      string          `json:"op"`
			Operand json.RawMessage `json:"operand"`
		}{"UnaryExpression", baseToWire(v.base), v.Op, operand})

	case *MemberExpression:
		obj, err := encodeNode(v.Object)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Object   json.RawMessage `json:"object"`
			Property string          `json:"property"`
		}{"MemberExpression", baseToWire(v.base), obj, v.Property})

	case *IndexExpression:
		obj, err := encodeNode(v.Object)
		if err != nil {
			return nil, err
		}
		idx, err := encodeNode(v.Index)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Object json.RawMessage `json:"object"`
			Index  json.RawMessage `json:"index"`
		}{"IndexExpression", baseToWire(v.base), obj, idx})

	case *AssignmentExpression:
		target, err := encodeNode(v.Target)
		if err != nil {
			return nil, err
		}
		val, err := encodeNode(v.Value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Target json.RawMessage `json:"target"`
			Value  json.RawMessage `json:"value"`
		}{"AssignmentExpression", baseToWire(v.base), target, val})

	case *CallExpression:
		callee, err := encodeNode(v.Callee)
		if err != nil {
			return nil, err
		}
		args, err := encodeNodes(v.Args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Callee json.RawMessage   `json:"callee"`
			Args   []json.RawMessage `json:"args"`
		}{"CallExpression", baseToWire(v.base), callee, args})

	case *RangeExpression:
		start, err := encodeNode(v.Start)
		if err != nil {
			return nil, err
		}
		end, err := encodeNode(v.End)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Start     json.RawMessage `json:"start"`
			End       json.RawMessage `json:"end"`
			Inclusive bool            `json:"inclusive"`
		}{"RangeExpression", baseToWire(v.base), start, end, v.Inclusive})

	case *VibeExpression:
		prompt, err := encodeNode(v.Prompt)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Keyword string          `json:"keyword"`
			Prompt  json.RawMessage `json:"prompt"`
			Model   string          `json:"model,omitempty"`
			Context contextKindWire `json:"context"`
			Target  string          `json:"target,omitempty"`
		}{"VibeExpression", baseToWire(v.base), v.Keyword, prompt, v.Model, contextKindWire{v.Context.Kind, v.Context.Variable}, v.Target})

	case *TsBlock:
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Params []string `json:"params"`
			Source string   `json:"source"`
		}{"TsBlock", baseToWire(v.base), v.Params, v.Body})

	case *AskExpression:
		prompt, err := encodeNode(v.Prompt)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			wireBase
			Prompt json.RawMessage `json:"prompt"`
		}{"AskExpression", baseToWire(v.base), prompt})

	default:
		return nil, fmt.Errorf("ast: unknown node type %T", n)
	}
}

func encodeOptionalNode(n Node) (json.RawMessage, error) {
	if n == nil {
		return nil, nil
	}
	return encodeNode(n)
}
