// Package vctx implements the per-frame ordered context log and its
// deterministic formatter (spec §3 "Ordered entry", §4.B).
//
// The log shape generalizes the teacher corpus's flat StepRecord history
// (internal/agent/state.go, internal/agent/step_formatter.go) from a single
// linear list to one append-only log per call frame, tagged by variant
// (variable/prompt/tool-call) instead of the teacher's string Type field.
package vctx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibelang/vibe/internal/value"
)

// Source identifies what produced a variable's current value.
type Source string

const (
	SourceCode Source = "code"
	SourceAI   Source = "ai"
	SourceTool Source = "tool"
	SourceNone Source = "none"
)

// EntryKind discriminates the three ordered-entry variants.
type EntryKind string

const (
	EntryVariable EntryKind = "variable"
	EntryPrompt   EntryKind = "prompt"
	EntryToolCall EntryKind = "tool-call"
)

// Entry is a tagged ordered-log record. Exactly one of the variant-specific
// field groups is populated, selected by Kind.
type Entry struct {
	Kind EntryKind

	// EntryVariable
	Name       string
	Value      value.Value
	Type       value.Type
	IsConst    bool
	Source     Source
	FrameName  string
	FrameDepth int

	// EntryPrompt
	AIType   string // "do" | "ask" | "vibe"
	Prompt   string
	Response string

	// EntryToolCall
	ToolName   string
	Args       json.RawMessage
	Result     json.RawMessage
	ToolErr    string
}

// Frame is one call frame's ordered log plus its identity.
type Frame struct {
	Name    string // "<entry>" or the function name
	Depth   int
	Entries []Entry
}

// Append adds an entry to the frame's log. Append-only: callers must never
// mutate or remove a prior entry, per invariant 4 (every mutation appends).
func (f *Frame) Append(e Entry) {
	e.FrameName = f.Name
	e.FrameDepth = f.Depth
	f.Entries = append(f.Entries, e)
}

// ConstWriteCount counts variable entries for name with a code/ai/tool
// source — used to enforce invariant 5 (const has at most one such entry).
func (f *Frame) ConstWriteCount(name string) int {
	n := 0
	for _, e := range f.Entries {
		if e.Kind == EntryVariable && e.Name == name && e.Source != SourceNone {
			n++
		}
	}
	return n
}

// View is a filtered, ordered slice of frames ready for formatting.
type View struct {
	Frames []Frame
}

// filterEntries drops model-typed variables (configuration, not data) and
// prompt-typed variables (instructions, not state) from an AI-facing view,
// per §4.B's filtering rules.
func filterEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == EntryVariable && e.Type.Base == value.KindModel {
			continue
		}
		if e.Kind == EntryVariable && e.Type.Base == value.KindPrompt {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Local builds the localContext view: entries of the innermost non-entry
// frame, or of <entry> itself when that is the innermost frame.
func Local(frames []Frame) View {
	if len(frames) == 0 {
		return View{}
	}
	innermost := frames[len(frames)-1]
	return View{Frames: []Frame{{
		Name:    innermost.Name,
		Depth:   innermost.Depth,
		Entries: filterEntries(innermost.Entries),
	}}}
}

// Global builds the globalContext view: all frames concatenated in call
// order (entry first, then caller, then callee, ...).
func Global(frames []Frame) View {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = Frame{Name: f.Name, Depth: f.Depth, Entries: filterEntries(f.Entries)}
	}
	return View{Frames: out}
}

// Format renders a View as nested text, matching §4.B's line grammar
// exactly. Formatting is a pure function of the entries: identical input
// always produces byte-identical output (spec §8's determinism property).
func Format(v View, instructions string) string {
	var sb strings.Builder
	if instructions != "" {
		sb.WriteString(instructions)
		sb.WriteString("\n\n")
	}
	for i, f := range v.Frames {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeFrame(&sb, f, i == len(v.Frames)-1)
	}
	return sb.String()
}

func writeFrame(sb *strings.Builder, f Frame, isInnermost bool) {
	label := frameLabel(f, isInnermost)
	indent := strings.Repeat("  ", f.Depth)
	sb.WriteString(indent)
	sb.WriteString(label)
	sb.WriteString("\n")

	innerIndent := indent + "  "
	pendingPrompt := -1 // index of a prompt entry awaiting its paired AI response
	for i := 0; i < len(f.Entries); i++ {
		e := f.Entries[i]
		switch e.Kind {
		case EntryPrompt:
			sb.WriteString(innerIndent)
			sb.WriteString(fmt.Sprintf("--> %s: %q\n", e.AIType, e.Prompt))
			pendingPrompt = i
		case EntryVariable:
			if pendingPrompt >= 0 && e.Source == SourceAI {
				sb.WriteString(innerIndent)
				sb.WriteString(fmt.Sprintf("<-- %s%s: %s\n", e.Name, typeSuffix(e.Type), stringify(e.Value)))
				pendingPrompt = -1
				continue
			}
			pendingPrompt = -1
			sb.WriteString(innerIndent)
			sb.WriteString(fmt.Sprintf("- %s%s: %s\n", e.Name, typeSuffix(e.Type), stringify(e.Value)))
		case EntryToolCall:
			pendingPrompt = -1
			sb.WriteString(innerIndent)
			sb.WriteString(fmt.Sprintf("[tool] %s(%s)\n", e.ToolName, string(e.Args)))
			sb.WriteString(innerIndent)
			if e.ToolErr != "" {
				sb.WriteString(fmt.Sprintf("[error] %s\n", e.ToolErr))
			} else {
				sb.WriteString(fmt.Sprintf("[result] %s\n", string(e.Result)))
			}
		}
	}
}

func frameLabel(f Frame, isInnermost bool) string {
	if f.Name == "<entry>" {
		return "<entry> (entry)"
	}
	if isInnermost {
		return fmt.Sprintf("%s (current scope)", f.Name)
	}
	return fmt.Sprintf("%s (depth %d)", f.Name, f.Depth)
}

// typeSuffix renders "(type)", omitted when Type.Base is the zero value or
// text with no array depth. Entry records no annotation flag, so an
// explicitly annotated `text` variable also renders without a suffix.
func typeSuffix(t value.Type) string {
	if t.Base == "" || (t.Base == value.KindText && t.Depth == 0) {
		return ""
	}
	return fmt.Sprintf(" (%s)", t.String())
}

func stringify(v value.Value) string {
	s, err := value.MarshalJSON(v)
	if err != nil {
		return fmt.Sprintf("%q", err.Error())
	}
	return s
}

// VariableConcat renders a `text[]`/`json[]` variable as required by the
// `variable(name)` context kind: each element stringified and joined with a
// blank-line separator (spec §4.F).
func VariableConcat(v value.Value) string {
	if !v.Type.IsArray() {
		return stringify(v)
	}
	parts := make([]string, len(v.Array))
	for i, e := range v.Array {
		parts[i] = stringify(e)
	}
	return strings.Join(parts, "\n\n")
}
