// Package builtin implements the native tools published through the
// "system/tools" import (spec §6): readFile, writeFile, glob, editFile.
// readFile, writeFile and editFile resolve paths through internal/sandbox
// before touching the filesystem, and glob walks only the sandbox root,
// generalizing the teacher corpus's file_read/file_write/
// file_list/find tools (internal/tool/builtin/file.go) which performed an
// equivalent safeResolvePath check inline before every filesystem access.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vibelang/vibe/internal/sandbox"
	"github.com/vibelang/vibe/internal/tool"
)

const (
	maxReadSize  = 1 << 20 // 1MB
	maxWriteSize = 1 << 20
	maxGlobItems = 200
)

// ReadFileTool implements readFile(path: text): text.
type ReadFileTool struct{ Root string }

func (t *ReadFileTool) Name() string        { return "readFile" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file as text." }

func (t *ReadFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.Param{Name: "path", Type: "text", Description: "path relative to the sandbox root", Required: true},
	)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (t *ReadFileTool) Execute(_ context.Context, args json.RawMessage) (tool.Result, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Result{Err: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	resolved, err := sandbox.ResolveInRoot(a.Path, t.Root)
	if err != nil {
		return tool.Result{Err: err.Error()}, nil
	}

	f, err := os.Open(resolved)
	if err != nil {
		return tool.Result{Err: fmt.Sprintf("file not found: %s", a.Path)}, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return tool.Result{Err: fmt.Sprintf("stat failed: %v", err)}, nil
	}
	if info.IsDir() {
		return tool.Result{Err: "path is a directory; readFile requires a file"}, nil
	}
	if info.Size() > maxReadSize {
		return tool.Result{Err: fmt.Sprintf("file too large (%d bytes, max %d)", info.Size(), maxReadSize)}, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, maxReadSize))
	if err != nil {
		return tool.Result{Err: fmt.Sprintf("read failed: %v", err)}, nil
	}

	out, _ := json.Marshal(string(data))
	return tool.Result{Output: out}, nil
}

// WriteFileTool implements writeFile(path: text, content: text): boolean.
type WriteFileTool struct{ Root string }

func (t *WriteFileTool) Name() string { return "writeFile" }
func (t *WriteFileTool) Description() string {
	return "Write text content to a file, creating or overwriting it."
}

func (t *WriteFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.Param{Name: "path", Type: "text", Description: "path relative to the sandbox root", Required: true},
		tool.Param{Name: "content", Type: "text", Description: "content to write", Required: true},
	)
}

func (t *WriteFileTool) Execute(_ context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Result{Err: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if len(a.Content) > maxWriteSize {
		return tool.Result{Err: fmt.Sprintf("content too large (%d bytes, max %d)", len(a.Content), maxWriteSize)}, nil
	}

	resolved, err := sandbox.ResolveInRoot(a.Path, t.Root)
	if err != nil {
		return tool.Result{Err: err.Error()}, nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return tool.Result{Err: fmt.Sprintf("mkdir failed: %v", err)}, nil
	}
	if err := os.WriteFile(resolved, []byte(a.Content), 0o644); err != nil {
		return tool.Result{Err: fmt.Sprintf("write failed: %v", err)}, nil
	}

	out, _ := json.Marshal(true)
	return tool.Result{Output: out}, nil
}

// GlobTool implements glob(pattern: text): text[].
type GlobTool struct{ Root string }

func (t *GlobTool) Name() string { return "glob" }
func (t *GlobTool) Description() string {
	return "List files under the sandbox root matching a glob pattern."
}

func (t *GlobTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.Param{Name: "pattern", Type: "text", Description: "glob pattern, e.g. \"*.go\"", Required: true},
	)
}

func (t *GlobTool) Execute(ctx context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Pattern string `json:"pattern"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Result{Err: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	pattern := strings.TrimSpace(a.Pattern)
	if pattern == "" {
		return tool.Result{Err: "pattern must not be empty"}, nil
	}

	var results []string
	_ = filepath.WalkDir(t.Root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(t.Root, path)
		if relErr != nil {
			rel = path
		}
		matched, _ := filepath.Match(pattern, rel)
		if !matched {
			matched, _ = filepath.Match(pattern, filepath.Base(path))
		}
		if matched {
			results = append(results, rel)
			if len(results) >= maxGlobItems {
				return fmt.Errorf("limit reached")
			}
		}
		return nil
	})

	out, _ := json.Marshal(results)
	return tool.Result{Output: out}, nil
}

// EditFileTool implements editFile(path: text, find: text, replace: text): boolean,
// a single-occurrence string substitution sharing WriteFileTool's sandboxed
// write path.
type EditFileTool struct{ Root string }

func (t *EditFileTool) Name() string { return "editFile" }
func (t *EditFileTool) Description() string {
	return "Replace the first occurrence of a string in a file with another string."
}

func (t *EditFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.Param{Name: "path", Type: "text", Description: "path relative to the sandbox root", Required: true},
		tool.Param{Name: "find", Type: "text", Description: "exact text to find", Required: true},
		tool.Param{Name: "replace", Type: "text", Description: "replacement text", Required: true},
	)
}

func (t *EditFileTool) Execute(_ context.Context, args json.RawMessage) (tool.Result, error) {
	var a struct {
		Path    string `json:"path"`
		Find    string `json:"find"`
		Replace string `json:"replace"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Result{Err: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	resolved, err := sandbox.ResolveInRoot(a.Path, t.Root)
	if err != nil {
		return tool.Result{Err: err.Error()}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return tool.Result{Err: fmt.Sprintf("file not found: %s", a.Path)}, nil
	}
	content := string(data)
	if !strings.Contains(content, a.Find) {
		return tool.Result{Err: fmt.Sprintf("text not found in %s", a.Path)}, nil
	}
	updated := strings.Replace(content, a.Find, a.Replace, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return tool.Result{Err: fmt.Sprintf("write failed: %v", err)}, nil
	}

	out, _ := json.Marshal(true)
	return tool.Result{Output: out}, nil
}

// Register installs the four sandboxed file tools rooted at root into reg.
func Register(reg *tool.Registry, root string) {
	reg.Register(&ReadFileTool{Root: root})
	reg.Register(&WriteFileTool{Root: root})
	reg.Register(&GlobTool{Root: root})
	reg.Register(&EditFileTool{Root: root})
}
