// Package sandbox implements root-confined path resolution for the
// built-in file tools (spec §4.G). It is a direct generalization of the
// teacher corpus's safeResolvePath (internal/tool/builtin/file.go):
// absolute-path cleaning, symlink resolution on both the root and the
// target, case-folding on case-insensitive hosts, and a separator-suffixed
// prefix check that rejects partial-prefix collisions like "/root" vs
// "/rootbar".
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vibelang/vibe/internal/verr"
)

// Error is a structured sandbox violation, returned to the AI as a tool
// observation (never fatal to the program) per spec §7.
type Error struct {
	Path string
	Root string
}

func (e *Error) Error() string {
	return fmt.Sprintf("path %q escapes sandbox root %q", e.Path, e.Root)
}

// ResolveInRoot resolves input against root and validates the result stays
// lexically inside it (spec §4.G). input is treated as a path segment, not
// a URL; if it is already absolute it is cleaned as-is and then checked
// against root rather than being re-joined.
func ResolveInRoot(input, root string) (string, error) {
	var resolved string
	if filepath.IsAbs(input) {
		resolved = filepath.Clean(input)
	} else {
		resolved = filepath.Clean(filepath.Join(root, input))
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", verr.New(verr.KindSandbox, verr.Location{}, "cannot resolve sandbox root: %v", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot // root doesn't exist on disk yet; keep the cleaned abs path
	}

	absResolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", verr.New(verr.KindSandbox, verr.Location{}, "cannot resolve target path: %v", err)
	}
	realResolved, _ := resolveExisting(absResolved)

	cmpRoot, cmpResolved := realRoot, realResolved
	if runtime.GOOS == "windows" {
		cmpRoot = strings.ToLower(cmpRoot)
		cmpResolved = strings.ToLower(cmpResolved)
	}

	if cmpResolved != cmpRoot && !strings.HasPrefix(cmpResolved, cmpRoot+string(os.PathSeparator)) {
		return "", &Error{Path: input, Root: root}
	}

	return realResolved, nil
}

// resolveExisting resolves symlinks for an existing path, or for the
// longest existing ancestor of a path that does not yet exist (e.g. a file
// about to be created by write_file).
func resolveExisting(path string) (string, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, nil
	}
	dir := filepath.Dir(path)
	if dir == path {
		return path, nil
	}
	realDir, err := resolveExisting(dir)
	if err != nil {
		return path, err
	}
	return filepath.Join(realDir, filepath.Base(path)), nil
}
