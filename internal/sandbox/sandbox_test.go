package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInRoot_AllowsInsidePaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	resolved, err := ResolveInRoot("sub/file.txt", root)
	require.NoError(t, err)
	assert.Contains(t, resolved, filepath.Join("sub", "file.txt"))
}

func TestResolveInRoot_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	_, err := ResolveInRoot("../../etc/passwd", root)
	assert.Error(t, err)
}

func TestResolveInRoot_RejectsPrefixCollision(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	sibling := filepath.Join(parent, "rootbar", "secret.txt")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(sibling), 0o755))

	_, err := ResolveInRoot(sibling, root)
	assert.Error(t, err)
}

func TestResolveInRoot_AllowsExactRoot(t *testing.T) {
	root := t.TempDir()
	resolved, err := ResolveInRoot(".", root)
	require.NoError(t, err)
	realRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, realRoot, resolved)
}

func TestResolveInRoot_SymlinkEscape(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	outside := filepath.Join(parent, "outside")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644))

	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := ResolveInRoot("escape/secret.txt", root)
	assert.Error(t, err)
}
