package objectstore

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestGitStore initializes a bare repository in a temp directory and
// returns a GitStore rooted at it, skipping the test when a git binary
// isn't available in the environment.
func newTestGitStore(t *testing.T) *GitStore {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("skipping: git binary not found in PATH")
	}
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	cmd := exec.Command("git", "init", "--bare", gitDir)
	require.NoError(t, cmd.Run())
	return NewGitStore(gitDir)
}

func TestGitStoreBlobRoundTrip(t *testing.T) {
	store := newTestGitStore(t)
	ctx := context.Background()

	oid, err := store.WriteBlob(ctx, []byte("hello, sterna"))
	require.NoError(t, err)

	data, err := store.ReadBlob(ctx, oid)
	require.NoError(t, err)
	require.Equal(t, "hello, sterna", string(data))
}

func TestGitStoreTreeAndCommit(t *testing.T) {
	store := newTestGitStore(t)
	ctx := context.Background()

	oid, err := store.WriteBlob(ctx, []byte("issue body"))
	require.NoError(t, err)

	b, err := store.NewTreeBuilder(ctx, "")
	require.NoError(t, err)
	b.Insert("st-a1b2", oid, ModeBlob)
	tree, err := b.Write(ctx)
	require.NoError(t, err)

	author := Author{Name: "Sterna Agent", Email: "agent@example.com"}
	commit, err := store.Commit(ctx, "refs/sterna/snapshot", "", nil, "init", tree, author)
	require.NoError(t, err)
	require.NotEmpty(t, commit)

	tip, ok, err := store.ResolveRef(ctx, "refs/sterna/snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, commit, tip)
}

func TestGitStoreResolveRefMissing(t *testing.T) {
	store := newTestGitStore(t)
	_, ok, err := store.ResolveRef(context.Background(), "refs/sterna/snapshot")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGitStoreCommitCompareAndSwapRejectsStaleParent(t *testing.T) {
	store := newTestGitStore(t)
	ctx := context.Background()
	author := Author{Name: "a", Email: "a@example.com"}

	b, err := store.NewTreeBuilder(ctx, "")
	require.NoError(t, err)
	tree, err := b.Write(ctx)
	require.NoError(t, err)

	first, err := store.Commit(ctx, "refs/sterna/snapshot", "", nil, "init", tree, author)
	require.NoError(t, err)

	// Re-using the empty expectedOld a second time must fail: the ref
	// already points at `first`.
	_, err = store.Commit(ctx, "refs/sterna/snapshot", "", []string{first}, "second", tree, author)
	require.Error(t, err)
}

func TestGitStoreDeleteRefIdempotent(t *testing.T) {
	store := newTestGitStore(t)
	ctx := context.Background()
	require.NoError(t, store.DeleteRef(ctx, "refs/sterna/snapshot"))
	require.NoError(t, store.DeleteRef(ctx, "refs/sterna/snapshot"))
}

func TestGitStoreConfigValueMissing(t *testing.T) {
	store := newTestGitStore(t)
	_, ok, err := store.ConfigValue(context.Background(), "sterna.nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
}
