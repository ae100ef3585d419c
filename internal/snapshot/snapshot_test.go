package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/qmx/sterna/internal/errs"
	"github.com/qmx/sterna/internal/objectstore"
	"github.com/qmx/sterna/internal/types"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, *objectstore.MemoryStore) {
	t.Helper()
	store := objectstore.NewMemoryStore()
	lockPath := filepath.Join(t.TempDir(), "sterna.lock")
	return New(store, lockPath, "agent@example.com", nil, nil), store
}

func TestInitializeThenAlreadyInitialized(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.Initialize(ctx))
	err := e.Initialize(ctx)
	require.True(t, errors.Is(err, errs.ErrAlreadyInitialized))
}

func TestLoadOnUninitializedFailsNotInitialized(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	_, err := e.LoadIssues(ctx)
	require.True(t, errors.Is(err, errs.ErrNotInitialized))
}

func TestSaveIssueOnUninitializedFailsNotInitialized(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	issue := types.Issue{
		ID: "st-aaaa", Title: "Fix crash", Status: types.StatusOpen,
		Priority: types.PriorityHigh, Type: types.TypeBug,
		CreatedAt: 100, UpdatedAt: 100, Lamport: 1, Editor: "agent@example.com",
	}
	err := e.SaveIssue(ctx, issue, "sterna: restore issue st-aaaa")
	require.True(t, errors.Is(err, errs.ErrNotInitialized))
}

func TestSaveEdgeOnUninitializedFailsNotInitialized(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	edge := types.Edge{Source: "st-aaaa", Target: "st-bbbb", Type: types.EdgeDependsOn, CreatedAt: 100}
	err := e.SaveEdge(ctx, edge, "sterna: restore edge")
	require.True(t, errors.Is(err, errs.ErrNotInitialized))
}

func TestSaveIssueThenSaveEdgePersistAsIs(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	issueA := types.Issue{
		ID: "st-aaaa", Title: "A", Status: types.StatusOpen,
		Priority: types.PriorityHigh, Type: types.TypeBug,
		CreatedAt: 100, UpdatedAt: 100, Lamport: 7, Editor: "agent@example.com",
	}
	issueB := types.Issue{
		ID: "st-bbbb", Title: "B", Status: types.StatusOpen,
		Priority: types.PriorityHigh, Type: types.TypeBug,
		CreatedAt: 100, UpdatedAt: 100, Lamport: 3, Editor: "agent@example.com",
	}
	require.NoError(t, e.SaveIssue(ctx, issueA, "sterna: restore issue st-aaaa"))
	require.NoError(t, e.SaveIssue(ctx, issueB, "sterna: restore issue st-bbbb"))

	edge := types.Edge{Source: "st-aaaa", Target: "st-bbbb", Type: types.EdgeDependsOn, CreatedAt: 100}
	require.NoError(t, e.SaveEdge(ctx, edge, "sterna: restore edge"))

	issues, err := e.LoadIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	require.Equal(t, uint64(7), issues["st-aaaa"].Lamport)

	edges, err := e.LoadEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
}

func TestDeleteSnapshotRemovesRef(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))
	_, err := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(100, 0))
	require.NoError(t, err)

	require.NoError(t, e.DeleteSnapshot(ctx))

	_, err = e.LoadIssues(ctx)
	require.True(t, errors.Is(err, errs.ErrNotInitialized))
}

func TestCreateThenList(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	issue, err := e.CreateIssue(ctx, "Fix crash", "", "agent@example.com", types.TypeBug, types.PriorityHigh, nil, time.Unix(1000, 0))
	require.NoError(t, err)
	require.True(t, len(issue.ID) > 3)
	require.Equal(t, types.StatusOpen, issue.Status)

	issues, err := e.LoadIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "Fix crash", issues[issue.ID].Title)
}

func TestClaimReleaseLifecycleBumpsLamportEachStep(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	created, err := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)
	require.Equal(t, uint64(1), created.Lamport)

	claimed, err := e.Claim(ctx, created.ID, "branch/x", "agent@example.com", time.Unix(1001, 0))
	require.NoError(t, err)
	require.Equal(t, uint64(2), claimed.Lamport)
	require.True(t, claimed.Claimed)
	require.Equal(t, types.StatusInProgress, claimed.Status)

	released, err := e.Release(ctx, created.ID, "deferred", "agent@example.com", time.Unix(1002, 0))
	require.NoError(t, err)
	require.Equal(t, uint64(3), released.Lamport)
	require.False(t, released.Claimed)
	require.Equal(t, types.StatusOpen, released.Status)
	require.Equal(t, "deferred", released.Reason)
}

func TestClaimAlreadyClaimedFails(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))
	created, err := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)

	_, err = e.Claim(ctx, created.ID, "ctx", "agent@example.com", time.Unix(1001, 0))
	require.NoError(t, err)

	_, err = e.Claim(ctx, created.ID, "ctx2", "agent@example.com", time.Unix(1002, 0))
	require.True(t, errors.Is(err, errs.ErrAlreadyClaimed))
}

func TestAddEdgeAndCycleRefusal(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	a, _ := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	b, _ := e.CreateIssue(ctx, "B", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	c, _ := e.CreateIssue(ctx, "C", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))

	_, err := e.AddEdge(ctx, a.ID, b.ID, types.EdgeDependsOn, time.Unix(1001, 0))
	require.NoError(t, err)
	_, err = e.AddEdge(ctx, b.ID, c.ID, types.EdgeDependsOn, time.Unix(1002, 0))
	require.NoError(t, err)

	_, err = e.AddEdge(ctx, c.ID, a.ID, types.EdgeDependsOn, time.Unix(1003, 0))
	var cycleErr *errs.WouldCreateCycleError
	require.True(t, errors.As(err, &cycleErr), "expected a WouldCreateCycleError, got %v", err)

	_, err = e.AddEdge(ctx, c.ID, a.ID, types.EdgeRelatesTo, time.Unix(1004, 0))
	require.NoError(t, err)
}

func TestAddEdgeSelfReferenceAndDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))
	a, _ := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	b, _ := e.CreateIssue(ctx, "B", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))

	_, err := e.AddEdge(ctx, a.ID, a.ID, types.EdgeRelatesTo, time.Unix(1001, 0))
	var selfErr *errs.SelfReferenceError
	require.True(t, errors.As(err, &selfErr))

	_, err = e.AddEdge(ctx, a.ID, b.ID, types.EdgeDependsOn, time.Unix(1001, 0))
	require.NoError(t, err)
	_, err = e.AddEdge(ctx, a.ID, b.ID, types.EdgeDependsOn, time.Unix(1002, 0))
	var dupErr *errs.DuplicateEdgeError
	require.True(t, errors.As(err, &dupErr))
}

func TestRemoveEdgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))
	a, _ := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	b, _ := e.CreateIssue(ctx, "B", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))

	_, err := e.AddEdge(ctx, a.ID, b.ID, types.EdgeDependsOn, time.Unix(1001, 0))
	require.NoError(t, err)

	removed, err := e.RemoveEdge(ctx, a.ID, b.ID, types.EdgeDependsOn)
	require.NoError(t, err)
	require.True(t, removed)

	removedAgain, err := e.RemoveEdge(ctx, a.ID, b.ID, types.EdgeDependsOn)
	require.NoError(t, err)
	require.False(t, removedAgain)
}

func TestResolvePrefixAmbiguousAndNotFound(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	_, err := e.ResolvePrefix(ctx, "st-zzzz")
	var notFound *errs.NotFoundError
	require.True(t, errors.As(err, &notFound))

	_, err = e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)
	_, err = e.CreateIssue(ctx, "B", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)

	_, err = e.ResolvePrefix(ctx, "st-")
	var ambiguous *errs.AmbiguousIDError
	require.True(t, errors.As(err, &ambiguous))
}

func TestPullMergesRemoteIntoLocalAsSingleCommit(t *testing.T) {
	ctx := context.Background()
	localEngine, localStore := newEngine(t)
	remoteStore := objectstore.NewMemoryStore()
	remoteLockPath := filepath.Join(t.TempDir(), "sterna.lock")
	remoteEngine := New(remoteStore, remoteLockPath, "other@example.com", nil, nil)

	require.NoError(t, localEngine.Initialize(ctx))
	require.NoError(t, remoteEngine.Initialize(ctx))

	localIssue, err := localEngine.CreateIssue(ctx, "Local only", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)
	remoteIssue, err := remoteEngine.CreateIssue(ctx, "Remote only", "", "other@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)

	localTipBefore, ok, err := localStore.ResolveRef(ctx, RefSnapshot)
	require.NoError(t, err)
	require.True(t, ok)

	remoteStore.CopyObjectsTo(localStore)
	remoteStore.CopyRef(localStore, RefSnapshot, RefRemote)

	outcome, err := localEngine.reconcileFetchedRemote(ctx, "origin")
	require.NoError(t, err)
	require.Equal(t, 1, outcome.IssuesInserted)

	merged, err := localEngine.LoadIssues(ctx)
	require.NoError(t, err)
	require.Contains(t, merged, localIssue.ID)
	require.Contains(t, merged, remoteIssue.ID)

	_, ok, err = localStore.ResolveRef(ctx, RefRemote)
	require.NoError(t, err)
	require.False(t, ok)

	mergedTip, _, err := localStore.ResolveRef(ctx, RefSnapshot)
	require.NoError(t, err)
	require.NotEqual(t, localTipBefore, mergedTip)
}
