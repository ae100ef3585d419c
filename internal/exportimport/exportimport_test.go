package exportimport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/qmx/sterna/internal/objectstore"
	"github.com/qmx/sterna/internal/snapshot"
	"github.com/qmx/sterna/internal/types"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *snapshot.Engine {
	t.Helper()
	store := objectstore.NewMemoryStore()
	lockPath := filepath.Join(t.TempDir(), "sterna.lock")
	return snapshot.New(store, lockPath, "agent@example.com", nil, nil)
}

func TestExportThenImportRoundTripIsIdentity(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	_, err := e.CreateIssue(ctx, "Fix crash", "", "agent@example.com", types.TypeBug, types.PriorityHigh, nil, time.Unix(1000, 0))
	require.NoError(t, err)

	doc, err := Export(ctx, e, time.Unix(2000, 0))
	require.NoError(t, err)
	require.Equal(t, DocumentVersion, doc.Version)
	require.Equal(t, int64(2000), doc.ExportedAt)
	require.Len(t, doc.Issues, 1)

	data, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, doc.Issues[0].ID, decoded.Issues[0].ID)

	summary, err := Import(ctx, e, data, nil)
	require.NoError(t, err)
	require.Equal(t, 0, summary.IssuesInserted)
	require.Equal(t, 1, summary.IssuesKept)

	issues, err := e.LoadIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
}

func TestImportInsertsUnknownAndAppliesLWWOnKnown(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	created, err := e.CreateIssue(ctx, "Original title", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)

	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: 2000,
		Issues: []types.Issue{
			{
				SchemaVersion: types.SchemaVersion,
				ID:            created.ID,
				Title:         "Updated title",
				Status:        types.StatusOpen,
				Priority:      types.PriorityMedium,
				Type:          types.TypeTask,
				CreatedAt:     created.CreatedAt,
				UpdatedAt:     created.UpdatedAt + 100,
				Lamport:       created.Lamport + 1,
				Editor:        "other@example.com",
			},
			{
				SchemaVersion: types.SchemaVersion,
				ID:            "st-new",
				Title:         "Brand new",
				Status:        types.StatusOpen,
				Priority:      types.PriorityLow,
				Type:          types.TypeTask,
				CreatedAt:     1500,
				UpdatedAt:     1500,
				Lamport:       1,
				Editor:        "other@example.com",
			},
		},
	}
	data, err := Encode(doc)
	require.NoError(t, err)

	summary, err := Import(ctx, e, data, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.IssuesInserted)
	require.Equal(t, 1, summary.IssuesReplaced)

	issues, err := e.LoadIssues(ctx)
	require.NoError(t, err)
	require.Equal(t, "Updated title", issues[created.ID].Title)
	require.Contains(t, issues, "st-new")
}

func TestImportSkipsCycleFormingEdge(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	require.NoError(t, e.Initialize(ctx))

	a, err := e.CreateIssue(ctx, "A", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)
	b, err := e.CreateIssue(ctx, "B", "", "agent@example.com", types.TypeTask, types.PriorityMedium, nil, time.Unix(1000, 0))
	require.NoError(t, err)

	_, err = e.AddEdge(ctx, a.ID, b.ID, types.EdgeDependsOn, time.Unix(1001, 0))
	require.NoError(t, err)

	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: 2000,
		Edges: []types.Edge{
			{Source: b.ID, Target: a.ID, Type: types.EdgeDependsOn},
		},
	}
	data, err := Encode(doc)
	require.NoError(t, err)

	summary, err := Import(ctx, e, data, nil)
	require.NoError(t, err)
	require.Len(t, summary.EdgesSkippedCycle, 1)

	edges, err := e.LoadEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data := []byte("version = 99\nexported_at = 0\n")
	_, err := Decode(data)
	require.Error(t, err)
}
