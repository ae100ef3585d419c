// Package exportimport implements the textual export/import document
// (spec.md §6) on top of the merge engine's reconciliation path, so Import
// and Pull can never disagree about LWW or cycle-skip semantics.
package exportimport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/qmx/sterna/internal/errs"
	"github.com/qmx/sterna/internal/merge"
	"github.com/qmx/sterna/internal/snapshot"
	"github.com/qmx/sterna/internal/types"
)

// DocumentVersion is the export document's current format version.
const DocumentVersion = 1

// Document is the top-level export/import document shape.
type Document struct {
	Version    int           `toml:"version"`
	ExportedAt int64         `toml:"exported_at"`
	Issues     []types.Issue `toml:"issues"`
	Edges      []types.Edge  `toml:"edges"`
}

// Encode renders a Document to its canonical TOML form.
func Encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("sterna: encode export document: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a Document from its canonical TOML form, rejecting any
// version other than DocumentVersion before trusting its contents.
func Decode(data []byte) (Document, error) {
	var doc Document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return Document{}, fmt.Errorf("sterna: decode export document: %w", err)
	}
	if doc.Version != DocumentVersion {
		return Document{}, errs.SchemaMismatch(DocumentVersion, doc.Version)
	}
	return doc, nil
}

// Export loads the current snapshot and renders it as a Document stamped
// with now.
func Export(ctx context.Context, engine *snapshot.Engine, now time.Time) (Document, error) {
	contents, err := engine.LoadSnapshot(ctx)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: now.Unix(),
		Edges:      contents.Edges,
	}
	doc.Issues = make([]types.Issue, 0, len(contents.Issues))
	for _, issue := range contents.Issues {
		doc.Issues = append(doc.Issues, issue)
	}
	return doc, nil
}

// Summary reports what Import did, matching merge.Outcome's shape; kept as
// a distinct type so callers depend on this package's contract rather than
// the merge engine's internals.
type Summary struct {
	IssuesInserted    int
	IssuesReplaced    int
	IssuesKept        int
	EdgesInserted     int
	EdgesAlreadyKnown int
	EdgesSkippedCycle []merge.SkippedEdge
}

func summaryFrom(o merge.Outcome) Summary {
	return Summary{
		IssuesInserted:    o.IssuesInserted,
		IssuesReplaced:    o.IssuesReplaced,
		IssuesKept:        o.IssuesKept,
		EdgesInserted:     o.EdgesInserted,
		EdgesAlreadyKnown: o.EdgesAlreadyKnown,
		EdgesSkippedCycle: o.EdgesSkippedCycle,
	}
}

// Import parses data as a Document and reconciles it into engine's
// snapshot using the exact same LWW/cycle-skip rules Pull uses, producing
// a single merge commit.
func Import(ctx context.Context, engine *snapshot.Engine, data []byte, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := Decode(data)
	if err != nil {
		return Summary{}, err
	}

	local, err := engine.LoadSnapshot(ctx)
	if err != nil {
		return Summary{}, err
	}

	foreign := merge.Snapshot{
		Issues: make(map[string]types.Issue, len(doc.Issues)),
		Edges:  doc.Edges,
	}
	for _, issue := range doc.Issues {
		foreign.Issues[issue.ID] = issue
	}

	merged, outcome := merge.Reconcile(
		merge.Snapshot{Issues: local.Issues, Edges: local.Edges},
		foreign,
		logger,
	)

	if err := engine.MergeSnapshot(ctx, merged.Issues, merged.Edges, "sterna: import"); err != nil {
		return Summary{}, err
	}

	logger.Info("sterna: import complete",
		"issues_inserted", outcome.IssuesInserted,
		"issues_replaced", outcome.IssuesReplaced,
		"issues_kept", outcome.IssuesKept,
		"edges_inserted", outcome.EdgesInserted,
		"edges_already_known", outcome.EdgesAlreadyKnown,
		"edges_skipped_cycle", len(outcome.EdgesSkippedCycle),
	)

	return summaryFrom(outcome), nil
}
