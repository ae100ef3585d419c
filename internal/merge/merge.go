// Package merge implements three-way-free reconciliation of two snapshots
// (spec.md §4.6): last-writer-wins on issues, keyed by a lamport-then-
// updated_at comparison, and set-union on edges with cycle-forming
// candidates skipped rather than aborting the whole merge. Export/Import
// reuses the exact same Reconcile function Pull uses, so the two code
// paths can never drift apart.
package merge

import (
	"log/slog"

	"github.com/qmx/sterna/internal/graph"
	"github.com/qmx/sterna/internal/types"
)

// Snapshot is the in-memory view of a snapshot's issues and edges that the
// merge engine operates over.
type Snapshot struct {
	Issues map[string]types.Issue
	Edges  []types.Edge
}

// Outcome summarizes what Reconcile did, useful to report to a caller (the
// CLI's import/pull handlers) without forcing them to diff the inputs
// themselves.
type Outcome struct {
	IssuesInserted    int
	IssuesReplaced    int
	IssuesKept        int
	EdgesInserted     int
	EdgesAlreadyKnown int
	EdgesSkippedCycle []SkippedEdge
}

// SkippedEdge records an edge from the remote side that was not admitted
// because it would have closed a cycle in the merged graph.
type SkippedEdge struct {
	Source string
	Target string
	Type   types.EdgeType
}

// Reconcile merges remote into local, local winning every tie. It never
// mutates its inputs. logger receives one diagnostic line per skipped
// cycle-forming edge (spec.md §7's documented local-recovery exception).
func Reconcile(local, remote Snapshot, logger *slog.Logger) (Snapshot, Outcome) {
	if logger == nil {
		logger = slog.Default()
	}

	merged := Snapshot{
		Issues: make(map[string]types.Issue, len(local.Issues)+len(remote.Issues)),
	}
	for id, issue := range local.Issues {
		merged.Issues[id] = issue
	}

	var outcome Outcome
	for id, remoteIssue := range remote.Issues {
		localIssue, present := merged.Issues[id]
		if !present {
			merged.Issues[id] = remoteIssue
			outcome.IssuesInserted++
			continue
		}
		if dominates(remoteIssue, localIssue) {
			merged.Issues[id] = remoteIssue
			outcome.IssuesReplaced++
		} else {
			outcome.IssuesKept++
		}
	}

	merged.Edges, outcome.EdgesInserted, outcome.EdgesAlreadyKnown, outcome.EdgesSkippedCycle =
		unionEdges(local.Edges, remote.Edges, logger)

	return merged, outcome
}

// dominates reports whether r should replace l under the LWW rule of
// spec.md §4.6: a strictly greater lamport wins outright; on a lamport tie
// a strictly greater updated_at wins; any further tie favors the local
// side (l), so dominates returns false.
func dominates(r, l types.Issue) bool {
	if r.Lamport != l.Lamport {
		return r.Lamport > l.Lamport
	}
	return r.UpdatedAt > l.UpdatedAt
}

func unionEdges(local, remote []types.Edge, logger *slog.Logger) ([]types.Edge, int, int, []SkippedEdge) {
	merged := make([]types.Edge, len(local))
	copy(merged, local)

	present := make(map[string]struct{}, len(local))
	for _, e := range local {
		present[e.Key()] = struct{}{}
	}

	var inserted, alreadyKnown int
	var skipped []SkippedEdge

	for _, e := range remote {
		key := e.Key()
		if _, ok := present[key]; ok {
			alreadyKnown++
			continue
		}
		if graph.WouldCreateCycle(merged, e.Source, e.Target, e.Type) {
			logger.Warn("sterna: skipping edge that would create a cycle during merge",
				"source", e.Source, "target", e.Target, "type", e.Type)
			skipped = append(skipped, SkippedEdge{Source: e.Source, Target: e.Target, Type: e.Type})
			continue
		}
		merged = append(merged, e)
		present[key] = struct{}{}
		inserted++
	}

	return merged, inserted, alreadyKnown, skipped
}
