// Package query implements read-only views over a loaded snapshot: the
// ready set, filtered listings, and prefix lookup (spec.md §4.7). It never
// touches the object store; callers pass in whatever snapshot.Engine
// already loaded, which keeps this package trivially unit-testable.
package query

import (
	"sort"
	"strings"

	"github.com/qmx/sterna/internal/errs"
	"github.com/qmx/sterna/internal/types"
)

// Filter narrows List to issues matching the given status/type, leaving a
// nil field unconstrained.
type Filter struct {
	Status *types.Status
	Type   *types.IssueType
}

// sortIssues orders ascending by priority rank, then by creation time,
// matching the Ready/List sort contract.
func sortIssues(issues []types.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Priority != issues[j].Priority {
			return issues[i].Priority < issues[j].Priority
		}
		return issues[i].CreatedAt < issues[j].CreatedAt
	})
}

// Ready returns open, unclaimed issues with no unresolved blocking
// dependency, sorted by priority then creation time.
func Ready(issues map[string]types.Issue, edges []types.Edge) []types.Issue {
	var ready []types.Issue
	for id, issue := range issues {
		if issue.Status != types.StatusOpen || issue.Claimed {
			continue
		}
		if isBlocked(id, issues, edges) {
			continue
		}
		ready = append(ready, issue)
	}
	sortIssues(ready)
	return ready
}

// isBlocked reports whether id has an outgoing DependsOn, an incoming
// Blocks, or an outgoing ParentChild to an issue that is not Closed.
// RelatesTo and Duplicates never block. An edge endpoint missing from
// issues is skipped rather than treated as blocking (spec.md §9's
// documented open question on dangling edges).
func isBlocked(id string, issues map[string]types.Issue, edges []types.Edge) bool {
	for _, e := range edges {
		switch e.Type {
		case types.EdgeDependsOn, types.EdgeParentChild:
			if e.Source != id {
				continue
			}
			if other, ok := issues[e.Target]; ok && other.Status != types.StatusClosed {
				return true
			}
		case types.EdgeBlocks:
			if e.Target != id {
				continue
			}
			if other, ok := issues[e.Source]; ok && other.Status != types.StatusClosed {
				return true
			}
		}
	}
	return false
}

// List returns every issue matching filter, sorted by priority then
// creation time.
func List(issues map[string]types.Issue, filter Filter) []types.Issue {
	var out []types.Issue
	for _, issue := range issues {
		if filter.Status != nil && issue.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && issue.Type != *filter.Type {
			continue
		}
		out = append(out, issue)
	}
	sortIssues(out)
	return out
}

// Get resolves prefix against issues and returns the matched issue.
func Get(issues map[string]types.Issue, prefix string) (types.Issue, error) {
	var matches []string
	for id := range issues {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)
	switch len(matches) {
	case 0:
		return types.Issue{}, errs.NotFound(prefix)
	case 1:
		return issues[matches[0]], nil
	default:
		return types.Issue{}, errs.AmbiguousID(prefix, matches)
	}
}
