// Package validation parses and sanity-checks CLI-facing input before it
// reaches the snapshot engine: priority/type/edge-type tokens and a
// heuristic for flagging likely-test issue titles.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qmx/sterna/internal/errs"
	"github.com/qmx/sterna/internal/types"
)

// ParsePriority accepts both "2" and "P2" (case-insensitive, surrounding
// whitespace trimmed) and returns the matching Priority.
func ParsePriority(s string) (types.Priority, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "P")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidPriority, s)
	}
	p := types.Priority(n)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: %q", errs.ErrInvalidPriority, s)
	}
	return p, nil
}

// ParseIssueType accepts a case-insensitive, whitespace-trimmed issue type
// token (epic, task, bug, feature, chore).
func ParseIssueType(s string) (types.IssueType, error) {
	t := types.IssueType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidIssueType, s)
	}
	return t, nil
}

// ParseEdgeType accepts a case-insensitive, whitespace-trimmed edge type
// token (depends_on, blocks, parent_child, relates_to, duplicates), plus
// the short aliases used on the command line.
func ParseEdgeType(s string) (types.EdgeType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch normalized {
	case "needs", "depends", "depends_on", "depends-on":
		return types.EdgeDependsOn, nil
	case "blocks":
		return types.EdgeBlocks, nil
	case "parent", "parent_child", "parent-child", "child_of":
		return types.EdgeParentChild, nil
	case "relates", "relates_to", "relates-to":
		return types.EdgeRelatesTo, nil
	case "duplicates", "duplicate", "dup":
		return types.EdgeDuplicates, nil
	}
	t := types.EdgeType(normalized)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidEdgeType, s)
	}
	return t, nil
}

var testIssueTitlePattern = regexp.MustCompile(`^(test|benchmark|sample|tmp|temp|debug|dummy)[-_\s]`)

// IsTestIssueTitle reports whether a title looks like test or demo data,
// used to adjust warning text rather than to reject anything.
func IsTestIssueTitle(title string) bool {
	return testIssueTitlePattern.MatchString(strings.ToLower(strings.TrimSpace(title)))
}
