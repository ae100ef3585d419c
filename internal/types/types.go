// Package types defines the persisted entity model: Issue and Edge records,
// their enums, and the canonical TOML serialization used for every blob in
// the snapshot tree.
package types

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/qmx/sterna/internal/errs"
)

// SchemaVersion is the engine's current record schema version. Every
// decoded record must carry this exact value.
const SchemaVersion = 1

// Status is the lifecycle state of an Issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("sterna: invalid status %q", string(s))
	}
	return []byte(s), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v := Status(text)
	if !v.Valid() {
		return fmt.Errorf("sterna: invalid status %q", string(text))
	}
	*s = v
	return nil
}

// Priority is the issue's urgency rank. Lower values are more urgent, and
// the numeric value IS the wire representation so naive consumers still
// sort correctly.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityMedium   Priority = 2
	PriorityLow      Priority = 3
	PriorityBacklog  Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityBacklog
}

// IssueType classifies the kind of work an Issue tracks.
type IssueType string

const (
	TypeEpic    IssueType = "epic"
	TypeTask    IssueType = "task"
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeChore   IssueType = "chore"
)

func (t IssueType) Valid() bool {
	switch t {
	case TypeEpic, TypeTask, TypeBug, TypeFeature, TypeChore:
		return true
	}
	return false
}

func (t IssueType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errs.ErrInvalidIssueType
	}
	return []byte(t), nil
}

func (t *IssueType) UnmarshalText(text []byte) error {
	v := IssueType(text)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", errs.ErrInvalidIssueType, string(text))
	}
	*t = v
	return nil
}

// EdgeType classifies the directed relation an Edge expresses.
type EdgeType string

const (
	EdgeDependsOn   EdgeType = "depends_on"
	EdgeBlocks      EdgeType = "blocks"
	EdgeParentChild EdgeType = "parent_child"
	EdgeRelatesTo   EdgeType = "relates_to"
	EdgeDuplicates  EdgeType = "duplicates"
)

func (t EdgeType) Valid() bool {
	switch t {
	case EdgeDependsOn, EdgeBlocks, EdgeParentChild, EdgeRelatesTo, EdgeDuplicates:
		return true
	}
	return false
}

// CycleForming reports whether edges of this type participate in cycle
// detection (spec.md §3, §4.5).
func (t EdgeType) CycleForming() bool {
	switch t {
	case EdgeDependsOn, EdgeBlocks, EdgeParentChild:
		return true
	}
	return false
}

func (t EdgeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errs.ErrInvalidEdgeType
	}
	return []byte(t), nil
}

func (t *EdgeType) UnmarshalText(text []byte) error {
	v := EdgeType(text)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", errs.ErrInvalidEdgeType, string(text))
	}
	*t = v
	return nil
}

// Issue is a mutable tracked work item.
type Issue struct {
	SchemaVersion int       `toml:"schema_version"`
	ID            string    `toml:"id"`
	Title         string    `toml:"title"`
	Description   string    `toml:"description"`
	Status        Status    `toml:"status"`
	Priority      Priority  `toml:"priority"`
	Type          IssueType `toml:"type"`
	Labels        []string  `toml:"labels"`
	CreatedAt     int64     `toml:"created_at"`
	UpdatedAt     int64     `toml:"updated_at"`
	Lamport       uint64    `toml:"lamport"`
	Editor        string    `toml:"editor"`
	Claimed       bool      `toml:"claimed"`
	ClaimContext  string    `toml:"claim_context,omitempty"`
	ClaimedAt     int64     `toml:"claimed_at,omitempty"`
	Reason        string    `toml:"reason,omitempty"`
}

// Edge is an immutable directed relation between two issue identifiers.
type Edge struct {
	SchemaVersion int      `toml:"schema_version"`
	Source        string   `toml:"source"`
	Target        string   `toml:"target"`
	Type          EdgeType `toml:"type"`
	CreatedAt     int64    `toml:"created_at"`
}

// Key returns the triple that identifies this edge.
func (e Edge) Key() string {
	return e.Source + "_" + e.Target + "_" + string(e.Type)
}

// EncodeIssue renders an Issue to its canonical TOML blob content.
func EncodeIssue(issue Issue) ([]byte, error) {
	issue.SchemaVersion = SchemaVersion
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(issue); err != nil {
		return nil, fmt.Errorf("sterna: encode issue %s: %w", issue.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeIssue parses a canonical TOML blob into an Issue. The schema
// version is checked before any other field is trusted.
func DecodeIssue(data []byte) (Issue, error) {
	var raw struct {
		SchemaVersion int `toml:"schema_version"`
	}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Issue{}, fmt.Errorf("sterna: decode issue header: %w", err)
	}
	if raw.SchemaVersion != SchemaVersion {
		return Issue{}, errs.SchemaMismatch(SchemaVersion, raw.SchemaVersion)
	}
	var issue Issue
	if _, err := toml.Decode(string(data), &issue); err != nil {
		return Issue{}, fmt.Errorf("sterna: decode issue: %w", err)
	}
	return issue, nil
}

// EncodeEdge renders an Edge to its canonical TOML blob content.
func EncodeEdge(edge Edge) ([]byte, error) {
	edge.SchemaVersion = SchemaVersion
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(edge); err != nil {
		return nil, fmt.Errorf("sterna: encode edge %s: %w", edge.Key(), err)
	}
	return buf.Bytes(), nil
}

// DecodeEdge parses a canonical TOML blob into an Edge.
func DecodeEdge(data []byte) (Edge, error) {
	var raw struct {
		SchemaVersion int `toml:"schema_version"`
	}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return Edge{}, fmt.Errorf("sterna: decode edge header: %w", err)
	}
	if raw.SchemaVersion != SchemaVersion {
		return Edge{}, errs.SchemaMismatch(SchemaVersion, raw.SchemaVersion)
	}
	var edge Edge
	if _, err := toml.Decode(string(data), &edge); err != nil {
		return Edge{}, fmt.Errorf("sterna: decode edge: %w", err)
	}
	return edge, nil
}

// Validate checks structural invariants that hold independent of the rest
// of the snapshot (spec.md §3): valid enums, updated_at >= created_at.
func (i Issue) Validate() error {
	if !i.Status.Valid() {
		return fmt.Errorf("sterna: invalid status %q", i.Status)
	}
	if !i.Priority.Valid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidPriority, i.Priority)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("%w: %q", errs.ErrInvalidIssueType, i.Type)
	}
	if i.UpdatedAt < i.CreatedAt {
		return fmt.Errorf("sterna: issue %s: updated_at %d precedes created_at %d", i.ID, i.UpdatedAt, i.CreatedAt)
	}
	return nil
}

// Validate checks structural invariants on an Edge.
func (e Edge) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", errs.ErrInvalidEdgeType, e.Type)
	}
	if e.Source == e.Target {
		return errs.SelfReference(e.Source)
	}
	return nil
}
