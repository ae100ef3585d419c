// Package errs defines the engine's error taxonomy. Every domain error the
// engine returns to a caller is one of these kinds, wrapped with context via
// fmt.Errorf("%w", ...) where useful, and checkable with errors.Is/errors.As.
// Failures of the underlying git plumbing, I/O and encoding are returned as
// ordinary wrapped errors, not as one of these kinds.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for violations that carry no extra data.
var (
	ErrNotInitialized    = errors.New("sterna: snapshot not initialized")
	ErrAlreadyInitialized = errors.New("sterna: snapshot already initialized")
	ErrNoIdentity        = errors.New("sterna: no host identity configured")
	ErrAlreadyClaimed    = errors.New("sterna: issue already claimed")
	ErrNotClaimed        = errors.New("sterna: issue not claimed")
	ErrIsClosed          = errors.New("sterna: issue is closed")
	ErrAlreadyClosed     = errors.New("sterna: issue already closed")
	ErrNotClosed         = errors.New("sterna: issue is not closed")
	ErrInvalidPriority   = errors.New("sterna: invalid priority")
	ErrInvalidIssueType  = errors.New("sterna: invalid issue type")
	ErrInvalidEdgeType   = errors.New("sterna: invalid edge type")
	ErrNoEdgeTarget      = errors.New("sterna: no edge target specified")
	ErrInvalidSnapshot   = errors.New("sterna: remote snapshot has invalid structure")
)

// SchemaMismatchError reports a record whose schema_version does not match
// the engine's current version.
type SchemaMismatchError struct {
	Expected int
	Found    int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("sterna: schema mismatch: expected %d, found %d", e.Expected, e.Found)
}

func SchemaMismatch(expected, found int) error {
	return &SchemaMismatchError{Expected: expected, Found: found}
}

// NotFoundError reports an identifier prefix that matched nothing.
type NotFoundError struct {
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sterna: no identifier matches prefix %q", e.Prefix)
}

func NotFound(prefix string) error {
	return &NotFoundError{Prefix: prefix}
}

// AmbiguousIDError reports a prefix matching two or more identifiers.
type AmbiguousIDError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguousIDError) Error() string {
	return fmt.Sprintf("sterna: prefix %q is ambiguous, matches %v", e.Prefix, e.Candidates)
}

func AmbiguousID(prefix string, candidates []string) error {
	cs := make([]string, len(candidates))
	copy(cs, candidates)
	return &AmbiguousIDError{Prefix: prefix, Candidates: cs}
}

// SelfReferenceError reports an edge whose source equals its target.
type SelfReferenceError struct {
	ID string
}

func (e *SelfReferenceError) Error() string {
	return fmt.Sprintf("sterna: edge endpoints both resolve to %q", e.ID)
}

func SelfReference(id string) error {
	return &SelfReferenceError{ID: id}
}

// DuplicateEdgeError reports an edge triple that already exists.
type DuplicateEdgeError struct {
	Source string
	Target string
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("sterna: edge %s -> %s already exists", e.Source, e.Target)
}

func DuplicateEdge(source, target string) error {
	return &DuplicateEdgeError{Source: source, Target: target}
}

// WouldCreateCycleError reports an edge whose admission would close a cycle
// in the cycle-forming subgraph.
type WouldCreateCycleError struct {
	Source string
	Target string
}

func (e *WouldCreateCycleError) Error() string {
	return fmt.Sprintf("sterna: adding %s -> %s would create a cycle", e.Source, e.Target)
}

func WouldCreateCycle(source, target string) error {
	return &WouldCreateCycleError{Source: source, Target: target}
}

// CorruptedSnapshotError reports a snapshot tree missing a required
// subtree or entry.
type CorruptedSnapshotError struct {
	Msg string
}

func (e *CorruptedSnapshotError) Error() string {
	return fmt.Sprintf("sterna: corrupted snapshot: %s", e.Msg)
}

func CorruptedSnapshot(msg string) error {
	return &CorruptedSnapshotError{Msg: msg}
}

// LockFailedError reports a failure to acquire the process-exclusion lock.
type LockFailedError struct {
	Msg string
}

func (e *LockFailedError) Error() string {
	return fmt.Sprintf("sterna: lock failed: %s", e.Msg)
}

func LockFailed(msg string) error {
	return &LockFailedError{Msg: msg}
}
