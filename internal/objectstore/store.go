// Package objectstore is the sole boundary between the engine and the host
// source-control object database (spec.md §4.3). Every other package talks
// to the ObjectStore interface, never to git or os/exec directly, so the
// engine can run its unit tests against an in-memory fake and reserve real
// git plumbing calls for a small adapter test suite.
package objectstore

import "context"

// File modes for tree entries, matching git's plumbing mode strings.
const (
	ModeBlob = "100644"
	ModeTree = "040000"
)

// TreeEntry is one named entry of a tree object.
type TreeEntry struct {
	Name string
	OID  string
	Mode string
}

// Author identifies who a commit is attributed to.
type Author struct {
	Name  string
	Email string
}

// TreeBuilder accumulates entries for a new tree object, optionally seeded
// from an existing tree so unchanged entries are reused by object identity
// rather than rewritten.
type TreeBuilder interface {
	// Insert adds or replaces the named entry.
	Insert(name, oid, mode string)
	// Remove deletes the named entry, if present.
	Remove(name string)
	// Entries returns the builder's current entries, sorted by name.
	Entries() []TreeEntry
	// Write materializes the tree object and returns its identifier.
	Write(ctx context.Context) (string, error)
}

// ObjectStore is the adapter contract of spec.md §4.3.
type ObjectStore interface {
	// WriteBlob stores bytes as a blob object and returns its identifier.
	WriteBlob(ctx context.Context, data []byte) (string, error)
	// ReadBlob retrieves a blob's content by object identifier.
	ReadBlob(ctx context.Context, oid string) ([]byte, error)
	// ReadTree lists a tree object's entries.
	ReadTree(ctx context.Context, oid string) ([]TreeEntry, error)
	// CommitTree returns the tree object a commit points at.
	CommitTree(ctx context.Context, commitOID string) (treeOID string, err error)
	// NewTreeBuilder returns a builder seeded from base (empty string for
	// a fresh, empty tree).
	NewTreeBuilder(ctx context.Context, base string) (TreeBuilder, error)
	// Commit creates a commit object over tree with the given parents and
	// atomically advances ref to point at it, failing if ref's current tip
	// is not exactly the (possibly empty) expectedOld value. It returns the
	// new commit's identifier.
	Commit(ctx context.Context, ref string, expectedOld string, parents []string, message string, tree string, author Author) (string, error)
	// ResolveRef returns the commit identifier a reference points at, and
	// whether the reference exists at all.
	ResolveRef(ctx context.Context, ref string) (oid string, ok bool, err error)
	// DeleteRef removes a reference. Deleting an absent reference is a no-op.
	DeleteRef(ctx context.Context, ref string) error
	// Fetch moves refSpec from remote into the local repository.
	Fetch(ctx context.Context, remote, refSpec string) error
	// Push moves refSpec from the local repository to remote.
	Push(ctx context.Context, remote, refSpec string) error
	// ConfigValue reads a host source-control config key (e.g. user.email).
	ConfigValue(ctx context.Context, key string) (value string, ok bool, err error)
}
