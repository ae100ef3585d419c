package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process ObjectStore used by the engine's unit tests
// so the bulk of the suite never invokes a real git binary. It honors the
// same compare-and-swap semantics on Commit/update-ref that GitStore does.
type MemoryStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	trees   map[string][]TreeEntry
	commits map[string]commitObj
	refs    map[string]string
	config  map[string]string
}

type commitObj struct {
	tree    string
	parents []string
}

// NewMemoryStore returns an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:   map[string][]byte{},
		trees:   map[string][]TreeEntry{},
		commits: map[string]commitObj{},
		refs:    map[string]string{},
		config:  map[string]string{},
	}
}

// SetConfigValue seeds a host source-control config value, e.g. for
// simulating a configured git identity in tests.
func (m *MemoryStore) SetConfigValue(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
}

func hashContent(kind string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (m *MemoryStore) WriteBlob(_ context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid := hashContent("blob", data)
	m.blobs[oid] = append([]byte(nil), data...)
	return oid, nil
}

func (m *MemoryStore) ReadBlob(_ context.Context, oid string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[oid]
	if !ok {
		return nil, fmt.Errorf("sterna: blob %s not found", oid)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) ReadTree(_ context.Context, oid string) ([]TreeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.trees[oid]
	if !ok {
		return nil, fmt.Errorf("sterna: tree %s not found", oid)
	}
	out := make([]TreeEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *MemoryStore) NewTreeBuilder(ctx context.Context, base string) (TreeBuilder, error) {
	b := &memTreeBuilder{store: m, entries: map[string]TreeEntry{}}
	if base != "" {
		entries, err := m.ReadTree(ctx, base)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			b.entries[e.Name] = e
		}
	}
	return b, nil
}

func (m *MemoryStore) Commit(_ context.Context, ref, expectedOld string, parents []string, message, tree string, author Author) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.refs[ref] // zero value "" when absent
	if current != expectedOld {
		return "", fmt.Errorf("sterna: update-ref %s: compare-and-swap against %q failed, current is %q", ref, expectedOld, current)
	}

	content := fmt.Sprintf("%s\x00%s\x00%s\x00%v\x00%s\x00%s", tree, message, author.Email, parents, ref, "seq")
	oid := hashContent("commit", []byte(fmt.Sprintf("%s\x00%d", content, len(m.commits))))
	m.commits[oid] = commitObj{tree: tree, parents: append([]string(nil), parents...)}
	m.refs[ref] = oid
	return oid, nil
}

func (m *MemoryStore) ResolveRef(_ context.Context, ref string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, ok := m.refs[ref]
	return oid, ok, nil
}

func (m *MemoryStore) DeleteRef(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refs, ref)
	return nil
}

func (m *MemoryStore) Fetch(_ context.Context, remote, refSpec string) error {
	return fmt.Errorf("sterna: MemoryStore does not support network fetch; use CopyRef for tests")
}

func (m *MemoryStore) Push(_ context.Context, remote, refSpec string) error {
	return fmt.Errorf("sterna: MemoryStore does not support network push; use CopyRef for tests")
}

func (m *MemoryStore) ConfigValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.config[key]
	return v, ok, nil
}

// CopyObjectsTo copies every object this store knows about into dst,
// simulating what a real `git fetch` transfers. Tests use this between two
// MemoryStores to exercise the merge engine's replication path.
func (m *MemoryStore) CopyObjectsTo(dst *MemoryStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst.mu.Lock()
	defer dst.mu.Unlock()
	for k, v := range m.blobs {
		dst.blobs[k] = v
	}
	for k, v := range m.trees {
		dst.trees[k] = v
	}
	for k, v := range m.commits {
		dst.commits[k] = v
	}
}

// CopyRef sets dstRef in dst to the commit srcRef currently points at in m,
// simulating what a real `git fetch` accomplishes against a remote. Tests
// combine this with CopyObjectsTo to exercise the snapshot engine's pull
// path without a real git binary.
func (m *MemoryStore) CopyRef(dst *MemoryStore, srcRef, dstRef string) {
	m.mu.Lock()
	oid, ok := m.refs[srcRef]
	m.mu.Unlock()
	if !ok {
		return
	}
	dst.mu.Lock()
	dst.refs[dstRef] = oid
	dst.mu.Unlock()
}

// CommitTree returns the tree object identifier a commit points at.
func (m *MemoryStore) CommitTree(_ context.Context, oid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commits[oid]
	if !ok {
		return "", fmt.Errorf("sterna: commit %s not found", oid)
	}
	return c.tree, nil
}

type memTreeBuilder struct {
	store   *MemoryStore
	entries map[string]TreeEntry
}

func (b *memTreeBuilder) Insert(name, oid, mode string) {
	b.entries[name] = TreeEntry{Name: name, OID: oid, Mode: mode}
}

func (b *memTreeBuilder) Remove(name string) {
	delete(b.entries, name)
}

func (b *memTreeBuilder) Entries() []TreeEntry {
	out := make([]TreeEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *memTreeBuilder) Write(_ context.Context) (string, error) {
	entries := b.Entries()
	var key strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&key, "%s\x00%s\x00%s\x00", e.Mode, e.OID, e.Name)
	}
	oid := hashContent("tree", []byte(key.String()))
	b.store.mu.Lock()
	b.store.trees[oid] = entries
	b.store.mu.Unlock()
	return oid, nil
}
