package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

// GitStore implements ObjectStore by shelling out to the git binary's
// plumbing subcommands against a fixed --git-dir, the same os/exec
// approach this codebase already uses for git-directory discovery. No
// working tree is read or written; every operation is a pure object
// database/reference operation.
type GitStore struct {
	GitDir string
	// Retry bounds the number of attempts Fetch/Push make against
	// transient (non-rejection) failures.
	Retry backoff.BackOff
}

// NewGitStore returns a GitStore rooted at the given .git directory.
func NewGitStore(gitDir string) *GitStore {
	return &GitStore{GitDir: gitDir, Retry: defaultBackOff()}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100_000_000 // 100ms, in time.Duration's underlying int64 ns
	return backoff.WithMaxRetries(b, 3)
}

func (s *GitStore) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	full := append([]string{"--git-dir=" + s.GitDir}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sterna: git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (s *GitStore) WriteBlob(ctx context.Context, data []byte) (string, error) {
	out, err := s.run(ctx, data, "hash-object", "-w", "-t", "blob", "--stdin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *GitStore) ReadBlob(ctx context.Context, oid string) ([]byte, error) {
	return s.run(ctx, nil, "cat-file", "-p", oid)
}

func (s *GitStore) ReadTree(ctx context.Context, oid string) ([]TreeEntry, error) {
	out, err := s.run(ctx, nil, "ls-tree", oid)
	if err != nil {
		return nil, err
	}
	var entries []TreeEntry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		// "<mode> <type> <oid>\t<name>"
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			return nil, fmt.Errorf("sterna: malformed ls-tree line: %q", line)
		}
		fields := strings.Fields(line[:tabIdx])
		if len(fields) != 3 {
			return nil, fmt.Errorf("sterna: malformed ls-tree line: %q", line)
		}
		entries = append(entries, TreeEntry{
			Mode: fields[0],
			OID:  fields[2],
			Name: line[tabIdx+1:],
		})
	}
	return entries, nil
}

func (s *GitStore) CommitTree(ctx context.Context, commitOID string) (string, error) {
	out, err := s.run(ctx, nil, "rev-parse", "--verify", commitOID+"^{tree}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *GitStore) NewTreeBuilder(ctx context.Context, base string) (TreeBuilder, error) {
	b := &gitTreeBuilder{store: s, entries: map[string]TreeEntry{}}
	if base != "" {
		entries, err := s.ReadTree(ctx, base)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			b.entries[e.Name] = e
		}
	}
	return b, nil
}

func (s *GitStore) Commit(ctx context.Context, ref, expectedOld string, parents []string, message, tree string, author Author) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)

	cmd := exec.CommandContext(ctx, "git", append([]string{"--git-dir=" + s.GitDir}, args...)...)
	cmd.Env = append(cmd.Environ(),
		"GIT_AUTHOR_NAME="+author.Name, "GIT_AUTHOR_EMAIL="+author.Email,
		"GIT_COMMITTER_NAME="+author.Name, "GIT_COMMITTER_EMAIL="+author.Email,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sterna: git commit-tree: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	commitOID := strings.TrimSpace(stdout.String())

	updateArgs := []string{"update-ref", ref, commitOID, expectedOld}
	if _, err := s.run(ctx, nil, updateArgs...); err != nil {
		return "", fmt.Errorf("sterna: update-ref %s (compare-and-swap against %q failed, concurrent writer?): %w", ref, expectedOld, err)
	}
	return commitOID, nil
}

func (s *GitStore) ResolveRef(ctx context.Context, ref string) (string, bool, error) {
	out, err := s.run(ctx, nil, "rev-parse", "--verify", "--quiet", ref)
	if err != nil {
		return "", false, nil
	}
	oid := strings.TrimSpace(string(out))
	if oid == "" {
		return "", false, nil
	}
	return oid, true, nil
}

func (s *GitStore) DeleteRef(ctx context.Context, ref string) error {
	_, ok, err := s.ResolveRef(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	_, err = s.run(ctx, nil, "update-ref", "-d", ref)
	return err
}

func (s *GitStore) Fetch(ctx context.Context, remote, refSpec string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.run(ctx, nil, "fetch", remote, refSpec)
		return err
	})
}

func (s *GitStore) Push(ctx context.Context, remote, refSpec string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.run(ctx, nil, "push", remote, refSpec)
		return err
	})
}

// withRetry retries transient network failures with bounded backoff but
// surfaces a non-fast-forward rejection immediately: a concurrent remote
// writer is a first-class error, not something to silently paper over
// (spec.md §9).
func (s *GitStore) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isNonFastForward(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(s.Retry, ctx))
}

func isNonFastForward(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "fetch first") ||
		strings.Contains(msg, "rejected")
}

// DiscoverGitDir runs git's own repository discovery (honoring cwd, GIT_DIR,
// and ceiling directories) and returns the resolved --git-dir, for callers
// constructing a GitStore without already knowing the repository layout.
func DiscoverGitDir(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("sterna: discover git dir: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (s *GitStore) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	out, err := s.run(ctx, nil, "config", "--get", key)
	if err != nil {
		return "", false, nil
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

type gitTreeBuilder struct {
	store   *GitStore
	entries map[string]TreeEntry
}

func (b *gitTreeBuilder) Insert(name, oid, mode string) {
	b.entries[name] = TreeEntry{Name: name, OID: oid, Mode: mode}
}

func (b *gitTreeBuilder) Remove(name string) {
	delete(b.entries, name)
}

func (b *gitTreeBuilder) Entries() []TreeEntry {
	out := make([]TreeEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *gitTreeBuilder) Write(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	for _, e := range b.Entries() {
		typ := "blob"
		if e.Mode == ModeTree {
			typ = "tree"
		}
		fmt.Fprintf(&buf, "%s %s %s\t%s\n", e.Mode, typ, e.OID, e.Name)
	}
	out, err := b.store.run(ctx, buf.Bytes(), "mktree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
