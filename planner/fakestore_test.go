package planner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/rcowham/tfvcimport/objectstore"
)

// fakeStore is an in-memory objectstore.Store for planner tests, so the
// commit-planning logic can be exercised without a real git binary.
type fakeStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	trees  map[string][]objectstore.TreeEntry
	commit map[string]commitRecord
	refs   map[string]string
	head   string
	tags   map[string]string
	seq    int
}

type commitRecord struct {
	Tree    string
	Parents []string
	Message string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blobs:  map[string][]byte{},
		trees:  map[string][]objectstore.TreeEntry{},
		commit: map[string]commitRecord{},
		refs:   map[string]string{},
		tags:   map[string]string{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeStore) BlobFromStream(ctx context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(content)
	id := "blob-" + hex.EncodeToString(h[:])[:12]
	f.mu.Lock()
	f.blobs[id] = content
	f.mu.Unlock()
	return id, nil
}

func (f *fakeStore) TreeFromEntries(ctx context.Context, entries []objectstore.TreeEntry) (string, error) {
	sorted := append([]objectstore.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%s:%s\n", e.Path, e.Blob)
	}
	h := sha256.Sum256(buf.Bytes())
	id := "tree-" + hex.EncodeToString(h[:])[:12]
	f.mu.Lock()
	f.trees[id] = sorted
	f.mu.Unlock()
	return id, nil
}

func (f *fakeStore) CommitFrom(ctx context.Context, author, committer objectstore.Signature, message, tree string, parents []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("commit-")
	f.commit[id] = commitRecord{Tree: tree, Parents: append([]string(nil), parents...), Message: message}
	return id, nil
}

func (f *fakeStore) CreateOrMoveRef(ctx context.Context, refName, commit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[refName] = commit
	return nil
}

func (f *fakeStore) RemoveRef(ctx context.Context, refName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refs, refName)
	return nil
}

func (f *fakeStore) SetHead(ctx context.Context, refName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = refName
	return nil
}

func (f *fakeStore) CreateTag(ctx context.Context, name, commit, message string, tagger objectstore.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags[name] = commit
	return nil
}

func (f *fakeStore) filesAt(ref string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	commit, ok := f.commit[f.refs[ref]]
	if !ok {
		return nil
	}
	out := map[string]string{}
	for _, e := range f.trees[commit.Tree] {
		out[e.Path] = string(f.blobs[e.Blob])
	}
	return out
}

func (f *fakeStore) parentsOf(commit string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commit[commit].Parents
}

func trimmed(s string) string { return strings.TrimRight(s, "\n") }
