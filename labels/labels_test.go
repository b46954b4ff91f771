package labels

import (
	"context"
	"io"
	"testing"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/history"
	"github.com/rcowham/tfvcimport/objectstore"
	"github.com/rcowham/tfvcimport/planner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

type fakeLookup map[branch.Identity]map[int]planner.CommitIndexEntry

func (f fakeLookup) CommitFor(changeset int, b branch.Identity) (planner.CommitIndexEntry, bool) {
	byChangeset, ok := f[b]
	if !ok {
		return planner.CommitIndexEntry{}, false
	}
	e, ok := byChangeset[changeset]
	return e, ok
}

// tagOnlyStore is a minimal objectstore.Store that only exercises
// CreateTag, the sole operation labels.Replay performs; every other
// method is unused by this package and simply errors if ever called.
type tagOnlyStore struct {
	tags map[string]string
}

func newTagOnlyStore() *tagOnlyStore { return &tagOnlyStore{tags: map[string]string{}} }

func (s *tagOnlyStore) BlobFromStream(ctx context.Context, r io.Reader) (string, error) {
	return "", assert.AnError
}
func (s *tagOnlyStore) TreeFromEntries(ctx context.Context, entries []objectstore.TreeEntry) (string, error) {
	return "", assert.AnError
}
func (s *tagOnlyStore) CommitFrom(ctx context.Context, author, committer objectstore.Signature, message, tree string, parents []string) (string, error) {
	return "", assert.AnError
}
func (s *tagOnlyStore) CreateOrMoveRef(ctx context.Context, refName, commit string) error {
	return assert.AnError
}
func (s *tagOnlyStore) RemoveRef(ctx context.Context, refName string) error { return assert.AnError }
func (s *tagOnlyStore) SetHead(ctx context.Context, refName string) error  { return assert.AnError }
func (s *tagOnlyStore) CreateTag(ctx context.Context, name, commit, message string, tagger objectstore.Signature) error {
	s.tags[name] = commit
	return nil
}

var trunk = branch.Identity{CreationChangeset: 1, Path: "$/P"}
var branchB = branch.Identity{CreationChangeset: 5, Path: "$/P/B"}

func sig() objectstore.Signature {
	return objectstore.Signature{Name: "tagger", Email: "tagger@example.com", When: "1700000000 +0000"}
}

func TestReplaySingleBranchMatchUsesPlainLabelName(t *testing.T) {
	ctx := context.Background()
	fake := history.NewFake()
	fake.Labels = []history.Label{{Name: "REL-1"}}
	fake.LabelAt = map[string]int{"REL-1": 10}

	lookup := fakeLookup{
		trunk: {10: {Commit: "commit-main", Created: true}},
	}
	store := newTagOnlyStore()
	err := Replay(ctx, testLogger(), store, fake, lookup, []branch.Identity{trunk, branchB}, sig())
	assert.NoError(t, err)
	assert.Equal(t, "commit-main", store.tags["REL-1"])
}

func TestReplayMultiBranchMatchDisambiguates(t *testing.T) {
	ctx := context.Background()
	fake := history.NewFake()
	fake.Labels = []history.Label{{Name: "REL-1"}}
	fake.LabelAt = map[string]int{"REL-1": 10}

	lookup := fakeLookup{
		trunk:   {10: {Commit: "commit-main", Created: true}},
		branchB: {10: {Commit: "commit-b", Created: true}},
	}
	store := newTagOnlyStore()
	err := Replay(ctx, testLogger(), store, fake, lookup, []branch.Identity{trunk, branchB}, sig())
	assert.NoError(t, err)
	assert.Equal(t, "commit-main", store.tags["REL-1-P"])
	assert.Equal(t, "commit-b", store.tags["REL-1-B"])
}

func TestReplaySkipsLabelWithNoMatch(t *testing.T) {
	ctx := context.Background()
	fake := history.NewFake()
	fake.Labels = []history.Label{{Name: "REL-1"}}
	fake.LabelAt = map[string]int{"REL-1": 10}

	store := newTagOnlyStore()
	err := Replay(ctx, testLogger(), store, fake, fakeLookup{}, []branch.Identity{trunk}, sig())
	assert.NoError(t, err)
	assert.Empty(t, store.tags)
}
