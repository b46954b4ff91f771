// Package objectstore defines the Object Store collaborator (§6): blob,
// tree and commit creation, ref management, and tags. The concrete
// implementation drives the real git binary's plumbing commands via
// os/exec, the same mechanism git_test.go's initRepo fixture uses to
// stand up repositories for tests.
package objectstore

import (
	"context"
	"io"
)

// TreeEntry is one (git path, blob) entry of the flat entry list built by
// the commit planner (§4.F step 4). It carries no mode: every entry is
// written as a non-executable file (mode 100644).
type TreeEntry struct {
	Path string
	Blob string // blob object id
}

// Signature is an author or committer identity for a commit.
type Signature struct {
	Name  string
	Email string
	// When is an RFC3339 (or git-native "<unix> <tz>") timestamp string;
	// kept opaque here since the Store is the only thing that needs to
	// format it for git.
	When string
}

// Store is the Object Store collaborator.
type Store interface {
	// BlobFromStream creates a blob from the byte stream, content-addressed
	// by git's usual hashing, and returns its object id.
	BlobFromStream(ctx context.Context, r io.Reader) (string, error)

	// TreeFromEntries creates a flat tree from entries (already sorted by
	// path by the caller) and returns its object id.
	TreeFromEntries(ctx context.Context, entries []TreeEntry) (string, error)

	// CommitFrom creates a commit and returns its object id. parents may be
	// empty (a root commit).
	CommitFrom(ctx context.Context, author, committer Signature, message, tree string, parents []string) (string, error)

	// CreateOrMoveRef points refName at commit, creating it if absent.
	CreateOrMoveRef(ctx context.Context, refName, commit string) error

	// RemoveRef deletes refName.
	RemoveRef(ctx context.Context, refName string) error

	// SetHead points the repository HEAD at refName.
	SetHead(ctx context.Context, refName string) error

	// CreateTag creates an annotated tag named name at commit.
	CreateTag(ctx context.Context, name, commit, message string, tagger Signature) error
}
