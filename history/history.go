// Package history defines the History Source collaborator (§6): the
// read-only view onto TFVC's changeset stream this tool drives its replay
// from, plus an in-memory fake used by the rest of the test suite.
package history

import (
	"context"
	"io"

	"github.com/rcowham/tfvcimport/topology"
)

// ChangesetMeta is one entry of list_changesets (§6).
type ChangesetMeta struct {
	ChangesetID   int
	Author        string
	CheckedInBy   string
	CreatedDate   string
	Comment       string
}

// Item is one entry of list_items (§6): a fully-recursed listing of a
// scope of paths as of a changeset.
type Item struct {
	Path             string
	ChangesetVersion int
	IsFolder         bool
	IsBranch         bool
	IsSymbolicLink   bool
	Size             int64
	Hash             string
}

// Label is a TFVC label: a named snapshot pinned to a changeset, consumed
// by the label-replay feature after the main loop completes.
type Label struct {
	Name string
}

// Source is the History Source collaborator. Implementations may be
// backed by a TFS/Azure DevOps REST client (the production path) or, for
// tests, the in-memory Fake below.
type Source interface {
	// ListChangesets returns every changeset affecting rootPath between
	// min and max inclusive (either bound 0 means unbounded), ordered
	// ascending by ChangesetID.
	ListChangesets(ctx context.Context, rootPath string, min, max int) ([]ChangesetMeta, error)

	// ListChangesetChanges returns the path-level changes recorded on a
	// single changeset — the topology analyzer's raw input (§4.D).
	ListChangesetChanges(ctx context.Context, changesetID int) ([]topology.PathChange, error)

	// ListItems returns every item under the given non-overlapping scope
	// paths as of changeset, fully recursed.
	ListItems(ctx context.Context, scopePaths []string, changeset int) ([]Item, error)

	// FetchContent opens the byte stream for path as of changeset. The
	// caller closes the returned reader.
	FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error)

	// ListLabels returns every label recorded under rootPath.
	ListLabels(ctx context.Context, rootPath string) ([]Label, error)

	// LabelItems returns the changeset a label is pinned to.
	LabelItems(ctx context.Context, label Label) (int, error)
}
