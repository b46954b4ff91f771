// Package planner implements the commit planner / replayer (§4.F): given
// a changeset's mapping state and full item listing, it updates branch
// refs for topological ops, materializes blob content, and builds and
// commits each branch's tree in dependency order.
package planner

import (
	"context"
	"sync"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/history"
	"github.com/rcowham/tfvcimport/mstate"
	"github.com/rcowham/tfvcimport/objectstore"
	"github.com/rcowham/tfvcimport/tfvcerrors"
	"github.com/sirupsen/logrus"
)

// emptyBlobHash is git's well-known object id for a zero-byte blob; used
// directly for size-zero items rather than writing a fresh blob every
// time (§4.F step 3: "Size-zero items use a shared empty blob").
const emptyBlobHash = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"

// DownloadSource names one item that needs its content materialized into
// a blob. The git path it resolves to within a branch is not a field; it
// is the key under which mapItemsToDownloadSources stores the source.
type DownloadSource struct {
	Path             string
	ChangesetVersion int
	Hash             string
	Size             int64
}

// CommitIndexKey looks up a prior changeset's commit for a branch, the
// sole mechanism additional-parent edges resolve through (§9 "no direct
// references between branch heads").
type CommitIndexKey struct {
	Changeset int
	Branch    branch.Identity
}

// CommitIndexEntry records what happened for a branch at a changeset,
// whether or not a new commit was actually created.
type CommitIndexEntry struct {
	Commit  string
	Branch  branch.Identity
	Created bool
}

type headState struct {
	Ref      string
	Commit   string
	TreeHash string
}

// Planner drives the commit replay loop. It is not safe for concurrent
// Process calls; the pipeline drives it sequentially per changeset (§5).
type Planner struct {
	logger              *logrus.Logger
	store               objectstore.Store
	source              history.Source
	degreeOfParallelism int
	trunkRefName        string

	heads       map[branch.Identity]*headState
	commitIndex map[CommitIndexKey]CommitIndexEntry

	blobMu    sync.Mutex
	blobCache map[string]string // content hash -> blob object id
}

// New constructs a Planner. trunkRefName is the ref leaf the trunk branch
// always commits under regardless of its current TFVC path (e.g. "main").
func New(logger *logrus.Logger, store objectstore.Store, source history.Source, degreeOfParallelism int, trunkRefName string) *Planner {
	return &Planner{
		logger:              logger,
		store:               store,
		source:              source,
		degreeOfParallelism: degreeOfParallelism,
		trunkRefName:        trunkRefName,
		heads:               map[branch.Identity]*headState{},
		commitIndex:         map[CommitIndexKey]CommitIndexEntry{},
		blobCache:           map[string]string{},
	}
}

// CommitFor returns the commit recorded in the index for (changeset,
// branch), used by the label-replay feature to resolve the commit a
// label's changeset landed on.
func (p *Planner) CommitFor(changeset int, b branch.Identity) (CommitIndexEntry, bool) {
	e, ok := p.commitIndex[CommitIndexKey{Changeset: changeset, Branch: b}]
	return e, ok
}

// Process runs §4.F's five steps for one changeset.
func (p *Planner) Process(ctx context.Context, state *mstate.MappingState, items []history.Item, author, committer objectstore.Signature, message string) error {
	if err := p.applyRefMovingOps(ctx, state); err != nil {
		return tfvcerrors.WithChangeset(err, state.Changeset)
	}

	itemsByBranch, err := mapItemsToDownloadSources(state, items)
	if err != nil {
		return tfvcerrors.WithChangeset(err, state.Changeset)
	}

	var allSources []DownloadSource
	for _, byGitPath := range itemsByBranch {
		for _, s := range byGitPath {
			allSources = append(allSources, s)
		}
	}
	if err := p.materializeBlobs(ctx, allSources); err != nil {
		return tfvcerrors.WithChangeset(err, state.Changeset)
	}

	if err := p.buildTreesAndCommits(ctx, state, itemsByBranch, author, committer, message); err != nil {
		return tfvcerrors.WithChangeset(err, state.Changeset)
	}
	return nil
}

func (p *Planner) blobFor(s DownloadSource) string {
	if s.Size == 0 {
		return emptyBlobHash
	}
	p.blobMu.Lock()
	defer p.blobMu.Unlock()
	return p.blobCache[s.Hash]
}
