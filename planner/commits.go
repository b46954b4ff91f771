package planner

import (
	"context"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/gittree"
	"github.com/rcowham/tfvcimport/mstate"
	"github.com/rcowham/tfvcimport/objectstore"
	"github.com/rcowham/tfvcimport/tfvcerrors"
	"github.com/rcowham/tfvcimport/topology"
)

// buildTreesAndCommits implements §4.F step 4: for each branch in
// dependency order, build its flat tree from this changeset's full item
// listing, resolve parents, and create a commit if one is required.
func (p *Planner) buildTreesAndCommits(ctx context.Context, state *mstate.MappingState, itemsByBranch map[branch.Identity]map[string]DownloadSource, author, committer objectstore.Signature, message string) error {
	topologyTouched := topologyTouchedBranches(state.Ops)

	parentEdges := map[branch.Identity][]mstate.AdditionalParentEdge{}
	for _, e := range state.AdditionalParentEdges {
		parentEdges[e.Child] = append(parentEdges[e.Child], e)
	}

	for _, bm := range state.BranchMappingsInDepOrder {
		tree := gittree.NewRoot()
		for gitPath, src := range itemsByBranch[bm.Branch] {
			tree.Set(gitPath, p.blobFor(src))
		}
		contentHash := tree.ContentHash()

		head := p.heads[bm.Branch]

		var parents []string
		if head != nil {
			parents = append(parents, head.Commit)
		}
		for _, e := range parentEdges[bm.Branch] {
			key := CommitIndexKey{Changeset: e.ParentChangeset, Branch: e.Parent}
			entry, ok := p.commitIndex[key]
			if !ok {
				return tfvcerrors.New(tfvcerrors.Invariant, "commit index missing parent "+e.Parent.String())
			}
			parents = append(parents, entry.Commit)
		}

		needCommit := topologyTouched[bm.Branch] || head == nil || head.TreeHash != contentHash
		if !needCommit {
			p.commitIndex[CommitIndexKey{Changeset: state.Changeset, Branch: bm.Branch}] = CommitIndexEntry{Commit: head.Commit, Branch: bm.Branch, Created: false}
			continue
		}

		treeID, err := p.store.TreeFromEntries(ctx, tree.Entries())
		if err != nil {
			return err
		}
		commit, err := p.store.CommitFrom(ctx, author, committer, message, treeID, parents)
		if err != nil {
			return err
		}
		refName := "refs/heads/" + RefNameFor(bm.Branch.Path, state.Trunk.Path, p.trunkRefName)
		if err := p.store.CreateOrMoveRef(ctx, refName, commit); err != nil {
			return err
		}
		if err := p.store.SetHead(ctx, refName); err != nil {
			return err
		}

		p.heads[bm.Branch] = &headState{Ref: refName, Commit: commit, TreeHash: contentHash}
		p.commitIndex[CommitIndexKey{Changeset: state.Changeset, Branch: bm.Branch}] = CommitIndexEntry{Commit: commit, Branch: bm.Branch, Created: true}
	}
	return nil
}

// topologyTouchedBranches reports which branches have a Branch/Merge/
// Rename op this changeset — any of those forces a commit even if tree
// content happens not to have changed (§4.F step 4).
func topologyTouchedBranches(ops []topology.Op) map[branch.Identity]bool {
	touched := map[branch.Identity]bool{}
	for _, op := range ops {
		switch o := op.(type) {
		case topology.BranchOp:
			touched[o.NewBranch] = true
		case topology.MergeOp:
			touched[o.TargetBranch] = true
		case topology.RenameOp:
			touched[o.NewIdentity] = true
		}
	}
	return touched
}
