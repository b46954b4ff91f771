package planner

import (
	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/history"
	"github.com/rcowham/tfvcimport/mstate"
	"github.com/rcowham/tfvcimport/pathutil"
	"github.com/rcowham/tfvcimport/tfvcerrors"
)

// mapItemsToDownloadSources implements §4.F step 2: for each branch in
// dependency order, project the full item listing into that branch's Git
// paths, excluding folders, branch markers, and items that actually
// belong to a branch nested inside this one's root.
func mapItemsToDownloadSources(state *mstate.MappingState, items []history.Item) (map[branch.Identity]map[string]DownloadSource, error) {
	result := make(map[branch.Identity]map[string]DownloadSource, len(state.BranchMappingsInDepOrder))
	for _, bm := range state.BranchMappingsInDepOrder {
		byGitPath := map[string]DownloadSource{}
		for _, item := range items {
			if item.IsFolder || item.IsBranch {
				continue
			}
			if item.IsSymbolicLink {
				return nil, tfvcerrors.New(tfvcerrors.NotImplemented, "symbolic link: "+item.Path)
			}
			if belongsToNestedBranch(bm, state.BranchMappingsInDepOrder, item.Path) {
				continue
			}
			gitPath, ok := bm.Mapping.GitPath(item.Path)
			if !ok {
				continue
			}
			if existing, dup := byGitPath[gitPath]; dup && existing.Path != item.Path {
				return nil, tfvcerrors.New(tfvcerrors.Invariant, "two items map to git path "+gitPath+" in branch "+bm.Branch.Path)
			}
			byGitPath[gitPath] = DownloadSource{
				Path:             item.Path,
				ChangesetVersion: item.ChangesetVersion,
				Hash:             item.Hash,
				Size:             item.Size,
			}
		}
		result[bm.Branch] = byGitPath
	}
	return result, nil
}

// belongsToNestedBranch reports whether itemPath is under another
// branch's own TFVC identity path, where that path is itself nested
// inside bm's mapping root directory — the subtree that other branch
// owns, physically nested under this one in the TFVC namespace even
// though it is a distinct branch. Compares the other branch's identity
// path, not its derived mapping root, since a subdir-mapped branch keeps
// its source's root directory and would otherwise never be detected as
// nested here.
func belongsToNestedBranch(bm mstate.BranchMapping, all []mstate.BranchMapping, itemPath string) bool {
	for _, other := range all {
		if other.Branch.Equal(bm.Branch) {
			continue
		}
		if pathutil.Contains(bm.Mapping.RootDirectory, other.Branch.Path) && pathutil.IsOrContains(other.Branch.Path, itemPath) {
			return true
		}
	}
	return false
}
