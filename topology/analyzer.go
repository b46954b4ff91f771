package topology

import (
	"fmt"
	"strings"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/pathutil"
	"github.com/rcowham/tfvcimport/tfvcerrors"
	"github.com/sirupsen/logrus"
)

// RootPathChange is one entry of the CLI's --root-path-changes config
// (§3 "Root-path change (input config)").
type RootPathChange struct {
	Changeset   int
	NewRootPath string
}

// Analyzer holds the per-run state §4.D describes: the live-branch
// registry, the rolling trunk identity, the set of currently live branch
// paths, and the stack of pending root-path changes.
type Analyzer struct {
	logger *logrus.Logger

	registry           *branch.Registry
	trunk              branch.Identity
	currentRoot        string
	currentBranchPaths map[string]struct{} // lower-cased path -> member
	pendingRootChanges []RootPathChange    // ascending by changeset
}

// New constructs an Analyzer rooted at rootPath, created as of changeset 1
// (the migration's first changeset). rootChanges may come in any order and
// are sorted ascending here; each must reference a changeset strictly
// greater than 1, at most one per changeset, with a new path beginning "$/".
func New(logger *logrus.Logger, rootPath string, rootChanges []RootPathChange) (*Analyzer, error) {
	seen := map[int]bool{}
	for _, rc := range rootChanges {
		if rc.Changeset <= 1 {
			return nil, tfvcerrors.New(tfvcerrors.Configuration, fmt.Sprintf("root-path-change at changeset %d must be greater than the initial changeset", rc.Changeset))
		}
		if seen[rc.Changeset] {
			return nil, tfvcerrors.New(tfvcerrors.Configuration, fmt.Sprintf("more than one root-path-change at changeset %d", rc.Changeset))
		}
		seen[rc.Changeset] = true
		if !pathutil.IsAbsolute(rc.NewRootPath) {
			return nil, tfvcerrors.New(tfvcerrors.Configuration, fmt.Sprintf("root-path-change new path %q must begin with $/", rc.NewRootPath))
		}
	}
	sorted := append([]RootPathChange(nil), rootChanges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Changeset > sorted[j].Changeset; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	reg := branch.NewRegistry()
	trunk := branch.Identity{CreationChangeset: 1, Path: rootPath}
	if err := reg.Add(trunk); err != nil {
		return nil, err
	}
	return &Analyzer{
		logger:             logger,
		registry:           reg,
		trunk:              trunk,
		currentRoot:        rootPath,
		currentBranchPaths: map[string]struct{}{strings.ToLower(rootPath): {}},
		pendingRootChanges: sorted,
	}, nil
}

// Trunk returns the analyzer's current rolling trunk identity.
func (a *Analyzer) Trunk() branch.Identity { return a.trunk }

// Registry exposes the live-branch registry for read-only queries.
func (a *Analyzer) Registry() *branch.Registry { return a.registry }

func (a *Analyzer) isLiveBranchPath(p string) bool {
	_, ok := a.currentBranchPaths[strings.ToLower(p)]
	return ok
}

// ProcessChangeset runs the §4.D algorithm against one changeset's path
// changes and returns the ordered stream of topological operations it
// emits. Changesets are passed in ascending order; they need not be
// consecutive (the History Source lists only changesets that touch the
// root path). Changeset 1 is implicit in the trunk's creation.
func (a *Analyzer) ProcessChangeset(changeset int, changes []PathChange) ([]Op, error) {
	var ops []Op

	// Step 1: root-path rewrite.
	if len(a.pendingRootChanges) > 0 {
		top := a.pendingRootChanges[0]
		if top.Changeset < changeset {
			return nil, tfvcerrors.New(tfvcerrors.NotImplemented, fmt.Sprintf("root-path-change at changeset %d could not be applied before changeset %d: root moved outside", top.Changeset, changeset))
		}
		if top.Changeset == changeset {
			a.pendingRootChanges = a.pendingRootChanges[1:]
			delete(a.currentBranchPaths, strings.ToLower(a.currentRoot))
			oldIdentity, err := a.registry.Rename(changeset, a.currentRoot, top.NewRootPath)
			if err != nil {
				return nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "root-path rename")
			}
			newIdentity := branch.Identity{CreationChangeset: changeset, Path: top.NewRootPath}
			ops = append(ops, RenameOp{OldIdentity: oldIdentity, NewIdentity: newIdentity})
			a.currentRoot = top.NewRootPath
			a.currentBranchPaths[strings.ToLower(top.NewRootPath)] = struct{}{}
			if a.trunk.Equal(oldIdentity) {
				a.trunk = newIdentity
			}
		}
	}

	// Step 2: renames of currently live branches.
	for _, c := range changes {
		if !c.ChangeType.Has(Rename) || c.SourceServerItem == "" || !a.isLiveBranchPath(c.SourceServerItem) {
			continue
		}
		if !c.ChangeType.Exactly(Rename) {
			return nil, tfvcerrors.New(tfvcerrors.PoorlyUnderstoodCombination, fmt.Sprintf("rename of live branch %s combined with other flags", c.SourceServerItem))
		}
		oldIdentity, err := a.registry.Rename(changeset, c.SourceServerItem, c.ItemPath)
		if err != nil {
			return nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "branch rename")
		}
		newIdentity := branch.Identity{CreationChangeset: changeset, Path: c.ItemPath}
		ops = append(ops, RenameOp{OldIdentity: oldIdentity, NewIdentity: newIdentity})
		delete(a.currentBranchPaths, strings.ToLower(c.SourceServerItem))
		a.currentBranchPaths[strings.ToLower(c.ItemPath)] = struct{}{}
		if a.trunk.Equal(oldIdentity) {
			a.trunk = newIdentity
		}
	}

	// Step 3: seal the registry so step 4's lookups at changeset-1 are valid.
	if err := a.registry.NoFurtherChangesUpTo(changeset - 1); err != nil {
		return nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "seal registry")
	}

	// Step 4: branches and merges.
	branchOps, mergeOps, err := a.resolveBranchesAndMerges(changeset, changes)
	if err != nil {
		return nil, err
	}
	for _, bop := range branchOps {
		if err := a.registry.Add(bop.NewBranch); err != nil {
			return nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "add branch "+bop.NewBranch.Path)
		}
		a.currentBranchPaths[strings.ToLower(bop.NewBranch.Path)] = struct{}{}
		ops = append(ops, bop)
	}
	for _, mop := range mergeOps {
		ops = append(ops, mop)
	}

	// Step 5: deletes of live branches.
	for _, c := range changes {
		if !c.ChangeType.Has(Delete) || !a.isLiveBranchPath(c.ItemPath) {
			continue
		}
		if !c.ChangeType.Exactly(Delete) {
			return nil, tfvcerrors.New(tfvcerrors.PoorlyUnderstoodCombination, fmt.Sprintf("delete of live branch %s combined with other flags", c.ItemPath))
		}
		id, err := a.registry.Delete(changeset, c.ItemPath)
		if err != nil {
			return nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "delete branch")
		}
		ops = append(ops, DeleteOp{Changeset: changeset, Branch: id})
		delete(a.currentBranchPaths, strings.ToLower(c.ItemPath))
	}

	return ops, nil
}

type branchGroupKey struct {
	sourceBranch branch.Identity
	srcPath      string
	tgtPath      string
}

type mergeGroupKey struct {
	sourceBranch branch.Identity
	targetBranch branch.Identity
	srcPath      string
	tgtPath      string
}

func (a *Analyzer) resolveBranchesAndMerges(changeset int, changes []PathChange) ([]BranchOp, []MergeOp, error) {
	type branchCandidate struct {
		key        branchGroupKey
		maxVersion int
	}
	type mergeCandidate struct {
		key        mergeGroupKey
		maxVersion int
	}
	var branchOrder []branchGroupKey
	branchSeen := map[branchGroupKey]*branchCandidate{}
	var mergeOrder []mergeGroupKey
	mergeSeen := map[mergeGroupKey]*mergeCandidate{}

	for _, c := range changes {
		var ms *MergeSource
		count := 0
		for i := range c.MergeSources {
			if !c.MergeSources[i].IsRename {
				count++
				ms = &c.MergeSources[i]
			}
		}
		if count != 1 {
			continue
		}

		sourceBranch, err := a.registry.Find(ms.VersionTo-1, ms.ServerItem)
		if err != nil {
			return nil, nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "resolve merge source")
		}
		if sourceBranch == nil {
			targetBranch, err := a.registry.Find(changeset-1, c.ItemPath)
			if err != nil {
				return nil, nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "resolve merge target")
			}
			if targetBranch == nil {
				return nil, nil, tfvcerrors.New(tfvcerrors.Invariant, fmt.Sprintf("changeset %d: merge source %s not found and target %s is also not a known branch", changeset, ms.ServerItem, c.ItemPath))
			}
			a.logger.Debugf("changeset %d: skipping merge-source reference to unknown %s (target %s is a known branch)", changeset, ms.ServerItem, c.ItemPath)
			continue
		}

		srcPath, tgtPath := pathutil.StripCommonTrailingSegments(ms.ServerItem, c.ItemPath)

		if c.ChangeType.Has(Merge) {
			targetBranch, err := a.registry.Find(changeset-1, c.ItemPath)
			if err != nil {
				return nil, nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "resolve merge target branch")
			}
			if targetBranch == nil {
				return nil, nil, tfvcerrors.New(tfvcerrors.Invariant, fmt.Sprintf("changeset %d: merge target %s has no live branch", changeset, c.ItemPath))
			}
			key := mergeGroupKey{sourceBranch: *sourceBranch, targetBranch: *targetBranch, srcPath: srcPath, tgtPath: tgtPath}
			cand, ok := mergeSeen[key]
			if !ok {
				cand = &mergeCandidate{key: key, maxVersion: ms.VersionTo}
				mergeSeen[key] = cand
				mergeOrder = append(mergeOrder, key)
			} else if ms.VersionTo > cand.maxVersion {
				cand.maxVersion = ms.VersionTo
			}
		} else {
			key := branchGroupKey{sourceBranch: *sourceBranch, srcPath: srcPath, tgtPath: tgtPath}
			cand, ok := branchSeen[key]
			if !ok {
				cand = &branchCandidate{key: key, maxVersion: ms.VersionTo}
				branchSeen[key] = cand
				branchOrder = append(branchOrder, key)
			} else if ms.VersionTo > cand.maxVersion {
				cand.maxVersion = ms.VersionTo
			}
		}
	}

	branchOps := make([]BranchOp, 0, len(branchOrder))
	for _, key := range branchOrder {
		cand := branchSeen[key]
		branchOps = append(branchOps, BranchOp{
			SourceBranch:          key.sourceBranch,
			SourceBranchChangeset: cand.maxVersion,
			SourceBranchPath:      key.srcPath,
			NewBranch:             branch.Identity{CreationChangeset: changeset, Path: key.tgtPath},
		})
	}

	mergeOps := make([]MergeOp, 0, len(mergeOrder))
	for _, key := range mergeOrder {
		cand := mergeSeen[key]
		mergeOps = append(mergeOps, MergeOp{
			Changeset:             changeset,
			SourceBranch:          key.sourceBranch,
			SourceBranchChangeset: cand.maxVersion,
			SourceBranchPath:      key.srcPath,
			TargetBranch:          key.targetBranch,
			TargetBranchPath:      key.tgtPath,
		})
	}

	mergeOps = dedupeMerges(mergeOps)
	return branchOps, mergeOps, nil
}

// dedupeMerges removes, within each (source, target) branch pair, any
// merge whose source and target sub-paths are both contained by another
// merge's sub-paths in that same group — only the outermost merge survives.
func dedupeMerges(merges []MergeOp) []MergeOp {
	drop := make([]bool, len(merges))
	for i := range merges {
		for j := range merges {
			if i == j {
				continue
			}
			if !merges[i].SourceBranch.Equal(merges[j].SourceBranch) || !merges[i].TargetBranch.Equal(merges[j].TargetBranch) {
				continue
			}
			iSmaller := pathutil.IsOrContains(merges[j].SourceBranchPath, merges[i].SourceBranchPath) &&
				pathutil.IsOrContains(merges[j].TargetBranchPath, merges[i].TargetBranchPath)
			if iSmaller && !(merges[i].SourceBranchPath == merges[j].SourceBranchPath && merges[i].TargetBranchPath == merges[j].TargetBranchPath && i < j) {
				drop[i] = true
			}
		}
	}
	result := make([]MergeOp, 0, len(merges))
	for i, m := range merges {
		if !drop[i] {
			result = append(result, m)
		}
	}
	return result
}
