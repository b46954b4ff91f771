// Package mstate implements the mapping-state iterator (§4.E): it drives
// the topology analyzer changeset by changeset and maintains, alongside
// it, the per-branch Git-path projection (mapping.Mapping) and the
// additional-parent edges a changeset's Branch/Merge ops introduce.
package mstate

import (
	"context"
	"sort"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/concurrency"
	"github.com/rcowham/tfvcimport/mapping"
	"github.com/rcowham/tfvcimport/pathutil"
	"github.com/rcowham/tfvcimport/tfvcerrors"
	"github.com/rcowham/tfvcimport/topology"
	"github.com/sirupsen/logrus"
)

// ChangesetInput is one element of the sequence mstate.Iterator consumes:
// a changeset's path changes as listed by the History Source.
type ChangesetInput struct {
	Changeset int
	Changes   []topology.PathChange
}

// AdditionalParentEdge records that Child's commit for this changeset must
// also descend from Parent's tip as of ParentChangeset (a Branch or Merge
// op), consumed by the commit planner (§4.F step 4) to resolve extra
// commit parents.
type AdditionalParentEdge struct {
	Child           branch.Identity
	ParentChangeset int
	Parent          branch.Identity
}

// BranchMapping pairs a live branch identity with its current Git-path
// projection.
type BranchMapping struct {
	Branch  branch.Identity
	Mapping mapping.Mapping
}

// MappingState is produced once per changeset, in input order.
type MappingState struct {
	Changeset                int
	Trunk                    branch.Identity
	Ops                      []topology.Op
	AdditionalParentEdges    []AdditionalParentEdge
	BranchMappingsInDepOrder []BranchMapping
}

// Iterator produces a MappingState per changeset, lazily, overlapping the
// History Source's next changeset-change fetch with the caller's
// processing of the current one via an async lookahead (§4.E, §5).
type Iterator struct {
	logger    *logrus.Logger
	analyzer  *topology.Analyzer
	lookahead *concurrency.Lookahead[ChangesetInput]
	mappings  map[branch.Identity]mapping.Mapping
	seenFirst bool
}

// NewIterator constructs an Iterator rooted at rootPath with the given
// root-path-change schedule, pulling changeset inputs from source.
func NewIterator(ctx context.Context, logger *logrus.Logger, rootPath string, rootChanges []topology.RootPathChange, source concurrency.NextFunc[ChangesetInput]) (*Iterator, error) {
	a, err := topology.New(logger, rootPath, rootChanges)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		logger:   logger,
		analyzer: a,
		mappings: map[branch.Identity]mapping.Mapping{
			a.Trunk(): mapping.New(rootPath),
		},
		lookahead: concurrency.NewLookahead(ctx, source),
	}, nil
}

// Next returns the next MappingState, or (nil, nil) once the input
// sequence is exhausted.
func (it *Iterator) Next() (*MappingState, error) {
	ok, err := it.lookahead.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	input, _ := it.lookahead.Current()

	if !it.seenFirst {
		it.seenFirst = true
		return it.buildState(input.Changeset, nil, nil)
	}

	ops, err := it.analyzer.ProcessChangeset(input.Changeset, input.Changes)
	if err != nil {
		return nil, tfvcerrors.WithChangeset(err, input.Changeset)
	}

	var edges []AdditionalParentEdge
	for _, op := range ops {
		switch o := op.(type) {
		case topology.BranchOp:
			derived, err := it.deriveBranchMapping(o)
			if err != nil {
				return nil, tfvcerrors.WithChangeset(err, input.Changeset)
			}
			it.mappings[o.NewBranch] = derived
			edges = append(edges, AdditionalParentEdge{
				Child:           o.NewBranch,
				ParentChangeset: o.SourceBranchChangeset,
				Parent:          o.SourceBranch,
			})
		case topology.MergeOp:
			edges = append(edges, AdditionalParentEdge{
				Child:           o.TargetBranch,
				ParentChangeset: o.SourceBranchChangeset,
				Parent:          o.SourceBranch,
			})
		case topology.DeleteOp:
			if _, present := it.mappings[o.Branch]; !present {
				return nil, tfvcerrors.Wrap(errMissingMapping(o.Branch), tfvcerrors.Invariant, input.Changeset, "mstate: delete of unmapped branch")
			}
			delete(it.mappings, o.Branch)
		case topology.RenameOp:
			m, present := it.mappings[o.OldIdentity]
			if !present {
				return nil, tfvcerrors.Wrap(errMissingMapping(o.OldIdentity), tfvcerrors.Invariant, input.Changeset, "mstate: rename of unmapped branch")
			}
			renamed, err := m.RenameRoot(o.OldIdentity.Path, o.NewIdentity.Path)
			if err != nil {
				return nil, tfvcerrors.WithChangeset(err, input.Changeset)
			}
			delete(it.mappings, o.OldIdentity)
			it.mappings[o.NewIdentity] = renamed
		}
	}

	return it.buildState(input.Changeset, ops, edges)
}

// deriveBranchMapping implements §4.E's Branch case: a branch carved out
// of a proper subdirectory of its source's root becomes fully independent
// (its own root, forgetting the source's view entirely); a branch of the
// source's whole view (most commonly a full-root branch) instead layers a
// subdir remap on top of a copy of the source's mapping, so that items
// landing under the new branch's path resolve through the source's
// existing root/subdir projection.
func (it *Iterator) deriveBranchMapping(o topology.BranchOp) (mapping.Mapping, error) {
	sourceMapping, present := it.mappings[o.SourceBranch]
	if !present {
		return mapping.Mapping{}, tfvcerrors.Wrap(errMissingMapping(o.SourceBranch), tfvcerrors.Invariant, 0, "mstate: branch from unmapped source")
	}
	if pathutil.Contains(sourceMapping.RootDirectory, o.SourceBranchPath) {
		return mapping.New(o.SourceBranchPath).RenameRoot(o.SourceBranchPath, o.NewBranch.Path)
	}
	return sourceMapping.WithSubdirMapping(o.NewBranch.Path, o.SourceBranchPath), nil
}

func (it *Iterator) buildState(changeset int, ops []topology.Op, edges []AdditionalParentEdge) (*MappingState, error) {
	identities := make([]branch.Identity, 0, len(it.mappings))
	for id := range it.mappings {
		identities = append(identities, id)
	}
	sort.Slice(identities, func(i, j int) bool {
		if identities[i].CreationChangeset != identities[j].CreationChangeset {
			return identities[i].CreationChangeset < identities[j].CreationChangeset
		}
		return identities[i].Path < identities[j].Path
	})

	depsByChild := make(map[branch.Identity][]branch.Identity, len(edges))
	for _, e := range edges {
		depsByChild[e.Child] = append(depsByChild[e.Child], e.Parent)
	}

	ordered, err := sortBranches(identities, depsByChild)
	if err != nil {
		return nil, tfvcerrors.Wrap(err, tfvcerrors.Invariant, changeset, "mstate: branch dependency order")
	}

	bms := make([]BranchMapping, len(ordered))
	for i, id := range ordered {
		bms[i] = BranchMapping{Branch: id, Mapping: it.mappings[id]}
	}

	return &MappingState{
		Changeset:                changeset,
		Trunk:                    it.analyzer.Trunk(),
		Ops:                      ops,
		AdditionalParentEdges:    edges,
		BranchMappingsInDepOrder: bms,
	}, nil
}
