package main

import (
	"strings"
	"testing"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/topology"
	"github.com/stretchr/testify/assert"
)

var trunk = branch.Identity{CreationChangeset: 1, Path: "$/P"}
var branchB = branch.Identity{CreationChangeset: 2, Path: "$/P/B"}

func TestBranchGraphReusesNodesAcrossOps(t *testing.T) {
	g := newBranchGraph()
	g.apply(2, topology.BranchOp{SourceBranch: trunk, SourceBranchChangeset: 1, NewBranch: branchB})
	assert.Len(t, g.nodes, 2)

	first := g.nodes[trunk]
	g.apply(3, topology.MergeOp{Changeset: 3, SourceBranch: branchB, SourceBranchChangeset: 2, TargetBranch: trunk})
	assert.Len(t, g.nodes, 2)
	assert.Equal(t, first, g.nodes[trunk])

	dot := g.graph.String()
	assert.Contains(t, dot, "branch@CS2")
	assert.Contains(t, dot, "merge@CS3")
}

func TestBranchGraphRenameCreatesEdgeBetweenIdentities(t *testing.T) {
	g := newBranchGraph()
	renamed := branch.Identity{CreationChangeset: 4, Path: "$/Q"}
	g.apply(4, topology.RenameOp{OldIdentity: trunk, NewIdentity: renamed})
	assert.Len(t, g.nodes, 2)
	assert.Contains(t, g.graph.String(), "rename@CS4")
}

func TestBranchGraphDeleteMarksNodeDashedAndDeleted(t *testing.T) {
	g := newBranchGraph()
	g.nodeFor(branchB)
	g.apply(5, topology.DeleteOp{Changeset: 5, Branch: branchB})
	assert.Len(t, g.nodes, 1)
	dot := g.graph.String()
	assert.True(t, strings.Contains(dot, "deleted@CS5"))
	assert.True(t, strings.Contains(dot, "dashed"))
}
