// Command tfvcgraph renders the branch topology a migration would produce
// as a Graphviz graph, without touching an Object Store — useful for an
// operator auditing a large migration's inferred branch structure before
// committing hours of blob downloads to it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/emicklei/dot"
	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/config"
	"github.com/rcowham/tfvcimport/history/rest"
	"github.com/rcowham/tfvcimport/internal/version"
	"github.com/rcowham/tfvcimport/mstate"
	"github.com/rcowham/tfvcimport/topology"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	var (
		projectURL = kingpin.Arg(
			"project-url",
			"TFVC project-collection URL.",
		).Required().String()
		rootPath = kingpin.Arg(
			"root-path",
			"TFVC root path to migrate, e.g. $/Project.",
		).Required().String()
		outputGraph = kingpin.Flag(
			"output",
			"Graphviz dot file to write the branch graph to.",
		).Short('o').Required().String()
		minChangeset = kingpin.Flag(
			"min-changeset",
			"Inclusive lower changeset bound.",
		).Int()
		maxChangeset = kingpin.Flag(
			"max-changeset",
			"Inclusive upper changeset bound.",
		).Int()
		rootPathChanges = kingpin.Flag(
			"root-path-changes",
			"Root-path change, CSn:$/new-path; may be repeated.",
		).Strings()
		pat = kingpin.Flag(
			"pat",
			"Personal access token credential for the History Source.",
		).String()
		debug = kingpin.Flag(
			"debug",
			"Enable debugging level.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("tfvcgraph")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Renders an inferred TFVC branch topology as a Graphviz dot file.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}
	startTime := time.Now()
	logger.Infof("%v", version.Print("tfvcgraph"))

	rootChanges, err := config.ParseRootPathChanges(*rootPathChanges)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	source := rest.New(*projectURL, *pat)

	metas, err := source.ListChangesets(ctx, *rootPath, *minChangeset, *maxChangeset)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	i := 0
	next := func(ctx context.Context) (mstate.ChangesetInput, bool, error) {
		if i >= len(metas) {
			return mstate.ChangesetInput{}, false, nil
		}
		cs := metas[i].ChangesetID
		i++
		changes, err := source.ListChangesetChanges(ctx, cs)
		if err != nil {
			return mstate.ChangesetInput{}, false, err
		}
		return mstate.ChangesetInput{Changeset: cs, Changes: changes}, true, nil
	}

	it, err := mstate.NewIterator(ctx, logger, *rootPath, rootChanges, next)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	g := newBranchGraph()
	for {
		state, err := it.Next()
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		if state == nil {
			break
		}
		for _, op := range state.Ops {
			g.apply(state.Changeset, op)
		}
	}

	f, err := os.OpenFile(*outputGraph, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer f.Close()
	if _, err := f.Write([]byte(g.graph.String())); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	logger.Infof("done in %s: %d branch node(s)", time.Since(startTime).Round(time.Second), len(g.nodes))
}

// branchGraph accumulates dot.Node/dot.Edge values as topology.Op values
// are applied, one branch identity per node, grounded on cmd/gitgraph's
// GitGraph.createGraphEdges pattern of lazily creating a dot.Node the
// first time a commit (here, a branch identity) is referenced.
type branchGraph struct {
	graph *dot.Graph
	nodes map[branch.Identity]dot.Node
}

func newBranchGraph() *branchGraph {
	return &branchGraph{
		graph: dot.NewGraph(dot.Directed),
		nodes: map[branch.Identity]dot.Node{},
	}
}

func (g *branchGraph) nodeFor(b branch.Identity) dot.Node {
	if n, ok := g.nodes[b]; ok {
		return n
	}
	n := g.graph.Node(fmt.Sprintf("%s\n(CS%d)", b.Path, b.CreationChangeset))
	g.nodes[b] = n
	return n
}

func (g *branchGraph) apply(changeset int, op topology.Op) {
	switch o := op.(type) {
	case topology.BranchOp:
		g.graph.Edge(g.nodeFor(o.SourceBranch), g.nodeFor(o.NewBranch), fmt.Sprintf("branch@CS%d", changeset))
	case topology.MergeOp:
		g.graph.Edge(g.nodeFor(o.SourceBranch), g.nodeFor(o.TargetBranch), fmt.Sprintf("merge@CS%d", changeset))
	case topology.RenameOp:
		g.graph.Edge(g.nodeFor(o.OldIdentity), g.nodeFor(o.NewIdentity), fmt.Sprintf("rename@CS%d", changeset))
	case topology.DeleteOp:
		n := g.nodeFor(o.Branch)
		n.Attr("style", "dashed")
		n.Attr("label", fmt.Sprintf("%s\n(CS%d)\ndeleted@CS%d", o.Branch.Path, o.Branch.CreationChangeset, changeset))
	}
}
