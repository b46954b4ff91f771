// Command tfvcimport migrates a TFVC project-collection history into a
// fresh Git repository, inferring branch topology from the per-changeset
// path-change stream (§4.D) rather than requiring it as input.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/concurrency"
	"github.com/rcowham/tfvcimport/config"
	"github.com/rcowham/tfvcimport/history"
	"github.com/rcowham/tfvcimport/history/rest"
	"github.com/rcowham/tfvcimport/internal/version"
	"github.com/rcowham/tfvcimport/labels"
	"github.com/rcowham/tfvcimport/mstate"
	"github.com/rcowham/tfvcimport/objectstore"
	"github.com/rcowham/tfvcimport/pathutil"
	"github.com/rcowham/tfvcimport/planner"
	"github.com/rcowham/tfvcimport/tfvcerrors"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

// degreeOfParallelism is the default, overridden by the project config
// file's degree_of_parallelism when one is loaded.
const degreeOfParallelism = 8

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
		authorsFile = kingpin.Flag(
			"authors",
			"Authors file mapping TFVC identities to 'Display Name <email>'.",
		).Required().String()
		outDir = kingpin.Flag(
			"out-dir",
			"Target directory for the new Git repository.",
		).Required().String()
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
		configFile = kingpin.Flag(
			"config",
			"Optional YAML project-config file seeding root-path-changes and the trunk branch name.",
		).String()
		trunkRefName = kingpin.Flag(
			"trunk-branch",
			"Git ref name the trunk branch commits under regardless of its current TFVC path.",
		).String()
		planOnly = kingpin.Flag(
			"plan-only",
			"Run the topology analyzer and mapping-state iterator without touching the Object Store.",
		).Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(version.Print("tfvcimport")).Author("Robert Cowham")
	kingpin.CommandLine.Help = "Migrates a TFVC project-collection history into a Git repository.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}
	logger.Infof("%v", version.Print("tfvcimport"))

	if err := run(logger, runArgs{
		projectURL:      *projectURL,
		rootPath:        *rootPath,
		authorsFile:     *authorsFile,
		outDir:          *outDir,
		minChangeset:    *minChangeset,
		maxChangeset:    *maxChangeset,
		rootPathChanges: *rootPathChanges,
		pat:             *pat,
		configFile:      *configFile,
		trunkRefName:    *trunkRefName,
		planOnly:        *planOnly,
	}); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

type runArgs struct {
	projectURL      string
	rootPath        string
	authorsFile     string
	outDir          string
	minChangeset    int
	maxChangeset    int
	rootPathChanges []string
	pat             string
	configFile      string
	trunkRefName    string
	planOnly        bool
}

func run(logger *logrus.Logger, a runArgs) error {
	ctx := context.Background()
	startTime := time.Now()

	authors, err := config.LoadAuthorsFile(a.authorsFile)
	if err != nil {
		return tfvcerrors.Wrap(err, tfvcerrors.Configuration, 0, "loading authors file")
	}

	rootChangeTokens := a.rootPathChanges
	trunkRefName := a.trunkRefName
	parallelism := degreeOfParallelism
	if a.configFile != "" {
		cfg, err := config.LoadConfigFile(a.configFile)
		if err != nil {
			return tfvcerrors.Wrap(err, tfvcerrors.Configuration, 0, "loading project config")
		}
		if len(rootChangeTokens) == 0 {
			rootChangeTokens = cfg.RootPathChanges
		}
		if trunkRefName == "" {
			trunkRefName = cfg.TrunkBranch
		}
		if cfg.DegreeOfParallel > 0 {
			parallelism = cfg.DegreeOfParallel
		}
	}
	if trunkRefName == "" {
		trunkRefName = config.DefaultTrunkBranch
	}
	rootChanges, err := config.ParseRootPathChanges(rootChangeTokens)
	if err != nil {
		return tfvcerrors.Wrap(err, tfvcerrors.Configuration, 0, "parsing --root-path-changes")
	}

	if err := checkOutDir(a.outDir, a.planOnly); err != nil {
		return err
	}
	if !a.planOnly {
		if err := ensureGitRepo(ctx, a.outDir); err != nil {
			return err
		}
	}

	source := rest.New(a.projectURL, a.pat)

	metas, err := source.ListChangesets(ctx, a.rootPath, a.minChangeset, a.maxChangeset)
	if err != nil {
		return err
	}
	metaByChangeset := make(map[int]history.ChangesetMeta, len(metas))
	for _, m := range metas {
		metaByChangeset[m.ChangesetID] = m
	}

	it, err := mstate.NewIterator(ctx, logger, a.rootPath, rootChanges, changesetSource(source, metas))
	if err != nil {
		return err
	}

	var store objectstore.Store
	if !a.planOnly {
		store = objectstore.NewGit(logger, a.outDir)
	}
	p := planner.New(logger, store, source, parallelism, trunkRefName)

	var allBranches []branch.Identity
	seenBranches := map[branch.Identity]bool{}

	var created, touched int
	for {
		state, err := it.Next()
		if err != nil {
			return err
		}
		if state == nil {
			break
		}

		for _, bm := range state.BranchMappingsInDepOrder {
			if !seenBranches[bm.Branch] {
				seenBranches[bm.Branch] = true
				allBranches = append(allBranches, bm.Branch)
			}
		}

		if a.planOnly {
			logger.Infof("changeset %d: %d op(s), %d live branch(es)", state.Changeset, len(state.Ops), len(state.BranchMappingsInDepOrder))
			continue
		}

		scopes := make([]string, 0, len(state.BranchMappingsInDepOrder))
		for _, bm := range state.BranchMappingsInDepOrder {
			scopes = append(scopes, bm.Mapping.RootDirectory)
		}
		scopes = pathutil.NonOverlappingUnion(scopes)
		items, err := source.ListItems(ctx, scopes, state.Changeset)
		if err != nil {
			return tfvcerrors.WithChangeset(err, state.Changeset)
		}

		meta, ok := metaByChangeset[state.Changeset]
		if !ok {
			return tfvcerrors.WithChangeset(tfvcerrors.New(tfvcerrors.Invariant, "no changeset metadata for changeset"), state.Changeset)
		}
		sig, err := authorSignature(authors, meta)
		if err != nil {
			return tfvcerrors.WithChangeset(err, state.Changeset)
		}

		if err := p.Process(ctx, state, items, sig, sig, meta.Comment); err != nil {
			return err
		}
		created++
		touched += len(state.BranchMappingsInDepOrder)

		if created%100 == 0 {
			logger.Infof("progress: changeset %d, elapsed %s, %d changesets processed", state.Changeset, time.Since(startTime).Round(time.Second), created)
		}
	}

	if a.planOnly {
		logger.Infof("plan-only run complete: %d branch(es) observed", len(allBranches))
		return nil
	}

	if err := labels.Replay(ctx, logger, store, source, p, allBranches, objectstore.Signature{Name: "tfvcimport", Email: "tfvcimport@localhost", When: fmt.Sprintf("%d +0000", time.Now().Unix())}); err != nil {
		return err
	}

	logger.Infof("done: %d changesets processed across %d branch touches in %s", created, touched, time.Since(startTime).Round(time.Second))
	return nil
}

// checkOutDir enforces §6's --out-dir precondition: the directory must
// exist and be empty or contain nothing but a ".git" entry. The contents
// of ".git" are not inspected, so a repository that already has objects
// or refs is accepted.
func checkOutDir(dir string, planOnly bool) error {
	if planOnly {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return tfvcerrors.New(tfvcerrors.Precondition, "--out-dir does not exist: "+dir)
		}
		return tfvcerrors.Wrap(err, tfvcerrors.Precondition, 0, "reading --out-dir")
	}
	for _, e := range entries {
		if e.Name() != ".git" {
			return tfvcerrors.New(tfvcerrors.Precondition, "--out-dir is not empty: "+dir)
		}
	}
	return nil
}

// ensureGitRepo runs `git init` in dir if it is not already a repository;
// checkOutDir has already verified dir is empty or holds only .git.
func ensureGitRepo(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir + "/.git"); err == nil {
		return nil
	}
	cmd := exec.CommandContext(ctx, "git", "init", dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return tfvcerrors.Wrap(err, tfvcerrors.Precondition, 0, "git init: "+stderr.String())
	}
	return nil
}

// changesetSource adapts an already-fetched changeset list into the async
// lookahead's pull-based NextFunc, fetching each changeset's path changes
// lazily as the iterator advances so the network round-trip for
// changeset N+1 overlaps processing of changeset N (§9).
func changesetSource(source history.Source, metas []history.ChangesetMeta) concurrency.NextFunc[mstate.ChangesetInput] {
	i := 0
	return func(ctx context.Context) (mstate.ChangesetInput, bool, error) {
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
}

func authorSignature(authors map[string]config.Author, meta history.ChangesetMeta) (objectstore.Signature, error) {
	author, ok := authors[meta.CheckedInBy]
	if !ok {
		return objectstore.Signature{}, tfvcerrors.New(tfvcerrors.Configuration, "unmapped author: "+meta.CheckedInBy)
	}
	return objectstore.Signature{
		Name:  author.Name,
		Email: author.Email,
		When:  meta.CreatedDate,
	}, nil
}
