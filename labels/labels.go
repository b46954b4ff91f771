// Package labels implements the label/tag replay glue: one of §6's
// supplemented features (mentioned only as "labels, tags" at the CLI
// boundary). A TFVC label names a changeset; that changeset may have
// landed a commit on more than one live branch, so each matching branch
// gets its own tag, disambiguated by branch leaf name when there is more
// than one.
package labels

import (
	"context"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/history"
	"github.com/rcowham/tfvcimport/objectstore"
	"github.com/rcowham/tfvcimport/pathutil"
	"github.com/rcowham/tfvcimport/planner"
	"github.com/sirupsen/logrus"
)

// CommitLookup resolves the commit created for a branch at a changeset;
// satisfied by *planner.Planner.
type CommitLookup interface {
	CommitFor(changeset int, b branch.Identity) (planner.CommitIndexEntry, bool)
}

// Replay walks every label the source reports and creates an annotated
// tag for each branch that received a commit at the label's changeset.
// branches is every branch identity known to have existed at any point in
// the run, in no particular order; tagger is the signature used for every
// tag's annotation.
func Replay(ctx context.Context, logger *logrus.Logger, store objectstore.Store, source history.Source, lookup CommitLookup, branches []branch.Identity, tagger objectstore.Signature) error {
	tagLabels, err := source.ListLabels(ctx, "")
	if err != nil {
		return err
	}
	for _, label := range tagLabels {
		changeset, err := source.LabelItems(ctx, label)
		if err != nil {
			logger.WithError(err).WithField("label", label.Name).Warn("skipping label: could not resolve changeset")
			continue
		}

		var matches []struct {
			branch branch.Identity
			commit planner.CommitIndexEntry
		}
		for _, b := range branches {
			if c, ok := lookup.CommitFor(changeset, b); ok && c.Created {
				matches = append(matches, struct {
					branch branch.Identity
					commit planner.CommitIndexEntry
				}{b, c})
			}
		}

		if len(matches) == 0 {
			logger.WithField("label", label.Name).WithField("changeset", changeset).Warn("skipping label: no branch had a commit at this changeset")
			continue
		}

		disambiguate := len(matches) > 1
		for _, m := range matches {
			name := label.Name
			if disambiguate {
				name = label.Name + "-" + pathutil.Leaf(m.branch.Path)
			}
			if err := store.CreateTag(ctx, name, m.commit.Commit, "", tagger); err != nil {
				return err
			}
			logger.WithField("label", name).WithField("commit", m.commit.Commit).Info("created tag")
		}
	}
	return nil
}
