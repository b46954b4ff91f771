package history

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rcowham/tfvcimport/topology"
)

// FakeChangeset is one changeset's worth of fixture data for Fake.
type FakeChangeset struct {
	Meta    ChangesetMeta
	Changes []topology.PathChange
	// Items is the full item listing as of this changeset; ListItems
	// filters this down to whatever scope paths are requested.
	Items []Item
	// Content maps item path to file content as of this changeset.
	Content map[string][]byte
}

// Fake is an in-memory, deterministic Source for tests: end-to-end
// scenarios (§8 S1-S6) are expressed as a handful of FakeChangeset values
// rather than a real TFVC server round-trip.
type Fake struct {
	Changesets []FakeChangeset
	Labels     []Label
	LabelAt    map[string]int
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{LabelAt: map[string]int{}}
}

// AddChangeset appends a changeset to the fixture, in whatever order
// tests construct it; ListChangesets sorts by ChangesetID regardless.
func (f *Fake) AddChangeset(cs FakeChangeset) {
	f.Changesets = append(f.Changesets, cs)
}

func (f *Fake) find(changesetID int) (*FakeChangeset, bool) {
	for i := range f.Changesets {
		if f.Changesets[i].Meta.ChangesetID == changesetID {
			return &f.Changesets[i], true
		}
	}
	return nil, false
}

func (f *Fake) ListChangesets(ctx context.Context, rootPath string, min, max int) ([]ChangesetMeta, error) {
	var metas []ChangesetMeta
	for _, cs := range f.Changesets {
		if min != 0 && cs.Meta.ChangesetID < min {
			continue
		}
		if max != 0 && cs.Meta.ChangesetID > max {
			continue
		}
		metas = append(metas, cs.Meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].ChangesetID < metas[j].ChangesetID })
	return metas, nil
}

func (f *Fake) ListChangesetChanges(ctx context.Context, changesetID int) ([]topology.PathChange, error) {
	cs, ok := f.find(changesetID)
	if !ok {
		return nil, fmt.Errorf("history: no fixture changeset %d", changesetID)
	}
	return cs.Changes, nil
}

func (f *Fake) ListItems(ctx context.Context, scopePaths []string, changeset int) ([]Item, error) {
	cs, ok := f.find(changeset)
	if !ok {
		return nil, fmt.Errorf("history: no fixture changeset %d", changeset)
	}
	var out []Item
	for _, item := range cs.Items {
		for _, scope := range scopePaths {
			if strings.EqualFold(item.Path, scope) || (len(item.Path) > len(scope) && strings.HasPrefix(strings.ToLower(item.Path), strings.ToLower(scope)+"/")) {
				out = append(out, item)
				break
			}
		}
	}
	return out, nil
}

type readCloser struct{ io.Reader }

func (readCloser) Close() error { return nil }

func (f *Fake) FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error) {
	cs, ok := f.find(changeset)
	if !ok {
		return nil, fmt.Errorf("history: no fixture changeset %d", changeset)
	}
	content, ok := cs.Content[path]
	if !ok {
		return nil, fmt.Errorf("history: no fixture content for %s@%d", path, changeset)
	}
	return readCloser{strings.NewReader(string(content))}, nil
}

func (f *Fake) ListLabels(ctx context.Context, rootPath string) ([]Label, error) {
	return f.Labels, nil
}

func (f *Fake) LabelItems(ctx context.Context, label Label) (int, error) {
	cs, ok := f.LabelAt[label.Name]
	if !ok {
		return 0, fmt.Errorf("history: no fixture changeset for label %s", label.Name)
	}
	return cs, nil
}
