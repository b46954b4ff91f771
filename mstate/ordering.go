package mstate

import (
	"fmt"

	"github.com/rcowham/tfvcimport/branch"
	"github.com/rcowham/tfvcimport/toposort"
)

func errMissingMapping(id branch.Identity) error {
	return fmt.Errorf("no mapping registered for branch %s (created at changeset %d)", id.Path, id.CreationChangeset)
}

// sortBranches orders identities so that every branch with an
// additional-parent edge this changeset commits after the parent it names,
// using the stable topological sort (§4.H). Dependencies naming a branch
// not present in identities (e.g. deleted the same changeset its merge
// source is recorded) are dropped rather than failing the sort, since a
// deleted source branch no longer needs to be ordered relative to anything.
func sortBranches(identities []branch.Identity, depsByChild map[branch.Identity][]branch.Identity) ([]branch.Identity, error) {
	present := make(map[branch.Identity]struct{}, len(identities))
	for _, id := range identities {
		present[id] = struct{}{}
	}
	key := func(id branch.Identity) branch.Identity { return id }
	dependsOn := func(id branch.Identity) []branch.Identity {
		var deps []branch.Identity
		for _, p := range depsByChild[id] {
			if _, ok := present[p]; ok {
				deps = append(deps, p)
			}
		}
		return deps
	}
	return toposort.Sort(identities, key, dependsOn)
}
