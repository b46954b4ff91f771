package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcowham/tfvcimport/topology"
)

// ParseRootPathChanges parses the `--root-path-changes` CLI argument: a
// list of "CSn:$/new" tokens (§6). Syntactic validation only — one
// changeset per token, a ':' separator, a numeric changeset. Semantic
// checks (changeset greater than 1, no duplicate changeset, new path
// starting with "$/") are done by topology.New. A change at or before the
// run's first listed changeset is not rejected there; it fails later, as
// NotImplemented, when the analyzer reaches the next changeset.
func ParseRootPathChanges(tokens []string) ([]topology.RootPathChange, error) {
	changes := make([]topology.RootPathChange, 0, len(tokens))
	for _, tok := range tokens {
		rc, err := parseRootPathChangeToken(tok)
		if err != nil {
			return nil, err
		}
		changes = append(changes, rc)
	}
	return changes, nil
}

func parseRootPathChangeToken(tok string) (topology.RootPathChange, error) {
	idx := strings.Index(tok, ":")
	if idx < 0 {
		return topology.RootPathChange{}, fmt.Errorf("root-path-change %q: expected CSn:$/path", tok)
	}
	csPart := strings.TrimSpace(tok[:idx])
	csPart = strings.TrimPrefix(strings.TrimPrefix(csPart, "CS"), "cs")
	changeset, err := strconv.Atoi(csPart)
	if err != nil {
		return topology.RootPathChange{}, fmt.Errorf("root-path-change %q: invalid changeset: %v", tok, err)
	}
	newPath := strings.TrimSpace(tok[idx+1:])
	if newPath == "" {
		return topology.RootPathChange{}, fmt.Errorf("root-path-change %q: missing new path", tok)
	}
	return topology.RootPathChange{Changeset: changeset, NewRootPath: newPath}, nil
}
