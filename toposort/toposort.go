// Package toposort implements the stable, dependency-respecting ordering
// used by the mapping-state iterator to order branches so that each
// commits after every branch it depends on (§4.H).
package toposort

import "fmt"

// Error reports a topological sort that could not complete: either a
// dependency cycle, or a reference to a key outside the input set.
type Error struct {
	Cyclical            []interface{}
	ExternalDependencies []interface{}
	ExternalDependents   []interface{}
}

func (e *Error) Error() string {
	switch {
	case len(e.Cyclical) > 0:
		return fmt.Sprintf("toposort: cyclical dependency among %v", e.Cyclical)
	default:
		return fmt.Sprintf("toposort: external dependencies %v referenced by %v", e.ExternalDependencies, e.ExternalDependents)
	}
}

// Sort orders items so that every item appears after all items its
// dependsOn function names (looked up by the key function's return value).
// Among items whose dependencies are already satisfied, output preserves
// input order (a stable Kahn's-algorithm topological sort).
//
// key must return a comparable value uniquely identifying each item.
// dependsOn returns the keys an item depends on; keys not present in the
// input set, and true cycles, are reported distinctly via Error.
func Sort[T any, K comparable](items []T, key func(T) K, dependsOn func(T) []K) ([]T, error) {
	n := len(items)
	keys := make([]K, n)
	index := make(map[K]int, n)
	for i, it := range items {
		k := key(it)
		keys[i] = k
		index[k] = i
	}

	// Validate dependency keys exist in the input set, collecting any
	// that don't so we can report them together rather than failing on
	// the first.
	var externalDeps []interface{}
	var externalDependents []interface{}
	deps := make([][]int, n)
	for i, it := range items {
		for _, dk := range dependsOn(it) {
			di, ok := index[dk]
			if !ok {
				externalDeps = append(externalDeps, dk)
				externalDependents = append(externalDependents, keys[i])
				continue
			}
			deps[i] = append(deps[i], di)
		}
	}
	if len(externalDeps) > 0 {
		return nil, &Error{ExternalDependencies: externalDeps, ExternalDependents: externalDependents}
	}

	remaining := make([]map[int]struct{}, n)
	for i := range remaining {
		remaining[i] = make(map[int]struct{}, len(deps[i]))
		for _, d := range deps[i] {
			remaining[i][d] = struct{}{}
		}
	}

	emitted := make([]bool, n)
	result := make([]T, 0, n)
	for len(result) < n {
		progressed := false
		for i := 0; i < n; i++ {
			if emitted[i] || len(remaining[i]) > 0 {
				continue
			}
			result = append(result, items[i])
			emitted[i] = true
			progressed = true
			for j := 0; j < n; j++ {
				delete(remaining[j], i)
			}
		}
		if !progressed {
			var cyclical []interface{}
			for i, done := range emitted {
				if !done {
					cyclical = append(cyclical, keys[i])
				}
			}
			return nil, &Error{Cyclical: cyclical}
		}
	}
	return result, nil
}
