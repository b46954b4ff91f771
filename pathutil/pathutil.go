// Package pathutil implements TFVC path semantics: absolute-path checks,
// containment, overlap, leaf extraction and the path-rewriting primitives
// the topology analyzer and branch mapping view are built on.
//
// Paths are TFVC server paths such as "$/Project/Main/Sub". All comparisons
// of path segments are case-insensitive, matching TFVC's case-insensitive
// server namespace; slashes are always "/".
package pathutil

import "strings"

// IsAbsolute reports whether p is a TFVC server path (begins with "$/").
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "$/")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Contains reports whether b is strictly nested under a, i.e. b names an
// item somewhere below the directory a, not a itself.
func Contains(a, b string) bool {
	if len(b) <= len(a)+1 {
		return false
	}
	if b[len(a)] != '/' {
		return false
	}
	return equalFold(a, b[:len(a)])
}

// IsOrContains reports whether a and b name the same path (case-insensitive)
// or a Contains b.
func IsOrContains(a, b string) bool {
	return equalFold(a, b) || Contains(a, b)
}

// Overlaps reports whether a and b are the same path or one contains the
// other.
func Overlaps(a, b string) bool {
	return IsOrContains(a, b) || IsOrContains(b, a)
}

// Leaf returns the final path segment of p (the substring after the last
// "/"), or p itself if it has no "/".
func Leaf(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// ReplaceContaining rewrites p, which must be at-or-under oldContainer, so
// that the oldContainer prefix is replaced by newContainer. It panics if
// oldContainer does not contain (or equal) p — callers are expected to have
// validated this with IsOrContains first, as the operations this backs
// (root renames) are internal invariants, not user input.
func ReplaceContaining(p, oldContainer, newContainer string) string {
	if !IsOrContains(oldContainer, p) {
		panic("pathutil: ReplaceContaining: " + oldContainer + " does not contain " + p)
	}
	suffix := p[len(oldContainer):]
	return newContainer + suffix
}

// RemoveContaining returns the portion of p below container — the empty
// string if p equals container, otherwise the path relative to container
// with no leading slash. It panics if container does not contain (or equal) p.
func RemoveContaining(p, container string) string {
	if !IsOrContains(container, p) {
		panic("pathutil: RemoveContaining: " + container + " does not contain " + p)
	}
	if len(p) == len(container) {
		return ""
	}
	return p[len(container)+1:]
}

// StripCommonTrailingSegments strips matching trailing path segments off
// src and tgt as long as both still have further segments, stopping as
// soon as the final segments diverge. It is used to reduce a merge/branch
// record that names matching leaf subdirectories on both sides — e.g.
// "$/X/A/Sub" and "$/X/B/Sub" — down to the largest common sub-path pair,
// "$/X/A" and "$/X/B". If stripping makes the two paths equal
// (case-insensitively), both return values are the empty string.
func StripCommonTrailingSegments(src, tgt string) (string, string) {
	for strings.Contains(src, "/") {
		srcSeg := Leaf(src)
		if !hasTrailingSegment(tgt, srcSeg) {
			break
		}
		src = src[:len(src)-len(srcSeg)-1]
		tgt = tgt[:len(tgt)-len(srcSeg)-1]
	}
	if equalFold(src, tgt) {
		return "", ""
	}
	return src, tgt
}

// hasTrailingSegment reports whether p's final "/seg" matches seg
// case-insensitively, including the separating slash.
func hasTrailingSegment(p, seg string) bool {
	suffix := "/" + seg
	if len(p) < len(suffix) {
		return false
	}
	return equalFold(p[len(p)-len(suffix):], suffix)
}

// NonOverlappingUnion returns the subset of paths where no element
// contains another. When a later path in the input contains an earlier
// one, the later (containing) path displaces the earlier (contained) one —
// "later" wins, matching the precedence a fresh scope recalculation should
// have over a stale one.
func NonOverlappingUnion(paths []string) []string {
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		keep := true
		filtered := result[:0:0]
		for _, existing := range result {
			if IsOrContains(p, existing) {
				// p displaces a contained (or equal) existing entry.
				continue
			}
			if IsOrContains(existing, p) {
				// existing already covers p; drop p.
				keep = false
				filtered = append(filtered, existing)
				continue
			}
			filtered = append(filtered, existing)
		}
		result = filtered
		if keep {
			result = append(result, p)
		}
	}
	return result
}
