package planner

import (
	"regexp"
	"strings"

	"github.com/rcowham/tfvcimport/pathutil"
)

// disallowedRefChars matches any run of characters git ref names
// disallow: ASCII control characters and space, backslash, "?", "*",
// "[", "~", "^", ":", and DEL (§4.F step 5).
var disallowedRefChars = regexp.MustCompile(`[\x00-\x20\\?*\[~^:\x7f]+`)

// RefNameFor derives a branch ref's leaf name: the trunk name if branch
// is the trunk, otherwise leaf(branch.path) with every run of disallowed
// characters collapsed to a single "-", and no leading or trailing "-"
// left over from that collapse.
func RefNameFor(branchPath, trunkPath, trunkRefName string) string {
	if strings.EqualFold(branchPath, trunkPath) {
		return trunkRefName
	}
	leaf := pathutil.Leaf(branchPath)
	sanitized := disallowedRefChars.ReplaceAllString(leaf, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		sanitized = "branch"
	}
	return sanitized
}
