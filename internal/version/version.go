// Package version reports build information for the CLI --version flag.
// The teacher sources this from github.com/perforce/p4prometheus/version,
// a Perforce-specific module that has no home in a TFVC-to-Git importer;
// the string formatting it wraps is one line of fmt, so it's reproduced
// directly rather than pulling in a dependency with nothing left for this
// domain to exercise (see DESIGN.md).
package version

import "fmt"

// Build information, set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Print formats the version banner kingpin prints for --version.
func Print(app string) string {
	return fmt.Sprintf("%s version %s (commit %s, built %s)", app, Version, Commit, BuildDate)
}
