// Package mapping implements the per-branch projection from TFVC item
// paths to Git repository paths (§3 "Branch mapping", §4.C).
package mapping

import (
	"github.com/pkg/errors"
	"github.com/rcowham/tfvcimport/pathutil"
)

// ErrNotImplemented is returned by RenameRoot when the mapping carries a
// subdir mapping: the interaction of rename with subdir remap is explicitly
// left unvalidated by the spec (§9 Open Questions).
var ErrNotImplemented = errors.New("mapping: rename of a subdir-mapped view is not implemented")

// SubdirMapping records that items under BranchDir should appear in the
// Git tree at the path they'd have under TargetDir, and that items already
// under TargetDir are hidden (they belong to whichever view TargetDir's own
// root mapping projects them through).
type SubdirMapping struct {
	BranchDir string
	TargetDir string
}

// Mapping is a branch's view: its TFVC root directory, plus an optional
// subdirectory remap created when the branch's source path was a
// subdirectory of another branch's root.
type Mapping struct {
	RootDirectory string
	Subdir        *SubdirMapping
}

// New returns a bare root mapping with no subdir remap.
func New(rootDirectory string) Mapping {
	return Mapping{RootDirectory: rootDirectory}
}

// WithSubdirMapping returns a copy of m with a subdir remap attached.
// Neither path is validated. The mapping-state iterator, the sole caller,
// passes the branch source path as targetDir, which may equal m's root,
// and the new branch path as branchDir, which may lie inside targetDir;
// GitPath checks BranchDir before TargetDir so that nesting still remaps.
func (m Mapping) WithSubdirMapping(branchDir, targetDir string) Mapping {
	m.Subdir = &SubdirMapping{BranchDir: branchDir, TargetDir: targetDir}
	return m
}

// RenameRoot returns a copy of m with its root directory rewritten from
// oldRoot to newRoot via pathutil.ReplaceContaining. Fails with
// ErrNotImplemented if m carries a subdir mapping.
func (m Mapping) RenameRoot(oldRoot, newRoot string) (Mapping, error) {
	if m.Subdir != nil {
		return Mapping{}, ErrNotImplemented
	}
	return Mapping{RootDirectory: pathutil.ReplaceContaining(m.RootDirectory, oldRoot, newRoot)}, nil
}

// GitPath projects a TFVC item path into this branch's Git tree path, or
// returns ("", false) if itemPath is outside this branch's view.
//
// If a subdir mapping is present and itemPath is at-or-under BranchDir,
// the path is rewritten so that the BranchDir prefix reads as TargetDir
// before the root-stripping step. Otherwise, if itemPath is at-or-under
// TargetDir, the item is hidden (it belongs to the mapping the subdir was
// derived from) — checked second so that a BranchDir nested inside
// TargetDir (a branch carved out of its own source's directory) still
// takes the remap path rather than being hidden. Finally, if at-or-under
// RootDirectory, the leading "RootDirectory/" is stripped to produce the
// Git-relative path.
func (m Mapping) GitPath(itemPath string) (string, bool) {
	if m.Subdir != nil {
		switch {
		case pathutil.IsOrContains(m.Subdir.BranchDir, itemPath):
			itemPath = pathutil.ReplaceContaining(itemPath, m.Subdir.BranchDir, m.Subdir.TargetDir)
		case pathutil.IsOrContains(m.Subdir.TargetDir, itemPath):
			return "", false
		}
	}
	if !pathutil.IsOrContains(m.RootDirectory, itemPath) {
		return "", false
	}
	return pathutil.RemoveContaining(itemPath, m.RootDirectory), true
}
