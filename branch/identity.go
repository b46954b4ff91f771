// Package branch implements branch identity and the live-branch registry
// (§3, §4.B): an immutable (creation changeset, path) identity and an
// ordered, specificity-indexed set of branches live at any queried
// changeset.
package branch

import (
	"strings"

	"github.com/pkg/errors"
)

// Identity is an immutable branch identity: the changeset at which the
// branch was created and its TFVC root path. Two identities are equal when
// CreationChangeset matches exactly and Path matches case-insensitively.
type Identity struct {
	CreationChangeset int
	Path              string
}

// Equal compares two identities per the case-insensitive path rule.
func (id Identity) Equal(other Identity) bool {
	return id.CreationChangeset == other.CreationChangeset && strings.EqualFold(id.Path, other.Path)
}

func (id Identity) String() string {
	return id.Path
}

// Category errors returned by Registry operations.
var (
	// ErrOutOfOrder is returned when an operation names a changeset that
	// does not advance the registry's max known changeset.
	ErrOutOfOrder = errors.New("branch: changeset out of order")
	// ErrDuplicate is returned by Add when the path is already live.
	ErrDuplicate = errors.New("branch: path already live")
	// ErrNotFound is returned by Delete/Rename when the path is not a
	// currently live branch.
	ErrNotFound = errors.New("branch: path not live")
	// ErrUnknownChangeset is returned by Find when asked about a changeset
	// beyond what the registry has ingested.
	ErrUnknownChangeset = errors.New("branch: changeset beyond max known")
)
