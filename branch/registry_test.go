package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Per §4.B's discipline, an Add/Delete/Rename at changeset N only advances
// max_known_changeset to N-1, so that further operations at the same
// changeset remain legal. Tests that want to Find at N must first seal the
// registry up to N explicitly, as the topology analyzer does between
// ingesting a changeset's operations and resolving merge/branch sources.

func TestAddFindBasic(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/Main"}))
	assert.NoError(t, r.NoFurtherChangesUpTo(1))
	id, err := r.Find(1, "$/Main/file.txt")
	assert.NoError(t, err)
	assert.NotNil(t, id)
	assert.Equal(t, "$/Main", id.Path)
}

func TestAddDuplicateFails(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/Main"}))
	err := r.Add(Identity{2, "$/Main"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestOutOfOrderFails(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{5, "$/Main"}))
	err := r.Add(Identity{3, "$/Other"})
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestMostSpecificWins(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/Main"}))
	assert.NoError(t, r.Add(Identity{2, "$/Main/Sub"}))
	assert.NoError(t, r.NoFurtherChangesUpTo(2))

	id, err := r.Find(2, "$/Main/Sub/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "$/Main/Sub", id.Path)

	id, err = r.Find(2, "$/Main/other.txt")
	assert.NoError(t, err)
	assert.Equal(t, "$/Main", id.Path)
}

func TestDeleteThenFindHistorical(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/Main/B"}))
	assert.NoError(t, r.NoFurtherChangesUpTo(2))
	_, err := r.Delete(3, "$/Main/B")
	assert.NoError(t, err)

	// Query at a changeset before the delete should still find it.
	id, err := r.Find(2, "$/Main/B/file.txt")
	assert.NoError(t, err)
	assert.NotNil(t, id)

	// Deleting an unknown path fails.
	_, err = r.Delete(4, "$/Main/Unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameMovesIdentity(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/P"}))
	old, err := r.Rename(2, "$/P", "$/Q")
	assert.NoError(t, err)
	assert.Equal(t, Identity{1, "$/P"}, old)

	assert.NoError(t, r.NoFurtherChangesUpTo(2))
	id, err := r.Find(2, "$/Q/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "$/Q", id.Path)

	// Earlier query still finds old identity.
	id, err = r.Find(1, "$/P/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "$/P", id.Path)
}

func TestFindBeyondKnownChangesetFails(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/Main"}))
	_, err := r.Find(100, "$/Main/x")
	assert.ErrorIs(t, err, ErrUnknownChangeset)
}

func TestNoFurtherChangesSeals(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Add(Identity{1, "$/Main"}))
	assert.NoError(t, r.NoFurtherChangesUpTo(10))
	_, err := r.Find(10, "$/Main/x")
	assert.NoError(t, err)
	err = r.NoFurtherChangesUpTo(5)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}
