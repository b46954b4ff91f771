package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGitPathBasic(t *testing.T) {
	m := New("$/P/Main")
	p, ok := m.GitPath("$/P/Main/src/file.txt")
	assert.True(t, ok)
	assert.Equal(t, "src/file.txt", p)

	_, ok = m.GitPath("$/P/Other/file.txt")
	assert.False(t, ok)

	p, ok = m.GitPath("$/P/Main")
	assert.True(t, ok)
	assert.Equal(t, "", p)
}

func TestGitPathSubdirMapping(t *testing.T) {
	// Branch was created from $/P/Main/Sub, so items under $/P/Branch
	// appear where they would sit under $/P/Main/Sub (at Sub/... in the Git
	// tree), and anything still directly under $/P/Main/Sub (the source it
	// came from) is hidden.
	m := New("$/P/Main").WithSubdirMapping("$/P/Branch", "$/P/Main/Sub")

	p, ok := m.GitPath("$/P/Branch/a.txt")
	assert.True(t, ok)
	assert.Equal(t, "Sub/a.txt", p)

	_, ok = m.GitPath("$/P/Main/Sub/hidden.txt")
	assert.False(t, ok)

	p, ok = m.GitPath("$/P/Main/other.txt")
	assert.True(t, ok)
	assert.Equal(t, "other.txt", p)
}

func TestRenameRoot(t *testing.T) {
	m := New("$/P")
	renamed, err := m.RenameRoot("$/P", "$/Q")
	assert.NoError(t, err)
	assert.Equal(t, "$/Q", renamed.RootDirectory)

	withSubdir := m.WithSubdirMapping("$/P/B", "$/P/S")
	_, err = withSubdir.RenameRoot("$/P", "$/Q")
	assert.ErrorIs(t, err, ErrNotImplemented)
}
