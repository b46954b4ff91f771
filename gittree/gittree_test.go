package gittree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndEntries(t *testing.T) {
	root := NewRoot()
	root.Set("src/a.txt", "blob-a")
	root.Set("src/sub/b.txt", "blob-b")
	root.Set("c.txt", "blob-c")

	entries := root.Entries()
	assert.Len(t, entries, 3)
	assert.Equal(t, "c.txt", entries[0].Path)
	assert.Equal(t, "src/a.txt", entries[1].Path)
	assert.Equal(t, "src/sub/b.txt", entries[2].Path)
}

func TestOverwriteExistingFile(t *testing.T) {
	root := NewRoot()
	root.Set("a.txt", "blob-1")
	root.Set("a.txt", "blob-2")
	entries := root.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, "blob-2", entries[0].Blob)
}

func TestContentHashStableAndSensitive(t *testing.T) {
	a := NewRoot()
	a.Set("x.txt", "blob-1")
	b := NewRoot()
	b.Set("x.txt", "blob-1")
	assert.Equal(t, a.ContentHash(), b.ContentHash())

	b.Set("x.txt", "blob-2")
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())
}
