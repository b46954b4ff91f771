// Package gittree builds the flat per-branch directory tree the commit
// planner needs (§4.F step 4): a mapping from Git path to blob id,
// assembled as a directory-shaped Node tree from a branch's complete item
// listing for the changeset (history.ListItems always returns the full
// recursive listing, never a delta, so the tree is built fresh each
// changeset rather than patched incrementally).
//
// Adapted from the teacher's per-branch reconciliation tree (originally
// used to filter out deletes of already-renamed files across a Perforce
// changelist); here it tracks (path -> blob) rather than (path -> bool)
// since every entry needs its content-addressed blob id to build a tree
// object.
package gittree

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/rcowham/tfvcimport/objectstore"
)

// Node is one directory (or file) in a branch's working tree.
type Node struct {
	Name     string
	Path     string // full Git path, only meaningful on file nodes
	Blob     string // blob object id, only meaningful on file nodes
	IsFile   bool
	Children []*Node
}

// NewRoot returns an empty tree root.
func NewRoot() *Node {
	return &Node{}
}

// Set records that gitPath now resolves to blob, overwriting any previous
// entry at that path (a changed file is just a new blob at the same
// path).
func (n *Node) Set(gitPath, blob string) {
	n.set(gitPath, gitPath, blob)
}

func (n *Node) set(fullPath, subPath, blob string) {
	parts := strings.SplitN(subPath, "/", 2)
	if len(parts) == 1 {
		for _, c := range n.Children {
			if c.Name == parts[0] {
				c.IsFile = true
				c.Blob = blob
				c.Path = fullPath
				return
			}
		}
		n.Children = append(n.Children, &Node{Name: parts[0], IsFile: true, Path: fullPath, Blob: blob})
		return
	}
	for _, c := range n.Children {
		if c.Name == parts[0] {
			c.set(fullPath, parts[1], blob)
			return
		}
	}
	child := &Node{Name: parts[0]}
	n.Children = append(n.Children, child)
	child.set(fullPath, parts[1], blob)
}

// Entries flattens the tree into a sorted list of (path, blob) pairs
// suitable for objectstore.TreeFromEntries.
func (n *Node) Entries() []objectstore.TreeEntry {
	var entries []objectstore.TreeEntry
	n.collect(&entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

func (n *Node) collect(out *[]objectstore.TreeEntry) {
	for _, c := range n.Children {
		if c.IsFile {
			*out = append(*out, objectstore.TreeEntry{Path: c.Path, Blob: c.Blob})
		} else {
			c.collect(out)
		}
	}
}

// ContentHash returns a stable digest of the tree's (path, blob) pairs,
// used by the commit planner to decide whether a branch's tree actually
// changed this changeset (§4.F step 4: "the tree content hash differs
// from the current head's tree").
func (n *Node) ContentHash() string {
	entries := n.Entries()
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.Path))
		h.Write([]byte{0})
		h.Write([]byte(e.Blob))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
