package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// emptyTreeHash is git's well-known hash for a tree with no entries,
// usable without ever calling mktree with zero input.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Git is a Store backed by a real git repository's plumbing commands,
// invoked via os/exec. It is single-writer per §5 ("the Object Store is
// single-writer during commit creation"); callers are expected to drive
// it from one goroutine at a time except for BlobFromStream, which is
// safe to call concurrently (git hash-object -w is independent per
// invocation) and additionally serialized here with a mutex matching
// §5's "blob cache ... guarded by a mutex only during insertion" policy.
type Git struct {
	logger *logrus.Logger
	dir    string
	mu     sync.Mutex
}

// NewGit returns a Store rooted at an already-initialized git repository
// at dir (the caller runs `git init` beforehand; the --out-dir
// precondition check lives in cmd/tfvcimport, not in this package).
func NewGit(logger *logrus.Logger, dir string) *Git {
	return &Git{logger: logger, dir: dir}
}

func (g *Git) run(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "git %s: %s", strings.Join(args, " "), stderr.String())
	}
	return strings.TrimSpace(out.String()), nil
}

func (g *Git) BlobFromStream(ctx context.Context, r io.Reader) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	hash, err := g.run(ctx, r, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", err
	}
	g.logger.Debugf("objectstore: wrote blob %s", hash)
	return hash, nil
}

func (g *Git) TreeFromEntries(ctx context.Context, entries []TreeEntry) (string, error) {
	if len(entries) == 0 {
		return emptyTreeHash, nil
	}
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "100644 blob %s\t%s\n", e.Blob, e.Path)
	}
	hash, err := g.run(ctx, &buf, "mktree")
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (g *Git) CommitFrom(ctx context.Context, author, committer Signature, message, tree string, parents []string) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	cmd.Env = append(commandEnv(),
		"GIT_AUTHOR_NAME="+author.Name, "GIT_AUTHOR_EMAIL="+author.Email, "GIT_AUTHOR_DATE="+author.When,
		"GIT_COMMITTER_NAME="+committer.Name, "GIT_COMMITTER_EMAIL="+committer.Email, "GIT_COMMITTER_DATE="+committer.When,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "git commit-tree: %s", stderr.String())
	}
	return strings.TrimSpace(out.String()), nil
}

func (g *Git) CreateOrMoveRef(ctx context.Context, refName, commit string) error {
	_, err := g.run(ctx, nil, "update-ref", refName, commit)
	return err
}

func (g *Git) RemoveRef(ctx context.Context, refName string) error {
	_, err := g.run(ctx, nil, "update-ref", "-d", refName)
	return err
}

func (g *Git) SetHead(ctx context.Context, refName string) error {
	_, err := g.run(ctx, nil, "symbolic-ref", "HEAD", refName)
	return err
}

func (g *Git) CreateTag(ctx context.Context, name, commit, message string, tagger Signature) error {
	cmd := exec.CommandContext(ctx, "git", "tag", "-a", name, commit, "-m", message)
	cmd.Dir = g.dir
	cmd.Env = append(commandEnv(), "GIT_COMMITTER_NAME="+tagger.Name, "GIT_COMMITTER_EMAIL="+tagger.Email, "GIT_COMMITTER_DATE="+tagger.When)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "git tag: %s", stderr.String())
	}
	return nil
}
