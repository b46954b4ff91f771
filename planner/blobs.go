package planner

import (
	"bytes"
	"context"
	"io"

	"github.com/h2non/filetype"
	"github.com/rcowham/tfvcimport/concurrency"
	"github.com/rcowham/tfvcimport/tfvcerrors"
)

type blobResult struct {
	Hash string
	Blob string
}

// materializeBlobs implements §4.F step 3: fetch content for every
// distinct, nonzero-size, not-yet-cached hash in parallel, create a blob,
// renormalize CRLF for text content that carries it, and cache the
// result by hash.
func (p *Planner) materializeBlobs(ctx context.Context, sources []DownloadSource) error {
	// Size-zero items use emptyBlobHash directly; write that blob once.
	for _, s := range sources {
		p.blobMu.Lock()
		_, written := p.blobCache[emptyBlobHash]
		p.blobMu.Unlock()
		if s.Size == 0 && !written {
			blob, err := p.store.BlobFromStream(ctx, bytes.NewReader(nil))
			if err != nil {
				return err
			}
			p.blobMu.Lock()
			p.blobCache[emptyBlobHash] = blob
			p.blobMu.Unlock()
		}
	}

	pending := p.pendingSources(sources)
	if len(pending) == 0 {
		return nil
	}

	factories := make([]concurrency.TaskFactory[blobResult], len(pending))
	for i, s := range pending {
		s := s
		factories[i] = func(ctx context.Context) (blobResult, error) {
			blob, err := p.materializeOne(ctx, s)
			if err != nil {
				return blobResult{}, err
			}
			return blobResult{Hash: s.Hash, Blob: blob}, nil
		}
	}

	results, err := concurrency.BoundedParallelMap(ctx, p.degreeOfParallelism, factories)
	if err != nil {
		return err
	}

	p.blobMu.Lock()
	defer p.blobMu.Unlock()
	for _, r := range results {
		p.blobCache[r.Hash] = r.Blob
	}
	return nil
}

func (p *Planner) pendingSources(sources []DownloadSource) []DownloadSource {
	seen := map[string]DownloadSource{}
	for _, s := range sources {
		if s.Size == 0 {
			continue
		}
		if _, ok := seen[s.Hash]; ok {
			continue
		}
		p.blobMu.Lock()
		_, cached := p.blobCache[s.Hash]
		p.blobMu.Unlock()
		if cached {
			continue
		}
		seen[s.Hash] = s
	}
	pending := make([]DownloadSource, 0, len(seen))
	for _, s := range seen {
		pending = append(pending, s)
	}
	return pending
}

func (p *Planner) materializeOne(ctx context.Context, s DownloadSource) (string, error) {
	rc, err := p.source.FetchContent(ctx, s.Path, s.ChangesetVersion)
	if err != nil {
		return "", tfvcerrors.Wrap(err, tfvcerrors.TransientIO, 0, "fetch content "+s.Path)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", tfvcerrors.Wrap(err, tfvcerrors.TransientIO, 0, "read content "+s.Path)
	}

	blob, err := p.store.BlobFromStream(ctx, bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	kind, _ := filetype.Match(content)
	if kind == filetype.Unknown && ContainsCRLF(content) {
		renormalized := RenormalizeCRLF(content)
		blob, err = p.store.BlobFromStream(ctx, bytes.NewReader(renormalized))
		if err != nil {
			return "", err
		}
	}
	return blob, nil
}
