// Package mirror implements the RepositoryReader port over a local directory
// tree, for offline discovery against exported or synced repositories.
//
// Layout:
//
//	<root>/<url.QueryEscape(repo)>/<collection>/<rkey>.json
//	<root>/<url.QueryEscape(repo)>/<collection>/<rkey>.jsonc
//	<root>/<url.QueryEscape(repo)>/<collection>/<rkey>.cbor
//
// Records are listed in record key order. The cursor is the last record key
// returned.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/pennyhailey/witness-protocol/internal/domain"
	"github.com/pennyhailey/witness-protocol/internal/ports"
)

// Reader reads records from a mirror directory.
type Reader struct {
	root string
}

// NewReader creates a reader rooted at dir. The directory must exist.
func NewReader(dir string) (*Reader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("mirror directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mirror directory: %s is not a directory", dir)
	}
	return &Reader{root: dir}, nil
}

// RepoDir returns the directory holding repo's collections under root.
func RepoDir(root string, repo domain.Identifier) string {
	return filepath.Join(root, url.QueryEscape(repo.String()))
}

type entry struct {
	key  string
	path string
	enc  ports.Encoding
	// jsonc files are converted to JSON on read
	jsonc bool
}

// ListRecords returns up to limit records of collection with keys after cursor.
func (r *Reader) ListRecords(ctx context.Context, repo domain.Identifier, collection string, cursor string, limit int) (*ports.RecordPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(collection, `/\`) || collection == "" || collection == "." || collection == ".." {
		return nil, fmt.Errorf("%w: invalid collection %q", ports.ErrMalformedResponse, collection)
	}

	repoDir := RepoDir(r.root, repo)
	if _, err := os.Stat(repoDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not mirrored in %s", ports.ErrRepositoryNotFound, repo, r.root)
		}
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrRepositoryUnavailable, repo, err)
	}

	entries, err := r.scan(filepath.Join(repoDir, collection))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ports.ErrRepositoryUnavailable, repo, err)
	}

	start := sort.Search(len(entries), func(i int) bool { return entries[i].key > cursor })
	end := len(entries)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	page := &ports.RecordPage{Records: make([]ports.RecordEnvelope, 0, end-start)}
	for _, e := range entries[start:end] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(e.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ports.ErrRepositoryUnavailable, repo, err)
		}
		if e.jsonc {
			data = jsonc.ToJSON(data)
		}
		page.Records = append(page.Records, ports.RecordEnvelope{
			Ref:      domain.RecordRef{Repo: repo, Collection: collection, Key: e.key},
			Value:    data,
			Encoding: e.enc,
		})
	}
	if end < len(entries) && end > start {
		page.Cursor = entries[end-1].key
	}
	return page, nil
}

// scan lists record files in dir sorted by key. A missing collection is empty.
// When one key exists in several encodings, json wins over jsonc over cbor.
func (r *Reader) scan(dir string) ([]entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	byKey := make(map[string]entry, len(files))
	rank := map[string]int{".json": 0, ".jsonc": 1, ".cbor": 2}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := filepath.Ext(f.Name())
		pri, ok := rank[ext]
		if !ok {
			continue
		}
		key := strings.TrimSuffix(f.Name(), ext)
		if key == "" {
			continue
		}
		if prev, dup := byKey[key]; dup && rank[filepath.Ext(prev.path)] <= pri {
			continue
		}
		e := entry{key: key, path: filepath.Join(dir, f.Name()), enc: ports.EncodingJSON}
		switch ext {
		case ".jsonc":
			e.jsonc = true
		case ".cbor":
			e.enc = ports.EncodingCBOR
		}
		byKey[key] = e
	}

	out := make([]entry, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out, nil
}

var _ ports.RepositoryReader = (*Reader)(nil)
