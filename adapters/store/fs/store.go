package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-workflow-export/export"
)

// Store keeps exported PDFs on disk. Each artifact is written to a temporary
// file in its target directory and renamed into place, so readers never see
// a partial document. Metadata lives in a sidecar next to the artifact.
type Store struct {
	Root string
	Now  func() time.Time
}

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put writes an artifact.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta export.ArtifactMeta) (export.ArtifactRef, error) {
	pathOnDisk, err := s.target(ctx, key)
	if err != nil {
		return export.ArtifactRef{}, err
	}
	if r == nil {
		return export.ArtifactRef{}, export.NewError(export.KindValidation, "artifact reader is required", nil)
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindExport, "create artifact directory", err)
	}

	size, err := writeAtomic(dir, pathOnDisk, ".artifact-*", func(w io.Writer) (int64, error) {
		return io.Copy(w, readerWithContext{ctx: ctx, r: r})
	})
	if err != nil {
		return export.ArtifactRef{}, err
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = contentType(pathOnDisk)
	}
	if meta.Filename == "" {
		meta.Filename = path.Base(key)
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "encode artifact metadata", err)
	}
	if _, err := writeAtomic(dir, metaPath(pathOnDisk), ".meta-*", func(w io.Writer) (int64, error) {
		n, err := w.Write(payload)
		return int64(n), err
	}); err != nil {
		return export.ArtifactRef{}, err
	}

	return export.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact. The caller closes the reader.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, export.ArtifactMeta, error) {
	pathOnDisk, err := s.target(ctx, key)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, export.ArtifactMeta{}, export.NewError(export.KindExport, "open artifact", err)
	}

	meta := readMeta(pathOnDisk)
	if meta.ContentType == "" {
		meta.ContentType = contentType(pathOnDisk)
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(pathOnDisk)
	}
	if info, err := file.Stat(); err == nil {
		meta.Size = info.Size()
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = info.ModTime()
		}
	}
	return file, meta, nil
}

// Delete removes an artifact and its metadata. Missing artifacts are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	pathOnDisk, err := s.target(ctx, key)
	if err != nil {
		return err
	}
	if err := os.Remove(pathOnDisk); err != nil && !os.IsNotExist(err) {
		return export.NewError(export.KindExport, "delete artifact", err)
	}
	if err := os.Remove(metaPath(pathOnDisk)); err != nil && !os.IsNotExist(err) {
		return export.NewError(export.KindExport, "delete artifact metadata", err)
	}
	return nil
}

func (s *Store) target(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", export.NewError(export.KindInternal, "store is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Root == "" {
		return "", export.NewError(export.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return "", export.NewError(export.KindValidation, "artifact key is required", nil)
	}
	return s.resolvePath(key)
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", export.NewError(export.KindValidation, "invalid artifact key", nil)
	}
	if strings.HasSuffix(rel, metaSuffix) {
		return "", export.NewError(export.KindValidation, "artifact key uses a reserved suffix", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", export.NewError(export.KindInternal, "resolve store root", err)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", export.NewError(export.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// writeAtomic fills a temp file in dir and renames it onto dest.
func writeAtomic(dir, dest, pattern string, fill func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return 0, export.NewError(export.KindExport, "create temp file", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := fill(tmp)
	if err != nil {
		if ctxErr := contextError(err); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, export.NewError(export.KindExport, "write artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, export.NewError(export.KindExport, "sync artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, export.NewError(export.KindExport, "close artifact", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, export.NewError(export.KindExport, "commit artifact", err)
	}
	return size, nil
}

func contextError(err error) error {
	switch export.KindFromError(err) {
	case export.KindCanceled, export.KindTimeout:
		return err
	}
	return nil
}

// readerWithContext stops copying once ctx is done.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

const metaSuffix = ".meta.json"

func metaPath(pathOnDisk string) string {
	return pathOnDisk + metaSuffix
}

func readMeta(pathOnDisk string) export.ArtifactMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return export.ArtifactMeta{}
	}
	var meta export.ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return export.ArtifactMeta{}
	}
	return meta
}

func contentType(pathOnDisk string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(pathOnDisk))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
