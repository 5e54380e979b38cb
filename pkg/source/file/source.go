// Package file implements the source interface for local directories.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Rastion/openshop-problem/pkg/source"
)

// Source implements source.Source for a local directory of instance files.
//
// Keys are treated as slash-separated paths relative to BaseDir. The
// source is read-only: instance collections on disk are treated as
// immutable benchmark data.
type Source struct {
	baseDir string
}

var _ source.Source = (*Source)(nil)

// Config configures a file source.
type Config struct {
	// BaseDir is the directory holding the instance files (required).
	BaseDir string
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

// New creates a file source rooted at cfg.BaseDir.
func New(cfg Config) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

// Close releases no resources; it satisfies the interface.
func (s *Source) Close() error { return nil }

// List returns a page of instance files under the given prefix.
func (s *Source) List(ctx context.Context, opts source.ListOptions) (*source.ListResult, error) {
	_ = ctx
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	prefix := strings.TrimPrefix(opts.Prefix, "/")
	keys, err := s.collectKeys(prefix)
	if err != nil {
		return nil, s.wrapError("List", opts.Prefix, err)
	}
	sort.Strings(keys)

	start := 0
	if opts.ContinuationToken != "" {
		// Start strictly after the last returned key.
		idx := sort.SearchStrings(keys, opts.ContinuationToken)
		for idx < len(keys) && keys[idx] <= opts.ContinuationToken {
			idx++
		}
		start = idx
	}

	end := start + maxKeys
	if end > len(keys) {
		end = len(keys)
	}

	objects := make([]source.ObjectSummary, 0, end-start)
	for _, k := range keys[start:end] {
		full, err := s.fullPath(k)
		if err != nil {
			continue
		}
		st, err := os.Stat(full)
		if err != nil || st.IsDir() {
			continue
		}
		objects = append(objects, source.ObjectSummary{Key: k, Size: st.Size(), LastModified: st.ModTime()})
	}

	res := &source.ListResult{Objects: objects}
	if end < len(keys) {
		res.IsTruncated = true
		res.ContinuationToken = keys[end-1]
	}
	return res, nil
}

// Head returns metadata for a single instance file.
func (s *Source) Head(ctx context.Context, key string) (*source.ObjectMeta, error) {
	_ = ctx
	full, err := s.fullPath(key)
	if err != nil {
		return nil, s.wrapError("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &source.SourceError{Op: "Head", Source: source.SourceFile, Key: key, Err: source.ErrNotFound}
		}
		return nil, s.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, &source.SourceError{Op: "Head", Source: source.SourceFile, Key: key, Err: source.ErrNotFound}
	}

	return &source.ObjectMeta{
		ObjectSummary: source.ObjectSummary{Key: strings.TrimPrefix(key, "/"), Size: st.Size(), LastModified: st.ModTime()},
	}, nil
}

// Get opens an instance file for reading.
func (s *Source) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := s.fullPath(key)
	if err != nil {
		return nil, 0, s.wrapError("Get", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, &source.SourceError{Op: "Get", Source: source.SourceFile, Key: key, Err: source.ErrNotFound}
		}
		return nil, 0, s.wrapError("Get", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, s.wrapError("Get", key, err)
	}
	return f, st.Size(), nil
}

func (s *Source) fullPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path")
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

func (s *Source) collectKeys(prefix string) ([]string, error) {
	root, err := s.fullPath(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var keys []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return nil
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	return keys, nil
}

func (s *Source) wrapError(op, key string, err error) error {
	wrapped := &source.SourceError{Op: op, Source: source.SourceFile, Key: key, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to source sentinels.
	if os.IsNotExist(err) {
		wrapped.Err = source.ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = source.ErrAccessDenied
	}
	return wrapped
}
