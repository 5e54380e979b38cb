package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rastion/openshop-problem/pkg/source"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	s, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())
}

func TestSource_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bench/tai1.txt", "a")
	writeFile(t, dir, "bench/tai2.txt", "bb")
	writeFile(t, dir, "other/tai3.txt", "ccc")

	s, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("lists all keys sorted", func(t *testing.T) {
		res, err := s.List(ctx, source.ListOptions{})
		require.NoError(t, err)
		require.Len(t, res.Objects, 3)
		assert.Equal(t, "bench/tai1.txt", res.Objects[0].Key)
		assert.Equal(t, "bench/tai2.txt", res.Objects[1].Key)
		assert.Equal(t, "other/tai3.txt", res.Objects[2].Key)
		assert.Equal(t, int64(2), res.Objects[1].Size)
		assert.False(t, res.IsTruncated)
	})

	t.Run("prefix scopes listing", func(t *testing.T) {
		res, err := s.List(ctx, source.ListOptions{Prefix: "bench/"})
		require.NoError(t, err)
		require.Len(t, res.Objects, 2)
	})

	t.Run("missing prefix lists nothing", func(t *testing.T) {
		res, err := s.List(ctx, source.ListOptions{Prefix: "nope/"})
		require.NoError(t, err)
		assert.Empty(t, res.Objects)
	})

	t.Run("pagination via continuation token", func(t *testing.T) {
		res, err := s.List(ctx, source.ListOptions{MaxKeys: 2})
		require.NoError(t, err)
		require.Len(t, res.Objects, 2)
		require.True(t, res.IsTruncated)
		require.NotEmpty(t, res.ContinuationToken)

		res2, err := s.List(ctx, source.ListOptions{MaxKeys: 2, ContinuationToken: res.ContinuationToken})
		require.NoError(t, err)
		require.Len(t, res2.Objects, 1)
		assert.Equal(t, "other/tai3.txt", res2.Objects[0].Key)
		assert.False(t, res2.IsTruncated)
	})
}

func TestSource_Head(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bench/tai1.txt", "hello")

	s, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("existing file", func(t *testing.T) {
		meta, err := s.Head(ctx, "bench/tai1.txt")
		require.NoError(t, err)
		assert.Equal(t, "bench/tai1.txt", meta.Key)
		assert.Equal(t, int64(5), meta.Size)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := s.Head(ctx, "bench/missing.txt")
		require.Error(t, err)
		assert.True(t, source.IsNotFound(err))

		var srcErr *source.SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, "Head", srcErr.Op)
		assert.Equal(t, source.SourceFile, srcErr.Source)
	})

	t.Run("directory is not an instance", func(t *testing.T) {
		_, err := s.Head(ctx, "bench")
		require.Error(t, err)
		assert.True(t, source.IsNotFound(err))
	})
}

func TestSource_Get(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bench/tai1.txt", "payload")

	s, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("reads content", func(t *testing.T) {
		body, size, err := s.Get(ctx, "bench/tai1.txt")
		require.NoError(t, err)
		defer body.Close()

		assert.Equal(t, int64(7), size)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := s.Get(ctx, "missing.txt")
		require.Error(t, err)
		assert.True(t, source.IsNotFound(err))
	})
}

func TestSource_PathTraversal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inside.txt", "in")

	s, err := New(Config{BaseDir: filepath.Join(dir, "sub")})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Head(ctx, "../inside.txt")
	require.Error(t, err)

	_, _, err = s.Get(ctx, "../../etc/passwd")
	require.Error(t, err)
}
