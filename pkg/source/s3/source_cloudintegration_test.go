//go:build cloudintegration

package s3_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rastion/openshop-problem/pkg/source"
	"github.com/Rastion/openshop-problem/pkg/source/s3"
	"github.com/Rastion/openshop-problem/test/cloudtest"
)

func newTestSource(t *testing.T, ctx context.Context, bucket string) *s3.Source {
	t.Helper()
	src, err := s3.New(ctx, s3.Config{
		Bucket:          bucket,
		Endpoint:        cloudtest.Endpoint,
		Region:          cloudtest.Region,
		AccessKeyID:     cloudtest.TestAccessKeyID,
		SecretAccessKey: cloudtest.TestSecretAccessKey,
		ForcePathStyle:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestSource_New_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	t.Run("creates source with static credentials", func(t *testing.T) {
		bucket := cloudtest.CreateBucket(t, ctx)
		src := newTestSource(t, ctx, bucket)

		result, err := src.List(ctx, source.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, result.Objects)
	})

	t.Run("returns error for non-existent bucket", func(t *testing.T) {
		src := newTestSource(t, ctx, "nonexistent-bucket-12345")

		_, err := src.List(ctx, source.ListOptions{})
		require.Error(t, err)

		var srcErr *source.SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.ErrorIs(t, srcErr.Err, source.ErrBucketNotFound)
	})
}

func TestSource_ListHeadGet_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	cloudtest.PutInstances(t, ctx, bucket, []string{
		"bench/tai2x2_1.txt",
		"bench/tai2x2_2.txt",
		"other/readme.md",
	})
	src := newTestSource(t, ctx, bucket)

	t.Run("list with prefix", func(t *testing.T) {
		result, err := src.List(ctx, source.ListOptions{Prefix: "bench/"})
		require.NoError(t, err)
		require.Len(t, result.Objects, 2)
		assert.Equal(t, "bench/tai2x2_1.txt", result.Objects[0].Key)
		assert.NotEmpty(t, result.Objects[0].ETag)
	})

	t.Run("head existing key", func(t *testing.T) {
		meta, err := src.Head(ctx, "bench/tai2x2_1.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(len(cloudtest.MinimalInstance)), meta.Size)
	})

	t.Run("head missing key", func(t *testing.T) {
		_, err := src.Head(ctx, "bench/missing.txt")
		require.Error(t, err)
		assert.True(t, source.IsNotFound(err))
	})

	t.Run("get streams content", func(t *testing.T) {
		body, size, err := src.Get(ctx, "bench/tai2x2_1.txt")
		require.NoError(t, err)
		defer body.Close()

		assert.Equal(t, int64(len(cloudtest.MinimalInstance)), size)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, cloudtest.MinimalInstance, string(data))
	})
}
