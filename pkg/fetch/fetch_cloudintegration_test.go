//go:build cloudintegration

package fetch_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rastion/openshop-problem/pkg/fetch"
	"github.com/Rastion/openshop-problem/pkg/match"
	"github.com/Rastion/openshop-problem/pkg/output"
	"github.com/Rastion/openshop-problem/pkg/source/s3"
	"github.com/Rastion/openshop-problem/test/cloudtest"
)

func TestFetcher_Run_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	cloudtest.PutInstances(t, ctx, bucket, []string{
		"taillard/tai2x2_1.txt",
		"taillard/tai2x2_2.txt",
		"notes/readme.md",
	})

	src, err := s3.New(ctx, s3.Config{
		Bucket:          bucket,
		Endpoint:        cloudtest.Endpoint,
		Region:          cloudtest.Region,
		AccessKeyID:     cloudtest.TestAccessKeyID,
		SecretAccessKey: cloudtest.TestSecretAccessKey,
		ForcePathStyle:  true,
	})
	require.NoError(t, err)
	defer src.Close()

	m, err := match.New(match.Config{Includes: []string{"taillard/**/*.txt"}})
	require.NoError(t, err)

	destDir := t.TempDir()
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "run-cloud-fetch", "s3")

	f, err := fetch.New(src, m, w, fetch.Config{DestDir: destDir, Verify: true})
	require.NoError(t, err)

	sum, err := f.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Fetched)
	assert.Zero(t, sum.Errors)

	got, err := os.ReadFile(filepath.Join(destDir, "taillard", "tai2x2_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, cloudtest.MinimalInstance, string(got))
}
