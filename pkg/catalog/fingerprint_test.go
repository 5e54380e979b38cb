package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rastion/openshop-problem/pkg/source"
)

func TestFingerprint(t *testing.T) {
	entries := []Entry{
		{Key: "bench/tai1.txt", ETag: "abc", Size: 100},
		{Key: "bench/tai2.txt", ETag: "def", Size: 200},
	}

	fp, err := Fingerprint(entries)
	require.NoError(t, err)
	assert.Len(t, fp, 64, "sha256 hex digest")

	t.Run("order independent", func(t *testing.T) {
		reversed := []Entry{entries[1], entries[0]}
		fp2, err := Fingerprint(reversed)
		require.NoError(t, err)
		assert.Equal(t, fp, fp2)
	})

	t.Run("content sensitive", func(t *testing.T) {
		changed := []Entry{entries[0], {Key: "bench/tai2.txt", ETag: "zzz", Size: 200}}
		fp2, err := Fingerprint(changed)
		require.NoError(t, err)
		assert.NotEqual(t, fp, fp2)
	})

	t.Run("addition sensitive", func(t *testing.T) {
		extended := append([]Entry{}, entries...)
		extended = append(extended, Entry{Key: "bench/tai3.txt", Size: 50})
		fp2, err := Fingerprint(extended)
		require.NoError(t, err)
		assert.NotEqual(t, fp, fp2)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		unsorted := []Entry{entries[1], entries[0]}
		_, err := Fingerprint(unsorted)
		require.NoError(t, err)
		assert.Equal(t, "bench/tai2.txt", unsorted[0].Key)
	})
}

func TestFingerprint_Empty(t *testing.T) {
	fp, err := Fingerprint(nil)
	require.NoError(t, err)
	assert.Len(t, fp, 64)

	fp2, err := Fingerprint([]Entry{})
	require.NoError(t, err)
	assert.Equal(t, fp, fp2)
}

func TestFingerprintSummaries(t *testing.T) {
	objects := []source.ObjectSummary{
		{Key: "bench/tai2.txt", ETag: "def", Size: 200},
		{Key: "bench/tai1.txt", ETag: "abc", Size: 100},
	}

	fp, err := FingerprintSummaries(objects)
	require.NoError(t, err)

	want, err := Fingerprint([]Entry{
		{Key: "bench/tai1.txt", ETag: "abc", Size: 100},
		{Key: "bench/tai2.txt", ETag: "def", Size: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, want, fp)
}
