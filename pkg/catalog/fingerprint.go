package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Rastion/openshop-problem/pkg/source"
)

// Entry is one instance contributing to a catalog fingerprint.
type Entry struct {
	Key  string `json:"key"`
	ETag string `json:"etag,omitempty"`
	Size int64  `json:"size"`
}

// Fingerprint computes a canonical identity hash for a set of instances.
//
// Entries are sorted by key before hashing, so the fingerprint depends
// only on the catalog content, not on listing order. Two scans of the
// same unchanged collection produce the same fingerprint; any added,
// removed, or modified instance changes it.
func Fingerprint(entries []Entry) (string, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	b, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint payload: %w", err)
	}

	sha := sha256.Sum256(b)
	return hex.EncodeToString(sha[:]), nil
}

// FingerprintSummaries computes the fingerprint of listed instances.
func FingerprintSummaries(objects []source.ObjectSummary) (string, error) {
	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, Entry{Key: obj.Key, ETag: obj.ETag, Size: obj.Size})
	}
	return Fingerprint(entries)
}
