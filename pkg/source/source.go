// Package source defines abstractions for benchmark instance storage.
//
// Sources are read-only: they list, describe, and fetch instance files.
// Authentication uses SDK default credential chains - sources should not
// implement custom auth logic.
package source

import (
	"context"
	"io"
	"time"
)

// Source abstracts read access to a collection of instance files.
//
// Implementations should:
//   - Use SDK default credential chains where credentials apply
//   - Support pagination via continuation tokens
//   - Be safe for concurrent use
type Source interface {
	// List returns a page of instances with the given prefix.
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns metadata for a single instance.
	// Returns ErrNotFound if the instance does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Get opens an instance file for reading.
	// Returns ErrNotFound if the instance does not exist.
	Get(ctx context.Context, key string) (body io.ReadCloser, size int64, err error)

	// Close releases any resources held by the source.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	// Empty string lists all instances.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of instances returned per page.
	// Zero uses the source default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of instances from a List operation.
type ListResult struct {
	// Objects contains the instance summaries for this page.
	Objects []ObjectSummary

	// ContinuationToken is used to retrieve the next page.
	// Empty string indicates no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	// Key is the full instance key (path) in the source.
	Key string

	// Size is the file size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the file.
	ETag string

	// LastModified is when the file was last modified.
	LastModified time.Time
}

// ObjectMeta contains full metadata for a single instance.
// Returned by Head operations.
type ObjectMeta struct {
	ObjectSummary

	// ContentType is the MIME type of the file.
	ContentType string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// SourceType identifies an instance source backend.
type SourceType string

const (
	// SourceFile represents a local filesystem directory.
	SourceFile SourceType = "file"

	// SourceS3 represents AWS S3 or S3-compatible storage.
	SourceS3 SourceType = "s3"
)

// String returns the string representation of the source type.
func (s SourceType) String() string {
	return string(s)
}
