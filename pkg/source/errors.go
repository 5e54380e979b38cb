package source

import (
	"errors"
	"fmt"
)

// Sentinel errors for source operations.
var (
	// ErrNotFound indicates the requested instance does not exist.
	ErrNotFound = errors.New("instance not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSourceUnavailable indicates the backing service is unavailable.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrThrottled indicates the request was rate limited by the backend.
	ErrThrottled = errors.New("request throttled")
)

// SourceError wraps backend-specific errors with context.
type SourceError struct {
	// Op is the operation that failed (e.g., "List", "Head", "Get").
	Op string

	// Source is the source type (e.g., "s3", "file").
	Source SourceType

	// Bucket is the bucket name, if applicable.
	Bucket string

	// Key is the instance key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Source, e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Source, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an instance was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAccessDenied returns true if the error indicates insufficient permissions.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsBucketNotFound returns true if the error indicates the bucket does not exist.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidCredentials returns true if the error indicates authentication failed.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsSourceUnavailable returns true if the error indicates the backend is unavailable.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsThrottled returns true if the error indicates the request was rate limited.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
