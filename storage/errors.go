package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrStorageWrite matches every *WriteError.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrPartialDeletion matches every *PartialDeletionError.
	ErrPartialDeletion = errors.New("partial deletion")

	// ErrInvalidPath is returned for URIs that are not s3://bucket[/key].
	ErrInvalidPath = errors.New("invalid storage path")

	// ErrObjectNotFound is returned by Backend.Get for a missing key.
	ErrObjectNotFound = errors.New("object not found")

	// ErrSchemaMismatch is returned when appending to a partition whose
	// existing objects have a different schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// WriteError reports a failed partitioned write.
type WriteError struct {
	// Destination is the s3:// URI that was being written.
	Destination string
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Destination, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorageWrite.
func (e *WriteError) Is(target error) bool {
	return target == ErrStorageWrite
}

// PartialDeletionError lists the keys a bulk delete could not remove,
// grouped by bucket.
type PartialDeletionError struct {
	Failed map[string][]string
}

func (e *PartialDeletionError) Error() string {
	buckets := make([]string, 0, len(e.Failed))
	for b := range e.Failed {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		parts = append(parts, fmt.Sprintf("%s: %s", b, strings.Join(e.Failed[b], ", ")))
	}
	return fmt.Sprintf("partial deletion: %d keys not deleted (%s)", e.Count(), strings.Join(parts, "; "))
}

// Is reports whether target is ErrPartialDeletion.
func (e *PartialDeletionError) Is(target error) bool {
	return target == ErrPartialDeletion
}

// Count returns the number of keys that failed across all buckets.
func (e *PartialDeletionError) Count() int {
	n := 0
	for _, keys := range e.Failed {
		n += len(keys)
	}
	return n
}
