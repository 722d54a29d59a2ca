package storage

import "context"

// Backend is the minimal object API a Store needs. Keys are slash-separated
// and relative to the bucket.
type Backend interface {
	// Put stores data under key, replacing any existing object.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Get returns the object stored under key, or an error wrapping
	// ErrObjectNotFound.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// List returns the keys that start with prefix, sorted.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Remove deletes keys. Missing keys are not failures. The returned map
	// holds the keys that could not be removed and why; err reports a
	// failure of the request as a whole.
	Remove(ctx context.Context, bucket string, keys []string) (failed map[string]error, err error)
}
