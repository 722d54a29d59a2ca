package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vegasq/partsync/gateway"
	"github.com/vegasq/partsync/relation"
)

// ObjectStore is the store WritePartitioned and DeleteMatching drive.
// *Store implements it.
type ObjectStore interface {
	PutPartitioned(ctx context.Context, r *relation.Relation, dest Path, partitionColumns []string, mode WriteMode) error

	// BulkDelete removes keys from bucket and returns the keys that were
	// not removed.
	BulkDelete(ctx context.Context, bucket string, keys []string) (failed []string, err error)
}

// WritePartitioned stores r at destination, an s3:// URI, partitioned by
// partitionColumns. Every failure, including invalid arguments, is returned
// as a *WriteError.
func WritePartitioned(ctx context.Context, store ObjectStore, r *relation.Relation, destination string, partitionColumns []string, mode WriteMode) error {
	fail := func(err error) error {
		var werr *WriteError
		if errors.As(err, &werr) {
			return err
		}
		return &WriteError{Destination: destination, Err: err}
	}

	if r == nil {
		return fail(errors.New("nil relation"))
	}
	dest, err := ParsePrefix(destination)
	if err != nil {
		return fail(err)
	}
	if err := store.PutPartitioned(ctx, r, dest, partitionColumns, mode); err != nil {
		return fail(err)
	}
	return nil
}

// DeleteBatch is one bulk delete request.
type DeleteBatch struct {
	Bucket string
	Keys   []string
	Failed []string
}

// DeleteReport describes the batches DeleteMatching issued, in order.
type DeleteReport struct {
	Batches []DeleteBatch
}

// Deleted returns the number of keys removed across all batches.
func (r *DeleteReport) Deleted() int {
	n := 0
	for _, b := range r.Batches {
		n += len(b.Keys) - len(b.Failed)
	}
	return n
}

type deleteOptions struct {
	pathColumn string
	params     map[string]interface{}
	logger     *slog.Logger
}

// DeleteOption configures DeleteMatching.
type DeleteOption func(*deleteOptions)

// WithPathColumn reads object paths from column instead of the first
// column of the result.
func WithPathColumn(column string) DeleteOption {
	return func(o *deleteOptions) { o.pathColumn = column }
}

// WithParams passes placeholder values to the query.
func WithParams(params map[string]interface{}) DeleteOption {
	return func(o *deleteOptions) { o.params = params }
}

// WithDeleteLogger sets the logger. The default is slog.Default().
func WithDeleteLogger(l *slog.Logger) DeleteOption {
	return func(o *deleteOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// DeleteMatching runs query through gw, reads an s3:// path from every
// result row and deletes those objects from store. Keys are grouped by
// bucket and each bucket gets exactly one BulkDelete call; buckets are
// processed in lexicographic order with sorted, de-duplicated keys.
//
// Null paths are skipped. An unparsable path fails the call before anything
// is deleted. Keys the store reports as not deleted are collected into a
// *PartialDeletionError after every batch has been attempted. Gateway
// errors are returned unchanged.
func DeleteMatching(ctx context.Context, gw gateway.Gateway, store ObjectStore, query, database string, opts ...DeleteOption) (*DeleteReport, error) {
	o := deleteOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	rel, err := gw.Execute(ctx, query, database, o.params)
	if err != nil {
		return nil, err
	}

	batches, err := batchesOf(rel, o.pathColumn)
	if err != nil {
		return nil, err
	}

	report := &DeleteReport{}
	failed := make(map[string][]string)
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		keys, err := store.BulkDelete(ctx, b.Bucket, b.Keys)
		if err != nil {
			return report, fmt.Errorf("delete batch for bucket %s: %w", b.Bucket, err)
		}
		b.Failed = keys
		report.Batches = append(report.Batches, b)
		if len(keys) > 0 {
			failed[b.Bucket] = keys
		}
		o.logger.Info("deletion batch complete",
			"bucket", b.Bucket,
			"keys", len(b.Keys),
			"failed", len(keys))
	}

	if len(failed) > 0 {
		return report, &PartialDeletionError{Failed: failed}
	}
	return report, nil
}

// batchesOf groups the paths in column of rel by bucket.
func batchesOf(rel *relation.Relation, column string) ([]DeleteBatch, error) {
	if column == "" {
		names := rel.ColumnNames()
		if len(names) == 0 {
			if rel.Len() == 0 {
				return nil, nil
			}
			return nil, errors.New("query result has no columns")
		}
		column = names[0]
	}

	values, err := rel.ColumnValues(column)
	if err != nil {
		return nil, err
	}

	byBucket := make(map[string]map[string]bool)
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("row %d: path column %q holds %T, want string", i, column, v)
		}
		p, err := ParsePath(s)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if p.Key == "" {
			return nil, fmt.Errorf("row %d: %w: %q names a bucket, not an object", i, ErrInvalidPath, s)
		}
		if byBucket[p.Bucket] == nil {
			byBucket[p.Bucket] = make(map[string]bool)
		}
		byBucket[p.Bucket][p.Key] = true
	}

	buckets := make([]string, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	batches := make([]DeleteBatch, 0, len(buckets))
	for _, b := range buckets {
		keys := make([]string, 0, len(byBucket[b]))
		for k := range byBucket[b] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		batches = append(batches, DeleteBatch{Bucket: b, Keys: keys})
	}
	return batches, nil
}
