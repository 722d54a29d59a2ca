package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vegasq/partsync/reader"
	"github.com/vegasq/partsync/relation"
)

const (
	// objectSuffix ends the name of every object a Store writes.
	objectSuffix = ".snappy.parquet"

	// defaultPartition stands in for a null partition value in a path.
	defaultPartition = "__HIVE_DEFAULT_PARTITION__"

	defaultParallelism = 4
)

// Store writes and deletes partitioned parquet objects through a Backend.
// It implements ObjectStore.
type Store struct {
	backend     Backend
	parallelism int
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithParallelism bounds the number of partitions encoded and uploaded at
// once. Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records writes and deletes in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore returns a Store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		parallelism: defaultParallelism,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// partitionGroup is the set of rows sharing one combination of partition
// values.
type partitionGroup struct {
	dir  Path
	rows [][]interface{}
}

// PutPartitioned writes r under dest, one directory level per partition
// column. Index columns are dropped first. In ModeOverwrite the existing
// objects of every written partition are removed before any new object is
// stored; in ModeAppend a partition whose existing objects have another
// schema fails with ErrSchemaMismatch.
func (s *Store) PutPartitioned(ctx context.Context, r *relation.Relation, dest Path, partitionColumns []string, mode WriteMode) error {
	if mode != ModeAppend && mode != ModeOverwrite {
		return fmt.Errorf("unsupported write mode %v", mode)
	}

	data, err := relation.Drop(r, r.Index())
	if err != nil {
		return err
	}
	if err := checkPartitionColumns(data, partitionColumns); err != nil {
		return err
	}

	isPartition := make(map[string]bool, len(partitionColumns))
	for _, c := range partitionColumns {
		isPartition[c] = true
	}
	var bodyNames []string
	for _, c := range data.ColumnNames() {
		if !isPartition[c] {
			bodyNames = append(bodyNames, c)
		}
	}
	if len(bodyNames) == 0 {
		return fmt.Errorf("no columns left to store after removing partition columns %v", partitionColumns)
	}

	body, err := relation.Select(data, bodyNames)
	if err != nil {
		return err
	}
	enc, err := newEncoder(body.Columns())
	if err != nil {
		return err
	}

	groups, err := partitionRows(data, body, dest, partitionColumns)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		s.logger.Debug("nothing to write", "destination", dest.String())
		return nil
	}

	if mode == ModeOverwrite {
		if err := s.clear(ctx, groups); err != nil {
			return err
		}
	} else {
		if err := s.checkSchema(ctx, groups, body.Columns()); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, grp := range groups {
		grp := grp
		g.Go(func() error {
			payload, err := enc.encode(grp.rows)
			if err != nil {
				return fmt.Errorf("encode %s: %w", grp.dir, err)
			}
			obj := grp.dir.Join(uuid.NewString() + objectSuffix)
			if err := s.backend.Put(gctx, obj.Bucket, obj.Key, payload); err != nil {
				return err
			}
			s.logger.Debug("object written", "path", obj.String(), "rows", len(grp.rows), "bytes", len(payload))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.metrics.wrote(data.Len(), len(groups))
	s.logger.Info("partitioned write complete",
		"destination", dest.String(),
		"mode", mode.String(),
		"partitions", len(groups),
		"rows", data.Len())
	return nil
}

func checkPartitionColumns(r *relation.Relation, columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" || strings.ContainsAny(c, "/=") {
			return fmt.Errorf("invalid partition column name %q", c)
		}
		if seen[c] {
			return fmt.Errorf("partition column %q listed twice", c)
		}
		seen[c] = true
	}
	_, err := relation.Select(r, columns)
	return err
}

// partitionRows splits body's rows by the values of partitionColumns in
// data. Groups come back in order of first appearance.
func partitionRows(data, body *relation.Relation, dest Path, partitionColumns []string) ([]*partitionGroup, error) {
	values := make([][]interface{}, len(partitionColumns))
	for i, c := range partitionColumns {
		v, err := data.ColumnValues(c)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	var groups []*partitionGroup
	byDir := make(map[string]*partitionGroup)
	for i := 0; i < body.Len(); i++ {
		segments := make([]string, len(partitionColumns))
		for j, c := range partitionColumns {
			segments[j] = c + "=" + partitionValue(values[j][i])
		}
		dir := dest.Join(segments...)
		grp, ok := byDir[dir.Key]
		if !ok {
			grp = &partitionGroup{dir: dir}
			byDir[dir.Key] = grp
			groups = append(groups, grp)
		}
		grp.rows = append(grp.rows, body.Row(i))
	}
	return groups, nil
}

func partitionValue(v interface{}) string {
	if v == nil {
		return defaultPartition
	}
	return url.PathEscape(textOf(v))
}

// parsePartitionValue reverses partitionValue. Integers read back as int64.
func parsePartitionValue(s string) interface{} {
	if s == defaultPartition {
		return nil
	}
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// clear removes every object under the directories of groups.
func (s *Store) clear(ctx context.Context, groups []*partitionGroup) error {
	for _, grp := range groups {
		keys, err := s.backend.List(ctx, grp.dir.Bucket, grp.dir.prefix())
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			continue
		}
		failed, err := s.backend.Remove(ctx, grp.dir.Bucket, keys)
		if err != nil {
			return err
		}
		if len(failed) > 0 {
			first := sortedKeys(failed)[0]
			return fmt.Errorf("failed to remove %d objects under %s before overwrite, first %s: %w",
				len(failed), grp.dir, first, failed[first])
		}
		s.metrics.deleted("overwrite", len(keys))
		s.logger.Debug("partition cleared", "path", grp.dir.String(), "objects", len(keys))
	}
	return nil
}

// checkSchema compares want with one existing object of each partition.
func (s *Store) checkSchema(ctx context.Context, groups []*partitionGroup, want []relation.Column) error {
	for _, grp := range groups {
		keys, err := s.backend.List(ctx, grp.dir.Bucket, grp.dir.prefix())
		if err != nil {
			return err
		}
		key, ok := firstObject(keys)
		if !ok {
			continue
		}

		existing, err := s.objectColumns(ctx, grp.dir.Bucket, key)
		if err != nil {
			return err
		}
		if !sameSchema(existing, want) {
			return fmt.Errorf("%w: %s has %s, writing %s", ErrSchemaMismatch,
				grp.dir, describeColumns(existing), describeColumns(want))
		}
	}
	return nil
}

func firstObject(keys []string) (string, bool) {
	for _, k := range keys {
		if strings.HasSuffix(k, ".parquet") {
			return k, true
		}
	}
	return "", false
}

func (s *Store) objectColumns(ctx context.Context, bucket, key string) ([]relation.Column, error) {
	payload, err := s.backend.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	r, err := reader.NewBytesReader(payload)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = r.Close() }()
	return r.Columns(), nil
}

func sameSchema(existing, want []relation.Column) bool {
	if len(existing) != len(want) {
		return false
	}
	types := make(map[string]relation.Type, len(existing))
	for _, c := range existing {
		types[c.Name] = c.Type
	}
	for _, c := range want {
		t, ok := types[c.Name]
		if !ok || t != persistedType(c.Type) {
			return false
		}
	}
	return true
}

func describeColumns(columns []relation.Column) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c.Name + " " + persistedType(c.Type).String()
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, ", ") + ")"
}

// BulkDelete removes keys from bucket and returns the keys that were not
// removed, sorted.
func (s *Store) BulkDelete(ctx context.Context, bucket string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	failures, err := s.backend.Remove(ctx, bucket, keys)
	if err != nil {
		return nil, fmt.Errorf("bulk delete in %s: %w", bucket, err)
	}

	failed := sortedKeys(failures)
	for _, key := range failed {
		s.logger.Warn("object not deleted", "bucket", bucket, "key", key, "error", failures[key])
	}

	s.metrics.deleted("query", len(keys)-len(failed))
	s.metrics.deleteFailed(len(failed))
	return failed, nil
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Read loads every object under src into one relation. Partition columns
// are rebuilt from the object paths and follow the stored columns.
func (s *Store) Read(ctx context.Context, src Path) (*relation.Relation, error) {
	keys, err := s.backend.List(ctx, src.Bucket, src.prefix())
	if err != nil {
		return nil, err
	}

	var (
		records    []map[string]interface{}
		order      []string
		partitions []string
		seen       = make(map[string]bool)
	)
	addColumn := func(list *[]string, name string) {
		if !seen[name] {
			seen[name] = true
			*list = append(*list, name)
		}
	}

	for _, key := range keys {
		if !strings.HasSuffix(key, ".parquet") {
			continue
		}
		payload, err := s.backend.Get(ctx, src.Bucket, key)
		if err != nil {
			return nil, err
		}
		r, err := reader.NewBytesReader(payload)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", src.Bucket, key, err)
		}
		rel, err := r.ReadAll()
		_ = r.Close()
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", src.Bucket, key, err)
		}

		parts := partitionsOf(strings.TrimPrefix(key, src.prefix()))
		for _, name := range rel.ColumnNames() {
			addColumn(&order, name)
		}
		for _, p := range parts {
			addColumn(&partitions, p.name)
		}
		for _, rec := range rel.Records() {
			for _, p := range parts {
				rec[p.name] = p.value
			}
			records = append(records, rec)
		}
	}

	return relation.FromRecords(records, append(order, partitions...)...)
}

type partitionPart struct {
	name  string
	value interface{}
}

// partitionsOf parses the column=value directories of a key relative to
// the dataset root.
func partitionsOf(rel string) []partitionPart {
	dir := path.Dir(rel)
	if dir == "." {
		return nil
	}
	var parts []partitionPart
	for _, seg := range strings.Split(dir, "/") {
		name, value, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		parts = append(parts, partitionPart{name: name, value: parsePartitionValue(value)})
	}
	return parts
}
