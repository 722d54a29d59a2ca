package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/partsync/reader"
	"github.com/vegasq/partsync/relation"
)

var objectName = regexp.MustCompile(`/[0-9a-f-]{36}\.snappy\.parquet$`)

func salesRelation(t *testing.T) *relation.Relation {
	t.Helper()
	rel, err := relation.New(
		[]string{"id", "amount", "p_ano", "p_mes"},
		[][]interface{}{
			{1, 10.5, 2024, 3},
			{2, 7.0, 2024, 3},
			{3, 1.25, 2024, 4},
		},
	)
	require.NoError(t, err)
	return rel
}

func readObject(t *testing.T, b Backend, bucket, key string) *relation.Relation {
	t.Helper()
	payload, err := b.Get(context.Background(), bucket, key)
	require.NoError(t, err)
	r, err := reader.NewBytesReader(payload)
	require.NoError(t, err)
	rel, err := r.ReadAll()
	require.NoError(t, err)
	return rel
}

func listKeys(t *testing.T, b Backend, bucket, prefix string) []string {
	t.Helper()
	keys, err := b.List(context.Background(), bucket, prefix)
	require.NoError(t, err)
	return keys
}

func TestStore_PutPartitioned_Layout(t *testing.T) {
	ctx := context.Background()
	backend := NewMemBackend()
	store := NewStore(backend)

	dest := Path{Bucket: "lake", Key: "sales"}
	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_ano", "p_mes"}, ModeAppend))

	march := listKeys(t, backend, "lake", "sales/p_ano=2024/p_mes=3/")
	april := listKeys(t, backend, "lake", "sales/p_ano=2024/p_mes=4/")
	require.Len(t, march, 1)
	require.Len(t, april, 1)
	assert.Regexp(t, objectName, march[0])
	assert.Len(t, listKeys(t, backend, "lake", ""), 2)

	rel := readObject(t, backend, "lake", march[0])
	assert.ElementsMatch(t, []string{"id", "amount"}, rel.ColumnNames())
	assert.Equal(t, 2, rel.Len())

	ids, err := rel.ColumnValues("id")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, ids)
}

func TestStore_PutPartitioned_NoPartitionColumns(t *testing.T) {
	backend := NewMemBackend()
	store := NewStore(backend)

	dest := Path{Bucket: "lake", Key: "flat"}
	require.NoError(t, store.PutPartitioned(context.Background(), salesRelation(t), dest, nil, ModeAppend))

	keys := listKeys(t, backend, "lake", "flat/")
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "flat/"))
	assert.Equal(t, 4, readObject(t, backend, "lake", keys[0]).Width())
}

func TestStore_PutPartitioned_SkipsIndexColumns(t *testing.T) {
	backend := NewMemBackend()
	store := NewStore(backend)

	rel, err := relation.WithIndex(salesRelation(t), "id")
	require.NoError(t, err)

	require.NoError(t, store.PutPartitioned(context.Background(), rel, Path{Bucket: "lake"}, []string{"p_ano"}, ModeAppend))

	keys := listKeys(t, backend, "lake", "p_ano=2024/")
	require.Len(t, keys, 1)
	stored := readObject(t, backend, "lake", keys[0])
	assert.ElementsMatch(t, []string{"amount", "p_mes"}, stored.ColumnNames())
}

func TestStore_PutPartitioned_OverwriteReplacesOnlyWrittenPartitions(t *testing.T) {
	ctx := context.Background()
	backend := NewMemBackend()
	store := NewStore(backend)
	dest := Path{Bucket: "lake", Key: "sales"}
	parts := []string{"p_ano", "p_mes"}

	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, parts, ModeAppend))
	aprilBefore := listKeys(t, backend, "lake", "sales/p_ano=2024/p_mes=4/")

	march, err := relation.Filter(salesRelation(t), "p_mes", []interface{}{3})
	require.NoError(t, err)
	march, err = relation.Filter(march, "id", []interface{}{1})
	require.NoError(t, err)

	require.NoError(t, store.PutPartitioned(ctx, march, dest, parts, ModeOverwrite))

	marchKeys := listKeys(t, backend, "lake", "sales/p_ano=2024/p_mes=3/")
	require.Len(t, marchKeys, 1)
	assert.Equal(t, 1, readObject(t, backend, "lake", marchKeys[0]).Len())
	assert.Equal(t, aprilBefore, listKeys(t, backend, "lake", "sales/p_ano=2024/p_mes=4/"))
}

func TestStore_PutPartitioned_AppendKeepsExisting(t *testing.T) {
	ctx := context.Background()
	backend := NewMemBackend()
	store := NewStore(backend)
	dest := Path{Bucket: "lake", Key: "sales"}

	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_mes"}, ModeAppend))
	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_mes"}, ModeAppend))

	assert.Len(t, listKeys(t, backend, "lake", "sales/p_mes=3/"), 2)
	assert.Len(t, listKeys(t, backend, "lake", "sales/p_mes=4/"), 2)
}

func TestStore_PutPartitioned_AppendSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	backend := NewMemBackend()
	store := NewStore(backend)
	dest := Path{Bucket: "lake", Key: "sales"}

	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_ano", "p_mes"}, ModeAppend))

	changed, err := relation.Cast(salesRelation(t), "amount", relation.TypeString)
	require.NoError(t, err)

	err = WritePartitioned(ctx, store, changed, "s3://lake/sales", []string{"p_ano", "p_mes"}, ModeAppend)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	err = WritePartitioned(ctx, store, changed, "s3://lake/sales", []string{"p_ano", "p_mes"}, ModeOverwrite)
	require.NoError(t, err)
}

func TestStore_PutPartitioned_NullPartitionValue(t *testing.T) {
	backend := NewMemBackend()
	store := NewStore(backend)

	rel, err := relation.New([]string{"v", "region"}, [][]interface{}{{1, nil}, {2, "a/b"}})
	require.NoError(t, err)
	require.NoError(t, store.PutPartitioned(context.Background(), rel, Path{Bucket: "lake"}, []string{"region"}, ModeAppend))

	assert.Len(t, listKeys(t, backend, "lake", "region=__HIVE_DEFAULT_PARTITION__/"), 1)
	assert.Len(t, listKeys(t, backend, "lake", "region=a%2Fb/"), 1)
}

func TestStore_PutPartitioned_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemBackend())
	dest := Path{Bucket: "lake"}

	err := store.PutPartitioned(ctx, salesRelation(t), dest, []string{"missing"}, ModeAppend)
	assert.True(t, errors.Is(err, relation.ErrUnknownColumn))

	err = store.PutPartitioned(ctx, salesRelation(t), dest, []string{"id", "amount", "p_ano", "p_mes"}, ModeAppend)
	assert.Error(t, err, "no data columns left")

	err = store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_ano", "p_ano"}, ModeAppend)
	assert.Error(t, err)

	err = store.PutPartitioned(ctx, salesRelation(t), dest, nil, WriteMode(9))
	assert.Error(t, err)
}

func TestStore_PutPartitioned_EmptyRelationWritesNothing(t *testing.T) {
	backend := NewMemBackend()
	store := NewStore(backend)

	rel, err := relation.New([]string{"v", "p"}, nil)
	require.NoError(t, err)
	require.NoError(t, store.PutPartitioned(context.Background(), rel, Path{Bucket: "lake"}, []string{"p"}, ModeOverwrite))
	assert.Empty(t, listKeys(t, backend, "lake", ""))
}

func TestStore_PutPartitioned_UntypedColumnStoredAsString(t *testing.T) {
	backend := NewMemBackend()
	store := NewStore(backend)

	rel, err := relation.New([]string{"mixed"}, [][]interface{}{{"a"}, {int64(2)}, {true}})
	require.NoError(t, err)
	col, _ := rel.Column("mixed")
	require.Equal(t, relation.TypeAny, col.Type)

	require.NoError(t, store.PutPartitioned(context.Background(), rel, Path{Bucket: "lake"}, nil, ModeAppend))

	keys := listKeys(t, backend, "lake", "")
	require.Len(t, keys, 1)
	stored := readObject(t, backend, "lake", keys[0])
	values, err := stored.ColumnValues("mixed")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "2", "true"}, values)
}

func TestStore_ReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemBackend(), WithParallelism(2))

	rel, err := relation.New(
		[]string{"id", "at", "ok"},
		[][]interface{}{
			{1, time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), true},
			{2, time.Date(2024, 3, 8, 9, 30, 0, 0, time.UTC), nil},
		},
	)
	require.NoError(t, err)
	rel, err = rel.DerivePartitionKeys("at", relation.DefaultPartitionMapping())
	require.NoError(t, err)

	dest := Path{Bucket: "lake", Key: "events"}
	require.NoError(t, store.PutPartitioned(ctx, rel, dest, []string{"p_ano", "p_mes", "p_dia"}, ModeOverwrite))

	back, err := store.Read(ctx, dest)
	require.NoError(t, err)
	require.Equal(t, 2, back.Len())

	names := back.ColumnNames()
	assert.Equal(t, []string{"p_ano", "p_mes", "p_dia"}, names[len(names)-3:])

	sorted, err := relation.GroupBy(back, []string{"id", "p_ano", "p_mes", "p_dia"}, nil, relation.ReduceSum)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2024), int64(3), int64(7)}, sorted.Row(0))
	assert.Equal(t, []interface{}{int64(2), int64(2024), int64(3), int64(8)}, sorted.Row(1))

	at, err := back.ColumnValues("at")
	require.NoError(t, err)
	for _, v := range at {
		_, ok := v.(time.Time)
		assert.True(t, ok, "at cell is %T", v)
	}
}

func TestStore_ReadEmpty(t *testing.T) {
	rel, err := NewStore(NewMemBackend()).Read(context.Background(), Path{Bucket: "lake", Key: "none"})
	require.NoError(t, err)
	assert.Equal(t, 0, rel.Len())
}

func TestStore_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := NewStore(NewMemBackend(), WithMetrics(m))
	dest := Path{Bucket: "lake"}

	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_mes"}, ModeAppend))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsWritten))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ObjectsWritten))

	require.NoError(t, store.PutPartitioned(ctx, salesRelation(t), dest, []string{"p_mes"}, ModeOverwrite))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ObjectsDeleted.WithLabelValues("overwrite")))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.wrote(1, 1)
	m.deleted("query", 1)
	m.deleteFailed(1)
}

type failingBackend struct {
	Backend
	putErr    error
	removeErr map[string]error
}

func (f *failingBackend) Put(ctx context.Context, bucket, key string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Backend.Put(ctx, bucket, key, data)
}

func (f *failingBackend) Remove(ctx context.Context, bucket string, keys []string) (map[string]error, error) {
	failed, err := f.Backend.Remove(ctx, bucket, keys)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if e, ok := f.removeErr[k]; ok {
			failed[k] = e
		}
	}
	return failed, nil
}

func TestWritePartitioned_BackendFailure(t *testing.T) {
	boom := errors.New("disk full")
	store := NewStore(&failingBackend{Backend: NewMemBackend(), putErr: boom})

	err := WritePartitioned(context.Background(), store, salesRelation(t), "s3://lake/sales", []string{"p_mes"}, ModeAppend)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, boom))

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "s3://lake/sales", werr.Destination)
}

func TestWritePartitioned_InvalidArguments(t *testing.T) {
	store := NewStore(NewMemBackend())
	ctx := context.Background()

	err := WritePartitioned(ctx, store, nil, "s3://lake/x", nil, ModeAppend)
	assert.True(t, errors.Is(err, ErrStorageWrite))

	err = WritePartitioned(ctx, store, salesRelation(t), "lake/x", nil, ModeAppend)
	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, ErrInvalidPath))

	err = WritePartitioned(ctx, store, salesRelation(t), "s3://lake/x", []string{"nope"}, ModeAppend)
	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, relation.ErrUnknownColumn))
}

func TestStore_BulkDelete(t *testing.T) {
	ctx := context.Background()
	backend := NewMemBackend()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, backend.Put(ctx, "b1", k, []byte(k)))
	}

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := NewStore(&failingBackend{Backend: backend, removeErr: map[string]error{"b": errors.New("access denied")}}, WithMetrics(m))

	failed, err := store.BulkDelete(ctx, "b1", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, failed)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ObjectsDeleted.WithLabelValues("query")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeleteFailures))

	none, err := store.BulkDelete(ctx, "b1", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
