// Package storage writes relations to an object store as Hive-partitioned
// parquet objects and deletes objects selected by a query.
//
// A Store sits on top of a Backend. MinioBackend talks to any S3-compatible
// service; FSBackend keeps buckets as directories on an afero filesystem,
// which serves local targets and tests alike.
//
// Objects are laid out as
//
//	<key>/<column>=<value>/.../<uuid>.snappy.parquet
//
// Partition columns live only in the object path. Index columns are never
// persisted.
//
// # Writing
//
//	store := storage.NewStore(backend, storage.WithParallelism(8))
//	err := storage.WritePartitioned(ctx, store, rel, "s3://lake/sales",
//	    []string{"p_ano", "p_mes"}, storage.ModeOverwrite)
//
// # Deleting by query
//
//	report, err := storage.DeleteMatching(ctx, gw, store,
//	    "SELECT path FROM stale_files", "analytics")
//
// DeleteMatching issues one bulk delete per bucket. Keys the store fails to
// delete come back in a *PartialDeletionError and are not retried.
package storage
