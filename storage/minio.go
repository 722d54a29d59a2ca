package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds S3 connection settings.
type MinioConfig struct {
	Endpoint        string // e.g. "s3.amazonaws.com" or "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// MinioBackend stores objects in an S3-compatible service.
type MinioBackend struct {
	mc *minio.Client
}

// NewMinioBackend creates a client for cfg. It does not contact the service.
func NewMinioBackend(cfg MinioConfig) (*MinioBackend, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioBackend{mc: mc}, nil
}

// Put uploads data as a single object.
func (b *MinioBackend) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := b.mc.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get downloads an object.
func (b *MinioBackend) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := b.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, b.wrap("get", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.wrap("get", bucket, key, err)
	}
	return data, nil
}

func (b *MinioBackend) wrap(op, bucket, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
	}
	return fmt.Errorf("%s %s/%s: %w", op, bucket, key, err)
}

// List returns every key under prefix, recursively.
func (b *MinioBackend) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	ch := b.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	var keys []string
	for obj := range ch {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Remove issues a multi-object delete. minio-go splits it into requests of
// at most 1000 keys.
func (b *MinioBackend) Remove(ctx context.Context, bucket string, keys []string) (map[string]error, error) {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	failed := make(map[string]error)
	for rerr := range b.mc.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		failed[rerr.ObjectName] = rerr.Err
	}
	if err := ctx.Err(); err != nil {
		return failed, err
	}
	return failed, nil
}
