package storage

import (
	"fmt"
	"path"
	"strings"
)

const scheme = "s3://"

// Path addresses an object or a key prefix inside a bucket.
type Path struct {
	Bucket string
	Key    string
}

// ParsePath splits an s3://bucket/key URI. The key is taken verbatim, so
// it names exactly the object the URI names; an empty key addresses the
// whole bucket.
func ParsePath(uri string) (Path, error) {
	if !strings.HasPrefix(uri, scheme) {
		return Path{}, fmt.Errorf("%w: %q must start with %s", ErrInvalidPath, uri, scheme)
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if bucket == "" {
		return Path{}, fmt.Errorf("%w: %q has no bucket", ErrInvalidPath, uri)
	}
	return Path{Bucket: bucket, Key: key}, nil
}

// ParsePrefix parses a destination or source prefix. Unlike ParsePath it
// normalizes the key: surrounding slashes are dropped and dot segments are
// resolved. A key that climbs out of the bucket is rejected.
func ParsePrefix(uri string) (Path, error) {
	p, err := ParsePath(uri)
	if err != nil {
		return Path{}, err
	}

	key := strings.Trim(p.Key, "/")
	if key != "" {
		key = path.Clean(key)
		if key == ".." || strings.HasPrefix(key, "../") {
			return Path{}, fmt.Errorf("%w: %q escapes its bucket", ErrInvalidPath, uri)
		}
		if key == "." {
			key = ""
		}
	}
	p.Key = key
	return p, nil
}

// String returns the s3:// URI of p.
func (p Path) String() string {
	if p.Key == "" {
		return scheme + p.Bucket
	}
	return scheme + p.Bucket + "/" + p.Key
}

// Join returns p with elem appended to the key.
func (p Path) Join(elem ...string) Path {
	parts := make([]string, 0, len(elem)+1)
	if p.Key != "" {
		parts = append(parts, p.Key)
	}
	parts = append(parts, elem...)
	return Path{Bucket: p.Bucket, Key: path.Join(parts...)}
}

// prefix is the key prefix that matches objects strictly below p.
func (p Path) prefix() string {
	if p.Key == "" {
		return ""
	}
	return p.Key + "/"
}
