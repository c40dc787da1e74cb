// Package objectstore persists binary evidence addressed by a slash-separated
// path. Storage is a gocloud.dev bucket, so the backend is chosen by URL:
// file:// for a local directory, mem:// for tests and development.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by Get for unknown paths.
var ErrNotFound = errors.New("object not found")

// Object is a stored blob with its declared media type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store accepts (path, bytes, content-type) and returns an addressable reference.
type Store interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) (*Object, error)
}

// Bucket implements Store over a gocloud.dev bucket. References are the
// cleaned object keys.
type Bucket struct {
	bucket *blob.Bucket
}

func New(b *blob.Bucket) *Bucket {
	return &Bucket{bucket: b}
}

// Open opens a bucket by URL, e.g. "file:///var/lib/ponto/evidence?create_dir=true&no_tmp_dir=true".
func Open(ctx context.Context, url string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open evidence bucket: %w", err)
	}
	return New(b), nil
}

// NewFilesystem stores objects under root, creating it when missing.
// Writes go through a temp file in the same directory, then a rename, so
// readers never see a partial object.
func NewFilesystem(root string) (*Bucket, error) {
	b, err := fileblob.OpenBucket(root, &fileblob.Options{CreateDir: true, NoTempDir: true})
	if err != nil {
		return nil, fmt.Errorf("open evidence dir: %w", err)
	}
	return New(b), nil
}

func NewMemory() *Bucket {
	return New(memblob.OpenBucket(nil))
}

// cleanPath rejects absolute and parent-escaping paths.
func cleanPath(objectPath string) (string, error) {
	p := path.Clean(strings.TrimSpace(objectPath))
	if p == "." || strings.HasPrefix(p, "/") || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return p, nil
}

func (b *Bucket) Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	if err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return key, nil
}

func (b *Bucket) Get(ctx context.Context, ref string) (*Object, error) {
	key, err := cleanPath(ref)
	if err != nil {
		return nil, err
	}
	attrs, err := b.bucket.Attributes(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat object: %w", err)
	}
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return &Object{Data: data, ContentType: attrs.ContentType}, nil
}

// Len counts stored objects. It lists the whole bucket and stops at the first
// error, io.EOF included; it is meant for tests and development stores.
func (b *Bucket) Len() int {
	ctx := context.Background()
	iter := b.bucket.List(nil)
	n := 0
	for {
		if _, err := iter.Next(ctx); err != nil {
			return n
		}
		n++
	}
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}

var _ Store = (*Bucket)(nil)
