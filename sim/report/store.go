package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Common errors for store operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrPutFailed      = errors.New("put failed")
	ErrGetFailed      = errors.New("get failed")
)

// ObjectStore is where result files end up: the local filesystem or S3.
type ObjectStore interface {
	// Put writes body under key, replacing any previous object.
	Put(ctx context.Context, key string, body []byte) error
	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
}

// LocalStore implements ObjectStore on the local filesystem. Keys are paths
// relative to basePath; an empty basePath resolves keys as given.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a local store rooted at basePath.
func NewLocalStore(basePath string) *LocalStore {
	return &LocalStore{basePath: basePath}
}

// Put writes body atomically: a temp file in the target directory is renamed
// over key, so a failed write never leaves a truncated result behind.
func (l *LocalStore) Put(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := l.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pisim-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrPutFailed, err)
	}
	return nil
}

// Get reads key from disk.
func (l *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.fullPath(key))
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGetFailed, err)
	}
	return data, nil
}

func (l *LocalStore) fullPath(key string) string {
	if l.basePath == "" {
		return filepath.Clean(key)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// Destination is a parsed --output value.
type Destination struct {
	Bucket string // empty for local paths
	Key    string
}

// IsS3 reports whether the destination is an S3 object.
func (d Destination) IsS3() bool {
	return d.Bucket != ""
}

func (d Destination) String() string {
	if d.IsS3() {
		return "s3://" + d.Bucket + "/" + d.Key
	}
	return d.Key
}

// ParseDestination accepts a local path or s3://bucket/key.
func ParseDestination(dest string) (Destination, error) {
	if dest == "" {
		return Destination{}, errors.New("empty output destination")
	}
	rest, ok := strings.CutPrefix(dest, "s3://")
	if !ok {
		return Destination{Key: dest}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Destination{}, fmt.Errorf("s3 destination %q must be s3://bucket/key", dest)
	}
	return Destination{Bucket: bucket, Key: key}, nil
}

// OpenStore returns the store a destination lives in.
func OpenStore(ctx context.Context, d Destination, cfg S3Config) (ObjectStore, error) {
	if !d.IsS3() {
		return NewLocalStore(""), nil
	}
	return NewS3Store(ctx, d.Bucket, cfg)
}
