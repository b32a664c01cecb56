package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
)

// Mirror keeps a copy of stored files outside the local disk.
type Mirror interface {
	Put(ctx context.Context, objectName, path, contentType string) error
	Remove(ctx context.Context, objectName string) error
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinIOMirror copies files into a MinIO bucket.
type MinIOMirror struct {
	client objectStore
	bucket string
}

// NewMinIOMirror constructs a mirror; *minio.Client satisfies the client parameter.
func NewMinIOMirror(client objectStore, bucket string) *MinIOMirror {
	return &MinIOMirror{client: client, bucket: bucket}
}

func (m *MinIOMirror) Put(ctx context.Context, objectName, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, objectName, f, info.Size(), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("store object: %w", err)
	}
	return nil
}

func (m *MinIOMirror) Remove(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
