package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/abduss/transmute/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultObjectStoreTimeout = 5 * time.Second
	defaultMinIOPort          = "9000"
)

// OpenMirrorBucket connects to the object store that mirrors uploads and
// converted outputs, creating the configured bucket in cfg.Region if missing.
func OpenMirrorBucket(ctx context.Context, cfg config.MinIOConfig) (*minio.Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("mirror bucket name is empty")
	}

	client, err := minio.New(mirrorEndpoint(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultObjectStoreTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check mirror bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create mirror bucket %q: %w", cfg.Bucket, err)
		}
	}
	return client, nil
}

// mirrorEndpoint turns MINIO_ENDPOINT into the host:port form minio-go expects.
// A pasted URL loses its scheme and a bare host gets the MinIO API port.
func mirrorEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")

	if _, _, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint
	}
	return net.JoinHostPort(strings.Trim(endpoint, "[]"), defaultMinIOPort)
}
