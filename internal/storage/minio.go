package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds the configuration for the MinIO mirror.
type MinIOConfig struct {
	Endpoint  string // host:port, without scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	Prefix    string
	// URLExpiry is how long returned presigned URLs stay valid.
	URLExpiry time.Duration
}

// MinIOMirror uploads finished clips to a MinIO bucket and hands back
// presigned download URLs.
type MinIOMirror struct {
	client *minio.Client
	bucket string
	region string
	expiry time.Duration
	keys   Keyer

	mu          sync.Mutex
	bucketReady bool
}

// NewMinIOMirror creates a new MinIOMirror.
func NewMinIOMirror(root string, cfg MinIOConfig) (*MinIOMirror, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 72 * time.Hour
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOMirror{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		expiry: cfg.URLExpiry,
		keys:   NewKeyer(root, cfg.Prefix),
	}, nil
}

// Mirror uploads the file at localPath and returns a presigned GET URL.
func (m *MinIOMirror) Mirror(ctx context.Context, localPath string) (string, error) {
	if err := m.ensureBucket(ctx); err != nil {
		return "", err
	}

	key := m.keys.Key(localPath)
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio: %w", err)
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// ensureBucket creates the bucket on first use. A failed check is retried
// on the next upload.
func (m *MinIOMirror) ensureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bucketReady {
		return nil
	}

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	m.bucketReady = true
	return nil
}
