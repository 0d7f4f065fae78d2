package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"soundshelf/internal/config"
	"soundshelf/internal/metadata"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// Mirror copies stored media to secondary storage. Implementations must be
// safe for concurrent use.
type Mirror interface {
	Put(ctx context.Context, kind metadata.MediaKind, name, localPath string) error
}

// MinioMirror mirrors media into an S3-compatible bucket under audio/ and
// images/ prefixes
type MinioMirror struct {
	client *minio.Client
	bucket string
	logger *logrus.Logger
}

// NewMinioMirror connects to the configured endpoint and makes sure the
// bucket exists
func NewMinioMirror(ctx context.Context, cfg config.MirrorConfig, logger *logrus.Logger) (*MinioMirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.WithField("bucket", cfg.Bucket).Info("Created mirror bucket")
	}

	logger.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"bucket":   cfg.Bucket,
	}).Info("Media mirror connected")

	return &MinioMirror{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// ObjectName returns the bucket key for a stored file
func ObjectName(kind metadata.MediaKind, name string) string {
	prefix := "audio"
	if kind == metadata.KindImage {
		prefix = "images"
	}
	return path.Join(prefix, name)
}

// Put uploads the local file to the bucket
func (m *MinioMirror) Put(ctx context.Context, kind metadata.MediaKind, name, localPath string) error {
	info, err := m.client.FPutObject(ctx, m.bucket, ObjectName(kind, name), localPath, minio.PutObjectOptions{
		ContentType: metadata.ContentType(name),
	})
	if err != nil {
		return fmt.Errorf("failed to mirror %s: %w", name, err)
	}
	m.logger.WithFields(logrus.Fields{
		"object": info.Key,
		"size":   info.Size,
	}).Debug("Mirrored media file")
	return nil
}
