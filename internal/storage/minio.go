package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOConfig describes an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// MinIO stores objects through minio-go, which speaks to AWS S3 and MinIO alike.
type MinIO struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinIO(cfg MinIOConfig, logger *zap.Logger) (*MinIO, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinIO{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *MinIO) Upload(ctx context.Context, r io.Reader, size int64, key, contentType string) (*url.URL, error) {
	s.logger.Info("storage: upload started", zap.String("bucket", s.bucket), zap.String("key", key))
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.logger.Error("storage: upload failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Info("storage: upload finished", zap.String("key", key), zap.Int64("size", info.Size))

	u := *s.client.EndpointURL()
	u.Path = "/" + s.bucket + "/" + key
	return &u, nil
}
