package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Options configures an S3 compatible backend (AWS S3, MinIO)
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Storage implements Storage on an S3 compatible object store
type S3Storage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewS3Storage(opts S3Options, logger *zap.Logger) (*S3Storage, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint required for s3 storage")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	logger.Info("S3 storage initialized",
		zap.String("endpoint", opts.Endpoint),
		zap.String("bucket", opts.Bucket),
	)

	return &S3Storage{client: client, bucket: opts.Bucket, logger: logger}, nil
}

func (s *S3Storage) Upload(ctx context.Context, key string, contentType string, data io.Reader) (string, int64, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", 0, err
	}

	info, err := s.client.PutObject(ctx, s.bucket, cleaned, data, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("File uploaded to S3",
		zap.String("key", cleaned),
		zap.String("bucket", s.bucket),
		zap.Int64("size", info.Size),
	)

	location := info.Location
	if location == "" {
		location = strings.TrimRight(s.client.EndpointURL().String(), "/") + "/" + s.bucket + "/" + cleaned
	}
	return location, info.Size, nil
}

func (s *S3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	return obj, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *S3Storage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presigned.String(), nil
}
