package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/yugmi/sense-api/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when the requested object does not exist
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that escape the storage root
	ErrInvalidKey = errors.New("invalid object key")
)

// Storage defines the interface for object storage operations.
// Keys are slash separated and relative to the storage root.
type Storage interface {
	// Upload stores data under key and returns its location and size
	Upload(ctx context.Context, key string, contentType string, data io.Reader) (string, int64, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// SignedURL returns a temporary read URL for key
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewStorage creates a storage backend based on configuration.
// publicURL is the externally reachable base URL of the API, used by local storage links.
func NewStorage(cfg *config.StorageConfig, publicURL string, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, publicURL, NewURLSigner(cfg.SigningSecret))
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	case "s3":
		return NewS3Storage(S3Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// cleanKey normalizes a key and rejects absolute or parent-relative paths
func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return cleaned, nil
}

// countingReader wraps an io.Reader and counts the number of bytes read
type countingReader struct {
	r     io.Reader
	count int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}
