package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage implements Storage on the local filesystem.
// Objects are served back through the API's /files route with a signed token.
type LocalStorage struct {
	basePath string
	baseURL  string
	signer   *URLSigner
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath, publicURL string, signer *URLSigner) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(publicURL, "/") + "/files/",
		signer:   signer,
	}, nil
}

func (s *LocalStorage) fullPath(key string) (string, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.basePath, filepath.FromSlash(cleaned)), nil
}

// Upload writes a file under key, creating parent directories
func (s *LocalStorage) Upload(ctx context.Context, key string, contentType string, data io.Reader) (string, int64, error) {
	cleaned, fullPath, err := s.fullPath(key)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return s.location(cleaned), size, nil
}

// Download opens a file from local storage
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	_, fullPath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes a file; missing files are not an error
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	_, fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (s *LocalStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	token, err := s.signer.Sign(cleaned, ttl)
	if err != nil {
		return "", err
	}
	return s.location(cleaned) + "?token=" + url.QueryEscape(token), nil
}

// VerifyToken reports whether token grants read access to key
func (s *LocalStorage) VerifyToken(key, token string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.signer.Verify(token, cleaned)
}

func (s *LocalStorage) location(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + strings.Join(segments, "/")
}
