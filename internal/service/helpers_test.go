package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/notification"
	"github.com/yugmi/sense-api/internal/storage"
	"github.com/yugmi/sense-api/internal/testutil"
	"github.com/yugmi/sense-api/internal/vision"
	"gorm.io/gorm"
)

func asUser(t *testing.T, db *gorm.DB, user *domain.User) context.Context {
	t.Helper()
	return auth.WithUserContext(context.Background(), testutil.UserContext(t, db, user))
}

type memoryStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	uploadErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memoryStorage) Upload(ctx context.Context, key string, contentType string, data io.Reader) (string, int64, error) {
	if s.uploadErr != nil {
		return "", 0, s.uploadErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	s.types[key] = contentType
	return "memory://" + key, int64(len(b)), nil
}

func (s *memoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *memoryStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://files.test/" + key + "?ttl=" + ttl.String(), nil
}

func (s *memoryStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	text     string
	err      error
	provider string
	requests []vision.Request
	// block, when set, holds Analyze until it is closed
	block chan struct{}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req vision.Request) (*vision.Result, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	block := a.block
	a.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return &vision.Result{Text: a.text, Provider: a.Provider(), Model: "test-model"}, nil
}

func (a *fakeAnalyzer) Provider() string {
	if a.provider == "" {
		return vision.ProviderGemini
	}
	return a.provider
}

func (a *fakeAnalyzer) lastRequest() vision.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

type fakeMailer struct {
	sent []notification.Email
	err  error
}

func (m *fakeMailer) SendEmail(ctx context.Context, email notification.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

type fakeMessenger struct {
	sent []notification.Message
	err  error
}

func (m *fakeMessenger) SendMessage(ctx context.Context, msg notification.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var errProviderDown = errors.New("provider unavailable")

const sampleSensorData = `{"latitude": 40.7128, "longitude": -74.006, "compass": 90}`

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
