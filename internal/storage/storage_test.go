package storage_test

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/storage"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
	var _ storage.Storage = (*storage.S3Storage)(nil)
}

func newLocal(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	ls, err := storage.NewLocalStorage(filepath.Join(dir, "uploads"), "http://api.test/", storage.NewURLSigner("signing-secret"))
	require.NoError(t, err)
	return ls, filepath.Join(dir, "uploads")
}

func TestLocalStorage_UploadDownloadDelete(t *testing.T) {
	ls, base := newLocal(t)
	ctx := context.Background()
	key := "ns/individuals/u1/2024/01/1700000000000_photo.jpg"

	location, size, err := ls.Upload(ctx, key, "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
	assert.Equal(t, "http://api.test/files/"+key, location)

	_, err = os.Stat(filepath.Join(base, filepath.FromSlash(key)))
	require.NoError(t, err)

	rc, err := ls.Download(ctx, key)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(content))

	require.NoError(t, ls.Delete(ctx, key))
	require.NoError(t, ls.Delete(ctx, key), "deleting twice is not an error")

	_, err = ls.Download(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ls, _ := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "../secret", "a/../../b", "a\\b"} {
		_, _, err := ls.Upload(ctx, key, "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
}

func TestLocalStorage_SignedURL(t *testing.T) {
	ls, _ := newLocal(t)
	ctx := context.Background()
	key := "ns/individuals/u1/2024/01/photo.jpg"

	signed, err := ls.SignedURL(ctx, key, time.Hour)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/files/"+key, parsed.Path)

	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	assert.NoError(t, ls.VerifyToken(key, token))
	assert.ErrorIs(t, ls.VerifyToken("ns/individuals/u1/2024/01/other.jpg", token), storage.ErrInvalidSignature)
}

func TestURLSigner_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	signer := storage.NewURLSigner("secret").WithClock(func() time.Time { return now })

	token, err := signer.Sign("a/b.jpg", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, signer.Verify(token, "a/b.jpg"))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, signer.Verify(token, "a/b.jpg"), storage.ErrInvalidSignature)

	other := storage.NewURLSigner("another-secret")
	fresh, err := other.Sign("a/b.jpg", time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, signer.WithClock(time.Now).Verify(fresh, "a/b.jpg"), storage.ErrInvalidSignature)
}

func TestKeyBuilder_CaptureKey(t *testing.T) {
	builder := storage.NewKeyBuilder("yugmi-sense/")
	at := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	org, project, site, user := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	t.Run("organization layout", func(t *testing.T) {
		key := builder.CaptureKey(storage.CaptureOwner{
			OrganizationID: &org, ProjectID: project, SiteID: site, UserID: user,
		}, "IMG 001.jpg", at)

		expected := "yugmi-sense/organizations/" + org.String() +
			"/projects/" + project.String() +
			"/sites/" + site.String() +
			"/2024/03/1709805600000_IMG_001.jpg"
		assert.Equal(t, expected, key)
	})

	t.Run("individual layout", func(t *testing.T) {
		key := builder.CaptureKey(storage.CaptureOwner{ProjectID: project, SiteID: site, UserID: user}, "clip.mp4", at)
		assert.Equal(t, "yugmi-sense/individuals/"+user.String()+"/2024/03/1709805600000_clip.mp4", key)
	})
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "a/b/123_photo_thumb.jpg", storage.ThumbnailKey("a/b/123_photo.png"))
	assert.Equal(t, "a/b/noext_thumb.jpg", storage.ThumbnailKey("a/b/noext"))
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":           "photo.jpg",
		"my photo (1).jpg":    "my_photo_1_.jpg",
		"../../etc/passwd":    "passwd",
		"C:\\Users\\x\\a.png": "a.png",
		"":                    "upload",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, storage.SanitizeFileName(in), in)
	}
}
