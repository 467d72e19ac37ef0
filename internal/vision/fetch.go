package vision

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads remote media for providers that need inline bytes
type Fetcher struct {
	client *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: resty.New().SetTimeout(timeout)}
}

// Fetch returns the body and media type of url
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch media: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("failed to fetch media: status %d", resp.StatusCode())
	}

	body := resp.Body()
	mimeType := http.DetectContentType(body)
	if header := resp.Header().Get("Content-Type"); header != "" {
		if parsed, _, err := mime.ParseMediaType(header); err == nil && parsed != "application/octet-stream" {
			mimeType = parsed
		}
	}
	return body, mimeType, nil
}
