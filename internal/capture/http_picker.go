package capture

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/pkg/validation"
)

const fetchAttempts = 3

// HTTPImageFetcher downloads image bytes over HTTP with a small retry budget
type HTTPImageFetcher struct {
	client    *http.Client
	validator *validation.URLValidator
	limit     int64
	backoff   func(attempt int) time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher. timeout bounds the whole
// request including retries' individual round trips; 0 keeps the 30s default.
func NewHTTPImageFetcher(timeout time.Duration, limit int64) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Connection pooling sized for one image at a time
	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		validator: validation.NewURLValidator(),
		limit:     limit,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// FetchImage downloads imageURL. 4xx responses fail immediately; transport
// errors and 5xx responses are retried with linear backoff.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (imagebuf.File, error) {
	if err := h.validator.ValidateImageURL(imageURL); err != nil {
		return imagebuf.File{}, err
	}

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		file, retry, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return file, nil
		}
		lastErr = err
		if !retry || attempt == fetchAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return imagebuf.File{}, apperrors.NewTimeoutError("image fetch cancelled", ctx.Err())
		case <-time.After(h.backoff(attempt)):
		}
	}

	if apperrors.TypeOf(lastErr) == apperrors.ErrorTypeImageTooLarge {
		return imagebuf.File{}, lastErr
	}
	return imagebuf.File{}, apperrors.NewNetworkError(
		fmt.Sprintf("failed to fetch image after %d attempts", fetchAttempts), lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (imagebuf.File, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return imagebuf.File{}, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "BookCapture/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return imagebuf.File{}, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return imagebuf.File{}, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return imagebuf.File{}, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return imagebuf.File{}, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body, h.limit)
	if err != nil {
		return imagebuf.File{}, false, err
	}
	return imagebuf.NewFile(path.Base(req.URL.Path), resp.Header.Get("Content-Type"), data), false, nil
}

// HTTPPicker picks a fixed URL through an HTTPImageFetcher.
type HTTPPicker struct {
	fetcher *HTTPImageFetcher
	url     string
}

func (p *HTTPPicker) Pick(ctx context.Context) (imagebuf.File, error) {
	if p.url == "" {
		return imagebuf.File{}, apperrors.NewCaptureCancelledError(ErrNoFile)
	}
	return p.fetcher.FetchImage(ctx, p.url)
}
