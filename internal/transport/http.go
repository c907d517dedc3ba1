// Package transport holds network implementations of the remote capabilities the core consumes.
package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/pkg/errors"
)

// maxBodyBytes caps a single response body.
const maxBodyBytes = 64 << 20

var ErrBodyTooLarge = errors.New("response body exceeds limit")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.Code) + " from " + e.URL
}

// NewClient builds the HTTP client shared by the adapters.
func NewClient(cfg *config.Transport) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// HTTPFetcher fetches raw bytes with plain GET requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

func NewHTTPFetcher(cfg *config.Transport, client *http.Client, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: cfg.UserAgent, logger: logger}
}

// Fetch GETs url. Failures are logged at debug level and returned to the caller.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := get(ctx, f.client, f.userAgent, url)
	if err != nil {
		f.logger.Debug("http fetch failed", "url", url, "err", err)
		return nil, err
	}
	return data, nil
}

func get(ctx context.Context, client *http.Client, userAgent, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read body of %s", url)
	}
	if len(data) > maxBodyBytes {
		return nil, errors.Wrapf(ErrBodyTooLarge, "GET %s", url)
	}
	return data, nil
}
