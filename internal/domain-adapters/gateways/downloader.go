package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/piko/internal/domain/interfaces"
)

const defaultUserAgent = "piko/1.0"

// Downloader streams remote files to disk
type Downloader struct {
	httpClient *http.Client
	userAgent  string
	logger     interfaces.Logger
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithDownloadClient sets the HTTP client used for downloads
func WithDownloadClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// WithDownloadUserAgent overrides the User-Agent header
func WithDownloadUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// NewDownloader creates a new downloader
func NewDownloader(logger interfaces.Logger, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // Bundles are large
		},
		userAgent: defaultUserAgent,
		logger:    interfaces.OrNoOp(logger),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadFile writes the body of url to dest.
// The file appears at dest only once the transfer has completed.
func (d *Downloader) DownloadFile(ctx context.Context, url, dest string, headers map[string]string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	//nolint:errcheck // Removing an already renamed file is a no-op failure
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}

	d.logger.Debug("Downloaded file",
		interfaces.F("file", filepath.Base(dest)),
		interfaces.F("bytes", written))

	return written, nil
}
