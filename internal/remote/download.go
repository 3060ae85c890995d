package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// PartSuffix marks an in-progress download next to its destination.
const PartSuffix = ".part"

// DefaultUserAgent is sent when no user agent is configured. Some model
// hosts reject requests without a browser-like agent.
const DefaultUserAgent = "Mozilla/5.0 (compatible; comfydepot)"

// HTTPOptions configures HTTPDownloader.
type HTTPOptions struct {
	UserAgent          string
	HeaderTimeout      time.Duration
	InsecureSkipVerify bool

	// OnBytes is called with every chunk size written, for metrics
	OnBytes func(n int)
}

// HTTPDownloader streams files over HTTP into a ".part" sibling and renames
// it into place once complete.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	onBytes   func(n int)
}

// NewHTTPDownloader creates an HTTPDownloader.
func NewHTTPDownloader(opts HTTPOptions) *HTTPDownloader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.HeaderTimeout
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &HTTPDownloader{
		client:    &http.Client{Transport: transport},
		userAgent: ua,
		onBytes:   opts.OnBytes,
	}
}

// Download fetches url into dest. On any failure, including cancellation,
// the partial file is removed and dest is left untouched.
func (d *HTTPDownloader) Download(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download destination: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	partPath := dest + PartSuffix
	part, err := os.OpenFile(partPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = part.Close()
			_ = os.Remove(partPath)
		}
	}()

	w := &progressWriter{w: part, total: resp.ContentLength, onProgress: onProgress, onBytes: d.onBytes}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if resp.ContentLength > 0 && w.written != resp.ContentLength {
		return fmt.Errorf("download %s: got %d of %d bytes", url, w.written, resp.ContentLength)
	}
	if err := part.Sync(); err != nil {
		return fmt.Errorf("sync partial file: %w", err)
	}
	if err := part.Close(); err != nil {
		return fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(partPath, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}

	committed = true
	return nil
}

type progressWriter struct {
	w          io.Writer
	written    int64
	total      int64
	onProgress ProgressFunc
	onBytes    func(n int)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.onBytes != nil && n > 0 {
		p.onBytes(n)
	}
	if p.onProgress != nil {
		p.onProgress(p.written, p.total)
	}
	return n, err
}
