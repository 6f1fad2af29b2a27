package transfer

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/m-mizutani/assetfetch/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// HTTP is the primary download transport
type HTTP struct {
	client    *http.Client
	userAgent string
}

// Option is a functional option for HTTP
type Option func(*HTTP)

// WithClient replaces the HTTP client
func WithClient(client *http.Client) Option {
	return func(h *HTTP) {
		h.client = client
	}
}

// WithUserAgent sets the User-Agent header of download requests
func WithUserAgent(userAgent string) Option {
	return func(h *HTTP) {
		h.userAgent = userAgent
	}
}

// NewHTTP creates a new HTTP transport
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client:    http.DefaultClient,
		userAgent: "assetfetch/" + types.Version,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Download streams url into dst
func (h *HTTP) Download(ctx context.Context, url, dst string, progress bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create download request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to download", goerr.V("url", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return goerr.New("unexpected status code",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directory", goerr.V("path", dst))
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", dst))
	}
	defer f.Close()

	var w io.Writer = f
	if progress && resp.ContentLength > 0 {
		w = io.MultiWriter(f, newProgressWriter(ctxlog.From(ctx), url, resp.ContentLength))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return goerr.Wrap(err, "failed to write response body", goerr.V("url", url), goerr.V("path", dst))
	}

	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close destination file", goerr.V("path", dst))
	}

	return nil
}
