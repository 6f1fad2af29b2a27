package transfer_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/assetfetch/pkg/infra/transfer"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
)

func TestHTTP_Download(t *testing.T) {
	content := bytes.Repeat([]byte("w"), 4096)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/yolov8n.pt":
			if !strings.HasPrefix(r.Header.Get("User-Agent"), "assetfetch/") {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write(content)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	t.Run("writes body to destination", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "nested", "dir", "yolov8n.pt")

		err := transfer.NewHTTP().Download(context.Background(), server.URL+"/yolov8n.pt", dst, false)
		gt.NoError(t, err)

		data, err := os.ReadFile(dst)
		gt.NoError(t, err)
		gt.Value(t, data).Equal(content)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "missing.pt")

		err := transfer.NewHTTP().Download(context.Background(), server.URL+"/missing.pt", dst, false)
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("unexpected status code")

		_, err = os.Stat(dst)
		gt.True(t, os.IsNotExist(err))
	})

	t.Run("unreachable host is an error", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "x.pt")
		err := transfer.NewHTTP().Download(context.Background(), "http://127.0.0.1:1/x.pt", dst, false)
		gt.Error(t, err)
	})

	t.Run("custom user agent", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "yolov8n.pt")
		h := transfer.NewHTTP(transfer.WithUserAgent("curl/8.0"), transfer.WithClient(server.Client()))

		err := h.Download(context.Background(), server.URL+"/yolov8n.pt", dst, false)
		gt.Error(t, err)
	})
}

func TestHTTP_Download_Progress(t *testing.T) {
	content := bytes.Repeat([]byte("p"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write(content)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := ctxlog.With(context.Background(), logger)

	dst := filepath.Join(t.TempDir(), "file.bin")
	gt.NoError(t, transfer.NewHTTP().Download(ctx, server.URL+"/file.bin", dst, true))

	output := buf.String()
	gt.String(t, output).Contains("Download progress")
	gt.String(t, output).Contains("percent=100")
}
