package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDownloader_Success(t *testing.T) {
	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var bytesSeen int
	dl := NewHTTPDownloader(HTTPOptions{OnBytes: func(n int) { bytesSeen += n }})
	dest := filepath.Join(t.TempDir(), "loras", "style.safetensors")

	var lastWritten, lastTotal int64
	err := dl.Download(context.Background(), srv.URL+"/style.safetensors", dest, func(written, total int64) {
		lastWritten, lastTotal = written, total
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), lastWritten)
	assert.Equal(t, int64(len(payload)), lastTotal)
	assert.Equal(t, len(payload), bytesSeen)
	assert.Equal(t, DefaultUserAgent, gotUA)

	_, err = os.Stat(dest + PartSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPDownloader_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "vae.safetensors")
	err := NewHTTPDownloader(HTTPOptions{UserAgent: "test"}).Download(context.Background(), srv.URL, dest, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	for _, p := range []string{dest, dest + PartSuffix} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should not exist", p)
	}
}

func TestHTTPDownloader_TimeoutRemovesPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		_, _ = w.Write(make([]byte, 1024))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "big.gguf")
	client := NewClient(nil, NewHTTPDownloader(HTTPOptions{}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := client.Download(ctx, srv.URL, dest, nil)
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, ErrRemoteFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial artifacts should remain")
}

func TestHTTPDownloader_ReplacesStalePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "m.pt")
	require.NoError(t, os.WriteFile(dest+PartSuffix, []byte("stale-and-longer"), 0o644))

	require.NoError(t, NewHTTPDownloader(HTTPOptions{}).Download(context.Background(), srv.URL, dest, nil))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}
