package feed

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureFeed_LocalCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("local\n"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("existing feed must not be downloaded again")
	}))
	defer srv.Close()

	require.NoError(t, NewDownloader(nil).EnsureFeed(context.Background(), path, srv.URL+"/feed.jsonl"))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "local\n", string(got))
}

func TestEnsureFeed_Downloads(t *testing.T) {
	body := "{\"word\":\"run\"}\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "kaikki-loader", r.Header.Get("User-Agent"))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, NewDownloader(nil).EnsureFeed(context.Background(), path, srv.URL+"/feed.jsonl"))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestEnsureFeed_DecompressesGzip(t *testing.T) {
	body := "{\"word\":\"run\"}\n{\"word\":\"walk\"}\n"
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	dir := t.TempDir()
	plain := filepath.Join(dir, "feed.jsonl")
	require.NoError(t, NewDownloader(nil).EnsureFeed(context.Background(), plain, srv.URL+"/feed.jsonl.gz"))
	got, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	// Same suffix on both ends keeps the archive as-is.
	packed := filepath.Join(dir, "feed.jsonl.gz")
	require.NoError(t, NewDownloader(nil).EnsureFeed(context.Background(), packed, srv.URL+"/feed.jsonl.gz"))
	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), raw)
}

func TestEnsureFeed_HTTPErrorLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "feed.jsonl")
	err := NewDownloader(nil).EnsureFeed(context.Background(), path, srv.URL+"/missing")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}
