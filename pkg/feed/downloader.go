package feed

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultURL is the full English wiktextract dump published by kaikki.org.
const DefaultURL = "https://kaikki.org/dictionary/English/kaikki.org-dictionary-English.jsonl"

// Downloader fetches the feed when it is not present locally.
type Downloader struct {
	Client *http.Client
	Logger *zap.Logger
}

// NewDownloader returns a Downloader using http.DefaultClient. The dump is
// several gigabytes, so no overall request timeout is applied; cancel ctx
// to abort.
func NewDownloader(logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{Client: http.DefaultClient, Logger: logger}
}

// EnsureFeed checks if the feed exists at path.
// If not, it downloads url to path. A compressed download is decompressed
// unless path carries the same compression suffix.
func (d *Downloader) EnsureFeed(ctx context.Context, path, url string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat feed")
	}

	d.Logger.Info("feed not found, downloading", zap.String("path", path), zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", "kaikki-loader")

	resp, err := d.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download failed: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if c := CompressionOf(url); c != None && c != CompressionOf(path) {
		rc, err := Decompress(resp.Body, c)
		if err != nil {
			return err
		}
		defer rc.Close()
		body = rc
	}

	n, err := writeAtomic(path, body)
	if err != nil {
		return err
	}
	d.Logger.Info("feed downloaded", zap.String("path", path), zap.Int64("bytes", n))
	return nil
}

// writeAtomic streams r into path via a temp file in the same directory so an
// interrupted download never leaves a truncated feed behind.
func writeAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".feed-*.tmp")
	if err != nil {
		return 0, errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, errors.Wrap(err, "write feed")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, errors.Wrap(err, "sync feed")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, errors.Wrap(err, "close feed")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, errors.Wrap(err, "rename feed")
	}
	return n, nil
}
