// Package feed opens and fetches the line-delimited JSON dictionary dump.
package feed

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compression identifies how a feed stream is encoded.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// CompressionOf infers the encoding from a file name or URL.
func CompressionOf(name string) Compression {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch {
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return Zstd
	}
	return None
}

// Decompress wraps r according to c.
func Decompress(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		return gz, nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open zstd stream")
		}
		return dec.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}

// Open opens a feed file, transparently decompressing .gz and .zst files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open feed")
	}
	rc, err := Decompress(f, CompressionOf(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stackedCloser{ReadCloser: rc, under: f}, nil
}

type stackedCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedCloser) Close() error {
	err := s.ReadCloser.Close()
	if uerr := s.under.Close(); err == nil {
		err = uerr
	}
	return err
}

// LineReader yields newline-terminated lines numbered from 1. Lines have no
// length limit; wiktextract records for common words run to megabytes.
type LineReader struct {
	r    *bufio.Reader
	line int64
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// Next returns the next line without its terminator and the line's number.
// It returns io.EOF once input is exhausted; a final unterminated line is
// still returned.
func (lr *LineReader) Next() ([]byte, int64, error) {
	b, err := lr.r.ReadBytes('\n')
	if err == io.EOF {
		if len(b) == 0 {
			return nil, lr.line, io.EOF
		}
		err = nil
	}
	if err != nil {
		return nil, lr.line, errors.Wrapf(err, "read line %d", lr.line+1)
	}
	lr.line++
	b = bytes.TrimSuffix(b, []byte("\n"))
	b = bytes.TrimSuffix(b, []byte("\r"))
	return b, lr.line, nil
}
