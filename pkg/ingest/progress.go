package ingest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadProgressFile returns the line number stored in a progress file, or 0 if
// the file does not exist. The progress file is informational; resume always
// derives its checkpoint from the sink.
func ReadProgressFile(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "read progress file")
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "progress file %s", path)
	}
	return n, nil
}

// WriteProgressFile replaces the progress file with line using a temp-file
// rename so readers never observe a partial value.
func WriteProgressFile(path string, line int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".progress-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp progress file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(strconv.FormatInt(line, 10)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write progress file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close progress file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename progress file")
	}
	return nil
}
