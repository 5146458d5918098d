package exportsink

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ecovision/mantaview/internal/errors"
)

// FileSink writes archives into a local directory.
type FileSink struct {
	dir string
}

// NewFileSink returns a sink writing into dir, created on first use.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Kind implements Sink.
func (s *FileSink) Kind() string { return "file" }

// Put writes body to dir/name through a temporary file, so readers never
// see a partial archive.
func (s *FileSink) Put(ctx context.Context, name string, body io.ReadSeeker, size int64) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Location{}, s.fileError(err, s.dir)
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return Location{}, s.fileError(err, path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return Location{}, s.fileError(err, path)
	}
	if err := tmp.Close(); err != nil {
		return Location{}, s.fileError(err, path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Location{}, s.fileError(err, path)
	}

	return Location{Sink: s.Kind(), URI: path, Bytes: n}, nil
}

func (s *FileSink) fileError(err error, path string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryFileIO).
		FileContext(path, 0).
		Build()
}
