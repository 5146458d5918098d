package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
)

// Store is the CSV file holding all encounter records. Appends are
// serialized within this process only; other writers are not coordinated.
type Store struct {
	path string
	mu   sync.Mutex
	log  logger.Logger
}

// NewStore returns a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path, log: GetLogger()}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole store into a new collection.
func (s *Store) Load(ctx context.Context) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.fileError(err, "load_dataset")
	}
	defer func() { _ = f.Close() }()

	c, err := Parse(f)
	if err != nil {
		// A persisted store that no longer parses is a server-side fault.
		return nil, s.fileError(err, "load_dataset")
	}

	s.log.Debug("collection loaded",
		logger.String("path", s.path),
		logger.Int("records", c.Len()),
		logger.Int("columns", c.Schema().Len()),
		logger.Duration("elapsed", time.Since(start)))

	return c, nil
}

// Header reads only the header line of the store.
func (s *Store) Header() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, s.fileError(err, "read_header")
	}
	defer func() { _ = f.Close() }()

	c, err := ParseHead(f, 0)
	if err != nil {
		return nil, s.fileError(err, "read_header")
	}
	return c.Header(), nil
}

// Append writes rows to the end of the store without a header. A missing
// trailing newline is added first so the first row starts on its own line.
func (s *Store) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeRows(rows)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return s.fileError(err, "append_rows")
	}
	defer func() { _ = f.Close() }()

	needsNewline, err := lacksTrailingNewline(f)
	if err != nil {
		return s.fileError(err, "append_rows")
	}
	if needsNewline {
		data = append([]byte("\n"), data...)
	}

	if _, err := f.Write(data); err != nil {
		return s.fileError(err, "append_rows")
	}
	if err := f.Sync(); err != nil {
		return s.fileError(err, "append_rows")
	}

	s.log.Info("rows appended",
		logger.String("path", s.path),
		logger.Int("rows", len(rows)))

	return nil
}

func lacksTrailingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return last[0] != '\n', nil
}

func (s *Store) fileError(err error, operation string) error {
	var size int64
	if info, statErr := os.Stat(s.path); statErr == nil {
		size = info.Size()
	}
	return errors.New(fmt.Errorf("encounter store %s: %w", operation, err)).
		Component("dataset").
		Category(errors.CategoryFileIO).
		FileContext(s.path, size).
		Context("operation", operation).
		Build()
}
