package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ecovision/mantaview/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoHeader is returned when a CSV source has no header line.
var ErrNoHeader = errors.NewStd("csv has no header row")

func newReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1 // ragged rows are padded on read
	cr.LazyQuotes = true
	return cr
}

// Parse reads a header line followed by data rows. Rows shorter than the
// header read as null in the missing columns; extra cells are ignored.
func Parse(r io.Reader) (*Collection, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New(ErrNoHeader).
			Component("dataset").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err != nil {
		return nil, parseError(err)
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}
		rows = append(rows, row)
	}

	return NewCollection(header, rows), nil
}

// ParseHead reads the header and at most n rows. It never fails on a ragged
// or truncated body; rows after a malformed line are simply not returned.
func ParseHead(r io.Reader, n int) (*Collection, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New(ErrNoHeader).
			Component("dataset").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err != nil {
		return nil, parseError(err)
	}

	rows := make([][]string, 0, n)
	for len(rows) < n {
		row, err := cr.Read()
		if err != nil {
			break
		}
		rows = append(rows, row)
	}

	return NewCollection(header, rows), nil
}

func parseError(err error) error {
	return errors.New(fmt.Errorf("parse csv: %w", err)).
		Component("dataset").
		Category(errors.CategoryFileParsing).
		Build()
}

// WriteCSV writes the view's header and raw rows. Output parses back into
// an equal collection.
func WriteCSV(w io.Writer, v *View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(v.Schema().Columns()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for rec := range v.All() {
		if err := cw.Write(rec.Fields()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// encodeRows renders rows without a header.
func encodeRows(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
