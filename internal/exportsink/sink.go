// Package exportsink archives filtered encounter views as CSV files in a
// local directory or an S3 bucket.
package exportsink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
)

// DownloadName is the file name offered for CSV downloads.
const DownloadName = "filtered_manta_data.csv"

const contentTypeCSV = "text/csv"

// Location describes where an archive was written.
type Location struct {
	Sink  string `json:"sink"`
	URI   string `json:"uri"`
	Bytes int64  `json:"bytes"`
}

// Sink stores named objects.
type Sink interface {
	Kind() string
	Put(ctx context.Context, name string, body io.ReadSeeker, size int64) (Location, error)
}

// New returns the sink selected by settings.
func New(ctx context.Context, settings *conf.ExportSettings) (Sink, error) {
	switch settings.Sink {
	case "", "file":
		return NewFileSink(settings.Dir), nil
	case "s3":
		sink, err := NewS3Sink(ctx, S3Config{
			Bucket:       settings.S3.Bucket,
			Prefix:       settings.S3.Prefix,
			Region:       settings.S3.Region,
			Endpoint:     settings.S3.Endpoint,
			UsePathStyle: settings.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, errors.Newf("unknown export sink %q", settings.Sink).
			Component("export").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// ArchiveName returns the object name for an archive taken at now.
func ArchiveName(now time.Time) string {
	return fmt.Sprintf("filtered_manta_data_%s.csv", now.UTC().Format("20060102T150405Z"))
}

// Archive writes v as CSV to sink under ArchiveName(now).
func Archive(ctx context.Context, sink Sink, v *dataset.View, now time.Time) (Location, error) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, v); err != nil {
		return Location{}, errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Build()
	}

	name := ArchiveName(now)
	loc, err := sink.Put(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return Location{}, err
	}

	GetLogger().Info("view archived",
		logger.String("sink", sink.Kind()),
		logger.String("uri", loc.URI),
		logger.Int("records", v.Len()),
		logger.Int64("bytes", loc.Bytes))
	return loc, nil
}
