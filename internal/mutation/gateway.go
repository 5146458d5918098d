// Package mutation appends manually entered and uploaded encounters to the
// store. Appends never touch collections already loaded by sessions; a
// session must be reloaded to observe new rows.
package mutation

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
)

// DefaultPreviewRows is used when Preview is asked for zero rows.
const DefaultPreviewRows = 5

// Result summarizes an append.
type Result struct {
	Rows           int      `json:"rows"`
	IgnoredColumns []string `json:"ignored_columns"`
	MissingColumns []string `json:"missing_columns"`
}

// Preview is the head of an upload before it is committed.
type Preview struct {
	Header         []string   `json:"header"`
	Rows           [][]string `json:"rows"`
	MissingColumns []string   `json:"missing_columns"`
}

// Gateway is the only writer of the encounter store.
type Gateway struct {
	store     *dataset.Store
	required  []string
	auditor   Auditor
	publisher Publisher
	recorder  Recorder
	now       func() time.Time
	log       logger.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRequiredColumns sets the columns an upload is checked against when
// the store header cannot be read.
func WithRequiredColumns(columns []string) Option {
	return func(g *Gateway) { g.required = slices.Clone(columns) }
}

// WithAuditor records every successful append.
func WithAuditor(a Auditor) Option {
	return func(g *Gateway) { g.auditor = a }
}

// WithPublisher publishes every successful append.
func WithPublisher(p Publisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

// WithRecorder reports append metrics.
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// NewGateway returns a gateway writing to store.
func NewGateway(store *dataset.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store: store,
		now:   time.Now,
		log:   GetLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AppendRecord appends one row built from fields. Values are written
// verbatim in store column order; unknown keys are ignored and missing
// columns are written empty.
func (g *Gateway) AppendRecord(ctx context.Context, fields map[string]string) (Result, error) {
	header, err := g.store.Header()
	if err != nil {
		return Result{}, g.fail(SourceManual, err)
	}

	row := make([]string, len(header))
	known := make(map[string]struct{}, len(header))
	var missing []string
	for i, column := range header {
		known[column] = struct{}{}
		value, ok := fields[column]
		if !ok {
			missing = append(missing, column)
		}
		row[i] = value
	}

	var ignored []string
	for key := range fields {
		if _, ok := known[key]; !ok {
			ignored = append(ignored, key)
		}
	}
	slices.Sort(ignored)

	if err := g.store.Append(ctx, [][]string{row}); err != nil {
		return Result{}, g.fail(SourceManual, err)
	}

	res := Result{Rows: 1, IgnoredColumns: nonNil(ignored), MissingColumns: nonNil(missing)}
	g.committed(ctx, SourceManual, res)
	return res, nil
}

// AppendCollection appends every record of upload, aligned to the store
// header by column name.
func (g *Gateway) AppendCollection(ctx context.Context, upload *dataset.Collection) (Result, error) {
	header, err := g.store.Header()
	if err != nil {
		return Result{}, g.fail(SourceUpload, err)
	}

	uploadSchema := upload.Schema()
	used := make(map[int]struct{}, uploadSchema.Len())
	var missing []string
	for _, column := range header {
		i, ok := uploadSchema.Index(column)
		if !ok {
			missing = append(missing, column)
			continue
		}
		used[i] = struct{}{}
	}

	var ignored []string
	for i, column := range uploadSchema.Columns() {
		if _, ok := used[i]; !ok {
			ignored = append(ignored, column)
		}
	}

	res := Result{
		Rows:           upload.Len(),
		IgnoredColumns: nonNil(ignored),
		MissingColumns: nonNil(missing),
	}
	if upload.Len() == 0 {
		return res, nil
	}

	rows := make([][]string, 0, upload.Len())
	for rec := range upload.View().All() {
		row := make([]string, len(header))
		for i, column := range header {
			row[i] = rec.Raw(column)
		}
		rows = append(rows, row)
	}

	if err := g.store.Append(ctx, rows); err != nil {
		return Result{}, g.fail(SourceUpload, err)
	}

	g.committed(ctx, SourceUpload, res)
	return res, nil
}

// Preview reads the header and first n rows of an upload and lists the
// store columns it lacks. Ragged rows never fail a preview.
func (g *Gateway) Preview(r io.Reader, n int) (*Preview, error) {
	if n <= 0 {
		n = DefaultPreviewRows
	}

	head, err := dataset.ParseHead(r, n)
	if err != nil {
		return nil, errors.New(err).
			Component("mutation").
			Category(errors.CategoryValidation).
			Context("operation", "preview_upload").
			Build()
	}

	expected := g.required
	if header, err := g.store.Header(); err == nil {
		expected = header
	} else {
		g.log.Warn("store header unavailable, checking upload against required columns",
			logger.Error(err))
	}

	var missing []string
	for _, column := range expected {
		if !head.Schema().Has(column) {
			missing = append(missing, column)
		}
	}

	return &Preview{
		Header:         head.Header(),
		Rows:           head.View().Rows(),
		MissingColumns: nonNil(missing),
	}, nil
}

func (g *Gateway) fail(source Source, err error) error {
	if g.recorder != nil {
		g.recorder.RecordAppend(string(source), 0, err)
	}
	g.log.Error("append failed",
		logger.String("source", string(source)),
		logger.Error(err))
	return err
}

// committed fans a successful append out to the optional collaborators.
// Their failures are logged and never undo or fail the append.
func (g *Gateway) committed(ctx context.Context, source Source, res Result) {
	ev := Event{
		Source:    source,
		Rows:      res.Rows,
		SessionID: SessionID(ctx),
		StorePath: g.store.Path(),
		CreatedAt: g.now().UTC(),
	}

	if g.recorder != nil {
		g.recorder.RecordAppend(string(source), res.Rows, nil)
	}

	log := g.log.WithContext(ctx)
	log.Info("append committed",
		logger.String("source", string(source)),
		logger.Int("rows", res.Rows),
		logger.String("session_id", ev.SessionID),
		logger.Int("ignored_columns", len(res.IgnoredColumns)))

	if g.auditor != nil {
		if err := g.auditor.RecordAppend(ctx, ev); err != nil {
			log.Warn("audit record failed", logger.Error(err))
		}
	}
	if g.publisher != nil {
		if err := g.publisher.PublishAppend(ctx, ev); err != nil {
			log.Warn("append event publish failed", logger.Error(err))
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
