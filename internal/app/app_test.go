package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/exportsink"
	"github.com/ecovision/mantaview/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	path := testutil.WriteStore(t, "Date,Year,Sex\n2021-05-01,2021,F\n")

	return &conf.Settings{
		Main:    conf.MainSettings{Name: "mantaview"},
		Dataset: conf.DatasetSettings{Path: path, RequiredColumns: conf.DefaultRequiredColumns},
		Session: conf.SessionSettings{TTL: time.Minute, CleanupInterval: time.Minute, CookieName: "mv"},
		Tides: conf.TideSettings{
			Enabled:  true,
			Endpoint: "https://tides.example.invalid/datagetter",
			Location: "America/New_York",
			Timeout:  time.Second,
			Stations: []conf.TideStation{{Name: "Pompano Beach", ID: "8722670"}},
		},
		Audit:   conf.AuditSettings{Enabled: true, Path: filepath.Join(dir, "audit.db")},
		Export:  conf.ExportSettings{Sink: "file", Dir: filepath.Join(dir, "exports")},
		Metrics: conf.MetricsSettings{Enabled: true},
	}
}

func TestNewBuildsRequestedServices(t *testing.T) {
	settings := testSettings(t)

	a, err := New(context.Background(), settings, WithSessions(), WithTides(), WithExportSink())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Gateway)
	assert.NotNil(t, a.Sessions)
	assert.NotNil(t, a.Metrics)
	assert.NotNil(t, a.Audit)
	assert.Nil(t, a.Publisher)
	require.NotNil(t, a.Tides)
	assert.Len(t, a.Tides.Stations(), 1)
	_, ok := a.Sink.(*exportsink.FileSink)
	assert.True(t, ok)

	res, err := a.Gateway.AppendRecord(context.Background(), map[string]string{"Date": "2022-01-01", "Year": "2022", "Sex": "M"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	recent, err := a.Audit.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "manual", recent[0].Source)
}

func TestNewSkipsUnrequestedServices(t *testing.T) {
	settings := testSettings(t)
	settings.Audit.Enabled = false
	settings.Metrics.Enabled = false

	a, err := New(context.Background(), settings)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Sessions)
	assert.Nil(t, a.Tides)
	assert.Nil(t, a.Sink)
	assert.Nil(t, a.Audit)
	assert.Nil(t, a.Metrics)
}

func TestNewFailsOnUnknownSink(t *testing.T) {
	settings := testSettings(t)
	settings.Export.Sink = "ftp"

	a, err := New(context.Background(), settings, WithSessions(), WithExportSink())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
