package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/testutil"
)

const store = `Date,Year,Month,Sex,Age Class,Manta Individual
2021-05-01,2021,May,F,Adult,Alpha
2021-06-02,2021,June,M,Juvenile,Bravo
2022-05-03,2022.0,May,F,Adult,Alpha
2022-07-04,2022,July,,Adult,Charlie
`

func newSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{Dataset: conf.DatasetSettings{Path: testutil.WriteStore(t, store)}}
}

func execute(t *testing.T, settings *conf.Settings, args ...string) string {
	t.Helper()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestExportDefaultsToObservedValues(t *testing.T) {
	out := execute(t, newSettings(t))

	// The row with no sex is outside the default selection.
	assert.Equal(t, `Date,Year,Month,Sex,Age Class,Manta Individual
2021-05-01,2021,May,F,Adult,Alpha
2021-06-02,2021,June,M,Juvenile,Bravo
2022-05-03,2022.0,May,F,Adult,Alpha
`, out)
}

func TestExportFiltersByFlags(t *testing.T) {
	out := execute(t, newSettings(t), "--year", "2022", "--sex", "F")

	assert.Equal(t, `Date,Year,Month,Sex,Age Class,Manta Individual
2022-05-03,2022.0,May,F,Adult,Alpha
`, out)
}

func TestExportWritesFile(t *testing.T) {
	settings := newSettings(t)
	dest := filepath.Join(t.TempDir(), "out.csv")

	out := execute(t, settings, "--age-class", "Juvenile", "--out", dest)
	assert.Contains(t, out, "Wrote 1 of 4 records")

	data := testutil.ReadFile(t, dest)
	assert.Contains(t, data, "Bravo")
	assert.NotContains(t, data, "Alpha")
}

func TestExportArchive(t *testing.T) {
	settings := newSettings(t)
	settings.Export = conf.ExportSettings{Sink: "file", Dir: t.TempDir()}

	out := execute(t, settings, "--archive")
	assert.Contains(t, out, "Archived 3 records to ")

	entries, err := os.ReadDir(settings.Export.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^filtered_manta_data_\d{8}T\d{6}Z\.csv$`, entries[0].Name())
}
