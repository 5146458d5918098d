package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/testutil"
)

func setup(t *testing.T) (settings *conf.Settings, upload string) {
	t.Helper()
	storePath := testutil.WriteStore(t, "Date,Year,Sex\n2021-05-01,2021,F\n")
	upload = testutil.WriteFile(t, "upload.csv", "Sex,Date,Color\nM,2023-01-01,grey\nF,2023-02-01,black\n")

	return &conf.Settings{
		Dataset:   conf.DatasetSettings{Path: storePath},
		Dashboard: conf.DashboardSettings{PreviewRows: 5},
	}, upload
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

func TestIngestDryRunLeavesStoreUntouched(t *testing.T) {
	settings, upload := setup(t)

	out := execute(t, settings, "--dry-run", upload)
	assert.Contains(t, out, "2023-01-01")
	assert.Contains(t, out, "Missing columns: Year")

	assert.Equal(t, "Date,Year,Sex\n2021-05-01,2021,F\n", testutil.ReadFile(t, settings.Dataset.Path))
}

func TestIngestAppendsAlignedRows(t *testing.T) {
	settings, upload := setup(t)

	out := execute(t, settings, upload)
	assert.Contains(t, out, "Appended 2 rows")
	assert.Contains(t, out, "Ignored columns: Color")
	assert.Contains(t, out, "Columns written empty: Year")

	assert.Equal(t, "Date,Year,Sex\n2021-05-01,2021,F\n2023-01-01,,M\n2023-02-01,,F\n", testutil.ReadFile(t, settings.Dataset.Path))
}
