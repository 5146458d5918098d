package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/testutil"
)

const sampleCSV = `Date,Year,Month,Sex,Age Class,Latitude,Longitude,Which Pier,New Injury?,Disc Width (m),Water Depth (m),Water Temperature (°C),Encounter Length (minutes),Manta Individual
2021-06-01,2021,June,F,Adult,26.70,-80.03,Juno,yes,3.1,4.5,27.2,12,M-001
2021-07-04, 2021.0 ,July,M,Juvenile,26.71,-80.04,Lake Worth,No,1.8,3.2,28.0,5,M-002
2022-01-15,2022,January,F,Juvenile,,,Juno,Y,2.0,N/A,24.1,,M-001
`

func writeStore(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteStore(t, content)
}

func mustParse(t *testing.T, content string) *Collection {
	t.Helper()
	c, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	return c
}
