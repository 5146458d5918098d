package dashboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/aggregate"
	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/filter"
)

const encountersCSV = `Date,Year,Month,Manta Individual,Sex,Age Class,Latitude,Longitude,Disc Width (m),Water Depth (m),Water Temperature (°C),Encounter Length (minutes),New Injury?,Which Pier
2021-05-01,2021,May,M1,F,Adult,26.70,-80.03,3.1,4,27.5,10,yes,Lake Worth
2021-06-02,2021,June,M2,M,Juvenile,26.71,-80.04,1.2,3,28,20,no,Juno
2022-05-03,2022,May,M1,F,Adult,,,3.3,5,26,,Y,Lake Worth
2022-07-04,2022,July,M3,,Juvenile,26.72,-80.05,1.4,NA,29,30,y,Juno
`

func loadCollection(t *testing.T) *dataset.Collection {
	t.Helper()
	c, err := dataset.Parse(strings.NewReader(encountersCSV))
	require.NoError(t, err)
	return c
}

func TestFilteredDefaultsExcludeNullFacets(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)

	v := Filtered(c, Query{})
	assert.Equal(t, 3, v.Len(), "record with empty sex is outside the default selection")

	v = Filtered(c, Query{Selection: filter.Selection{filter.FacetYear: {"2022"}}})
	assert.Equal(t, 2, v.Len())
}

func TestScorecardViewNarrowsByMonthAndYear(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)
	filtered := Filtered(c, Query{})

	all := ScorecardView(filtered, nil)
	assert.Equal(t, filtered.Len(), all.Len())

	may := ScorecardView(filtered, filter.Selection{filter.FacetMonth: {"May"}})
	assert.Equal(t, 2, may.Len())

	none := ScorecardView(filtered, filter.Selection{filter.FacetYear: {}})
	assert.Equal(t, 0, none.Len())
}

func TestBuildFacets(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)
	filtered := Filtered(c, Query{Selection: filter.Selection{filter.FacetYear: {"2021"}}})

	f := BuildFacets(c, filtered)
	assert.Equal(t, []string{"2021", "2022"}, f.Years)
	assert.Equal(t, []string{"F", "M"}, f.Sexes)
	assert.Equal(t, []string{"Adult", "Juvenile"}, f.AgeClasses)
	assert.Equal(t, []string{"May", "June"}, f.ScorecardMonths)
	assert.Equal(t, []string{"2021"}, f.ScorecardYears)
}

func TestBuildScorecards(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)

	s := BuildScorecards(c.View())
	assert.Equal(t, 4, s.TotalEncounters)
	assert.Equal(t, 3, s.UniqueIndividuals)
	assert.InDelta(t, 20.0, s.AvgEncounterLength.Value, 1e-9)
	assert.Equal(t, "20.0", s.AvgEncounterText)
	assert.Equal(t, 3, s.NewInjuries)

	empty := BuildScorecards(c.View().Where(func(dataset.Record) bool { return false }))
	assert.Equal(t, 0, empty.TotalEncounters)
	assert.Equal(t, aggregate.NotAvailable, empty.AvgEncounterText)
}

func TestBuildVisualizations(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)

	viz := BuildVisualizations(c.View())

	assert.Equal(t, []string{"May", "June", "July"}, viz.Heatmap.Months)
	assert.Equal(t, []string{"2021", "2022"}, viz.Heatmap.Years)
	assert.Len(t, viz.Heatmap.Cells, 4)

	assert.Len(t, viz.DepthTemperature, 3, "non-numeric depth is dropped")
	for _, p := range viz.DepthTemperature {
		assert.NotEmpty(t, p.AgeClass)
	}

	assert.Equal(t, []aggregate.Bucket{
		{Key: "Juno", Count: 1},
		{Key: "Lake Worth", Count: 2},
	}, viz.InjuryByPier)

	require.Len(t, viz.DiscWidth, 2, "rows with null sex are not grouped")
	assert.Equal(t, []string{"Adult", "F"}, viz.DiscWidth[0].Group)
	assert.Equal(t, 2, viz.DiscWidth[0].N)
}

func TestBuildMapSkipsMissingCoordinates(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)
	settings := conf.MapSettings{CenterLatitude: 26.7153, CenterLongitude: -80.0534, Zoom: 10}

	m := BuildMap(c.View(), settings)
	assert.Equal(t, 10, m.Zoom)
	assert.InDelta(t, 26.7153, m.CenterLatitude, 1e-9)
	require.Len(t, m.Points, 3)
	assert.Equal(t, MapPoint{
		Latitude: 26.70, Longitude: -80.03,
		Date: "2021-05-01", Name: "M1", Sex: "F", AgeClass: "Adult",
	}, m.Points[0])
	assert.Empty(t, m.Points[2].Sex)
}

func TestBuildTable(t *testing.T) {
	t.Parallel()
	c := loadCollection(t)
	v := Filtered(c, Query{Selection: filter.Selection{filter.FacetSex: {"M"}}})

	tbl := BuildTable(v)
	assert.Equal(t, c.Header(), tbl.Header)
	assert.Equal(t, 4, tbl.Total)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "M2", tbl.Rows[0][3])
}

func TestEnabledTabs(t *testing.T) {
	t.Parallel()

	tabs := EnabledTabs(conf.DefaultTabs)
	require.Len(t, tabs, 5)
	assert.Equal(t, Tab{ID: "data", Title: "Data View"}, tabs[2])

	tabs = EnabledTabs([]string{"tides", "bogus", "map"})
	assert.Equal(t, []Tab{{ID: "tides", Title: "Current Tides"}, {ID: "map", Title: "Map"}}, tabs)
	assert.True(t, HasTab(tabs, "map"))
	assert.False(t, HasTab(tabs, "upload"))
}
