// Package dashboard assembles the view models served to the dashboard page:
// facet options, scorecards, chart feeds, map points and the data table.
// Everything is recomputed from a session collection on every request.
package dashboard

import (
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/filter"
)

// Query is the visitor's current filter state.
type Query struct {
	// Selection restricts the main view. Nil selects every observed value
	// of the dashboard facets.
	Selection filter.Selection
	// Scorecard further restricts the scorecards by month and year. Facets
	// absent from it select every value observed in the main view.
	Scorecard filter.Selection
}

// Filtered applies q.Selection to c.
func Filtered(c *dataset.Collection, q Query) *dataset.View {
	all := c.View()
	sel := q.Selection
	if sel == nil {
		sel = filter.DefaultSelection(all, filter.DashboardFacets...)
	}
	return filter.Apply(all, sel)
}

// ScorecardView narrows an already filtered view by month and year.
func ScorecardView(filtered *dataset.View, sub filter.Selection) *dataset.View {
	sel := filter.DefaultSelection(filtered, filter.FacetMonth, filter.FacetYear)
	for facet, values := range sub {
		if facet == filter.FacetMonth || facet == filter.FacetYear {
			sel[facet] = values
		}
	}
	return filter.Apply(filtered, sel)
}

// Facets lists the options offered by the filter widgets.
type Facets struct {
	Years      []string `json:"years"`
	Sexes      []string `json:"sexes"`
	AgeClasses []string `json:"age_classes"`

	// Scorecard options come from the filtered view, not the collection.
	ScorecardMonths []string `json:"scorecard_months"`
	ScorecardYears  []string `json:"scorecard_years"`
}

// BuildFacets collects the options for c and its filtered view.
func BuildFacets(c *dataset.Collection, filtered *dataset.View) Facets {
	all := c.View()
	return Facets{
		Years:           filter.FacetValues(all, filter.FacetYear),
		Sexes:           filter.FacetValues(all, filter.FacetSex),
		AgeClasses:      filter.FacetValues(all, filter.FacetAgeClass),
		ScorecardMonths: filter.FacetValues(filtered, filter.FacetMonth),
		ScorecardYears:  filter.FacetValues(filtered, filter.FacetYear),
	}
}

// Table is the raw data tab.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
	Total  int        `json:"total"` // records in the collection before filtering
}

// BuildTable returns the raw cells of v in collection order.
func BuildTable(v *dataset.View) Table {
	return Table{
		Header: v.Schema().Columns(),
		Rows:   v.Rows(),
		Total:  v.Source().Len(),
	}
}
