package httpcontroller

import (
	"net/url"
	"strings"

	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/filter"
)

// scorecardYearParam keeps the scorecard year distinct from the sidebar year.
const scorecardYearParam = "scorecard_year"

// queryValues returns the non-empty values of a repeatable parameter and
// whether the parameter was sent at all. Values are taken whole, so a
// dataset value may itself contain commas.
func queryValues(q url.Values, name string) ([]string, bool) {
	raw, ok := q[name]
	if !ok {
		return nil, false
	}
	values := []string{}
	for _, r := range raw {
		if v := strings.TrimSpace(r); v != "" {
			values = append(values, v)
		}
	}
	return values, true
}

// parseSelection reads the sidebar facets from q. A facet absent from q
// selects every value observed in all; a facet sent without values selects
// nothing. The second result reports whether q named any facet.
func parseSelection(q url.Values, all *dataset.View) (filter.Selection, bool) {
	sel := make(filter.Selection, len(filter.DashboardFacets))
	explicit := false
	for _, facet := range filter.DashboardFacets {
		values, ok := queryValues(q, string(facet))
		if !ok {
			sel[facet] = filter.FacetValues(all, facet)
			continue
		}
		explicit = true
		sel[facet] = values
	}
	return sel, explicit
}

// parseScorecardSelection reads the scorecard month and year. Absent
// parameters are left out so they default to the filtered view's values.
func parseScorecardSelection(q url.Values) filter.Selection {
	sel := filter.Selection{}
	if values, ok := queryValues(q, string(filter.FacetMonth)); ok {
		sel[filter.FacetMonth] = values
	}
	if values, ok := queryValues(q, scorecardYearParam); ok {
		sel[filter.FacetYear] = values
	}
	return sel
}
