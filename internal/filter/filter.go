// Package filter narrows encounter collections by facet selections.
//
// A Selection maps facets to allowed values. Facets missing from a
// selection are unrestricted; a facet present with no values matches
// nothing. Results are order-preserving subsets of their input, so
// applying the same selection twice returns the same view.
package filter

import (
	"github.com/ecovision/mantaview/internal/dataset"
)

// Facet is a categorical dimension used for filtering.
type Facet string

const (
	FacetYear     Facet = "year"
	FacetSex      Facet = "sex"
	FacetAgeClass Facet = "age_class"
	FacetMonth    Facet = "month"
)

// DashboardFacets are the facets of the main sidebar filter, in display order.
var DashboardFacets = []Facet{FacetYear, FacetSex, FacetAgeClass}

var facetColumns = map[Facet]string{
	FacetYear:     dataset.ColumnYear,
	FacetSex:      dataset.ColumnSex,
	FacetAgeClass: dataset.ColumnAgeClass,
	FacetMonth:    dataset.ColumnMonth,
}

// Column returns the store column behind the facet.
func (f Facet) Column() string {
	return facetColumns[f]
}

// ParseFacet resolves a facet by name.
func ParseFacet(name string) (Facet, bool) {
	f := Facet(name)
	_, ok := facetColumns[f]
	return f, ok
}

// Selection holds the chosen values per facet.
type Selection map[Facet][]string

// With returns a copy of s with facet restricted to values.
func (s Selection) With(facet Facet, values ...string) Selection {
	out := make(Selection, len(s)+1)
	for f, v := range s {
		out[f] = v
	}
	if values == nil {
		values = []string{}
	}
	out[facet] = values
	return out
}

// DefaultSelection selects every observed value of each facet, which is
// what the dashboard starts with.
func DefaultSelection(v *dataset.View, facets ...Facet) Selection {
	sel := make(Selection, len(facets))
	for _, f := range facets {
		sel[f] = FacetValues(v, f)
	}
	return sel
}

// Apply returns the records of v matching every restricted facet. A record
// whose facet value is null never matches a restriction on that facet.
func Apply(v *dataset.View, sel Selection) *dataset.View {
	type restriction struct {
		column  string
		allowed map[string]struct{}
	}

	restrictions := make([]restriction, 0, len(sel))
	for facet, values := range sel {
		column := facet.Column()
		if column == "" {
			continue
		}
		allowed := make(map[string]struct{}, len(values))
		for _, value := range values {
			allowed[value] = struct{}{}
		}
		restrictions = append(restrictions, restriction{column: column, allowed: allowed})
	}

	return v.Where(func(r dataset.Record) bool {
		for _, res := range restrictions {
			value, ok := r.Value(res.column)
			if !ok {
				return false
			}
			if _, ok := res.allowed[value]; !ok {
				return false
			}
		}
		return true
	})
}

// Chain applies selections one after another, e.g. the sidebar selection
// followed by the scorecard month/year selection.
func Chain(v *dataset.View, selections ...Selection) *dataset.View {
	for _, sel := range selections {
		v = Apply(v, sel)
	}
	return v
}
