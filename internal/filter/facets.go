package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/ecovision/mantaview/internal/dataset"
)

// FacetValues returns the distinct non-null values of facet in v, sorted
// with Compare.
func FacetValues(v *dataset.View, facet Facet) []string {
	return DistinctValues(v, facet.Column())
}

// DistinctValues returns the distinct non-null values of column in v,
// sorted with Compare.
func DistinctValues(v *dataset.View, column string) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for rec := range v.All() {
		value, ok := rec.Value(column)
		if !ok {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	slices.SortFunc(values, Compare)
	return values
}

var monthIndex = func() map[string]int {
	m := make(map[string]int, 24)
	for month := time.January; month <= time.December; month++ {
		name := strings.ToLower(month.String())
		m[name] = int(month)
		m[name[:3]] = int(month)
	}
	return m
}()

// Compare orders facet values naturally: numbers ascending by value, then
// month names in calendar order, then other text lexically.
func Compare(a, b string) int {
	rankA, keyA := sortKey(a)
	rankB, keyB := sortKey(b)
	if rankA != rankB {
		return rankA - rankB
	}
	switch rankA {
	case 0, 1:
		switch {
		case keyA < keyB:
			return -1
		case keyA > keyB:
			return 1
		}
	}
	return strings.Compare(a, b)
}

func sortKey(s string) (int, float64) {
	if f, ok := dataset.ParseNumber(s); ok {
		return 0, f
	}
	if m, ok := monthIndex[strings.ToLower(strings.TrimSpace(s))]; ok {
		return 1, float64(m)
	}
	return 2, 0
}
