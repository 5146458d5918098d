package aggregate

import (
	"slices"

	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/filter"
)

// CellKey addresses one cross-tab cell.
type CellKey struct {
	Row string
	Col string
}

// Cell is a non-empty cross-tab cell.
type Cell struct {
	Row   string `json:"row"`
	Col   string `json:"col"`
	Count int    `json:"count"`
}

// CrossTab is a sparse two-key count table. Missing keys count zero.
type CrossTab struct {
	counts map[CellKey]int
}

// GroupCount counts records by (rowKey, colKey). Records with a null key are skipped.
func GroupCount(v *dataset.View, rowKey, colKey string) CrossTab {
	counts := make(map[CellKey]int)
	for rec := range v.All() {
		row, ok := rec.Value(rowKey)
		if !ok {
			continue
		}
		col, ok := rec.Value(colKey)
		if !ok {
			continue
		}
		counts[CellKey{Row: row, Col: col}]++
	}
	return CrossTab{counts: counts}
}

// Get returns the count at (row, col).
func (ct CrossTab) Get(row, col string) int {
	return ct.counts[CellKey{Row: row, Col: col}]
}

// Total returns the sum of all cells.
func (ct CrossTab) Total() int {
	total := 0
	for _, n := range ct.counts {
		total += n
	}
	return total
}

// Cells returns the non-empty cells ordered by row then column.
func (ct CrossTab) Cells() []Cell {
	cells := make([]Cell, 0, len(ct.counts))
	for k, n := range ct.counts {
		cells = append(cells, Cell{Row: k.Row, Col: k.Col, Count: n})
	}
	slices.SortFunc(cells, func(a, b Cell) int {
		if c := filter.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return filter.Compare(a.Col, b.Col)
	})
	return cells
}

// RowKeys returns the distinct row keys in natural order.
func (ct CrossTab) RowKeys() []string {
	return ct.keys(func(k CellKey) string { return k.Row })
}

// ColKeys returns the distinct column keys in natural order.
func (ct CrossTab) ColKeys() []string {
	return ct.keys(func(k CellKey) string { return k.Col })
}

func (ct CrossTab) keys(pick func(CellKey) string) []string {
	seen := make(map[string]struct{})
	keys := []string{}
	for k := range ct.counts {
		key := pick(k)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	slices.SortFunc(keys, filter.Compare)
	return keys
}

// Bucket is one group of a single-key count.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// CountBy counts records by field, skipping nulls, in natural key order.
func CountBy(v *dataset.View, field string) []Bucket {
	counts := make(map[string]int)
	for rec := range v.All() {
		if key, ok := rec.Value(field); ok {
			counts[key]++
		}
	}

	buckets := make([]Bucket, 0, len(counts))
	for key, n := range counts {
		buckets = append(buckets, Bucket{Key: key, Count: n})
	}
	slices.SortFunc(buckets, func(a, b Bucket) int { return filter.Compare(a.Key, b.Key) })
	return buckets
}
