package dataset

import (
	"iter"
)

// Collection is an ordered set of records sharing one schema. It is not
// modified after construction.
type Collection struct {
	schema  *Schema
	records []Record
}

// NewCollection builds a collection from a header and raw rows. Rows keep
// their insertion order.
func NewCollection(header []string, rows [][]string) *Collection {
	schema := NewSchema(header)
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{schema: schema, fields: row}
	}
	return &Collection{schema: schema, records: records}
}

// Schema returns the collection's schema.
func (c *Collection) Schema() *Schema {
	return c.schema
}

// Header returns the column names in store order.
func (c *Collection) Header() []string {
	return c.schema.Columns()
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// At returns the i-th record.
func (c *Collection) At(i int) Record {
	return c.records[i]
}

// View returns a view over every record.
func (c *Collection) View() *View {
	indices := make([]int, len(c.records))
	for i := range indices {
		indices[i] = i
	}
	return &View{source: c, indices: indices}
}

// View is an order-preserving subset of a collection, addressed by index.
type View struct {
	source  *Collection
	indices []int
}

// Source returns the collection the view selects from.
func (v *View) Source() *Collection {
	return v.source
}

// Schema returns the schema of the underlying collection.
func (v *View) Schema() *Schema {
	return v.source.schema
}

// Len returns the number of selected records.
func (v *View) Len() int {
	return len(v.indices)
}

// At returns the i-th selected record.
func (v *View) At(i int) Record {
	return v.source.records[v.indices[i]]
}

// Indices returns the positions of the selected records in the source.
func (v *View) Indices() []int {
	out := make([]int, len(v.indices))
	copy(out, v.indices)
	return out
}

// All iterates the selected records in source order.
func (v *View) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, idx := range v.indices {
			if !yield(v.source.records[idx]) {
				return
			}
		}
	}
}

// Where returns the records of v for which keep is true.
func (v *View) Where(keep func(Record) bool) *View {
	indices := make([]int, 0, len(v.indices))
	for _, idx := range v.indices {
		if keep(v.source.records[idx]) {
			indices = append(indices, idx)
		}
	}
	return &View{source: v.source, indices: indices}
}

// Rows returns the raw cells of the selected records.
func (v *View) Rows() [][]string {
	rows := make([][]string, 0, len(v.indices))
	for rec := range v.All() {
		rows = append(rows, rec.Fields())
	}
	return rows
}
