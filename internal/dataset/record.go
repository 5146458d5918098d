// Package dataset holds the encounter record model, its CSV codec and the
// file-backed store the dashboard reads from and appends to.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Store columns the dashboard interprets.
const (
	ColumnDate            = "Date"
	ColumnYear            = "Year"
	ColumnMonth           = "Month"
	ColumnSex             = "Sex"
	ColumnAgeClass        = "Age Class"
	ColumnLatitude        = "Latitude"
	ColumnLongitude       = "Longitude"
	ColumnDiscWidth       = "Disc Width (m)"
	ColumnWaterDepth      = "Water Depth (m)"
	ColumnWaterTemp       = "Water Temperature (°C)"
	ColumnEncounterLength = "Encounter Length (minutes)"
	ColumnNewInjury       = "New Injury?"
	ColumnPier            = "Which Pier"
	ColumnIndividual      = "Manta Individual"
	ColumnName            = "Name"
)

// columnAliases maps a column to the name older exports used for it.
var columnAliases = map[string]string{
	ColumnIndividual: ColumnName,
}

// nullTokens are cell texts read as missing, matching common spreadsheet exports.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

// IsNull reports whether raw cell text denotes a missing value.
func IsNull(raw string) bool {
	_, ok := nullTokens[strings.TrimSpace(raw)]
	return ok
}

// Schema is the ordered column list of a collection.
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema builds a schema from header names. Names are trimmed; on
// duplicates the first occurrence wins.
func NewSchema(columns []string) *Schema {
	s := &Schema{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range columns {
		name = strings.TrimSpace(name)
		s.columns[i] = name
		if _, dup := s.index[name]; !dup {
			s.index[name] = i
		}
	}
	return s
}

// Columns returns a copy of the column names in store order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Index returns the position of column, falling back to its alias.
func (s *Schema) Index(column string) (int, bool) {
	if i, ok := s.index[column]; ok {
		return i, true
	}
	if alias, ok := columnAliases[column]; ok {
		i, ok := s.index[alias]
		return i, ok
	}
	return 0, false
}

// Has reports whether column (or its alias) exists.
func (s *Schema) Has(column string) bool {
	_, ok := s.Index(column)
	return ok
}

// Record is one encounter row. Cells are kept as raw text; interpretation
// happens on read so a record always round-trips unchanged.
type Record struct {
	schema *Schema
	fields []string
}

// Raw returns the cell text for column, or "" when the column is absent.
func (r Record) Raw(column string) string {
	i, ok := r.schema.Index(column)
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Value returns the normalized text of column and false when it is null.
func (r Record) Value(column string) (string, bool) {
	raw := r.Raw(column)
	if IsNull(raw) {
		return "", false
	}
	v := strings.TrimSpace(raw)
	if column == ColumnYear {
		v = normalizeYear(v)
	}
	return v, true
}

// Float returns column coerced to a number. Non-numeric text, NaN and
// infinities are reported as null.
func (r Record) Float(column string) (float64, bool) {
	v, ok := r.Value(column)
	if !ok {
		return 0, false
	}
	return ParseNumber(v)
}

// Fields returns a copy of the raw cells, padded or cut to the schema width.
func (r Record) Fields() []string {
	out := make([]string, r.schema.Len())
	copy(out, r.fields)
	return out
}

// ParseNumber parses s as a finite float.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalizeYear turns spreadsheet floats such as "2021.0" into "2021".
func normalizeYear(v string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return v
	}
	return strconv.FormatInt(int64(f), 10)
}
