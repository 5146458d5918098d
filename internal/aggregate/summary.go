// Package aggregate computes summary statistics over filtered encounter
// views. Every function is total: empty views and missing or malformed
// fields produce zero counts or an invalid Mean, never an error.
package aggregate

import (
	"encoding/json"
	"strconv"

	"golang.org/x/text/cases"

	"github.com/ecovision/mantaview/internal/dataset"
)

// NotAvailable is how a mean without data is displayed.
const NotAvailable = "N/A"

// Count returns the number of records in v.
func Count(v *dataset.View) int {
	return v.Len()
}

// DistinctCount returns the number of unique non-null values of field.
func DistinctCount(v *dataset.View, field string) int {
	seen := make(map[string]struct{})
	for rec := range v.All() {
		if value, ok := rec.Value(field); ok {
			seen[value] = struct{}{}
		}
	}
	return len(seen)
}

// Mean is an average that may be undefined.
type Mean struct {
	Value float64
	N     int // values that contributed
}

// Valid reports whether at least one value contributed.
func (m Mean) Valid() bool {
	return m.N > 0
}

// String formats the mean with one decimal, or NotAvailable.
func (m Mean) String() string {
	return m.Format(1)
}

// Format formats the mean with prec decimals, or NotAvailable.
func (m Mean) Format(prec int) string {
	if !m.Valid() {
		return NotAvailable
	}
	return strconv.FormatFloat(m.Value, 'f', prec, 64)
}

// MarshalJSON encodes an undefined mean as null.
func (m Mean) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// MeanOf averages field after numeric coercion, ignoring nulls.
func MeanOf(v *dataset.View, field string) Mean {
	var sum float64
	var n int
	for rec := range v.All() {
		if f, ok := rec.Float(field); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return Mean{}
	}
	return Mean{Value: sum / float64(n), N: n}
}

// truthyTokens are the case-folded answers counted as "yes".
var truthyTokens = map[string]struct{}{
	"yes": {},
	"y":   {},
}

var folder = cases.Fold()

// IsTruthy reports whether free text answers yes. Surrounding whitespace is
// not trimmed, so " yes" is falsy.
func IsTruthy(raw string) bool {
	_, ok := truthyTokens[folder.String(raw)]
	return ok
}

// TruthyFlagCount counts records whose field answers yes.
func TruthyFlagCount(v *dataset.View, field string) int {
	n := 0
	for rec := range v.All() {
		if IsTruthy(rec.Raw(field)) {
			n++
		}
	}
	return n
}

// Float is a numeric cell that may be null.
type Float struct {
	Value float64
	Valid bool
}

// NumericCoerce reinterprets field as numbers, aligned with the order of v.
func NumericCoerce(v *dataset.View, field string) []Float {
	out := make([]Float, 0, v.Len())
	for rec := range v.All() {
		f, ok := rec.Float(field)
		out = append(out, Float{Value: f, Valid: ok})
	}
	return out
}
