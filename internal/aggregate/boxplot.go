package aggregate

import (
	"math"
	"slices"
	"strings"

	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/filter"
)

// whiskerRange is the IQR multiple beyond which values are outliers.
const whiskerRange = 1.5

// Box is the five-number summary of one group.
type Box struct {
	Group        []string  `json:"group"`
	N            int       `json:"n"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

// BoxStats summarizes valueField per combination of groupFields. Records
// with a null group key or a non-numeric value are skipped.
func BoxStats(v *dataset.View, valueField string, groupFields ...string) []Box {
	groups := make(map[string][]float64)
	keys := make(map[string][]string)

	for rec := range v.All() {
		value, ok := rec.Float(valueField)
		if !ok {
			continue
		}
		group := make([]string, 0, len(groupFields))
		complete := true
		for _, field := range groupFields {
			key, ok := rec.Value(field)
			if !ok {
				complete = false
				break
			}
			group = append(group, key)
		}
		if !complete {
			continue
		}
		id := strings.Join(group, "\x1f")
		groups[id] = append(groups[id], value)
		keys[id] = group
	}

	boxes := make([]Box, 0, len(groups))
	for id, values := range groups {
		boxes = append(boxes, summarize(keys[id], values))
	}
	slices.SortFunc(boxes, func(a, b Box) int {
		for i := range a.Group {
			if c := filter.Compare(a.Group[i], b.Group[i]); c != 0 {
				return c
			}
		}
		return 0
	})
	return boxes
}

func summarize(group []string, values []float64) Box {
	slices.Sort(values)

	box := Box{
		Group:    group,
		N:        len(values),
		Min:      values[0],
		Q1:       Quantile(values, 0.25),
		Median:   Quantile(values, 0.5),
		Q3:       Quantile(values, 0.75),
		Max:      values[len(values)-1],
		Outliers: []float64{},
	}

	iqr := box.Q3 - box.Q1
	lowFence := box.Q1 - whiskerRange*iqr
	highFence := box.Q3 + whiskerRange*iqr

	box.LowerWhisker = box.Max
	box.UpperWhisker = box.Min
	for _, x := range values {
		if x < lowFence || x > highFence {
			box.Outliers = append(box.Outliers, x)
			continue
		}
		box.LowerWhisker = math.Min(box.LowerWhisker, x)
		box.UpperWhisker = math.Max(box.UpperWhisker, x)
	}

	return box
}

// Quantile returns the p-quantile of sorted values using linear
// interpolation between closest ranks.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
