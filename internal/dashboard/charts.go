package dashboard

import (
	"github.com/ecovision/mantaview/internal/aggregate"
	"github.com/ecovision/mantaview/internal/dataset"
)

// Heatmap counts encounters by month and year.
type Heatmap struct {
	Months []string         `json:"months"`
	Years  []string         `json:"years"`
	Cells  []aggregate.Cell `json:"cells"` // Row is the month, Col the year
}

// ScatterPoint is one encounter on the depth/temperature chart.
type ScatterPoint struct {
	Depth       float64 `json:"depth"`
	Temperature float64 `json:"temperature"`
	AgeClass    string  `json:"age_class"`
	Date        string  `json:"date"`
	Name        string  `json:"name"`
}

// Visualizations are the chart feeds of the visualizations tab.
type Visualizations struct {
	Heatmap          Heatmap            `json:"heatmap"`
	DepthTemperature []ScatterPoint     `json:"depth_temperature"`
	InjuryByPier     []aggregate.Bucket `json:"injury_by_pier"`
	DiscWidth        []aggregate.Box    `json:"disc_width"`
}

// BuildVisualizations computes every chart feed from the filtered view.
func BuildVisualizations(v *dataset.View) Visualizations {
	ct := aggregate.GroupCount(v, dataset.ColumnMonth, dataset.ColumnYear)

	injured := v.Where(func(rec dataset.Record) bool {
		return aggregate.IsTruthy(rec.Raw(dataset.ColumnNewInjury))
	})

	return Visualizations{
		Heatmap: Heatmap{
			Months: ct.RowKeys(),
			Years:  ct.ColKeys(),
			Cells:  ct.Cells(),
		},
		DepthTemperature: depthTemperature(v),
		InjuryByPier:     aggregate.CountBy(injured, dataset.ColumnPier),
		DiscWidth:        aggregate.BoxStats(v, dataset.ColumnDiscWidth, dataset.ColumnAgeClass, dataset.ColumnSex),
	}
}

func depthTemperature(v *dataset.View) []ScatterPoint {
	depths := aggregate.NumericCoerce(v, dataset.ColumnWaterDepth)
	temps := aggregate.NumericCoerce(v, dataset.ColumnWaterTemp)

	points := []ScatterPoint{}
	for i := range v.Len() {
		if !depths[i].Valid || !temps[i].Valid {
			continue
		}
		rec := v.At(i)
		age, ok := rec.Value(dataset.ColumnAgeClass)
		if !ok {
			continue
		}
		name, _ := rec.Value(dataset.ColumnIndividual)
		date, _ := rec.Value(dataset.ColumnDate)
		points = append(points, ScatterPoint{
			Depth:       depths[i].Value,
			Temperature: temps[i].Value,
			AgeClass:    age,
			Date:        date,
			Name:        name,
		})
	}
	return points
}
