package dashboard

import (
	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dataset"
)

// MapPoint is one geolocated encounter.
type MapPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
	Name      string  `json:"name"`
	Sex       string  `json:"sex"`
	AgeClass  string  `json:"age_class"`
}

// MapView is the map tab: the initial viewport and the points.
type MapView struct {
	CenterLatitude  float64    `json:"center_latitude"`
	CenterLongitude float64    `json:"center_longitude"`
	Zoom            int        `json:"zoom"`
	Points          []MapPoint `json:"points"`
}

// BuildMap returns the encounters of v with numeric coordinates.
func BuildMap(v *dataset.View, settings conf.MapSettings) MapView {
	points := []MapPoint{}
	for rec := range v.All() {
		lat, ok := rec.Float(dataset.ColumnLatitude)
		if !ok {
			continue
		}
		lon, ok := rec.Float(dataset.ColumnLongitude)
		if !ok {
			continue
		}
		p := MapPoint{Latitude: lat, Longitude: lon}
		p.Date, _ = rec.Value(dataset.ColumnDate)
		p.Name, _ = rec.Value(dataset.ColumnIndividual)
		p.Sex, _ = rec.Value(dataset.ColumnSex)
		p.AgeClass, _ = rec.Value(dataset.ColumnAgeClass)
		points = append(points, p)
	}

	return MapView{
		CenterLatitude:  settings.CenterLatitude,
		CenterLongitude: settings.CenterLongitude,
		Zoom:            settings.Zoom,
		Points:          points,
	}
}
