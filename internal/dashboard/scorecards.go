package dashboard

import (
	"github.com/ecovision/mantaview/internal/aggregate"
	"github.com/ecovision/mantaview/internal/dataset"
)

// Scorecards are the headline numbers of the visualizations tab.
type Scorecards struct {
	TotalEncounters    int            `json:"total_encounters"`
	UniqueIndividuals  int            `json:"unique_individuals"`
	AvgEncounterLength aggregate.Mean `json:"avg_encounter_length"`
	AvgEncounterText   string         `json:"avg_encounter_length_display"`
	NewInjuries        int            `json:"new_injuries"`
}

// BuildScorecards summarizes the scorecard sub-view.
func BuildScorecards(v *dataset.View) Scorecards {
	avg := aggregate.MeanOf(v, dataset.ColumnEncounterLength)
	return Scorecards{
		TotalEncounters:    aggregate.Count(v),
		UniqueIndividuals:  aggregate.DistinctCount(v, dataset.ColumnIndividual),
		AvgEncounterLength: avg,
		AvgEncounterText:   avg.String(),
		NewInjuries:        aggregate.TruthyFlagCount(v, dataset.ColumnNewInjury),
	}
}
