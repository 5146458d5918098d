package tide

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/logger"
	"github.com/ecovision/mantaview/internal/suncalc"
)

// Station is a named tide prediction source.
type Station struct {
	Name      string  `json:"name"`
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultStations are the piers the dashboard was built for.
var DefaultStations = []Station{
	{Name: "Miami Beach", ID: "8723214", Latitude: 25.7683, Longitude: -80.1317},
	{Name: "Pompano Beach", ID: "8722670", Latitude: 26.2283, Longitude: -80.0933},
	{Name: "Satellite Beach", ID: "8721604", Latitude: 28.1750, Longitude: -80.5933},
}

// StationsFromSettings converts configured stations, falling back to
// DefaultStations when none are configured.
func StationsFromSettings(settings *conf.TideSettings) []Station {
	if len(settings.Stations) == 0 {
		return DefaultStations
	}
	stations := make([]Station, 0, len(settings.Stations))
	for _, s := range settings.Stations {
		stations = append(stations, Station{
			Name:      s.Name,
			ID:        s.ID,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		})
	}
	return stations
}

// Status is the outcome of one station lookup.
type Status string

const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
	StatusFailed Status = "error"
)

// StationResult is the lookup outcome for one station. Error is set for
// every status other than StatusOK.
type StationResult struct {
	Station     Station                `json:"station"`
	Status      Status                 `json:"status"`
	Predictions []Prediction           `json:"predictions"`
	Sun         *suncalc.SunEventTimes `json:"sun,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Fetcher fetches one prediction series.
type Fetcher interface {
	FetchTide(ctx context.Context, stationID string, r DateRange) ([]Prediction, error)
}

// Recorder collects tide lookup metrics.
type Recorder interface {
	RecordTideFetch(station, status string, elapsed time.Duration)
}

// Lookup fetches all stations for the tides tab.
type Lookup struct {
	fetcher  Fetcher
	stations []Station
	sun      map[string]*suncalc.SunCalc
	recorder Recorder
	log      logger.Logger
}

// LookupOption configures a Lookup.
type LookupOption func(*Lookup)

// WithRecorder reports per-station outcomes.
func WithRecorder(r Recorder) LookupOption {
	return func(l *Lookup) { l.recorder = r }
}

// WithSunEvents adds the day's sun events per station, in loc.
func WithSunEvents(loc *time.Location) LookupOption {
	return func(l *Lookup) {
		l.sun = make(map[string]*suncalc.SunCalc, len(l.stations))
		for _, st := range l.stations {
			l.sun[st.ID] = suncalc.NewSunCalc(st.Latitude, st.Longitude, loc)
		}
	}
}

// NewLookup returns a lookup over stations.
func NewLookup(f Fetcher, stations []Station, opts ...LookupOption) *Lookup {
	l := &Lookup{
		fetcher:  f,
		stations: stations,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stations returns the configured stations.
func (l *Lookup) Stations() []Station {
	return l.stations
}

// FetchAll fetches every station in order for TodayWindow(now). A failing
// station never stops the others.
func (l *Lookup) FetchAll(ctx context.Context, now time.Time) []StationResult {
	window := TodayWindow(now)
	results := make([]StationResult, 0, len(l.stations))
	for _, st := range l.stations {
		results = append(results, l.fetchStation(ctx, st, window, now))
	}
	return results
}

func (l *Lookup) fetchStation(ctx context.Context, st Station, window DateRange, now time.Time) (res StationResult) {
	start := time.Now()
	res = StationResult{Station: st, Predictions: []Prediction{}}

	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("tide lookup panic: %v", r).
				Component("tide").
				Category(errors.CategoryGeneric).
				Priority(errors.PriorityHigh).
				Context("station", st.ID).
				Build()
			l.log.Error("tide lookup panicked",
				logger.String("station", st.ID),
				logger.Error(err),
				logger.String("stack", string(debug.Stack())))
			res = StationResult{Station: st, Status: StatusFailed, Predictions: []Prediction{}, Error: err.Error()}
		}
		if l.recorder != nil {
			l.recorder.RecordTideFetch(st.ID, string(res.Status), time.Since(start))
		}
	}()

	if l.sun != nil {
		if sc, ok := l.sun[st.ID]; ok {
			if times, err := sc.GetSunEventTimes(now); err == nil {
				res.Sun = &times
			} else {
				l.log.Warn("sun events unavailable",
					logger.String("station", st.ID),
					logger.Error(err))
			}
		}
	}

	predictions, err := l.fetcher.FetchTide(ctx, st.ID, window)
	switch {
	case err == nil:
		res.Status = StatusOK
		res.Predictions = predictions
	case errors.Is(err, ErrNoPredictions):
		res.Status = StatusNoData
		res.Error = fmt.Sprintf("no data for %s", st.Name)
	default:
		res.Status = StatusFailed
		res.Error = err.Error()
		l.log.Warn("tide lookup failed",
			logger.String("station", st.ID),
			logger.String("name", st.Name),
			logger.Error(err))
	}
	return res
}
