// Package suncalc computes civil twilight, sunrise and sunset for tide
// station coordinates.
package suncalc

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// SunEventTimes holds the sun events of one day in the calculator's location.
type SunEventTimes struct {
	CivilDawn time.Time `json:"civil_dawn"`
	Sunrise   time.Time `json:"sunrise"`
	Sunset    time.Time `json:"sunset"`
	CivilDusk time.Time `json:"civil_dusk"`
}

// SunCalc calculates and caches sun event times for one observer.
type SunCalc struct {
	cache    map[string]SunEventTimes
	lock     sync.RWMutex
	observer astral.Observer
	loc      *time.Location
}

// NewSunCalc returns a calculator for the given coordinates. Results are
// reported in loc; a nil loc means UTC.
func NewSunCalc(latitude, longitude float64, loc *time.Location) *SunCalc {
	if loc == nil {
		loc = time.UTC
	}
	return &SunCalc{
		cache:    make(map[string]SunEventTimes),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		loc:      loc,
	}
}

// GetSunEventTimes returns the sun events for the calendar day of date in
// the calculator's location.
func (sc *SunCalc) GetSunEventTimes(date time.Time) (SunEventTimes, error) {
	day := date.In(sc.loc)
	key := day.Format(time.DateOnly)

	sc.lock.RLock()
	times, ok := sc.cache[key]
	sc.lock.RUnlock()
	if ok {
		return times, nil
	}

	times, err := sc.calculate(day)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.lock.Lock()
	sc.cache[key] = times
	sc.lock.Unlock()

	return times, nil
}

func (sc *SunCalc) calculate(day time.Time) (SunEventTimes, error) {
	// astral works on the UTC date, so anchor at local noon.
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, sc.loc).UTC()

	civilDawn, err := astral.Dawn(sc.observer, noon, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dawn: %w", err)
	}
	sunrise, err := astral.Sunrise(sc.observer, noon)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}
	sunset, err := astral.Sunset(sc.observer, noon)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}
	civilDusk, err := astral.Dusk(sc.observer, noon, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dusk: %w", err)
	}

	return SunEventTimes{
		CivilDawn: civilDawn.In(sc.loc),
		Sunrise:   sunrise.In(sc.loc),
		Sunset:    sunset.In(sc.loc),
		CivilDusk: civilDusk.In(sc.loc),
	}, nil
}

// GetSunriseTime returns the sunrise time for a given date
func (sc *SunCalc) GetSunriseTime(date time.Time) (time.Time, error) {
	times, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get sun event times: %w", err)
	}
	return times.Sunrise, nil
}

// GetSunsetTime returns the sunset time for a given date
func (sc *SunCalc) GetSunsetTime(date time.Time) (time.Time, error) {
	times, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get sun event times: %w", err)
	}
	return times.Sunset, nil
}
