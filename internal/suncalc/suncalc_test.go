package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Lake Worth Beach pier
const (
	testLatitude  = 26.6128
	testLongitude = -80.0337
)

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestNewSunCalcDefaultsToUTC(t *testing.T) {
	sc := NewSunCalc(testLatitude, testLongitude, nil)
	assert.Equal(t, time.UTC, sc.loc)
	assert.InDelta(t, testLatitude, sc.observer.Latitude, 1e-9)
	assert.InDelta(t, testLongitude, sc.observer.Longitude, 1e-9)
}

func TestSunEventsAreOrderedAndLocal(t *testing.T) {
	loc := eastern(t)
	sc := NewSunCalc(testLatitude, testLongitude, loc)

	times, err := sc.GetSunEventTimes(time.Date(2024, 6, 21, 8, 0, 0, 0, loc))
	require.NoError(t, err)

	assert.True(t, times.CivilDawn.Before(times.Sunrise))
	assert.True(t, times.Sunrise.Before(times.Sunset))
	assert.True(t, times.Sunset.Before(times.CivilDusk))

	assert.Equal(t, loc, times.Sunrise.Location())
	assert.Equal(t, 21, times.Sunrise.Day())
	assert.Equal(t, 21, times.Sunset.Day())
	// Midsummer sunrise in south Florida is a little before 06:40 EDT.
	assert.Equal(t, 6, times.Sunrise.Hour())
	assert.Equal(t, 20, times.Sunset.Hour())
}

func TestSunEventsAreCachedPerDay(t *testing.T) {
	loc := eastern(t)
	sc := NewSunCalc(testLatitude, testLongitude, loc)

	morning, err := sc.GetSunEventTimes(time.Date(2024, 1, 10, 1, 0, 0, 0, loc))
	require.NoError(t, err)
	evening, err := sc.GetSunEventTimes(time.Date(2024, 1, 10, 23, 0, 0, 0, loc))
	require.NoError(t, err)

	assert.True(t, morning.Sunrise.Equal(evening.Sunrise))
	assert.Len(t, sc.cache, 1)

	sunrise, err := sc.GetSunriseTime(time.Date(2024, 1, 10, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.True(t, sunrise.Equal(morning.Sunrise))

	sunset, err := sc.GetSunsetTime(time.Date(2024, 1, 11, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, 11, sunset.Day())
	assert.Len(t, sc.cache, 2)
}
