package tide

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecovision/mantaview/internal/conf"
)

type recordedFetch struct {
	station string
	status  string
}

type fakeRecorder struct {
	mu      sync.Mutex
	fetches []recordedFetch
}

func (r *fakeRecorder) RecordTideFetch(station, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, recordedFetch{station, status})
}

type panicFetcher struct{}

func (panicFetcher) FetchTide(context.Context, string, DateRange) ([]Prediction, error) {
	panic("decoder exploded")
}

func TestFetchAllIsolatesFailingStation(t *testing.T) {
	c, mock := newMockedClient(t)
	ok := `{"predictions":[{"t":"2024-06-01 00:00","v":"1.5"}]}`

	mock.RegisterResponder(http.MethodGet, testEndpoint, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Query().Get("station") {
		case "8723214":
			return httpmock.NewStringResponse(http.StatusInternalServerError, ""), nil
		case "8722670":
			return httpmock.NewStringResponse(http.StatusOK, ok), nil
		default:
			return httpmock.NewStringResponse(http.StatusOK, `{"predictions":[]}`), nil
		}
	})

	recorder := &fakeRecorder{}
	l := NewLookup(c, DefaultStations, WithRecorder(recorder))

	results := l.FetchAll(context.Background(), time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.Len(t, results, 3)

	assert.Equal(t, "Miami Beach", results[0].Station.Name)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "500")
	assert.Empty(t, results[0].Predictions)

	assert.Equal(t, StatusOK, results[1].Status)
	assert.Len(t, results[1].Predictions, 1)
	assert.Empty(t, results[1].Error)

	assert.Equal(t, StatusNoData, results[2].Status)
	assert.Equal(t, "no data for Satellite Beach", results[2].Error)

	assert.Equal(t, []recordedFetch{
		{"8723214", "error"},
		{"8722670", "ok"},
		{"8721604", "no_data"},
	}, recorder.fetches)
}

func TestFetchAllRecoversFromPanic(t *testing.T) {
	l := NewLookup(panicFetcher{}, DefaultStations[:2])

	results := l.FetchAll(context.Background(), time.Now())

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, StatusFailed, res.Status)
		assert.Contains(t, res.Error, "decoder exploded")
	}
}

func TestFetchAllAddsSunEvents(t *testing.T) {
	c, mock := newMockedClient(t)
	mock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"predictions":[{"t":"2024-06-01 00:00","v":"1.5"}]}`))

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	l := NewLookup(c, DefaultStations[:1], WithSunEvents(loc))

	results := l.FetchAll(context.Background(), time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Sun)
	assert.True(t, results[0].Sun.Sunrise.Before(results[0].Sun.Sunset))
	assert.Equal(t, 1, results[0].Sun.Sunrise.Day())
}

func TestStationsFromSettings(t *testing.T) {
	assert.Equal(t, DefaultStations, StationsFromSettings(&conf.TideSettings{}))

	got := StationsFromSettings(&conf.TideSettings{Stations: []conf.TideStation{
		{Name: "Juno Beach", ID: "8722588", Latitude: 26.88, Longitude: -80.05},
	}})
	assert.Equal(t, []Station{{Name: "Juno Beach", ID: "8722588", Latitude: 26.88, Longitude: -80.05}}, got)
}
