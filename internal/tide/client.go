// Package tide reads tide prediction series for fixed coastal stations
// from the NOAA CO-OPS data API.
package tide

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/errors"
	"github.com/ecovision/mantaview/internal/httpclient"
	"github.com/ecovision/mantaview/internal/logger"
)

const (
	dateParamLayout  = "20060102"
	predictionLayout = "2006-01-02 15:04"
	maxBodyBytes     = 4 << 20
)

// ErrNoPredictions is returned when the service answers without usable
// prediction points.
var ErrNoPredictions = errors.NewStd("no tide predictions")

// Prediction is one predicted water level.
type Prediction struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Begin time.Time
	End   time.Time
}

// TodayWindow returns the UTC day of now through the following UTC day.
func TodayWindow(now time.Time) DateRange {
	today := now.UTC().Truncate(24 * time.Hour)
	return DateRange{Begin: today, End: today.AddDate(0, 0, 1)}
}

// Params are the fixed query parameters sent with every request.
type Params struct {
	Product     string
	Datum       string
	Units       string
	TimeZone    string
	Format      string
	Application string
}

// StatusError reports a non-200 answer from the service.
type StatusError struct {
	StationID  string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tide service returned HTTP %d for station %s", e.StatusCode, e.StationID)
}

// Client fetches prediction series.
type Client struct {
	http     *httpclient.Client
	endpoint string
	params   Params
	loc      *time.Location
	log      logger.Logger
}

// NewClient returns a client querying endpoint. Prediction timestamps are
// interpreted in loc, which should match the time_zone parameter.
func NewClient(hc *httpclient.Client, endpoint string, params Params, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		http:     hc,
		endpoint: endpoint,
		params:   params,
		loc:      loc,
		log:      GetLogger(),
	}
}

// Close releases idle connections of the underlying HTTP client.
func (c *Client) Close() {
	c.http.Close()
}

// NewClientFromSettings builds a client and its HTTP transport from settings.
func NewClientFromSettings(settings *conf.Settings) (*Client, error) {
	loc, err := settings.Tides.LoadLocation()
	if err != nil {
		return nil, errors.New(err).
			Component("tide").
			Category(errors.CategoryConfiguration).
			Context("location", settings.Tides.Location).
			Build()
	}

	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Tides.Timeout,
		UserAgent:      settings.Main.Name,
	})

	return NewClient(hc, settings.Tides.Endpoint, Params{
		Product:     settings.Tides.Product,
		Datum:       settings.Tides.Datum,
		Units:       settings.Tides.Units,
		TimeZone:    settings.Tides.TimeZone,
		Format:      settings.Tides.Format,
		Application: settings.Main.Name,
	}, loc), nil
}

type predictionsResponse struct {
	Predictions []struct {
		T string `json:"t"`
		V string `json:"v"`
	} `json:"predictions"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FetchTide returns the predictions for stationID over r in time order.
// Non-200 answers are returned as *StatusError and never retried.
func (c *Client) FetchTide(ctx context.Context, stationID string, r DateRange) ([]Prediction, error) {
	reqURL := c.buildURL(stationID, r)
	start := time.Now()

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, errors.New(fmt.Errorf("fetch tide predictions: %w", err)).
			Component("tide").
			Category(errors.CategoryNetwork).
			NetworkContext(c.endpoint, c.http.Timeout()).
			Context("station", stationID).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("tide response",
		logger.String("station", stationID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, errors.New(&StatusError{StationID: stationID, StatusCode: resp.StatusCode}).
			Component("tide").
			Category(errors.CategoryHTTP).
			Context("station", stationID).
			Context("status_code", resp.StatusCode).
			Build()
	}

	var body predictionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, errors.New(fmt.Errorf("decode tide predictions: %w", err)).
			Component("tide").
			Category(errors.CategoryIntegration).
			Context("station", stationID).
			Build()
	}

	predictions := make([]Prediction, 0, len(body.Predictions))
	for _, p := range body.Predictions {
		value, ok := dataset.ParseNumber(p.V)
		if !ok {
			continue
		}
		ts, err := time.ParseInLocation(predictionLayout, p.T, c.loc)
		if err != nil {
			continue
		}
		predictions = append(predictions, Prediction{Time: ts, Value: value})
	}

	if len(predictions) == 0 {
		b := errors.New(ErrNoPredictions).
			Component("tide").
			Category(errors.CategoryNotFound).
			Context("station", stationID)
		if body.Error != nil {
			b = b.Context("service_message", body.Error.Message)
		}
		return nil, b.Build()
	}

	return predictions, nil
}

func (c *Client) buildURL(stationID string, r DateRange) string {
	q := url.Values{}
	q.Set("begin_date", r.Begin.Format(dateParamLayout))
	q.Set("end_date", r.End.Format(dateParamLayout))
	q.Set("station", stationID)
	q.Set("product", c.params.Product)
	q.Set("datum", c.params.Datum)
	q.Set("units", c.params.Units)
	q.Set("time_zone", c.params.TimeZone)
	q.Set("format", c.params.Format)
	if c.params.Application != "" {
		q.Set("application", c.params.Application)
	}
	return c.endpoint + "?" + q.Encode()
}
