// Package reading provides sensor reading models and the pure aggregation,
// ranking and time-series transforms the dashboard API is built on.
package reading

import (
	"errors"
	"strings"
	"time"
)

// Package errors.
var (
	// ErrInvalidArgument is returned for unrecognized enum values and
	// non-positive top-N requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoReadings is returned by repositories when a lookup matches nothing.
	ErrNoReadings = errors.New("no readings found")
)

// Pollutant identifies the measured pollutant.
type Pollutant string

const (
	PollutantPM25 Pollutant = "PM2.5"
	PollutantO3   Pollutant = "O3"
	PollutantPM10 Pollutant = "PM10"
)

// Pollutants lists all known pollutants in display order.
func Pollutants() []Pollutant {
	return []Pollutant{PollutantPM25, PollutantO3, PollutantPM10}
}

// ParsePollutant converts a wire string into a Pollutant. Matching is
// case-insensitive and accepts the dotless PM25 spelling.
func ParsePollutant(s string) (Pollutant, error) {
	switch strings.ToUpper(s) {
	case "PM2.5", "PM25":
		return PollutantPM25, nil
	case "O3":
		return PollutantO3, nil
	case "PM10":
		return PollutantPM10, nil
	}
	return "", ErrInvalidArgument
}

// Reading is a single sensor observation. Immutable once ingested.
type Reading struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	StationID string    `json:"stationId"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Pollutant Pollutant `json:"pollutant"`
	Value     float64   `json:"value"`
	AQI       int       `json:"aqi"`
}

// Filter selects readings by time window, state and pollutant.
// Zero-length sets mean "all". Passed by value; never retained.
type Filter struct {
	// Window bounds the accepted age of a reading, measured back from Now.
	// The valid range is 1h to 48h; zero means DefaultWindow.
	Window time.Duration

	// States restricts to the given 2-letter state codes.
	States []string

	// Pollutants restricts to the given pollutant types.
	Pollutants []Pollutant

	// Now anchors the window. Zero means time.Now().
	Now time.Time
}

// Window bounds.
const (
	MinWindow     = time.Hour
	MaxWindow     = 48 * time.Hour
	DefaultWindow = 24 * time.Hour
)

// normalized returns the filter with defaults applied and lookup sets built.
func (f Filter) normalized() (Filter, map[string]struct{}, map[Pollutant]struct{}) {
	if f.Window <= 0 {
		f.Window = DefaultWindow
	}
	if f.Now.IsZero() {
		f.Now = time.Now()
	}

	var states map[string]struct{}
	if len(f.States) > 0 {
		states = make(map[string]struct{}, len(f.States))
		for _, s := range f.States {
			states[s] = struct{}{}
		}
	}

	var pollutants map[Pollutant]struct{}
	if len(f.Pollutants) > 0 {
		pollutants = make(map[Pollutant]struct{}, len(f.Pollutants))
		for _, p := range f.Pollutants {
			pollutants[p] = struct{}{}
		}
	}

	return f, states, pollutants
}

// Validate checks the filter's window against the allowed range.
func (f Filter) Validate() error {
	if f.Window == 0 {
		return nil
	}
	if f.Window < MinWindow || f.Window > MaxWindow {
		return ErrInvalidArgument
	}
	return nil
}

// GroupBy selects the aggregation key.
type GroupBy string

const (
	GroupByCity      GroupBy = "city"
	GroupByState     GroupBy = "state"
	GroupByPollutant GroupBy = "pollutant"
)

// ParseGroupBy converts a wire string into a GroupBy.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case GroupByCity, GroupByState, GroupByPollutant:
		return GroupBy(s), nil
	}
	return "", ErrInvalidArgument
}

// Metric selects the value groups are ranked by.
type Metric string

const (
	MetricMean  Metric = "mean"
	MetricMax   Metric = "max"
	MetricCount Metric = "count"
)

// ParseMetric converts a wire string into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricMean, MetricMax, MetricCount:
		return Metric(s), nil
	}
	return "", ErrInvalidArgument
}

// Group is an aggregate over readings sharing one key. Derived, never stored.
type Group struct {
	Key      string    `json:"key"`
	Count    int       `json:"count"`
	MeanAQI  float64   `json:"meanAqi"`
	MaxAQI   int       `json:"maxAqi"`
	Readings []Reading `json:"-"`
}
