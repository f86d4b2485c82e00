package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airsight/airsight/internal/api/models"
	"github.com/airsight/airsight/internal/reading"
)

// parseFilter builds a reading.Filter from the shared query parameters
// accepted by the dashboard endpoints:
//
//	window     duration ("6h") or whole hours ("6"); defaults to 24h
//	states     comma-separated 2-letter state codes
//	pollutants comma-separated pollutant names
//
// The returned field errors are nil when the filter is valid.
func parseFilter(r *http.Request) (reading.Filter, []models.FieldError) {
	var f reading.Filter
	var fieldErrors []models.FieldError

	q := r.URL.Query()

	if raw := q.Get("window"); raw != "" {
		window, err := parseWindow(raw)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:  "window",
				Message: "must be a duration between 1h and 48h",
			})
		} else {
			f.Window = window
		}
	}

	if raw := q.Get("states"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if len(s) != 2 {
				fieldErrors = append(fieldErrors, models.FieldError{
					Field:  "states",
					Message: "state codes must be 2 letters: " + s,
				})
				continue
			}
			f.States = append(f.States, s)
		}
	}

	if raw := q.Get("pollutants"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			p, err := reading.ParsePollutant(strings.TrimSpace(s))
			if err != nil {
				fieldErrors = append(fieldErrors, models.FieldError{
					Field:  "pollutants",
					Message: "unknown pollutant: " + s,
				})
				continue
			}
			f.Pollutants = append(f.Pollutants, p)
		}
	}

	if fieldErrors != nil {
		return f, fieldErrors
	}

	if err := f.Validate(); err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:  "window",
			Message: "must be between 1h and 48h",
		})
	}

	return f, fieldErrors
}

// parseWindow accepts either a Go duration string or a bare hour count.
func parseWindow(raw string) (time.Duration, error) {
	if hours, err := strconv.Atoi(raw); err == nil {
		return time.Duration(hours) * time.Hour, nil
	}
	return time.ParseDuration(raw)
}

// queryDefault returns the query parameter value or a default.
func queryDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}
