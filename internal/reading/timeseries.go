package reading

import (
	"sort"
	"time"
)

// Bucket is one hourly point of a time series.
type Bucket struct {
	Hour      time.Time `json:"hour"`
	Pollutant Pollutant `json:"pollutant"`
	MeanAQI   float64   `json:"meanAqi"`
	Count     int       `json:"count"`
}

// HourlySeries buckets filtered readings by hour and pollutant and computes
// the mean AQI per bucket. An empty pollutant includes all pollutants;
// otherwise the series is restricted to that one. Buckets are ordered by
// hour ascending, then pollutant, so charts render without consumer sorting.
func HourlySeries(readings []Reading, f Filter, pollutant Pollutant) []Bucket {
	if pollutant != "" {
		f.Pollutants = []Pollutant{pollutant}
	}
	filtered := FilterReadings(readings, f)

	type bucketKey struct {
		hour      time.Time
		pollutant Pollutant
	}

	sums := make(map[bucketKey]*Bucket)
	for _, r := range filtered {
		k := bucketKey{r.Timestamp.Truncate(time.Hour), r.Pollutant}
		b, ok := sums[k]
		if !ok {
			b = &Bucket{Hour: k.hour, Pollutant: k.pollutant}
			sums[k] = b
		}
		b.Count++
		b.MeanAQI += (float64(r.AQI) - b.MeanAQI) / float64(b.Count)
	}

	series := make([]Bucket, 0, len(sums))
	for _, b := range sums {
		series = append(series, *b)
	}
	sort.Slice(series, func(i, j int) bool {
		if !series[i].Hour.Equal(series[j].Hour) {
			return series[i].Hour.Before(series[j].Hour)
		}
		return series[i].Pollutant < series[j].Pollutant
	})
	return series
}
