package reading

import (
	"sort"

	"github.com/airsight/airsight/internal/aqi"
)

// CategoryCount is the share of filtered readings falling in one AQI category.
type CategoryCount struct {
	Category aqi.CategoryName `json:"category"`
	Color    string           `json:"color"`
	Count    int              `json:"count"`
	Percent  float64          `json:"percent"`
}

// Distribution counts filtered readings per AQI category, ordered by
// severity. Categories with no readings are included with a zero count so
// the histogram axis stays stable across refreshes.
func Distribution(readings []Reading, f Filter) []CategoryCount {
	filtered := FilterReadings(readings, f)

	counts := make(map[aqi.CategoryName]int)
	total := 0
	for _, r := range filtered {
		cat, err := aqi.Classify(r.AQI)
		if err != nil {
			// Negative AQI never passes adapter validation; skip defensively.
			continue
		}
		counts[cat.Name]++
		total++
	}

	out := make([]CategoryCount, 0, 6)
	for _, cat := range aqi.Categories() {
		cc := CategoryCount{Category: cat.Name, Color: cat.Color, Count: counts[cat.Name]}
		if total > 0 {
			cc.Percent = float64(cc.Count) / float64(total) * 100
		}
		out = append(out, cc)
	}
	return out
}

// Summary holds the dashboard's headline metrics for a filtered window.
type Summary struct {
	Count    int              `json:"count"`
	MeanAQI  float64          `json:"meanAqi"`
	MaxAQI   int              `json:"maxAqi"`
	Category aqi.CategoryName `json:"category"`
	Cities   int              `json:"cities"`
	States   int              `json:"states"`
}

// Overview computes the headline metrics over the filtered readings.
// Category classifies the rounded mean the same way the per-reading
// classifier does.
func Overview(readings []Reading, f Filter) Summary {
	filtered := FilterReadings(readings, f)
	if len(filtered) == 0 {
		return Summary{}
	}

	cities := make(map[string]struct{})
	states := make(map[string]struct{})
	s := Summary{Count: len(filtered)}

	for i, r := range filtered {
		s.MeanAQI += (float64(r.AQI) - s.MeanAQI) / float64(i+1)
		if r.AQI > s.MaxAQI {
			s.MaxAQI = r.AQI
		}
		cities[r.City] = struct{}{}
		states[r.State] = struct{}{}
	}
	s.Cities = len(cities)
	s.States = len(states)

	if cat, err := aqi.Classify(int(s.MeanAQI + 0.5)); err == nil {
		s.Category = cat.Name
	}
	return s
}

// LatestByCity returns the most recent filtered reading per city, ordered by
// city name. This backs the map view, which plots one marker per city.
func LatestByCity(readings []Reading, f Filter) []Reading {
	filtered := FilterReadings(readings, f)

	latest := make(map[string]Reading)
	for _, r := range filtered {
		cur, ok := latest[r.City]
		if !ok || r.Timestamp.After(cur.Timestamp) {
			latest[r.City] = r
		}
	}

	out := make([]Reading, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}
