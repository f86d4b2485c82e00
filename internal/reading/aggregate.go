package reading

import "fmt"

// Aggregate filters readings by the given filter and groups the survivors by
// the requested key, computing count, mean AQI and max AQI per group.
//
// Groups come back in first-seen input order; Rank applies any ordering.
// An empty input or a filter that matches nothing yields an empty slice.
func Aggregate(readings []Reading, f Filter, by GroupBy) ([]Group, error) {
	switch by {
	case GroupByCity, GroupByState, GroupByPollutant:
	default:
		return nil, fmt.Errorf("aggregate: group by %q: %w", by, ErrInvalidArgument)
	}

	f, states, pollutants := f.normalized()
	cutoff := f.Now.Add(-f.Window)

	groups := []Group{}
	index := make(map[string]int)

	for _, r := range readings {
		if !r.Timestamp.After(cutoff) || r.Timestamp.After(f.Now) {
			continue
		}
		if states != nil {
			if _, ok := states[r.State]; !ok {
				continue
			}
		}
		if pollutants != nil {
			if _, ok := pollutants[r.Pollutant]; !ok {
				continue
			}
		}

		key := groupKey(r, by)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}

		g := &groups[i]
		g.Count++
		g.Readings = append(g.Readings, r)
		// Running mean keeps full precision for large windows.
		g.MeanAQI += (float64(r.AQI) - g.MeanAQI) / float64(g.Count)
		if r.AQI > g.MaxAQI || g.Count == 1 {
			g.MaxAQI = r.AQI
		}
	}

	return groups, nil
}

func groupKey(r Reading, by GroupBy) string {
	switch by {
	case GroupByState:
		return r.State
	case GroupByPollutant:
		return string(r.Pollutant)
	default:
		return r.City
	}
}

// FilterReadings returns the readings accepted by the filter, in input order.
func FilterReadings(readings []Reading, f Filter) []Reading {
	f, states, pollutants := f.normalized()
	cutoff := f.Now.Add(-f.Window)

	out := []Reading{}
	for _, r := range readings {
		if !r.Timestamp.After(cutoff) || r.Timestamp.After(f.Now) {
			continue
		}
		if states != nil {
			if _, ok := states[r.State]; !ok {
				continue
			}
		}
		if pollutants != nil {
			if _, ok := pollutants[r.Pollutant]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
