package reading

import (
	"fmt"
	"sort"
)

// Rank orders groups by the given metric and returns at most topN of them.
// Ties keep the relative order the aggregator produced (stable sort).
// topN larger than the number of groups returns everything; topN <= 0
// fails with ErrInvalidArgument.
func Rank(groups []Group, metric Metric, topN int, descending bool) ([]Group, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("rank: top %d: %w", topN, ErrInvalidArgument)
	}

	var value func(Group) float64
	switch metric {
	case MetricMean:
		value = func(g Group) float64 { return g.MeanAQI }
	case MetricMax:
		value = func(g Group) float64 { return float64(g.MaxAQI) }
	case MetricCount:
		value = func(g Group) float64 { return float64(g.Count) }
	default:
		return nil, fmt.Errorf("rank: metric %q: %w", metric, ErrInvalidArgument)
	}

	ranked := make([]Group, len(groups))
	copy(ranked, groups)

	sort.SliceStable(ranked, func(i, j int) bool {
		if descending {
			return value(ranked[i]) > value(ranked[j])
		}
		return value(ranked[i]) < value(ranked[j])
	})

	if topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked, nil
}
