package reading

import (
	"context"
	"time"
)

// ListOptions bounds repository list queries.
type ListOptions struct {
	// Limit caps returned rows; <= 0 means the repository default.
	Limit int
}

// Enums holds the distinct values present in the store, for filter pickers.
type Enums struct {
	States     []string
	Cities     []string
	Pollutants []Pollutant
}

// Repository is the readings store adapter. Implementations return rows
// already validated for shape; AQI range validation stays in this package.
type Repository interface {
	// ListSince retrieves readings observed after the given instant,
	// newest first.
	ListSince(ctx context.Context, since time.Time, opts ListOptions) ([]Reading, error)

	// Insert stores a batch of readings.
	Insert(ctx context.Context, batch []Reading) error

	// DistinctValues returns the states, cities and pollutants on record.
	DistinctValues(ctx context.Context) (Enums, error)

	// PurgeBefore deletes readings older than the cutoff and reports how
	// many rows went away.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
