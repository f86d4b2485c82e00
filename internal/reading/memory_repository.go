package reading

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for tests and local development. Production should use
// PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	readings []Reading
}

// NewInMemoryRepository creates a new in-memory readings repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

// ListSince retrieves readings observed after the given instant, newest first.
func (r *InMemoryRepository) ListSince(_ context.Context, since time.Time, opts ListOptions) ([]Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var out []Reading
	for _, rd := range r.readings {
		if rd.Timestamp.After(since) {
			out = append(out, rd)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Insert stores a batch of readings.
func (r *InMemoryRepository) Insert(_ context.Context, batch []Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rd := range batch {
		rd.ID = r.nextID
		r.nextID++
		r.readings = append(r.readings, rd)
	}
	return nil
}

// DistinctValues returns the states, cities and pollutants on record.
func (r *InMemoryRepository) DistinctValues(_ context.Context) (Enums, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]struct{})
	cities := make(map[string]struct{})
	pollutants := make(map[Pollutant]struct{})
	for _, rd := range r.readings {
		states[rd.State] = struct{}{}
		cities[rd.City] = struct{}{}
		pollutants[rd.Pollutant] = struct{}{}
	}

	var enums Enums
	for s := range states {
		enums.States = append(enums.States, s)
	}
	for c := range cities {
		enums.Cities = append(enums.Cities, c)
	}
	for p := range pollutants {
		enums.Pollutants = append(enums.Pollutants, p)
	}
	sort.Strings(enums.States)
	sort.Strings(enums.Cities)
	sort.Slice(enums.Pollutants, func(i, j int) bool {
		return enums.Pollutants[i] < enums.Pollutants[j]
	})
	return enums, nil
}

// PurgeBefore deletes readings older than the cutoff.
func (r *InMemoryRepository) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.readings[:0]
	var purged int64
	for _, rd := range r.readings {
		if rd.Timestamp.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, rd)
	}
	r.readings = kept
	return purged, nil
}
