package reading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is a point-in-time copy of the readings the dashboard works on.
// The pure transforms in this package consume it without touching the store.
type Snapshot struct {
	Readings  []Reading
	FetchedAt time.Time
}

// ServiceConfig holds configuration for the readings service.
type ServiceConfig struct {
	// Repository is the readings store adapter.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a snapshot stays fresh (default: 60 seconds,
	// the dashboard's refresh cadence).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving a stale snapshot when the store is
	// unreachable (default: 10 minutes).
	StaleIfErrorTTL time.Duration

	// SnapshotWindow is how far back a snapshot reaches. It must cover the
	// widest filter window callers may ask for (default: MaxWindow).
	SnapshotWindow time.Duration
}

// Service serves windowed reading snapshots with caching.
type Service struct {
	repo            Repository
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	window          time.Duration

	mu          sync.RWMutex
	snapshot    *Snapshot
	cacheExpiry time.Time
}

// NewService creates a new readings service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 60 * time.Second
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 10 * time.Minute
	}

	window := cfg.SnapshotWindow
	if window == 0 {
		window = MaxWindow
	}

	return &Service{
		repo:            cfg.Repository,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		window:          window,
	}
}

// GetSnapshot returns the current snapshot, refreshing it from the store
// when the cache has expired.
func (s *Service) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	if s.snapshot != nil && time.Now().Before(s.cacheExpiry) {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	return s.refreshSnapshot(ctx)
}

// RefreshSnapshot forces a cache refresh.
func (s *Service) RefreshSnapshot(ctx context.Context) error {
	s.mu.Lock()
	s.cacheExpiry = time.Time{}
	s.mu.Unlock()

	_, err := s.refreshSnapshot(ctx)
	return err
}

// InvalidateCache clears the cached snapshot.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.cacheExpiry = time.Time{}
}

// Enums returns the distinct filter values on record. Not cached: the query
// is cheap and the pickers tolerate a round trip.
func (s *Service) Enums(ctx context.Context) (Enums, error) {
	return s.repo.DistinctValues(ctx)
}

// Purge deletes readings older than the cutoff and drops the cache so the
// next snapshot reflects the deletion.
func (s *Service) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	purged, err := s.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.InvalidateCache()
	return purged, nil
}

func (s *Service) refreshSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	if s.snapshot != nil && time.Now().Before(s.cacheExpiry) {
		return s.snapshot, nil
	}

	since := time.Now().Add(-s.window)
	readings, err := s.repo.ListSince(ctx, since, ListOptions{})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to refresh readings snapshot")

		if s.snapshot != nil && time.Now().Before(s.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", s.snapshot.FetchedAt).
				Msg("serving stale readings snapshot due to store error")
			return s.snapshot, nil
		}
		return nil, err
	}

	s.snapshot = &Snapshot{Readings: readings, FetchedAt: time.Now()}
	s.cacheExpiry = time.Now().Add(s.cacheTTL)

	s.logger.Debug().
		Int("readings", len(readings)).
		Time("expires_at", s.cacheExpiry).
		Msg("readings snapshot refreshed")

	return s.snapshot, nil
}
