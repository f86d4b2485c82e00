package reading_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/reading"
)

// failingRepository wraps an inner repository and fails ListSince on demand.
type failingRepository struct {
	mu    sync.Mutex
	inner reading.Repository
	fail  bool
	calls int
}

func (f *failingRepository) ListSince(ctx context.Context, since time.Time, opts reading.ListOptions) ([]reading.Reading, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("store down")
	}
	return f.inner.ListSince(ctx, since, opts)
}

func (f *failingRepository) Insert(ctx context.Context, batch []reading.Reading) error {
	return f.inner.Insert(ctx, batch)
}

func (f *failingRepository) DistinctValues(ctx context.Context) (reading.Enums, error) {
	return f.inner.DistinctValues(ctx)
}

func (f *failingRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.inner.PurgeBefore(ctx, cutoff)
}

func (f *failingRepository) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *failingRepository) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func seedRepo(t *testing.T) *reading.InMemoryRepository {
	t.Helper()
	repo := reading.NewInMemoryRepository()
	err := repo.Insert(context.Background(), []reading.Reading{
		{Timestamp: time.Now().Add(-time.Hour), City: "LA", State: "CA", Pollutant: reading.PollutantPM25, AQI: 45},
		{Timestamp: time.Now().Add(-2 * time.Hour), City: "Houston", State: "TX", Pollutant: reading.PollutantO3, AQI: 95},
	})
	require.NoError(t, err)
	return repo
}

func TestServiceSnapshotCaching(t *testing.T) {
	repo := &failingRepository{inner: seedRepo(t)}
	svc := reading.NewService(reading.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
	})

	snap, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Readings, 2)
	assert.Equal(t, 1, repo.callCount())

	// Second call inside the TTL hits the cache.
	snap2, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, snap2)
	assert.Equal(t, 1, repo.callCount())
}

func TestServiceStaleIfError(t *testing.T) {
	repo := &failingRepository{inner: seedRepo(t)}
	svc := reading.NewService(reading.ServiceConfig{
		Repository:      repo,
		Logger:          zerolog.Nop(),
		CacheTTL:        time.Minute,
		StaleIfErrorTTL: time.Hour,
	})

	_, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)

	repo.setFail(true)
	require.NoError(t, svc.RefreshSnapshot(context.Background()), "stale snapshot should mask the store error")

	snap, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Readings, 2)
}

func TestServiceErrorWithoutStaleData(t *testing.T) {
	repo := &failingRepository{inner: seedRepo(t), fail: true}
	svc := reading.NewService(reading.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
	})

	_, err := svc.GetSnapshot(context.Background())
	require.Error(t, err)
}

func TestServiceRefreshInvalidatesCache(t *testing.T) {
	inner := seedRepo(t)
	repo := &failingRepository{inner: inner}
	svc := reading.NewService(reading.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Hour,
	})

	_, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)

	require.NoError(t, inner.Insert(context.Background(), []reading.Reading{
		{Timestamp: time.Now().Add(-time.Minute), City: "SF", State: "CA", Pollutant: reading.PollutantPM10, AQI: 30},
	}))

	require.NoError(t, svc.RefreshSnapshot(context.Background()))

	snap, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Readings, 3)
}

func TestServicePurge(t *testing.T) {
	inner := seedRepo(t)
	svc := reading.NewService(reading.ServiceConfig{
		Repository: inner,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Hour,
	})

	_, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)

	purged, err := svc.Purge(context.Background(), time.Now().Add(-90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	snap, err := svc.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Readings, 1, "purge should drop the cached snapshot")
}

func TestInMemoryRepositoryDistinctValues(t *testing.T) {
	repo := seedRepo(t)
	enums, err := repo.DistinctValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CA", "TX"}, enums.States)
	assert.Equal(t, []string{"Houston", "LA"}, enums.Cities)
	assert.Len(t, enums.Pollutants, 2)
}

func TestInMemoryRepositoryListSinceOrdering(t *testing.T) {
	repo := seedRepo(t)
	readings, err := repo.ListSince(context.Background(), time.Now().Add(-24*time.Hour), reading.ListOptions{})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.True(t, readings[0].Timestamp.After(readings[1].Timestamp), "newest first")
	assert.NotZero(t, readings[0].ID)
}
