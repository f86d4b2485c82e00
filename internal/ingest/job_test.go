package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsight/airsight/internal/ingest"
	"github.com/airsight/airsight/internal/reading"
)

// fakeProvider serves canned observations per state.
type fakeProvider struct {
	mu       sync.Mutex
	byState  map[string][]reading.Reading
	failFor  map[string]bool
	requests []string
}

func (p *fakeProvider) FetchStateObservations(_ context.Context, state string) ([]reading.Reading, int, error) {
	p.mu.Lock()
	p.requests = append(p.requests, state)
	p.mu.Unlock()

	if p.failFor[state] {
		return nil, 0, errors.New("provider unavailable")
	}
	return p.byState[state], 0, nil
}

func obs(city, state string, aqiValue int) reading.Reading {
	return reading.Reading{
		Timestamp: time.Now().Add(-10 * time.Minute),
		StationID: state + "-" + city,
		City:      city,
		State:     state,
		Pollutant: reading.PollutantPM25,
		AQI:       aqiValue,
	}
}

func TestJobRunIngestsAllStates(t *testing.T) {
	provider := &fakeProvider{
		byState: map[string][]reading.Reading{
			"CA": {obs("LA", "CA", 60), obs("SF", "CA", 40)},
			"TX": {obs("Houston", "TX", 85)},
		},
	}
	repo := reading.NewInMemoryRepository()

	job := ingest.NewJob(ingest.JobConfig{
		Provider:   provider,
		Repository: repo,
		Logger:     zerolog.Nop(),
		States:     []string{"CA", "TX"},
	})

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Empty(t, result.Failed)

	stored, err := repo.ListSince(context.Background(), time.Now().Add(-time.Hour), reading.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	lastRun, lastErr := job.Status()
	assert.False(t, lastRun.IsZero())
	assert.NoError(t, lastErr)
}

func TestJobRunDropsInvalidAQI(t *testing.T) {
	provider := &fakeProvider{
		byState: map[string][]reading.Reading{
			"CA": {obs("LA", "CA", 60), obs("SF", "CA", -5)},
		},
	}
	repo := reading.NewInMemoryRepository()

	job := ingest.NewJob(ingest.JobConfig{
		Provider:   provider,
		Repository: repo,
		Logger:     zerolog.Nop(),
		States:     []string{"CA"},
	})

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Dropped)
}

func TestJobRunPartialFailure(t *testing.T) {
	provider := &fakeProvider{
		byState: map[string][]reading.Reading{
			"CA": {obs("LA", "CA", 60)},
		},
		failFor: map[string]bool{"TX": true},
	}
	repo := reading.NewInMemoryRepository()

	job := ingest.NewJob(ingest.JobConfig{
		Provider:   provider,
		Repository: repo,
		Logger:     zerolog.Nop(),
		States:     []string{"CA", "TX"},
	})

	result, err := job.Run(context.Background())
	require.NoError(t, err, "partial failure is not a run error")
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, []string{"TX"}, result.Failed)
}

func TestJobRunTotalFailure(t *testing.T) {
	provider := &fakeProvider{
		failFor: map[string]bool{"CA": true, "TX": true},
	}

	job := ingest.NewJob(ingest.JobConfig{
		Provider:   provider,
		Repository: reading.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		States:     []string{"CA", "TX"},
	})

	_, err := job.Run(context.Background())
	require.Error(t, err)

	_, lastErr := job.Status()
	assert.Error(t, lastErr)
}

func TestJobPurge(t *testing.T) {
	repo := reading.NewInMemoryRepository()
	require.NoError(t, repo.Insert(context.Background(), []reading.Reading{
		obs("LA", "CA", 60),
		{Timestamp: time.Now().Add(-72 * time.Hour), City: "Old", State: "CA", Pollutant: reading.PollutantO3, AQI: 50},
	}))

	job := ingest.NewJob(ingest.JobConfig{
		Provider:   &fakeProvider{},
		Repository: repo,
		Logger:     zerolog.Nop(),
	})

	purged, err := job.Purge(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}
