// Package ingest pulls observations from the AirNow provider into the
// readings store.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/aqi"
	"github.com/airsight/airsight/internal/reading"
)

// Provider fetches current observations for one state.
type Provider interface {
	FetchStateObservations(ctx context.Context, state string) ([]reading.Reading, int, error)
}

// JobConfig holds configuration for the ingest job.
type JobConfig struct {
	Provider   Provider
	Repository reading.Repository
	Logger     zerolog.Logger

	// States are the 2-letter codes to ingest each run.
	States []string

	// Concurrency bounds parallel state fetches (default: 4).
	Concurrency int

	// Timeout bounds one state's fetch-and-store (default: 30s).
	Timeout time.Duration
}

// Job ingests provider observations for a set of states.
type Job struct {
	provider    Provider
	repo        reading.Repository
	logger      zerolog.Logger
	states      []string
	concurrency int
	timeout     time.Duration

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// NewJob creates a new ingest job.
func NewJob(cfg JobConfig) *Job {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Job{
		provider:    cfg.Provider,
		repo:        cfg.Repository,
		logger:      cfg.Logger,
		states:      cfg.States,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// Result summarizes one ingest run.
type Result struct {
	StartTime time.Time
	Duration  time.Duration
	States    int
	Inserted  int
	Dropped   int
	Failed    []string
}

// Run fetches observations for every configured state and stores them.
// Failures are per-state; a run only errors when every state fails.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{StartTime: start, States: len(j.states)}

	j.logger.Info().
		Int("states", len(j.states)).
		Int("concurrency", j.concurrency).
		Msg("starting ingest run")

	statesChan := make(chan string, len(j.states))
	resultsChan := make(chan stateResult, len(j.states))

	var wg sync.WaitGroup
	for i := 0; i < j.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for state := range statesChan {
				resultsChan <- j.ingestState(ctx, state)
			}
		}()
	}

	for _, s := range j.states {
		statesChan <- s
	}
	close(statesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for sr := range resultsChan {
		result.Inserted += sr.inserted
		result.Dropped += sr.dropped
		if sr.err != nil {
			result.Failed = append(result.Failed, sr.state)
		}
	}

	result.Duration = time.Since(start)

	var runErr error
	if len(result.Failed) == len(j.states) && len(j.states) > 0 {
		runErr = fmt.Errorf("ingest failed for all %d states", len(j.states))
	}

	j.mu.Lock()
	j.lastRun = time.Now()
	j.lastErr = runErr
	j.mu.Unlock()

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("inserted", result.Inserted).
		Int("dropped", result.Dropped).
		Strs("failed_states", result.Failed).
		Msg("ingest run completed")

	return result, runErr
}

type stateResult struct {
	state    string
	inserted int
	dropped  int
	err      error
}

func (j *Job) ingestState(ctx context.Context, state string) stateResult {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	readings, dropped, err := j.provider.FetchStateObservations(ctx, state)
	if err != nil {
		j.logger.Error().Err(err).Str("state", state).Msg("fetch failed")
		return stateResult{state: state, err: err}
	}

	// Re-validate AQI values before they reach the store. The provider
	// already drops structurally bad rows; this guards the numeric range.
	valid := readings[:0]
	for _, r := range readings {
		if _, err := aqi.Classify(r.AQI); err != nil {
			dropped++
			continue
		}
		valid = append(valid, r)
	}

	if err := j.repo.Insert(ctx, valid); err != nil {
		j.logger.Error().Err(err).Str("state", state).Msg("insert failed")
		return stateResult{state: state, dropped: dropped, err: err}
	}

	return stateResult{state: state, inserted: len(valid), dropped: dropped}
}

// Purge deletes readings older than the cutoff.
func (j *Job) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	purged, err := j.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		j.logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("old readings purged")
	}
	return purged, nil
}

// Status reports the last run outcome.
func (j *Job) Status() (lastRun time.Time, lastErr error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun, j.lastErr
}
