package reading

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 5000

// PostgresRepository is a PostgreSQL implementation of Repository backed by
// the readings table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL readings repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListSince retrieves readings observed after the given instant, newest first.
func (r *PostgresRepository) ListSince(ctx context.Context, since time.Time, opts ListOptions) ([]Reading, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT
			id, observed_at, station_id, city, state,
			lat, lon, pollutant, value, aqi
		FROM readings
		WHERE observed_at > $1 AND aqi IS NOT NULL
		ORDER BY observed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var rd Reading
		err := rows.Scan(
			&rd.ID,
			&rd.Timestamp,
			&rd.StationID,
			&rd.City,
			&rd.State,
			&rd.Lat,
			&rd.Lon,
			&rd.Pollutant,
			&rd.Value,
			&rd.AQI,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, rd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}

	return readings, nil
}

// Insert stores a batch of readings using a single batched round trip.
func (r *PostgresRepository) Insert(ctx context.Context, batch []Reading) error {
	if len(batch) == 0 {
		return nil
	}

	query := `
		INSERT INTO readings (
			observed_at, station_id, city, state,
			lat, lon, pollutant, value, aqi
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	b := &pgx.Batch{}
	for _, rd := range batch {
		b.Queue(query,
			rd.Timestamp,
			rd.StationID,
			rd.City,
			rd.State,
			rd.Lat,
			rd.Lon,
			rd.Pollutant,
			rd.Value,
			rd.AQI,
		)
	}

	results := r.pool.SendBatch(ctx, b)
	defer results.Close()

	for range batch {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}
	}
	return nil
}

// DistinctValues returns the states, cities and pollutants on record.
func (r *PostgresRepository) DistinctValues(ctx context.Context) (Enums, error) {
	var enums Enums

	states, err := r.distinctStrings(ctx, `SELECT DISTINCT state FROM readings ORDER BY state`)
	if err != nil {
		return Enums{}, fmt.Errorf("distinct states: %w", err)
	}
	enums.States = states

	cities, err := r.distinctStrings(ctx, `SELECT DISTINCT city FROM readings ORDER BY city`)
	if err != nil {
		return Enums{}, fmt.Errorf("distinct cities: %w", err)
	}
	enums.Cities = cities

	pollutants, err := r.distinctStrings(ctx, `SELECT DISTINCT pollutant FROM readings ORDER BY pollutant`)
	if err != nil {
		return Enums{}, fmt.Errorf("distinct pollutants: %w", err)
	}
	for _, p := range pollutants {
		enums.Pollutants = append(enums.Pollutants, Pollutant(p))
	}

	return enums, nil
}

func (r *PostgresRepository) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// PurgeBefore deletes readings older than the cutoff.
func (r *PostgresRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM readings WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge readings: %w", err)
	}
	return tag.RowsAffected(), nil
}
