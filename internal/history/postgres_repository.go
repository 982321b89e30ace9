package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save stores a record.
func (r *PostgresRepository) Save(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO search_history (id, place, lat, lon, country_hint, segment_count, widened_km, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Place, rec.Lat, rec.Lon, rec.CountryHint,
		rec.SegmentCount, rec.WidenedKm, rec.DurationMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting history record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, place, lat, lon, country_hint, segment_count, widened_km, duration_ms, created_at
		FROM search_history
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.Place, &rec.Lat, &rec.Lon, &rec.CountryHint,
			&rec.SegmentCount, &rec.WidenedKm, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
