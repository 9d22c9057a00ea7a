package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rentmap/internal/db"
	"github.com/sells-group/rentmap/internal/model"
)

// PostgresStore implements Store on the rentals table.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects a pool and wraps it.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, maxConns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Close does not close it.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Name returns "postgres".
func (s *PostgresStore) Name() string { return "postgres" }

// Migrate applies the rentals schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return eris.Wrap(db.Migrate(ctx, s.pool), "postgres: migrate")
}

// Close releases the pool if the store opened it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const selectListings = `SELECT id::text, COALESCE(url, ''), address, price, bedrooms, latitude, longitude FROM rentals`

// Fetch returns stored listings ordered by price, nulls last.
func (s *PostgresStore) Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error) {
	query := selectListings
	var args []any
	if filter.Bedrooms != nil {
		query += ` WHERE bedrooms = $1`
		args = append(args, *filter.Bedrooms)
	}
	query += ` ORDER BY price ASC NULLS LAST, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch listings")
	}
	defer rows.Close()

	var out []model.RawListing
	for rows.Next() {
		var l model.RawListing
		if err := rows.Scan(&l.ID, &l.URL, &l.Address, &l.Price, &l.Bedrooms, &l.Latitude, &l.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate listings")
	}
	return out, nil
}

// Save upserts listings keyed by URL and bulk-copies the rest.
func (s *PostgresStore) Save(ctx context.Context, listings []model.RawListing) (int64, error) {
	keyed, unkeyed := partition(listings)

	upserted, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        db.RentalsTable,
		Columns:      db.RentalsColumns,
		ConflictKeys: []string{"url"},
	}, toRows(keyed))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert listings")
	}

	copied, err := db.CopyFrom(ctx, s.pool, db.RentalsTable, db.RentalsColumns, toRows(unkeyed))
	if err != nil {
		return upserted, eris.Wrap(err, "postgres: copy listings")
	}
	return upserted + copied, nil
}

// Count returns the number of stored listings.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM rentals`).Scan(&n); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, eris.Wrap(err, "postgres: count listings")
	}
	return n, nil
}

// toRows orders values as db.RentalsColumns.
func toRows(listings []model.RawListing) [][]any {
	if len(listings) == 0 {
		return nil
	}
	rows := make([][]any, len(listings))
	for i, l := range listings {
		var url any
		if l.URL != "" {
			url = l.URL
		}
		rows[i] = []any{url, l.Address, l.Price, l.Bedrooms, l.Latitude, l.Longitude}
	}
	return rows
}
