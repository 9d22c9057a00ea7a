package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rentmap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rentals (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT UNIQUE,
	address    TEXT NOT NULL DEFAULT '',
	price      REAL,
	bedrooms   INTEGER,
	latitude   REAL,
	longitude  REAL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rentals_bedrooms_price ON rentals(bedrooms, price);
`

// Name returns "sqlite".
func (s *SQLiteStore) Name() string { return "sqlite" }

// Migrate creates the rentals table and index.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Fetch returns stored listings ordered by price, nulls last.
func (s *SQLiteStore) Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error) {
	query := `SELECT CAST(id AS TEXT), COALESCE(url, ''), address, price, bedrooms, latitude, longitude FROM rentals`
	var args []any
	if filter.Bedrooms != nil {
		query += ` WHERE bedrooms = ?`
		args = append(args, *filter.Bedrooms)
	}
	query += ` ORDER BY price IS NULL, price, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch listings")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RawListing
	for rows.Next() {
		var (
			l               model.RawListing
			price, lat, lng sql.NullFloat64
			bedrooms        sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.URL, &l.Address, &price, &bedrooms, &lat, &lng); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		l.Price = nullFloat(price)
		l.Latitude = nullFloat(lat)
		l.Longitude = nullFloat(lng)
		if bedrooms.Valid {
			l.Bedrooms = model.Int(int(bedrooms.Int64))
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate listings")
	}
	return out, nil
}

// Save writes listings in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, listings []model.RawListing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	upsert, err := tx.PrepareContext(ctx, `INSERT INTO rentals (url, address, price, bedrooms, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			address = excluded.address,
			price = excluded.price,
			bedrooms = excluded.bedrooms,
			latitude = excluded.latitude,
			longitude = excluded.longitude`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer upsert.Close() //nolint:errcheck

	var n int64
	for _, row := range toRows(listings) {
		res, err := upsert.ExecContext(ctx, row...)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: upsert listing")
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// Count returns the number of stored listings.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM rentals`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count listings")
	}
	return n, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float64(v.Float64)
}
