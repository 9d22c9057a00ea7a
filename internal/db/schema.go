package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// RentalsTable holds one row per listing.
const RentalsTable = "rentals"

// RentalsColumns is the column order used by COPY and upsert.
var RentalsColumns = []string{"url", "address", "price", "bedrooms", "latitude", "longitude"}

const rentalsDDL = `CREATE TABLE IF NOT EXISTS rentals (
	id         BIGSERIAL PRIMARY KEY,
	url        TEXT UNIQUE,
	address    TEXT NOT NULL DEFAULT '',
	price      DOUBLE PRECISION,
	bedrooms   INTEGER,
	latitude   DOUBLE PRECISION,
	longitude  DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rentals_bedrooms_price_idx ON rentals (bedrooms, price)`

// Migrate creates the rentals table if it does not exist.
func Migrate(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, rentalsDDL); err != nil {
		return eris.Wrap(err, "db: migrate rentals")
	}
	return nil
}
