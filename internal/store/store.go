// Package store persists rental listings in Postgres or SQLite and serves
// them back to the heat-map service as a listing source.
package store

import (
	"context"

	"github.com/sells-group/rentmap/internal/model"
)

// Store is a listing table. Fetch returns listings ordered by ascending
// price, unpriced rows last.
type Store interface {
	Name() string
	Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error)
	// Save inserts listings. Listings with a URL replace the stored row for
	// that URL; listings without one are always appended.
	Save(ctx context.Context, listings []model.RawListing) (int64, error)
	Count(ctx context.Context) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}

// partition splits listings into those keyed by URL and the rest.
func partition(listings []model.RawListing) (keyed, unkeyed []model.RawListing) {
	for _, l := range listings {
		if l.URL != "" {
			keyed = append(keyed, l)
		} else {
			unkeyed = append(unkeyed, l)
		}
	}
	return keyed, unkeyed
}
