// Package model holds the shared records that flow between listing sources,
// the grid assigner and the heat-map service.
package model

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/paulmach/orb"
)

// RawListing is a rental listing as it comes out of a source. Every field
// except Address may be missing.
type RawListing struct {
	ID        string   `json:"id,omitempty" db:"id"`
	Price     *float64 `json:"price" db:"price"`
	Address   string   `json:"address" db:"address"`
	Bedrooms  *int     `json:"bedrooms,omitempty" db:"bedrooms"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	URL       string   `json:"url,omitempty" db:"url"`
}

// ValidPrice returns the price when it is present, finite and positive.
func (l RawListing) ValidPrice() (float64, bool) {
	if l.Price == nil {
		return 0, false
	}
	p := *l.Price
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}
	return p, true
}

// HasCoordinates reports whether both coordinates are present, whether or
// not they are valid.
func (l RawListing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Location returns the listing position as [lng, lat]. ok is false when
// either coordinate is missing, non-finite or out of range.
func (l RawListing) Location() (p orb.Point, ok bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return orb.Point{}, false
	}
	lat, lng := *l.Latitude, *l.Longitude
	if !finite(lat) || !finite(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lng, lat}, true
}

// Filter narrows a listing fetch.
type Filter struct {
	// Bedrooms selects listings with exactly this many bedrooms; nil means all.
	Bedrooms *int
}

// Matches reports whether l passes the filter.
func (f Filter) Matches(l RawListing) bool {
	if f.Bedrooms == nil {
		return true
	}
	return l.Bedrooms != nil && *l.Bedrooms == *f.Bedrooms
}

// Key is a stable cache key for the filter.
func (f Filter) Key() string {
	if f.Bedrooms == nil {
		return "all"
	}
	return "br" + strconv.Itoa(*f.Bedrooms)
}

// SortByPrice orders listings by ascending price in place. Listings without
// a price go last; ties keep their input order.
func SortByPrice(listings []RawListing) {
	slices.SortStableFunc(listings, func(a, b RawListing) int {
		switch {
		case a.Price == nil && b.Price == nil:
			return 0
		case a.Price == nil:
			return 1
		case b.Price == nil:
			return -1
		}
		return cmp.Compare(*a.Price, *b.Price)
	})
}

// Float64 and Int return pointers for building listings in code and tests.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
