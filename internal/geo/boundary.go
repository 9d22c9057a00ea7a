// Package geo provides the boundary geometry, neighborhood classification and
// address heuristics used to build the rent grid.
//
// Coordinates are orb.Point values in GeoJSON order: X is longitude, Y is
// latitude. Functions that take separate numbers always name them lat, lng.
package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

// ErrConfiguration marks invalid static configuration: degenerate rings,
// non-positive cell sizes, empty price lists. It is fatal at construction.
var ErrConfiguration = errors.New("configuration error")

// PointInPolygon reports whether p lies inside ring using the even-odd rule:
// a horizontal ray is cast from p and the ring edges it crosses are counted.
//
// Points exactly on an edge or vertex have no defined classification. The
// ring is an approximation of a shoreline, so either answer is acceptable
// there.
func PointInPolygon(p orb.Point, ring orb.Ring) bool {
	lng, lat := p.Lon(), p.Lat()
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon(), ring[i].Lat()
		xj, yj := ring[j].Lon(), ring[j].Lat()
		if (yi > lat) != (yj > lat) &&
			lng < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Boundary is a validated, closed boundary ring.
type Boundary struct {
	ring  orb.Ring
	bound orb.Bound
}

// NewBoundary validates ring and returns an immutable Boundary. An open ring
// is closed by repeating the first vertex. Rings with fewer than three
// distinct vertices or non-finite coordinates are rejected.
func NewBoundary(ring orb.Ring) (*Boundary, error) {
	if len(ring) == 0 {
		return nil, eris.Wrap(ErrConfiguration, "geo: boundary ring is empty")
	}

	cp := make(orb.Ring, len(ring), len(ring)+1)
	copy(cp, ring)
	for _, pt := range cp {
		if !finite(pt.Lon()) || !finite(pt.Lat()) {
			return nil, eris.Wrapf(ErrConfiguration, "geo: boundary vertex %v is not finite", pt)
		}
	}
	if !cp.Closed() {
		cp = append(cp, cp[0])
	}

	distinct := make(map[orb.Point]struct{}, len(cp))
	for _, pt := range cp {
		distinct[pt] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, eris.Wrapf(ErrConfiguration, "geo: boundary ring needs at least 3 distinct vertices, got %d", len(distinct))
	}

	return &Boundary{ring: cp, bound: cp.Bound()}, nil
}

// MustBoundary is like NewBoundary but panics on error. It is meant for
// package-level literals that are known to be valid.
func MustBoundary(ring orb.Ring) *Boundary {
	b, err := NewBoundary(ring)
	if err != nil {
		panic(err)
	}
	return b
}

// Contains reports whether p is inside the boundary.
func (b *Boundary) Contains(p orb.Point) bool {
	if !b.bound.Contains(p) {
		return false
	}
	return PointInPolygon(p, b.ring)
}

// Ring returns a copy of the closed boundary ring.
func (b *Boundary) Ring() orb.Ring {
	return b.ring.Clone()
}

// Bound returns the bounding box of the ring.
func (b *Boundary) Bound() orb.Bound {
	return b.bound
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
