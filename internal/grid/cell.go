// Package grid lays a square lattice over a city boundary and aggregates
// listing prices into its cells.
package grid

import (
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference of every cell geometry (WGS 84).
const SRID = 4326

// Aggregate is the per-cell price summary.
type Aggregate struct {
	Price        int    `json:"price"`
	Count        int    `json:"count"`
	PriceDisplay string `json:"price_display"`
}

// Cell is one lattice square. Bounds is the padded, closed outline used for
// rendering; assignment uses the unpadded square around Center.
type Cell struct {
	Row          int       `json:"row"`
	Col          int       `json:"col"`
	Center       orb.Point `json:"center"` // [lng, lat]
	Bounds       orb.Ring  `json:"bounds"`
	Neighborhood string    `json:"neighborhood"`
	Aggregate    Aggregate `json:"aggregate"`
}

// ID is the stable "row_col" identifier of the cell.
func (c Cell) ID() string {
	return itoa(c.Row) + "_" + itoa(c.Col)
}

// Polygon converts the padded outline to a go-geom polygon.
func (c Cell) Polygon() *geom.Polygon {
	coords := make([]geom.Coord, len(c.Bounds))
	for i, p := range c.Bounds {
		coords[i] = geom.Coord{p.Lon(), p.Lat()}
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{coords}).SetSRID(SRID)
}

// EWKB encodes the padded outline as little-endian EWKB with SRID 4326,
// ready for a PostGIS geometry column.
func (c Cell) EWKB() ([]byte, error) {
	return ewkb.Marshal(c.Polygon(), ewkb.NDR)
}
