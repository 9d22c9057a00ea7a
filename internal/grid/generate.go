package grid

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/geo"
)

// Spec describes the lattice to generate.
type Spec struct {
	// Extent is the lattice bounding box; Min is the south-west corner.
	Extent orb.Bound
	// CellSize is the cell edge in degrees.
	CellSize float64
	// Overlap is the fraction of CellSize each rendered cell is widened by.
	Overlap float64
	// Boundary filters out cells whose center is not on land.
	Boundary *geo.Boundary
	// Ladder labels each kept cell.
	Ladder geo.Ladder
}

// Validate reports configuration errors wrapping geo.ErrConfiguration.
func (s Spec) Validate() error {
	if s.Boundary == nil {
		return eris.Wrap(geo.ErrConfiguration, "grid: boundary is required")
	}
	if !(s.CellSize > 0) || math.IsInf(s.CellSize, 0) {
		return eris.Wrapf(geo.ErrConfiguration, "grid: cell size must be positive, got %v", s.CellSize)
	}
	if !(s.Overlap >= 0) || math.IsInf(s.Overlap, 0) {
		return eris.Wrapf(geo.ErrConfiguration, "grid: overlap must not be negative, got %v", s.Overlap)
	}
	if !(s.Extent.Min.Lat() < s.Extent.Max.Lat()) || !(s.Extent.Min.Lon() < s.Extent.Max.Lon()) {
		return eris.Wrap(geo.ErrConfiguration, "grid: extent is empty or inverted")
	}
	if err := s.Ladder.Validate(); err != nil {
		return eris.Wrap(err, "grid: ladder")
	}
	return nil
}

// Generate returns every lattice cell whose center lies inside the boundary,
// in row-major order (south to north, west to east). Output depends only on
// the spec.
func Generate(s Spec) ([]Cell, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	minLat, maxLat := s.Extent.Min.Lat(), s.Extent.Max.Lat()
	minLng, maxLng := s.Extent.Min.Lon(), s.Extent.Max.Lon()
	size := s.CellSize
	half := size / 2
	pad := s.Overlap * size / 2

	var cells []Cell
	rows, cols := 0, 0
	for r := 0; ; r++ {
		lat := minLat + float64(r)*size
		if lat >= maxLat {
			break
		}
		rows++
		cols = 0
		for c := 0; ; c++ {
			lng := minLng + float64(c)*size
			if lng >= maxLng {
				break
			}
			cols++
			center := orb.Point{lng + half, lat + half}
			if !s.Boundary.Contains(center) {
				continue
			}
			cells = append(cells, Cell{
				Row:          r,
				Col:          c,
				Center:       center,
				Bounds:       square(lat-pad, lng-pad, lat+size+pad, lng+size+pad),
				Neighborhood: s.Ladder.Classify(center.Lat(), center.Lon()),
			})
		}
	}

	zap.L().Debug("grid generated",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("cells", len(cells)),
		zap.Float64("cell_size", size),
	)
	return cells, nil
}

// square returns a closed counter-clockwise ring.
func square(south, west, north, east float64) orb.Ring {
	return orb.Ring{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
