package listing

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/sells-group/rentmap/internal/grid"
	"github.com/sells-group/rentmap/internal/model"
)

// RentBand adds Premium to listings south of Below.
type RentBand struct {
	Below   float64
	Premium float64
}

// RentModel prices a synthetic listing from its position: base rent plus a
// latitude band premium plus a west or east premium, varied by up to
// +/- Variation/2 and clamped to [Min, Max].
type RentModel struct {
	Base        float64
	Bands       []RentBand
	TopPremium  float64
	WestLng     float64
	WestPremium float64
	EastLng     float64
	EastPremium float64
	Variation   float64
	Min, Max    float64
}

// ManhattanRents is the rent model for the built-in Manhattan profile.
func ManhattanRents() RentModel {
	return RentModel{
		Base: 3000,
		Bands: []RentBand{
			{Below: 40.7359, Premium: 2000}, // below 14th St
			{Below: 40.7831, Premium: 2500}, // Midtown
			{Below: 40.7956, Premium: 1500}, // Upper East and West
		},
		TopPremium:  500,
		WestLng:     -73.99,
		WestPremium: 800,
		EastLng:     -73.96,
		EastPremium: 600,
		Variation:   1000,
		Min:         1800,
		Max:         8000,
	}
}

// Rent prices a listing at (lat, lng). u is a uniform sample in [0, 1).
func (m RentModel) Rent(lat, lng, u float64) int {
	rent := m.Base + m.TopPremium
	for _, b := range m.Bands {
		if lat < b.Below {
			rent = m.Base + b.Premium
			break
		}
	}
	switch {
	case lng < m.WestLng:
		rent += m.WestPremium
	case lng > m.EastLng:
		rent += m.EastPremium
	}
	rent += (u - 0.5) * m.Variation
	return int(math.Max(m.Min, math.Min(m.Max, math.Round(rent))))
}

// MaxPerCell bounds how many synthetic listings land in one cell.
const MaxPerCell = 15

// Synthetic generates a deterministic dataset over a set of cells: between
// 1 and MaxPerCell listings per cell, each at the cell center and priced by
// the rent model. The same seed and filter always give the same listings.
type Synthetic struct {
	cells []grid.Cell
	rents RentModel
	seed  uint64
}

// NewSynthetic builds the fallback source for cells.
func NewSynthetic(cells []grid.Cell, rents RentModel, seed uint64) *Synthetic {
	return &Synthetic{cells: cells, rents: rents, seed: seed}
}

// Name identifies the fallback in logs.
func (s *Synthetic) Name() string { return "synthetic" }

// Fetch generates listings for every cell. The same seed and filter always
// yield the same batch; each bedroom filter draws from its own stream.
func (s *Synthetic) Fetch(ctx context.Context, filter model.Filter) ([]model.RawListing, error) {
	stream := s.seed
	if filter.Bedrooms != nil {
		stream += uint64(*filter.Bedrooms) + 1
	}
	rng := rand.New(rand.NewPCG(s.seed, stream))

	var out []model.RawListing
	for _, c := range s.cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lat, lng := c.Center.Lat(), c.Center.Lon()
		n := 1 + rng.IntN(MaxPerCell)
		for i := range n {
			beds := i % 4
			if filter.Bedrooms != nil {
				beds = *filter.Bedrooms
			}
			out = append(out, model.RawListing{
				ID:        "synthetic-" + c.ID() + "-" + strconv.Itoa(i),
				Price:     model.Float64(float64(s.rents.Rent(lat, lng, rng.Float64()))),
				Address:   c.Neighborhood,
				Bedrooms:  model.Int(beds),
				Latitude:  model.Float64(lat),
				Longitude: model.Float64(lng),
			})
		}
	}
	model.SortByPrice(out)
	return out, nil
}
