// Package heatmap turns listings into the render-ready rent heat map: it
// fetches, assigns listings to grid cells, colors the cells and serves the
// result over HTTP.
package heatmap

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rentmap/internal/city"
	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/grid"
	"github.com/sells-group/rentmap/internal/listing"
	"github.com/sells-group/rentmap/internal/model"
)

// GridSpec is the lattice spec for a validated profile.
func GridSpec(p *city.Profile) grid.Spec {
	return grid.Spec{
		Extent:   p.Extent.Bound(),
		CellSize: p.CellSize,
		Overlap:  p.Overlap,
		Boundary: p.Boundary(),
		Ladder:   p.Ladder,
	}
}

// Options tune a Service.
type Options struct {
	// Workers bounds assignment parallelism; below 2 assigns sequentially.
	Workers int
	// Seed makes address placement and synthetic data reproducible. Zero
	// leaves address placement unseeded.
	Seed uint64
	// FallbackOnMiss places listings whose coordinates miss every cell by
	// address instead of dropping them.
	FallbackOnMiss bool
	// Mode is the color regime used when a request names none.
	Mode colorscale.Mode
	// Fallback replaces the synthetic source used after an upstream failure.
	Fallback listing.Source
	// Rents prices the default synthetic fallback; nil means Manhattan.
	Rents *listing.RentModel
}

// Request selects one heat map.
type Request struct {
	Filter model.Filter
	Mode   colorscale.Mode
}

// Snapshot is one computed heat map.
type Snapshot struct {
	ID       uuid.UUID
	Source   string
	Filter   model.Filter
	Mode     colorscale.Mode
	Listings int
	Result   grid.Result
	// Scale is nil when no cell received a listing.
	Scale       colorscale.Scale
	Stats       colorscale.Stats
	View        city.View
	GeneratedAt time.Time
}

// Service builds snapshots for one city.
type Service struct {
	profile  *city.Profile
	cells    []grid.Cell
	source   listing.Source
	fallback listing.Source
	opts     Options
}

// NewService generates the city grid once and keeps it for every build.
func NewService(p *city.Profile, src listing.Source, opts Options) (*Service, error) {
	cells, err := grid.Generate(GridSpec(p))
	if err != nil {
		return nil, eris.Wrap(err, "heatmap: generate grid")
	}
	if opts.Mode == "" {
		opts.Mode = colorscale.ModeDiscrete
	}

	fallback := opts.Fallback
	if fallback == nil {
		rents := listing.ManhattanRents()
		if opts.Rents != nil {
			rents = *opts.Rents
		}
		fallback = listing.NewSynthetic(cells, rents, opts.Seed)
	}

	zap.L().Info("heat map service ready",
		zap.String("city", p.Name),
		zap.Int("cells", len(cells)),
		zap.String("source", src.Name()),
	)
	return &Service{profile: p, cells: cells, source: src, fallback: fallback, opts: opts}, nil
}

// Cells returns the generated grid.
func (s *Service) Cells() []grid.Cell { return s.cells }

// DefaultMode is the color regime used when a request names none.
func (s *Service) DefaultMode() colorscale.Mode { return s.opts.Mode }

// Build fetches listings and computes a snapshot. An upstream fetch failure
// is not an error: the synthetic fallback fills in and Snapshot.Source says
// so.
func (s *Service) Build(ctx context.Context, req Request) (*Snapshot, error) {
	mode := req.Mode
	if mode == "" {
		mode = s.opts.Mode
	}
	log := zap.L().With(zap.String("component", "heatmap"), zap.String("filter", req.Filter.Key()))

	source := s.source.Name()
	listings, err := s.source.Fetch(ctx, req.Filter)
	if errors.Is(err, listing.ErrFetch) {
		log.Warn("listing fetch failed, using fallback data", zap.String("fallback", s.fallback.Name()), zap.Error(err))
		source = s.fallback.Name()
		listings, err = s.fallback.Fetch(ctx, req.Filter)
	}
	if err != nil {
		return nil, eris.Wrap(err, "heatmap: fetch listings")
	}

	res, err := s.assigner().AssignParallel(ctx, s.cells, listings, s.opts.Workers)
	if err != nil {
		return nil, eris.Wrap(err, "heatmap: assign listings")
	}

	snap := &Snapshot{
		ID:          uuid.New(),
		Source:      source,
		Filter:      req.Filter,
		Mode:        mode,
		Listings:    len(listings),
		Result:      res,
		Stats:       colorscale.Summarize(validPrices(listings)),
		View:        s.profile.View,
		GeneratedAt: time.Now().UTC(),
	}
	if len(res.Cells) > 0 {
		prices := make([]float64, len(res.Cells))
		for i, c := range res.Cells {
			prices[i] = float64(c.Aggregate.Price)
		}
		if snap.Scale, err = colorscale.New(mode, prices, s.profile.Palettes); err != nil {
			return nil, eris.Wrap(err, "heatmap: build color scale")
		}
	}

	log.Info("heat map built",
		zap.String("snapshot_id", snap.ID.String()),
		zap.String("source", source),
		zap.Int("listings", len(listings)),
		zap.Int("assigned", res.Assigned),
		zap.Int("dropped", res.DroppedTotal()),
		zap.Int("cells", len(res.Cells)),
	)
	return snap, nil
}

// assigner is built per call; a seeded random source is not safe to share
// between concurrent builds.
func (s *Service) assigner() *grid.Assigner {
	var opts []grid.AssignerOption
	if s.opts.Seed != 0 {
		opts = append(opts, grid.WithSeed(s.opts.Seed))
	}
	if s.opts.FallbackOnMiss {
		opts = append(opts, grid.WithAddressFallbackOnMiss())
	}
	return grid.NewAssigner(s.profile.CellSize, s.profile.Ladder, s.profile.Address, opts...)
}

func validPrices(listings []model.RawListing) []float64 {
	out := make([]float64, 0, len(listings))
	for _, l := range listings {
		if p, ok := l.ValidPrice(); ok {
			out = append(out, p)
		}
	}
	return out
}
