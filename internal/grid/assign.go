package grid

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rentmap/internal/geo"
	"github.com/sells-group/rentmap/internal/model"
)

// DropReason says why a listing contributed to no cell.
type DropReason string

const (
	DropInvalidPrice        DropReason = "invalid_price"
	DropOutsideGrid         DropReason = "outside_grid"
	DropNoNeighborhoodCells DropReason = "no_neighborhood_cells"
)

// Rand picks the cell for a listing placed by address. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Result is the outcome of one assignment pass.
type Result struct {
	// Cells are the input cells that received at least one listing, in input
	// order, with Aggregate filled in.
	Cells []Cell
	// Assigned counts listings placed in a cell.
	Assigned int
	// ByCoordinates and ByAddress split Assigned by placement method.
	ByCoordinates int
	ByAddress     int
	// Dropped counts excluded listings per reason.
	Dropped map[DropReason]int
}

// DroppedTotal sums Dropped.
func (r Result) DroppedTotal() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

// AssignerOption configures an Assigner.
type AssignerOption func(*Assigner)

// WithRand sets the random source used for address placement.
func WithRand(r Rand) AssignerOption {
	return func(a *Assigner) { a.rand = r }
}

// WithSeed seeds a PCG source so address placement is reproducible.
func WithSeed(seed uint64) AssignerOption {
	return func(a *Assigner) { a.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithAddressFallbackOnMiss also places listings by address when their
// coordinates hit no cell, instead of dropping them as outside_grid.
func WithAddressFallbackOnMiss() AssignerOption {
	return func(a *Assigner) { a.fallbackOnMiss = true }
}

// Assigner buckets listings into grid cells.
type Assigner struct {
	cellSize       float64
	ladder         geo.Ladder
	heuristic      geo.AddressHeuristic
	rand           Rand
	fallbackOnMiss bool
}

// NewAssigner creates an Assigner for cells generated with cellSize.
func NewAssigner(cellSize float64, ladder geo.Ladder, heuristic geo.AddressHeuristic, opts ...AssignerOption) *Assigner {
	a := &Assigner{
		cellSize:  cellSize,
		ladder:    ladder,
		heuristic: heuristic,
		rand:      globalRand{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Per-listing placement before address fallback. Non-negative values are
// cell indexes.
const (
	targetInvalidPrice = -1 - iota
	targetOutside
	targetByAddress
)

// Assign places every listing and returns the populated cells. cells must
// come from Generate with the same cell size; they are not modified.
func (a *Assigner) Assign(cells []Cell, listings []model.RawListing) Result {
	lat := newLattice(cells, a.cellSize)
	targets := make([]int, len(listings))
	for i := range listings {
		targets[i] = a.locate(lat, listings[i])
	}
	return a.collect(cells, listings, targets)
}

// AssignParallel is Assign with coordinate lookup spread over workers. The
// address fallback still runs in listing order, so given the same Rand the
// result equals Assign's.
func (a *Assigner) AssignParallel(ctx context.Context, cells []Cell, listings []model.RawListing, workers int) (Result, error) {
	if workers < 1 {
		workers = 1
	}
	lat := newLattice(cells, a.cellSize)
	targets := make([]int, len(listings))

	chunk := (len(listings) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(listings); start += chunk {
		end := min(start+chunk, len(listings))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return eris.Wrap(err, "grid: assign")
					}
				}
				targets[i] = a.locate(lat, listings[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return a.collect(cells, listings, targets), nil
}

func (a *Assigner) locate(lat *lattice, l model.RawListing) int {
	if _, ok := l.ValidPrice(); !ok {
		return targetInvalidPrice
	}
	if !l.HasCoordinates() {
		return targetByAddress
	}
	// A present but unusable pair is a miss like any point off the grid.
	if p, ok := l.Location(); ok {
		if i := lat.find(p.Lat(), p.Lon()); i >= 0 {
			return i
		}
	}
	if a.fallbackOnMiss {
		return targetByAddress
	}
	return targetOutside
}

func (a *Assigner) collect(cells []Cell, listings []model.RawListing, targets []int) Result {
	res := Result{Dropped: make(map[DropReason]int)}

	var byLabel map[string][]int
	sums := make([]float64, len(cells))
	counts := make([]int, len(cells))

	for i, t := range targets {
		switch t {
		case targetInvalidPrice:
			res.Dropped[DropInvalidPrice]++
			continue
		case targetOutside:
			res.Dropped[DropOutsideGrid]++
			continue
		case targetByAddress:
			if byLabel == nil {
				byLabel = labelIndex(cells)
			}
			label := a.heuristic.Estimate(a.ladder, listings[i].Address)
			candidates := byLabel[label]
			if len(candidates) == 0 {
				res.Dropped[DropNoNeighborhoodCells]++
				continue
			}
			t = candidates[a.rand.IntN(len(candidates))]
			res.ByAddress++
		default:
			res.ByCoordinates++
		}
		price, _ := listings[i].ValidPrice()
		sums[t] += price
		counts[t]++
		res.Assigned++
	}

	for i, c := range cells {
		if counts[i] == 0 {
			continue
		}
		avg := int(math.Round(sums[i] / float64(counts[i])))
		c.Aggregate = Aggregate{
			Price:        avg,
			Count:        counts[i],
			PriceDisplay: FormatPrice(avg),
		}
		res.Cells = append(res.Cells, c)
	}

	zap.L().Debug("listings assigned",
		zap.Int("listings", len(listings)),
		zap.Int("assigned", res.Assigned),
		zap.Int("by_coordinates", res.ByCoordinates),
		zap.Int("by_address", res.ByAddress),
		zap.Int("dropped", res.DroppedTotal()),
		zap.Int("cells", len(res.Cells)),
	)
	return res
}

func labelIndex(cells []Cell) map[string][]int {
	m := make(map[string][]int)
	for i, c := range cells {
		m[c.Neighborhood] = append(m[c.Neighborhood], i)
	}
	return m
}
