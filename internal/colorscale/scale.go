package colorscale

import (
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rentmap/internal/geo"
)

// Scale resolves a price to a color and describes itself for legends.
type Scale interface {
	// Color returns the "#rrggbb" color for price. Prices outside the domain
	// get the color of the nearest end.
	Color(price float64) string
	// Domain returns the minimum and maximum input price.
	Domain() (lo, hi float64)
	// Range returns the ordered anchor colors in use.
	Range() []string
	// Quantiles returns len(Range())-1 breakpoints splitting the domain into
	// equal-width bands. They are not population quantiles.
	Quantiles() []float64
}

// Mode selects a regime.
type Mode string

const (
	ModeDiscrete   Mode = "discrete"
	ModeContinuous Mode = "continuous"
)

// ParseMode validates a mode name. The empty string means discrete.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDiscrete:
		return ModeDiscrete, nil
	case ModeContinuous:
		return ModeContinuous, nil
	default:
		return "", eris.Wrapf(geo.ErrConfiguration, "colorscale: unknown mode %q", s)
	}
}

// New builds a scale of the given mode from prices.
func New(mode Mode, prices []float64, p Palettes) (Scale, error) {
	switch mode {
	case ModeDiscrete, "":
		return NewDiscrete(prices, p.Discrete, p.Low, p.High)
	case ModeContinuous:
		return NewContinuous(prices, p.Continuous)
	default:
		return nil, eris.Wrapf(geo.ErrConfiguration, "colorscale: unknown mode %q", mode)
	}
}

// MinDistinctForStops is the number of distinct prices below which the
// discrete scale degrades to a two-color ramp.
const MinDistinctForStops = 5

// Stop is one anchor of a discrete scale.
type Stop struct {
	Price float64 `json:"price"`
	Color string  `json:"color"`
}

// Discrete interpolates piecewise-linearly between stops placed on evenly
// spaced indexes of the sorted distinct prices.
type Discrete struct {
	lo, hi float64
	stops  []Stop
	colors []colorful.Color
}

// NewDiscrete builds a discrete scale. With fewer than MinDistinctForStops
// distinct prices it is a two-color ramp from low to high.
func NewDiscrete(prices []float64, palette []string, low, high string) (*Discrete, error) {
	distinct, err := distinctSorted(prices)
	if err != nil {
		return nil, err
	}

	var hexes []string
	var values []float64
	if len(distinct) < MinDistinctForStops {
		hexes = []string{low, high}
		values = []float64{distinct[0], distinct[len(distinct)-1]}
	} else {
		if len(palette) < 2 {
			return nil, eris.Wrap(geo.ErrConfiguration, "colorscale: discrete palette needs at least 2 colors")
		}
		n := len(distinct)
		k := min(len(palette), n)
		for i := range k {
			values = append(values, distinct[i*(n-1)/(k-1)])
		}
		hexes = palette[:k]
	}

	colors, err := parseAll(hexes)
	if err != nil {
		return nil, err
	}
	d := &Discrete{lo: distinct[0], hi: distinct[len(distinct)-1], colors: colors}
	for i, v := range values {
		d.stops = append(d.stops, Stop{Price: v, Color: colors[i].Hex()})
	}
	return d, nil
}

// Color implements Scale.
func (d *Discrete) Color(price float64) string {
	if math.IsNaN(price) || price <= d.stops[0].Price {
		return d.stops[0].Color
	}
	last := len(d.stops) - 1
	if price >= d.stops[last].Price {
		return d.stops[last].Color
	}
	// First stop strictly above price; price sits in [i-1, i).
	i, _ := slices.BinarySearchFunc(d.stops, price, func(s Stop, p float64) int {
		switch {
		case s.Price < p:
			return -1
		case s.Price > p:
			return 1
		}
		return 0
	})
	if d.stops[i].Price == price {
		return d.stops[i].Color
	}
	a, b := d.stops[i-1], d.stops[i]
	return lerp(d.colors[i-1], d.colors[i], (price-a.Price)/(b.Price-a.Price))
}

// Domain implements Scale.
func (d *Discrete) Domain() (lo, hi float64) { return d.lo, d.hi }

// Range implements Scale.
func (d *Discrete) Range() []string {
	out := make([]string, len(d.stops))
	for i, s := range d.stops {
		out[i] = s.Color
	}
	return out
}

// Quantiles implements Scale.
func (d *Discrete) Quantiles() []float64 { return equalWidth(d.lo, d.hi, len(d.stops)) }

// Stops returns the price anchors, ascending.
func (d *Discrete) Stops() []Stop { return slices.Clone(d.stops) }

// Continuous splits the normalized domain into len(anchors)-1 equal bands,
// each blending between two neighboring anchors.
type Continuous struct {
	lo, hi  float64
	anchors []colorful.Color
	hexes   []string
}

// NewContinuous builds a continuous scale over anchors.
func NewContinuous(prices []float64, anchors []string) (*Continuous, error) {
	distinct, err := distinctSorted(prices)
	if err != nil {
		return nil, err
	}
	if len(anchors) < 2 {
		return nil, eris.Wrap(geo.ErrConfiguration, "colorscale: continuous palette needs at least 2 colors")
	}
	colors, err := parseAll(anchors)
	if err != nil {
		return nil, err
	}
	c := &Continuous{lo: distinct[0], hi: distinct[len(distinct)-1], anchors: colors}
	for _, a := range colors {
		c.hexes = append(c.hexes, a.Hex())
	}
	return c, nil
}

// Color implements Scale. A flat domain resolves to the first anchor.
func (c *Continuous) Color(price float64) string {
	if c.hi == c.lo || math.IsNaN(price) {
		return c.hexes[0]
	}
	n := (price - c.lo) / (c.hi - c.lo)
	n = math.Max(0, math.Min(1, n))

	bands := len(c.anchors) - 1
	pos := n * float64(bands)
	idx := int(pos)
	if idx >= bands {
		return c.hexes[bands]
	}
	return lerp(c.anchors[idx], c.anchors[idx+1], pos-float64(idx))
}

// Domain implements Scale.
func (c *Continuous) Domain() (lo, hi float64) { return c.lo, c.hi }

// Range implements Scale.
func (c *Continuous) Range() []string { return slices.Clone(c.hexes) }

// Quantiles implements Scale.
func (c *Continuous) Quantiles() []float64 { return equalWidth(c.lo, c.hi, len(c.hexes)) }

// equalWidth returns n-1 breakpoints splitting [lo, hi] into n equal bands.
func equalWidth(lo, hi float64, n int) []float64 {
	if n < 2 {
		return nil
	}
	step := (hi - lo) / float64(n)
	out := make([]float64, n-1)
	for k := 1; k < n; k++ {
		out[k-1] = lo + step*float64(k)
	}
	return out
}

func distinctSorted(prices []float64) ([]float64, error) {
	if len(prices) == 0 {
		return nil, eris.Wrap(geo.ErrConfiguration, "colorscale: no prices")
	}
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, eris.Wrapf(geo.ErrConfiguration, "colorscale: price %v is not finite", p)
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
