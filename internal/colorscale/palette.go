// Package colorscale maps rent values to hex colors for the renderer.
//
// Two regimes exist: a discrete multi-stop scale placed on the sorted
// distinct prices, and a continuous scale of equal-width bands. Both clamp
// out-of-domain values to the nearest end.
package colorscale

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rentmap/internal/geo"
)

// Palettes holds the anchor colors for both regimes.
type Palettes struct {
	Discrete   []string `yaml:"discrete"`
	Continuous []string `yaml:"continuous"`
	// Low and High are used when a distribution has too few distinct values
	// for the discrete palette.
	Low  string `yaml:"low"`
	High string `yaml:"high"`
}

// Validate checks that both palettes have at least two parseable colors.
func (p Palettes) Validate() error {
	if len(p.Discrete) < 2 {
		return eris.Wrap(geo.ErrConfiguration, "colorscale: discrete palette needs at least 2 colors")
	}
	if len(p.Continuous) < 2 {
		return eris.Wrap(geo.ErrConfiguration, "colorscale: continuous palette needs at least 2 colors")
	}
	all := append(append(append([]string{}, p.Discrete...), p.Continuous...), p.Low, p.High)
	if _, err := parseAll(all); err != nil {
		return err
	}
	return nil
}

func parseAll(hexes []string) ([]colorful.Color, error) {
	out := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, eris.Wrapf(geo.ErrConfiguration, "colorscale: bad color %q", h)
		}
		out[i] = c
	}
	return out, nil
}

// lerp blends a toward b in RGB space; t is clamped to [0,1].
func lerp(a, b colorful.Color, t float64) string {
	if t <= 0 {
		return a.Hex()
	}
	if t >= 1 {
		return b.Hex()
	}
	return a.BlendRgb(b, t).Hex()
}
