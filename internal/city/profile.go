// Package city bundles the static configuration for one city: boundary ring,
// grid extent, neighborhood ladder, address heuristic and color palettes.
package city

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/geo"
)

// View holds the initial map view for the renderer.
type View struct {
	CenterLng float64 `yaml:"center_lng" json:"center_lng"`
	CenterLat float64 `yaml:"center_lat" json:"center_lat"`
	Zoom      float64 `yaml:"zoom" json:"zoom"`
	MinZoom   float64 `yaml:"min_zoom" json:"min_zoom"`
	MaxZoom   float64 `yaml:"max_zoom" json:"max_zoom"`
}

// Extent is the lattice bounding box in degrees.
type Extent struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
}

// Bound converts the extent to an orb.Bound.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinLng, e.MinLat},
		Max: orb.Point{e.MaxLng, e.MaxLat},
	}
}

// BoundaryFile points at an external boundary instead of an inline ring.
// URL names a zipped shapefile to download when Path is empty.
type BoundaryFile struct {
	Path  string `yaml:"path"`
	URL   string `yaml:"url"`
	Field string `yaml:"field"`
	Name  string `yaml:"name"`
}

const boundaryDownloadTimeout = 2 * time.Minute

// Profile is the complete static configuration for a city.
type Profile struct {
	Name         string               `yaml:"name"`
	Ring         [][2]float64         `yaml:"ring"` // [lng, lat] pairs
	BoundaryFile *BoundaryFile        `yaml:"boundary_file,omitempty"`
	Extent       Extent               `yaml:"extent"`
	CellSize     float64              `yaml:"cell_size"`
	Overlap      float64              `yaml:"overlap"`
	Ladder       geo.Ladder           `yaml:"ladder"`
	Address      geo.AddressHeuristic `yaml:"address"`
	Palettes     colorscale.Palettes  `yaml:"palettes"`
	View         View                 `yaml:"view"`

	boundary *geo.Boundary
}

// Boundary returns the validated boundary. It is only valid after Validate
// has succeeded.
func (p *Profile) Boundary() *geo.Boundary {
	return p.boundary
}

// Validate checks every section and builds the boundary.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return eris.Wrap(geo.ErrConfiguration, "city: profile has no name")
	}

	switch {
	case p.BoundaryFile != nil && p.BoundaryFile.Path != "":
		b, err := geo.LoadBoundaryFile(p.BoundaryFile.Path, geo.BoundarySelector{
			Field: p.BoundaryFile.Field,
			Name:  p.BoundaryFile.Name,
		})
		if err != nil {
			return eris.Wrapf(err, "city: load boundary for %s", p.Name)
		}
		p.boundary = b
	case p.BoundaryFile != nil && p.BoundaryFile.URL != "":
		b, err := fetchBoundary(p.BoundaryFile)
		if err != nil {
			return eris.Wrapf(err, "city: fetch boundary for %s", p.Name)
		}
		p.boundary = b
	default:
		ring := make(orb.Ring, len(p.Ring))
		for i, v := range p.Ring {
			ring[i] = orb.Point{v[0], v[1]}
		}
		b, err := geo.NewBoundary(ring)
		if err != nil {
			return eris.Wrapf(err, "city: boundary for %s", p.Name)
		}
		p.boundary = b
	}

	if p.Extent.MinLat >= p.Extent.MaxLat || p.Extent.MinLng >= p.Extent.MaxLng {
		return eris.Wrapf(geo.ErrConfiguration, "city: extent for %s is empty or inverted", p.Name)
	}
	if p.CellSize <= 0 {
		return eris.Wrapf(geo.ErrConfiguration, "city: cell_size must be positive, got %f", p.CellSize)
	}
	if p.Overlap < 0 {
		return eris.Wrapf(geo.ErrConfiguration, "city: overlap must not be negative, got %f", p.Overlap)
	}
	if err := p.Ladder.Validate(); err != nil {
		return eris.Wrapf(err, "city: ladder for %s", p.Name)
	}
	if err := p.Address.Validate(); err != nil {
		return eris.Wrapf(err, "city: address heuristic for %s", p.Name)
	}
	if err := p.Palettes.Validate(); err != nil {
		return eris.Wrapf(err, "city: palettes for %s", p.Name)
	}
	return nil
}

func fetchBoundary(f *BoundaryFile) (*geo.Boundary, error) {
	dir, err := os.MkdirTemp("", "rentmap-boundary-*")
	if err != nil {
		return nil, eris.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), boundaryDownloadTimeout)
	defer cancel()
	return geo.FetchBoundary(ctx, nil, f.URL, dir, geo.BoundarySelector{Field: f.Field, Name: f.Name})
}

// Load reads a YAML profile. Sections left out of the file inherit the
// Manhattan defaults, so a profile may override only what differs. A
// relative boundary_file path is resolved against the profile's directory.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "city: read profile %s", path)
	}

	p := manhattan()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrapf(err, "city: parse profile %s", path)
	}
	if p.BoundaryFile != nil && p.BoundaryFile.Path != "" && !filepath.IsAbs(p.BoundaryFile.Path) {
		p.BoundaryFile.Path = filepath.Join(filepath.Dir(path), p.BoundaryFile.Path)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
