package heatmap

import (
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/rentmap/internal/city"
	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/grid"
)

// ClusterType tags every feature; the renderer only knows grid clusters.
const ClusterType = "grid"

// Collection is a GeoJSON FeatureCollection with a foreign meta member.
type Collection struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
	Meta     Meta               `json:"meta"`
}

// Meta describes how a collection was built.
type Meta struct {
	SnapshotID    string                  `json:"snapshot_id"`
	Source        string                  `json:"source"`
	Bedrooms      *int                    `json:"bedrooms"`
	TotalListings int                     `json:"total_listings"`
	Assigned      int                     `json:"assigned_listings"`
	ByCoordinates int                     `json:"by_coordinates"`
	ByAddress     int                     `json:"by_address"`
	Dropped       map[grid.DropReason]int `json:"dropped"`
	ClusterCount  int                     `json:"cluster_count"`
	ClusterType   string                  `json:"cluster_type"`
	Scale         *ScaleMeta              `json:"scale,omitempty"`
	View          city.View               `json:"view"`
	GeneratedAt   time.Time               `json:"generated_at"`
}

// ScaleMeta exposes the color mapping so the renderer can rebuild it.
type ScaleMeta struct {
	Mode      colorscale.Mode `json:"mode"`
	Domain    [2]float64      `json:"domain"`
	Range     []string        `json:"range"`
	Quantiles []float64       `json:"quantiles"`
}

// Collection renders the snapshot's populated cells as polygon features.
func (s *Snapshot) Collection() *Collection {
	features := make([]*geojson.Feature, len(s.Result.Cells))
	for i, c := range s.Result.Cells {
		features[i] = &geojson.Feature{
			ID:       c.ID(),
			Geometry: c.Polygon(),
			Properties: map[string]any{
				"price":         c.Aggregate.Price,
				"count":         c.Aggregate.Count,
				"price_display": c.Aggregate.PriceDisplay,
				"neighborhood":  c.Neighborhood,
				"color":         s.Scale.Color(float64(c.Aggregate.Price)),
				"row":           c.Row,
				"col":           c.Col,
				"center_lat":    c.Center.Lat(),
				"center_lng":    c.Center.Lon(),
				"cluster_type":  ClusterType,
			},
		}
	}

	return &Collection{
		Type:     "FeatureCollection",
		Features: features,
		Meta:     s.meta(),
	}
}

func (s *Snapshot) meta() Meta {
	m := Meta{
		SnapshotID:    s.ID.String(),
		Source:        s.Source,
		Bedrooms:      s.Filter.Bedrooms,
		TotalListings: s.Listings,
		Assigned:      s.Result.Assigned,
		ByCoordinates: s.Result.ByCoordinates,
		ByAddress:     s.Result.ByAddress,
		Dropped:       s.Result.Dropped,
		ClusterCount:  len(s.Result.Cells),
		ClusterType:   ClusterType,
		View:          s.View,
		GeneratedAt:   s.GeneratedAt,
	}
	if s.Scale != nil {
		lo, hi := s.Scale.Domain()
		m.Scale = &ScaleMeta{
			Mode:      s.Mode,
			Domain:    [2]float64{lo, hi},
			Range:     s.Scale.Range(),
			Quantiles: s.Scale.Quantiles(),
		}
	}
	return m
}

// LegendResponse is the legend for one snapshot.
type LegendResponse struct {
	SnapshotID string                  `json:"snapshot_id"`
	Source     string                  `json:"source"`
	Mode       colorscale.Mode         `json:"mode"`
	Bands      []colorscale.LegendBand `json:"bands"`
	Stops      []colorscale.Stop       `json:"stops,omitempty"`
	Stats      colorscale.Stats        `json:"stats"`
	StatsLabel string                  `json:"stats_label"`
}

// Legend describes the snapshot's color bands and listing price stats.
func (s *Snapshot) Legend() *LegendResponse {
	out := &LegendResponse{
		SnapshotID: s.ID.String(),
		Source:     s.Source,
		Mode:       s.Mode,
		Bands:      []colorscale.LegendBand{},
		Stats:      s.Stats,
		StatsLabel: s.Stats.Label(),
	}
	if s.Scale == nil {
		return out
	}
	out.Bands = colorscale.Legend(s.Scale)
	if d, ok := s.Scale.(*colorscale.Discrete); ok {
		out.Stops = d.Stops()
	}
	return out
}

// GridCollection renders every cell of a grid, populated or not, for
// inspecting the lattice.
func GridCollection(cells []grid.Cell) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, len(cells))}
	for i, c := range cells {
		fc.Features[i] = &geojson.Feature{
			ID:       c.ID(),
			Geometry: c.Polygon(),
			Properties: map[string]any{
				"row":          c.Row,
				"col":          c.Col,
				"neighborhood": c.Neighborhood,
				"center_lat":   c.Center.Lat(),
				"center_lng":   c.Center.Lon(),
			},
		}
	}
	return fc
}
