package heatmap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rentmap/internal/city"
	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/grid"
	"github.com/sells-group/rentmap/internal/listing"
	"github.com/sells-group/rentmap/internal/model"
)

type fakeSource struct {
	listings []model.RawListing
	err      error
	filters  []model.Filter
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, filter model.Filter) ([]model.RawListing, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func at(lat, lng, price float64) model.RawListing {
	return model.RawListing{
		Price:     model.Float64(price),
		Latitude:  model.Float64(lat),
		Longitude: model.Float64(lng),
	}
}

// sampleListings fill three cells: Midtown (8,4) at 3500, SoHo (4,2) at
// 2500 and one Midtown East cell at 5000 by address.
func sampleListings() []model.RawListing {
	return []model.RawListing{
		at(40.76, -73.98, 4000),
		at(40.76, -73.98, 3000),
		at(40.73, -74.00, 2500),
		{Address: "145 W 58th St", Price: model.Float64(5000)},
		{Address: "E 86th St"},
		at(40.50, -74.50, 3000),
	}
}

func newTestService(t *testing.T, src listing.Source, opts Options) *Service {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 7
	}
	svc, err := NewService(city.Manhattan(), src, opts)
	require.NoError(t, err)
	return svc
}

func cellByID(cells []grid.Cell, id string) (grid.Cell, bool) {
	for _, c := range cells {
		if c.ID() == id {
			return c, true
		}
	}
	return grid.Cell{}, false
}

func TestService_Build(t *testing.T) {
	src := &fakeSource{listings: sampleListings()}
	svc := newTestService(t, src, Options{Workers: 2})
	assert.Len(t, svc.Cells(), 86)

	snap, err := svc.Build(context.Background(), Request{Filter: model.Filter{Bedrooms: model.Int(1)}})
	require.NoError(t, err)

	assert.Equal(t, "fake", snap.Source)
	assert.Equal(t, colorscale.ModeDiscrete, snap.Mode)
	assert.Equal(t, 6, snap.Listings)
	assert.Equal(t, 4, snap.Result.Assigned)
	assert.Equal(t, 3, snap.Result.ByCoordinates)
	assert.Equal(t, 1, snap.Result.ByAddress)
	assert.Equal(t, 1, snap.Result.Dropped[grid.DropInvalidPrice])
	assert.Equal(t, 1, snap.Result.Dropped[grid.DropOutsideGrid])
	require.Len(t, snap.Result.Cells, 3)
	require.Len(t, src.filters, 1)
	assert.Equal(t, 1, *src.filters[0].Bedrooms)

	midtown, ok := cellByID(snap.Result.Cells, "8_4")
	require.True(t, ok)
	assert.Equal(t, 3500, midtown.Aggregate.Price)
	assert.Equal(t, 2, midtown.Aggregate.Count)
	assert.Equal(t, "$3,500/mo", midtown.Aggregate.PriceDisplay)

	var east int
	for _, c := range snap.Result.Cells {
		if c.Neighborhood == "Midtown East" {
			east++
			assert.Equal(t, 5000, c.Aggregate.Price)
		}
	}
	assert.Equal(t, 1, east)

	require.NotNil(t, snap.Scale)
	lo, hi := snap.Scale.Domain()
	assert.Equal(t, 2500.0, lo)
	assert.Equal(t, 5000.0, hi)
	assert.Equal(t, colorscale.Stats{Count: 5, Min: 2500, Max: 5000, Average: 3500}, snap.Stats)
	assert.Equal(t, city.Manhattan().View, snap.View)
	assert.NotEqual(t, snap.ID.String(), "")
}

func TestService_BuildIsReproducibleWithSeed(t *testing.T) {
	svc := newTestService(t, &fakeSource{listings: sampleListings()}, Options{Seed: 99})

	a, err := svc.Build(context.Background(), Request{})
	require.NoError(t, err)
	b, err := svc.Build(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, a.Result, b.Result)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestService_FallsBackOnFetchError(t *testing.T) {
	src := &fakeSource{err: &listing.FetchError{Source: "fake", Err: errors.New("timeout")}}
	svc := newTestService(t, src, Options{})

	snap, err := svc.Build(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "synthetic", snap.Source)
	assert.Positive(t, snap.Listings)
	assert.Len(t, snap.Result.Cells, len(svc.Cells()))
	assert.Equal(t, snap.Listings, snap.Result.Assigned)
}

func TestService_CustomFallback(t *testing.T) {
	src := &fakeSource{err: &listing.FetchError{Source: "fake", Err: errors.New("down")}}
	backup := &fakeSource{listings: sampleListings()[:1]}
	svc := newTestService(t, src, Options{Fallback: backup})

	snap, err := svc.Build(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fake", snap.Source)
	assert.Len(t, snap.Result.Cells, 1)
}

func TestService_OtherErrorsFail(t *testing.T) {
	svc := newTestService(t, &fakeSource{err: errors.New("bug")}, Options{})

	_, err := svc.Build(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heatmap: fetch listings")
}

func TestService_NoListings(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, Options{})

	snap, err := svc.Build(context.Background(), Request{Mode: colorscale.ModeContinuous})
	require.NoError(t, err)
	assert.Nil(t, snap.Scale)
	assert.Empty(t, snap.Result.Cells)

	c := snap.Collection()
	assert.Empty(t, c.Features)
	assert.Nil(t, c.Meta.Scale)
	assert.Equal(t, 0, c.Meta.ClusterCount)

	l := snap.Legend()
	assert.Empty(t, l.Bands)
	assert.Equal(t, "$0 - $0", l.StatsLabel)
}

func TestService_InvalidProfile(t *testing.T) {
	p := city.Manhattan()
	p.CellSize = 0
	_, err := NewService(p, &fakeSource{}, Options{})
	assert.Error(t, err)
}

func TestSnapshot_Collection(t *testing.T) {
	svc := newTestService(t, &fakeSource{listings: sampleListings()}, Options{})
	snap, err := svc.Build(context.Background(), Request{})
	require.NoError(t, err)

	data, err := json.Marshal(snap.Collection())
	require.NoError(t, err)

	var got Collection
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "FeatureCollection", got.Type)
	require.Len(t, got.Features, 3)

	byID := make(map[string]map[string]any)
	for _, f := range got.Features {
		byID[f.ID] = f.Properties
	}
	soho := byID["4_2"]
	require.NotNil(t, soho)
	assert.Equal(t, 2500.0, soho["price"])
	assert.Equal(t, 1.0, soho["count"])
	assert.Equal(t, "SoHo", soho["neighborhood"])
	assert.Equal(t, "$2,500/mo", soho["price_display"])
	assert.Equal(t, "#1e3a8a", soho["color"])
	assert.Equal(t, "grid", soho["cluster_type"])
	assert.Equal(t, 4.0, soho["row"])
	assert.Equal(t, 2.0, soho["col"])

	assert.Equal(t, "grid", got.Meta.ClusterType)
	assert.Equal(t, 3, got.Meta.ClusterCount)
	assert.Equal(t, 6, got.Meta.TotalListings)
	assert.Equal(t, 4, got.Meta.Assigned)
	assert.Equal(t, 1, got.Meta.Dropped[grid.DropOutsideGrid])
	assert.Equal(t, snap.ID.String(), got.Meta.SnapshotID)
	require.NotNil(t, got.Meta.Scale)
	assert.Equal(t, [2]float64{2500, 5000}, got.Meta.Scale.Domain)
	assert.Equal(t, []string{"#1e3a8a", "#dc2626"}, got.Meta.Scale.Range)
	assert.Len(t, got.Meta.Scale.Quantiles, 1)
}

func TestSnapshot_Legend(t *testing.T) {
	svc := newTestService(t, &fakeSource{listings: sampleListings()}, Options{})
	snap, err := svc.Build(context.Background(), Request{})
	require.NoError(t, err)

	l := snap.Legend()
	require.Len(t, l.Bands, 2)
	assert.Equal(t, "Lowest", l.Bands[0].Tier)
	assert.Equal(t, "Highest", l.Bands[1].Tier)
	assert.Equal(t, "$2,500 - $3,750", l.Bands[0].Label)
	assert.Len(t, l.Stops, 2)
	assert.Equal(t, "$2,500 - $5,000", l.StatsLabel)
}

func TestGridCollection(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, Options{})

	data, err := json.Marshal(GridCollection(svc.Cells()))
	require.NoError(t, err)

	var got struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type        string         `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "FeatureCollection", got.Type)
	require.Len(t, got.Features, 86)

	f := got.Features[0]
	assert.Equal(t, "Polygon", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 1)
	assert.Len(t, f.Geometry.Coordinates[0], 5)
	assert.Contains(t, f.Properties, "neighborhood")
}
