package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/heatmap"
)

func TestWriteSnapshot_Synthetic(t *testing.T) {
	out := filepath.Join(t.TempDir(), "heatmap.geojson")
	err := writeSnapshot(context.Background(), testConfig(), "1", "continuous", out, func(s *heatmap.Snapshot) any {
		return s.Collection()
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var c heatmap.Collection
	require.NoError(t, json.Unmarshal(data, &c))

	assert.Equal(t, "synthetic", c.Meta.Source)
	assert.Len(t, c.Features, 86)
	assert.Equal(t, 86, c.Meta.ClusterCount)
	require.NotNil(t, c.Meta.Bedrooms)
	assert.Equal(t, 1, *c.Meta.Bedrooms)
	require.NotNil(t, c.Meta.Scale)
	assert.Equal(t, colorscale.ModeContinuous, c.Meta.Scale.Mode)
}

func TestWriteSnapshot_Legend(t *testing.T) {
	out := filepath.Join(t.TempDir(), "legend.json")
	err := writeSnapshot(context.Background(), testConfig(), "all", "", out, func(s *heatmap.Snapshot) any {
		return s.Legend()
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var l heatmap.LegendResponse
	require.NoError(t, json.Unmarshal(data, &l))
	assert.Equal(t, colorscale.ModeDiscrete, l.Mode)
	assert.NotEmpty(t, l.Bands)
	assert.NotEmpty(t, l.Stops)
}

func TestWriteSnapshot_BadInput(t *testing.T) {
	render := func(s *heatmap.Snapshot) any { return s.Collection() }
	out := filepath.Join(t.TempDir(), "x.json")

	err := writeSnapshot(context.Background(), testConfig(), "two", "", out, render)
	assert.Error(t, err)

	err = writeSnapshot(context.Background(), testConfig(), "", "rainbow", out, render)
	assert.Error(t, err)

	c := testConfig()
	c.Scale.Mode = "sepia"
	err = writeSnapshot(context.Background(), c, "", "", out, render)
	assert.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
