package colorscale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegend_Continuous(t *testing.T) {
	t.Parallel()

	s, err := NewContinuous([]float64{1000, 7000}, testPalettes.Continuous)
	require.NoError(t, err)

	bands := Legend(s)
	require.Len(t, bands, 6)

	var tiers []string
	for _, b := range bands {
		tiers = append(tiers, b.Tier)
	}
	assert.Equal(t, []string{"Lowest", "Low", "Medium", "Medium", "High", "Highest"}, tiers)

	assert.Equal(t, LegendBand{Tier: "Lowest", Color: "#1a1a2e", Min: 1000, Max: 2000, Label: "$1,000 - $2,000"}, bands[0])
	assert.Equal(t, "$6,000 - $7,000", bands[5].Label)
	assert.Equal(t, "#e53935", bands[5].Color)
}

func TestLegend_TwoColor(t *testing.T) {
	t.Parallel()

	s, err := NewDiscrete([]float64{1800, 2400}, testPalettes.Discrete, testPalettes.Low, testPalettes.High)
	require.NoError(t, err)

	bands := Legend(s)
	require.Len(t, bands, 2)
	assert.Equal(t, "Lowest", bands[0].Tier)
	assert.Equal(t, "Highest", bands[1].Tier)
	assert.Equal(t, "$1,800 - $2,100", bands[0].Label)
	assert.Equal(t, "$2,100 - $2,400", bands[1].Label)
}

func TestFormatCurrency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$4,000", FormatCurrency(4000))
	assert.Equal(t, "$1,800", FormatCurrency(1799.6))
	assert.Equal(t, "$950", FormatCurrency(950))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Stats{}, Summarize(nil))

	s := Summarize([]float64{3000, 1800, 4200})
	assert.Equal(t, Stats{Count: 3, Min: 1800, Max: 4200, Average: 3000}, s)
	assert.Equal(t, "$1,800 - $4,200", s.Label())
}
