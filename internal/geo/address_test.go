package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeuristic() AddressHeuristic {
	return AddressHeuristic{
		AnchorLat:             40.723,
		DegreesPerBlock:       0.000725,
		WestLng:               -73.98,
		EastLng:               -73.95,
		AvenueNumbersPerBlock: 100,
		AvenueBaseStreet:      14,
		AvenueLng:             -73.98,
		NameHints: []NameHint{
			{Contains: "harlem", Label: "Harlem"},
			{Contains: "upper east", Label: "Upper East Side"},
			{Contains: "upper west", Label: "Upper West Side"},
			{Contains: "midtown", Label: "Midtown"},
			{Contains: "chelsea", Label: "Chelsea"},
			{Contains: "village", Label: "Greenwich Village"},
			{Contains: "soho", Label: "SoHo"},
			{Contains: "tribeca", Label: "Tribeca"},
			{Contains: "financial", Label: "Financial District"},
		},
		Default: "Midtown",
	}
}

func TestEstimate_StreetPattern(t *testing.T) {
	h := testHeuristic()
	l := testLadder()

	// 58th street lands in the midtown band, east of the default label.
	assert.Equal(t, "Midtown East", h.Estimate(l, "145 W 58th St"))

	tests := []struct {
		address  string
		expected string
	}{
		{address: "10 West 23rd Street", expected: "Greenwich Village"},
		{address: "400 E 86th St, Apt 5", expected: "Upper East Side"},
		{address: "300 W 86th St", expected: "Upper West Side"},
		{address: "2 east 125th st", expected: "Harlem"},
		{address: "1 W 1st St", expected: "Tribeca"},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.Estimate(l, tt.address))
		})
	}
}

func TestEstimate_AvenuePattern(t *testing.T) {
	h := testHeuristic()
	// 830 8th Ave -> 8 + 14 = 22nd street -> 40.738950
	assert.Equal(t, "Greenwich Village", h.Estimate(testLadder(), "830 8th Ave"))
}

func TestEstimate_AvenueWithoutBlockSize(t *testing.T) {
	h := testHeuristic()
	h.AvenueNumbersPerBlock = 0
	l := testLadder()

	assert.NotPanics(t, func() {
		assert.Equal(t, "Midtown", h.Estimate(l, "830 8th Ave"))
		assert.Equal(t, "Chelsea", h.Estimate(l, "830 8th Ave, Chelsea"))
		assert.Empty(t, AddressHeuristic{}.Estimate(l, "830 8th Ave"))
	})
}

func TestEstimate_NameHints(t *testing.T) {
	h := testHeuristic()
	l := testLadder()

	assert.Equal(t, "Harlem", h.Estimate(l, "Lovely studio in HARLEM"))
	assert.Equal(t, "Tribeca", h.Estimate(l, "Loft, Tribeca"))
	assert.Equal(t, "Greenwich Village", h.Estimate(l, "West Village walk-up"))
}

func TestEstimate_Default(t *testing.T) {
	h := testHeuristic()
	l := testLadder()

	for _, addr := range []string{"", "   ", "???", "Broadway", "99999999999999999999 W 5th"} {
		assert.NotEmpty(t, h.Estimate(l, addr))
	}
	assert.Equal(t, "Midtown", h.Estimate(l, "somewhere nice"))
}

func TestEstimate_AlwaysReturnsLadderOrDefaultLabel(t *testing.T) {
	h := testHeuristic()
	l := testLadder()
	valid := map[string]bool{h.Default: true}
	for _, label := range l.Labels() {
		valid[label] = true
	}

	inputs := []string{
		"145 W 58th St", "E 200th", "5 w 0th", "1000000 1st ave", "Chelsea",
		"upper west side", "\x00\xff", "w 99999999999999999999th",
	}
	for _, in := range inputs {
		assert.True(t, valid[h.Estimate(l, in)], "input %q", in)
	}
}

func TestAddressHeuristicValidate(t *testing.T) {
	require.NoError(t, testHeuristic().Validate())

	h := testHeuristic()
	h.Default = ""
	assert.Error(t, h.Validate())

	h = testHeuristic()
	h.DegreesPerBlock = 0
	assert.Error(t, h.Validate())

	h = testHeuristic()
	h.AvenueNumbersPerBlock = 0
	assert.Error(t, h.Validate())
}
