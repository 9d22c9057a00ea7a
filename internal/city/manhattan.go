package city

import (
	"github.com/sells-group/rentmap/internal/colorscale"
	"github.com/sells-group/rentmap/internal/geo"
)

// manhattanRing traces the shoreline clockwise from the Battery, up the
// Hudson side to Inwood and back down the Harlem and East rivers.
var manhattanRing = [][2]float64{
	{-74.0153, 40.7004}, // Battery Park south
	{-74.0189, 40.7032}, // Battery Park west
	{-74.0163, 40.7106}, // World Trade Center
	{-74.0131, 40.7190}, // Tribeca
	{-74.0110, 40.7268}, // SoHo
	{-74.0095, 40.7330}, // Greenwich Village
	{-74.0085, 40.7420}, // Chelsea, 14th St
	{-74.0070, 40.7525}, // Penn Station
	{-74.0055, 40.7620}, // Hell's Kitchen
	{-74.0035, 40.7720}, // Lincoln Center
	{-73.9970, 40.7810}, // 79th St
	{-73.9920, 40.7920}, // 96th St
	{-73.9685, 40.8030}, // Morningside Heights
	{-73.9625, 40.8125}, // Harlem
	{-73.9545, 40.8255}, // Washington Heights
	{-73.9385, 40.8505}, // Fort George
	{-73.9215, 40.8725}, // Inwood Hill Park
	{-73.9105, 40.8755}, // Spuyten Duyvil
	{-73.9135, 40.8680}, // Inwood, east
	{-73.9275, 40.8450}, // Washington Heights, east
	{-73.9340, 40.8300}, // Hamilton Heights, east
	{-73.9360, 40.8150}, // Harlem, east
	{-73.9385, 40.8000}, // 125th St
	{-73.9420, 40.7900}, // 110th St
	{-73.9450, 40.7820}, // 96th St, east
	{-73.9495, 40.7720}, // 79th St, east
	{-73.9565, 40.7620}, // 66th St
	{-73.9610, 40.7550}, // 59th St
	{-73.9650, 40.7480}, // Turtle Bay
	{-73.9685, 40.7400}, // Murray Hill
	{-73.9720, 40.7330}, // Gramercy
	{-73.9745, 40.7250}, // East Village
	{-73.9760, 40.7150}, // Lower East Side
	{-73.9985, 40.7070}, // Brooklyn Bridge
	{-74.0025, 40.7020}, // South Street Seaport
	{-74.0153, 40.7004}, // closes at the Battery
}

var uptownSplitLng = -73.96

// Manhattan returns the built-in, validated Manhattan profile.
func Manhattan() *Profile {
	p := manhattan()
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func manhattan() *Profile {
	ring := make([][2]float64, len(manhattanRing))
	copy(ring, manhattanRing)
	split := uptownSplitLng

	return &Profile{
		Name: "manhattan",
		Ring: ring,
		Extent: Extent{
			MinLat: 40.6950, // Battery Park
			MaxLat: 40.8800, // Inwood
			MinLng: -74.0200,
			MaxLng: -73.9100,
		},
		CellSize: 0.008,
		Overlap:  0.08,
		Ladder: geo.Ladder{
			Bands: []geo.Band{
				{Below: 40.715, Label: "Financial District"},
				{Below: 40.725, Label: "Tribeca"},
				{Below: 40.735, Label: "SoHo"},
				{Below: 40.745, Label: "Greenwich Village"},
				{Below: 40.755, Label: "Chelsea"},
				{Below: 40.765, Label: "Midtown"},
				{Below: 40.775, Label: "Midtown East"},
				{Below: 40.800, SplitLng: &split, WestLabel: "Upper West Side", EastLabel: "Upper East Side"},
			},
			Top: "Harlem",
		},
		Address: geo.AddressHeuristic{
			AnchorLat:             40.723, // Houston St
			DegreesPerBlock:       0.000725,
			WestLng:               -73.98,
			EastLng:               -73.95,
			AvenueNumbersPerBlock: 100,
			AvenueBaseStreet:      14,
			AvenueLng:             -73.98,
			NameHints: []geo.NameHint{
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
		},
		Palettes: colorscale.Palettes{
			Discrete: []string{
				"#1e3a8a", "#2563eb", "#0891b2", "#0d9488", "#059669",
				"#65a30d", "#ca8a04", "#ea580c", "#dc2626", "#991b1b", "#450a0a",
			},
			Continuous: []string{"#1a1a2e", "#16537e", "#0f9b8e", "#a2d5f2", "#ffa726", "#e53935"},
			Low:        "#1e3a8a",
			High:       "#dc2626",
		},
		View: View{
			CenterLng: -73.9712,
			CenterLat: 40.7831,
			Zoom:      11,
			MinZoom:   8,
			MaxZoom:   16,
		},
	}
}
