package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// "w 58th", "east 110th"
	streetPattern = regexp.MustCompile(`\b([we]|west|east)\s+(\d+)(?:st|nd|rd|th)`)
	// "830 8th ave"
	avenuePattern = regexp.MustCompile(`(\d+)\s+(\d+)(?:st|nd|rd|th)?\s+ave`)
)

// NameHint maps a case-insensitive substring of an address to a label.
type NameHint struct {
	Contains string `yaml:"contains"`
	Label    string `yaml:"label"`
}

// AddressHeuristic guesses a neighborhood from free-text addresses. It is an
// approximation for listings without coordinates, not a geocoder: results
// are only ever "some label from the ladder".
type AddressHeuristic struct {
	// AnchorLat is the latitude of street number zero.
	AnchorLat float64 `yaml:"anchor_lat"`
	// DegreesPerBlock is the latitude gained per numbered street.
	DegreesPerBlock float64 `yaml:"degrees_per_block"`
	WestLng         float64 `yaml:"west_lng"`
	EastLng         float64 `yaml:"east_lng"`
	// AvenueNumbersPerBlock and AvenueBaseStreet convert an avenue building
	// number into a cross street: base + number/perBlock.
	AvenueNumbersPerBlock int        `yaml:"avenue_numbers_per_block"`
	AvenueBaseStreet      int        `yaml:"avenue_base_street"`
	AvenueLng             float64    `yaml:"avenue_lng"`
	NameHints             []NameHint `yaml:"name_hints"`
	Default               string     `yaml:"default"`
}

// Validate checks the heuristic constants.
func (h AddressHeuristic) Validate() error {
	if h.Default == "" {
		return eris.Wrap(ErrConfiguration, "geo: address heuristic has no default label")
	}
	if h.DegreesPerBlock <= 0 {
		return eris.Wrap(ErrConfiguration, "geo: degrees_per_block must be positive")
	}
	if h.AvenueNumbersPerBlock <= 0 {
		return eris.Wrap(ErrConfiguration, "geo: avenue_numbers_per_block must be positive")
	}
	return nil
}

// Estimate returns a neighborhood label for address. It never fails: if no
// pattern or name matches, the default label is returned. The avenue
// pattern is skipped when AvenueNumbersPerBlock is not positive.
func (h AddressHeuristic) Estimate(ladder Ladder, address string) string {
	lower := strings.ToLower(address)

	if m := streetPattern.FindStringSubmatch(lower); m != nil {
		if street, err := strconv.Atoi(m[2]); err == nil {
			lng := h.EastLng
			if m[1][0] == 'w' {
				lng = h.WestLng
			}
			return ladder.Classify(h.streetLat(street), lng)
		}
	}

	if m := avenuePattern.FindStringSubmatch(lower); m != nil && h.AvenueNumbersPerBlock > 0 {
		if building, err := strconv.Atoi(m[1]); err == nil {
			street := building/h.AvenueNumbersPerBlock + h.AvenueBaseStreet
			return ladder.Classify(h.streetLat(street), h.AvenueLng)
		}
	}

	for _, hint := range h.NameHints {
		if strings.Contains(lower, strings.ToLower(hint.Contains)) {
			return hint.Label
		}
	}

	return h.Default
}

func (h AddressHeuristic) streetLat(street int) float64 {
	lat := h.AnchorLat + float64(street)*h.DegreesPerBlock
	if math.IsInf(lat, 0) || math.IsNaN(lat) {
		return h.AnchorLat
	}
	return lat
}
