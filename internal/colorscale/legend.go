package colorscale

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount in whole dollars, e.g. "$4,000".
func FormatCurrency(amount float64) string {
	return printer.Sprintf("$%d", int(math.Round(amount)))
}

// LegendBand is one row of the price legend.
type LegendBand struct {
	Tier  string  `json:"tier"`
	Color string  `json:"color"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Label string  `json:"label"`
}

// Legend lists one band per Range color, bounded by the domain ends and the
// equal-width breakpoints.
func Legend(s Scale) []LegendBand {
	colors := s.Range()
	q := s.Quantiles()
	lo, hi := s.Domain()

	out := make([]LegendBand, len(colors))
	for i, c := range colors {
		bMin, bMax := lo, hi
		if i > 0 {
			bMin = q[i-1]
		}
		if i < len(colors)-1 {
			bMax = q[i]
		}
		out[i] = LegendBand{
			Tier:  tier(i, len(colors)),
			Color: c,
			Min:   bMin,
			Max:   bMax,
			Label: FormatCurrency(bMin) + " - " + FormatCurrency(bMax),
		}
	}
	return out
}

func tier(i, n int) string {
	switch {
	case i == 0:
		return "Lowest"
	case i == n-1:
		return "Highest"
	case i == 1:
		return "Low"
	case i == n-2:
		return "High"
	default:
		return "Medium"
	}
}

// Stats summarizes a set of prices.
type Stats struct {
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// Summarize computes Stats over prices. An empty input yields zero Stats.
func Summarize(prices []float64) Stats {
	if len(prices) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(prices), Min: prices[0], Max: prices[0]}
	sum := 0.0
	for _, p := range prices {
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
		sum += p
	}
	s.Average = sum / float64(len(prices))
	return s
}

// Label renders the stats range as "$1,800 - $8,000".
func (s Stats) Label() string {
	return FormatCurrency(s.Min) + " - " + FormatCurrency(s.Max)
}
