package geo

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Band is one rung of a neighborhood ladder. A point belongs to the first
// band (south to north) whose Below latitude it is under. When SplitLng is
// set the band is divided into a west half (lng < SplitLng) and an east half.
type Band struct {
	Below     float64  `yaml:"below"`
	Label     string   `yaml:"label,omitempty"`
	SplitLng  *float64 `yaml:"split_lng,omitempty"`
	WestLabel string   `yaml:"west_label,omitempty"`
	EastLabel string   `yaml:"east_label,omitempty"`
}

// Ladder maps a point to a coarse neighborhood label using strictly
// ascending latitude thresholds. Points north of every band get Top.
type Ladder struct {
	Bands []Band `yaml:"bands"`
	Top   string `yaml:"top"`
}

// Validate checks that thresholds are strictly ascending and that every band
// resolves to a label.
func (l Ladder) Validate() error {
	if l.Top == "" {
		return eris.Wrap(ErrConfiguration, "geo: ladder has no top label")
	}
	if !sort.SliceIsSorted(l.Bands, func(i, j int) bool { return l.Bands[i].Below < l.Bands[j].Below }) {
		return eris.Wrap(ErrConfiguration, "geo: ladder thresholds are not ascending")
	}
	for i, b := range l.Bands {
		if i > 0 && b.Below == l.Bands[i-1].Below {
			return eris.Wrapf(ErrConfiguration, "geo: duplicate ladder threshold %f", b.Below)
		}
		if b.SplitLng != nil {
			if b.WestLabel == "" || b.EastLabel == "" {
				return eris.Wrapf(ErrConfiguration, "geo: split band below %f needs west and east labels", b.Below)
			}
			continue
		}
		if b.Label == "" {
			return eris.Wrapf(ErrConfiguration, "geo: band below %f has no label", b.Below)
		}
	}
	return nil
}

// Classify returns the neighborhood label for a point. It is pure and total.
func (l Ladder) Classify(lat, lng float64) string {
	for _, b := range l.Bands {
		if lat >= b.Below {
			continue
		}
		if b.SplitLng != nil {
			if lng < *b.SplitLng {
				return b.WestLabel
			}
			return b.EastLabel
		}
		return b.Label
	}
	return l.Top
}

// Labels returns every label the ladder can produce, in ladder order without
// duplicates.
func (l Ladder) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, b := range l.Bands {
		if b.SplitLng != nil {
			add(b.WestLabel)
			add(b.EastLabel)
			continue
		}
		add(b.Label)
	}
	add(l.Top)
	return out
}
