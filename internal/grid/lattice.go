package grid

import "math"

// lattice finds the cell whose unpadded square contains a point. Squares
// are half-open: a point on a shared edge belongs to the cell to its north
// or east, so each point matches at most one cell.
type lattice struct {
	cells    []Cell
	index    map[[2]int]int
	size     float64
	half     float64
	originLt float64
	originLn float64
}

func newLattice(cells []Cell, size float64) *lattice {
	l := &lattice{
		cells: cells,
		index: make(map[[2]int]int, len(cells)),
		size:  size,
		half:  size / 2,
	}
	for i, c := range cells {
		l.index[[2]int{c.Row, c.Col}] = i
	}
	if len(cells) > 0 {
		c := cells[0]
		l.originLt = c.Center.Lat() - l.half - float64(c.Row)*size
		l.originLn = c.Center.Lon() - l.half - float64(c.Col)*size
	}
	return l
}

// find returns the index of the containing cell, or -1. The floor estimate
// can be off by one at edges, so the neighbors are checked too, in row-major
// order, with the exact half-open test deciding.
func (l *lattice) find(lat, lng float64) int {
	if len(l.cells) == 0 || !(l.size > 0) {
		return -1
	}
	r := int(math.Floor((lat - l.originLt) / l.size))
	c := int(math.Floor((lng - l.originLn) / l.size))
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			i, ok := l.index[[2]int{r + dr, c + dc}]
			if ok && l.contains(l.cells[i], lat, lng) {
				return i
			}
		}
	}
	return -1
}

func (l *lattice) contains(c Cell, lat, lng float64) bool {
	cl, cn := c.Center.Lat(), c.Center.Lon()
	return lat >= cl-l.half && lat < cl+l.half &&
		lng >= cn-l.half && lng < cn+l.half
}
