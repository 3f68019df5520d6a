package app

import (
	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/property"
)

// plot is one plot descriptor: the data and display settings of one
// rectangle of the arrangement.
type plot struct {
	id     int
	rect   grid.Point
	typ    host.PlotType
	attrs  property.Attributes
	points [][2]float64
	cells  map[cellKey]float64 // written color-map cells only
}

type cellKey struct{ x, y int }

func newPlot(id int, rect grid.Point) *plot {
	p := &plot{id: id, rect: rect, typ: host.TwoDimen, attrs: property.Defaults()}
	p.resetCells()
	return p
}

func (p *plot) dataSize() property.Size { return p.attrs.ColorMap.DataSize }

// resetCells drops every color-map cell. Storage is sparse, so a data size
// near MaxInt32 costs nothing until cells are written.
func (p *plot) resetCells() {
	p.cells = make(map[cellKey]float64)
}

func (p *plot) setCell(x, y int, v float64) { p.cells[cellKey{x, y}] = v }

func (p *plot) clear() {
	p.points = nil
	p.resetCells()
}

// Snapshot is a copy of one plot's state.
type Snapshot struct {
	ID     int
	Rect   grid.Point
	Type   host.PlotType
	Attrs  property.Attributes
	Points [][2]float64
	cells  map[cellKey]float64
}

// Cell returns the color-map value at (x, y) and whether one was written.
func (s Snapshot) Cell(x, y int) (float64, bool) {
	v, ok := s.cells[cellKey{x, y}]
	return v, ok
}

// Written returns the number of color-map cells holding a value.
func (s Snapshot) Written() int { return len(s.cells) }

func (p *plot) snapshot() Snapshot {
	s := Snapshot{
		ID:     p.id,
		Rect:   p.rect,
		Type:   p.typ,
		Attrs:  p.attrs,
		Points: append([][2]float64(nil), p.points...),
		cells:  make(map[cellKey]float64, len(p.cells)),
	}
	for k, v := range p.cells {
		s.cells[k] = v
	}
	return s
}
