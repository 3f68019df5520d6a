// Package grid validates and stores plot layout arrangements.
package grid

import "github.com/pkg/errors"

// MaxDim bounds the number of rows and columns an arrangement may span.
const MaxDim = 256

// Point is one rectangle of an arrangement: origin (X, Y) and inclusive span
// (DX, DY), so {0, 0, 0, 0} covers exactly one cell.
type Point struct {
	X, DX, Y, DY int
}

// ErrInvalid is returned for arrangements that do not tile a rectangle.
var ErrInvalid = errors.New("invalid plot arrangement")

// Validate checks that arr tiles a rectangle with no gaps or overlaps and
// returns its dimensions.
func Validate(arr []Point) (cols, rows int, err error) {
	if len(arr) == 0 {
		return 0, 0, errors.Wrap(ErrInvalid, "empty arrangement")
	}
	for i, p := range arr {
		if p.X < 0 || p.DX < 0 || p.Y < 0 || p.DY < 0 {
			return 0, 0, errors.Wrapf(ErrInvalid, "negative coordinate in entry %d", i)
		}
		cols = max(cols, p.X+p.DX+1)
		rows = max(rows, p.Y+p.DY+1)
	}
	if cols > MaxDim || rows > MaxDim {
		return 0, 0, errors.Wrapf(ErrInvalid, "%dx%d exceeds %dx%d", cols, rows, MaxDim, MaxDim)
	}

	occupied := make([]bool, cols*rows)
	for i, p := range arr {
		for c := p.X; c <= p.X+p.DX; c++ {
			for r := p.Y; r <= p.Y+p.DY; r++ {
				if occupied[r*cols+c] {
					return 0, 0, errors.Wrapf(ErrInvalid, "entry %d overlaps cell (%d, %d)", i, c, r)
				}
				occupied[r*cols+c] = true
			}
		}
	}
	for i, ok := range occupied {
		if !ok {
			return 0, 0, errors.Wrapf(ErrInvalid, "cell (%d, %d) is not covered", i%cols, i/cols)
		}
	}
	return cols, rows, nil
}

// Grid maps every cell of an arrangement to the index of the rectangle
// covering it.
type Grid struct {
	cols, rows int
	ids        []int
	points     []Point
}

// New returns a 1x1 grid holding a single plot.
func New() *Grid {
	return &Grid{cols: 1, rows: 1, ids: []int{0}, points: []Point{{}}}
}

// SetArrangement replaces the layout. A rejected arrangement leaves the grid
// unchanged.
func (g *Grid) SetArrangement(arr []Point) error {
	cols, rows, err := Validate(arr)
	if err != nil {
		return err
	}
	ids := make([]int, cols*rows)
	for i, p := range arr {
		for c := p.X; c <= p.X+p.DX; c++ {
			for r := p.Y; r <= p.Y+p.DY; r++ {
				ids[r*cols+c] = i
			}
		}
	}
	g.cols, g.rows, g.ids = cols, rows, ids
	g.points = append([]Point(nil), arr...)
	return nil
}

// ID returns the index of the rectangle covering cell (c, r), or -1 when the
// cell lies outside the grid.
func (g *Grid) ID(c, r int) int {
	if c < 0 || r < 0 || c >= g.cols || r >= g.rows {
		return -1
	}
	return g.ids[r*g.cols+c]
}

func (g *Grid) Cols() int { return g.cols }
func (g *Grid) Rows() int { return g.rows }

// Len returns the number of rectangles.
func (g *Grid) Len() int { return len(g.points) }

// Points returns a copy of the current arrangement.
func (g *Grid) Points() []Point { return append([]Point(nil), g.points...) }
