package board

import "github.com/pkg/errors"

// Grid is a rectangular, row-major store of T values.
//
// The zero value is an empty 0x0 grid. Grids are not safe for concurrent
// mutation; readers may share a grid as long as nobody writes to it.
type Grid[T any] struct {
	cells [][]T
}

// NewGrid returns a height x width grid with every cell set to fill.
func NewGrid[T any](height, width int, fill T) *Grid[T] {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}
	cells := make([][]T, height)
	for r := range cells {
		row := make([]T, width)
		for c := range row {
			row[c] = fill
		}
		cells[r] = row
	}
	return &Grid[T]{cells: cells}
}

// GridFromRows wraps rows into a Grid. Every row must have the same length.
// The rows are used directly, not copied.
func GridFromRows[T any](rows [][]T) (*Grid[T], error) {
	if len(rows) > 0 {
		width := len(rows[0])
		for r, row := range rows {
			if len(row) != width {
				return nil, errors.Wrapf(ErrNotRectangular, "row %d has %d cells, row 0 has %d", r, len(row), width)
			}
		}
	}
	return &Grid[T]{cells: rows}, nil
}

// Height returns the number of rows.
func (g *Grid[T]) Height() int {
	return len(g.cells)
}

// Width returns the number of columns.
func (g *Grid[T]) Width() int {
	if len(g.cells) == 0 {
		return 0
	}
	return len(g.cells[0])
}

// InBounds reports whether pos lies in [0,Height) x [0,Width).
func (g *Grid[T]) InBounds(pos Coord) bool {
	return pos.Row >= 0 && pos.Row < g.Height() && pos.Col >= 0 && pos.Col < g.Width()
}

// Get returns the value at pos. It panics if pos is out of bounds; use
// Lookup when the coordinate is untrusted.
func (g *Grid[T]) Get(pos Coord) T {
	return g.cells[pos.Row][pos.Col]
}

// Lookup returns the value at pos and whether pos was in bounds.
func (g *Grid[T]) Lookup(pos Coord) (T, bool) {
	if !g.InBounds(pos) {
		var zero T
		return zero, false
	}
	return g.cells[pos.Row][pos.Col], true
}

// Set stores v at pos.
func (g *Grid[T]) Set(pos Coord, v T) {
	g.cells[pos.Row][pos.Col] = v
}

// Reset overwrites every cell with v.
func (g *Grid[T]) Reset(v T) {
	for _, row := range g.cells {
		for c := range row {
			row[c] = v
		}
	}
}

// Each calls fn for every cell in row-major order.
func (g *Grid[T]) Each(fn func(pos Coord, v T)) {
	for r, row := range g.cells {
		for c, v := range row {
			fn(Coord{Row: r, Col: c}, v)
		}
	}
}

// Clone returns a deep copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	cells := make([][]T, len(g.cells))
	for r, row := range g.cells {
		cells[r] = append([]T(nil), row...)
	}
	return &Grid[T]{cells: cells}
}

// Rows returns a copy of the grid contents.
func (g *Grid[T]) Rows() [][]T {
	return g.Clone().cells
}

// FindAll returns the coordinates of every cell equal to v, in row-major order.
func FindAll[T comparable](g *Grid[T], v T) []Coord {
	var found []Coord
	g.Each(func(pos Coord, cell T) {
		if cell == v {
			found = append(found, pos)
		}
	})
	return found
}

// Count returns the number of cells equal to v.
func Count[T comparable](g *Grid[T], v T) int {
	n := 0
	g.Each(func(_ Coord, cell T) {
		if cell == v {
			n++
		}
	})
	return n
}

// Equal reports whether a and b have the same shape and contents.
func Equal[T comparable](a, b *Grid[T]) bool {
	if a.Height() != b.Height() || a.Width() != b.Width() {
		return false
	}
	for r := range a.cells {
		for c := range a.cells[r] {
			if a.cells[r][c] != b.cells[r][c] {
				return false
			}
		}
	}
	return true
}
