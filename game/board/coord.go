package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrBadCoord = errors.New("board: position must be written \"row,col\"")

// Coord identifies a cell by row and column.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// C is shorthand for Coord{Row: row, Col: col}.
func C(row, col int) Coord {
	return Coord{Row: row, Col: col}
}

// Add returns c translated by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{Row: c.Row + d.Row, Col: c.Col + d.Col}
}

// Sub returns the offset that takes o to c.
func (c Coord) Sub(o Coord) Coord {
	return Coord{Row: c.Row - o.Row, Col: c.Col - o.Col}
}

// Sign reduces each component to -1, 0 or 1.
func (c Coord) Sign() Coord {
	return Coord{Row: sign(c.Row), Col: sign(c.Col)}
}

// Abs returns c with both components made non-negative.
func (c Coord) Abs() Coord {
	return Coord{Row: abs(c.Row), Col: abs(c.Col)}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ParseCoord reads a position written "row,col". Surrounding parentheses and
// spaces are allowed, so the output of Coord.String parses back.
func ParseCoord(s string) (Coord, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "("), ")")
	rowText, colText, ok := strings.Cut(trimmed, ",")
	if !ok {
		return Coord{}, errors.Wrapf(ErrBadCoord, "%q", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(rowText))
	if err != nil {
		return Coord{}, errors.Wrapf(ErrBadCoord, "%q", s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(colText))
	if err != nil {
		return Coord{}, errors.Wrapf(ErrBadCoord, "%q", s)
	}
	return C(row, col), nil
}
