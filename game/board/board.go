package board

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrEmptyBoard     = errors.New("board: no cells")
	ErrNotRectangular = errors.New("board: rows have different lengths")
	ErrUnknownPiece   = errors.New("board: unknown piece symbol")
	ErrNoStart        = errors.New("board: no start cell")
	ErrNoEnd          = errors.New("board: no end cell")
)

// Board is the piece grid the knight moves on.
type Board = Grid[Piece]

// NewBoard returns a height x width board of Empty cells.
func NewBoard(height, width int) *Board {
	return NewGrid(height, width, Empty)
}

// Parse reads a board in the text format. Rows are separated by "\n" and
// cells by a single space. Surrounding blank lines and a trailing "\r" on each
// row are ignored.
func Parse(text string) (*Board, error) {
	text = strings.Trim(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyBoard
	}
	lines := strings.Split(text, "\n")
	rows := make([][]Piece, len(lines))
	for r, line := range lines {
		symbols := strings.Split(strings.TrimRight(line, "\r"), " ")
		row := make([]Piece, len(symbols))
		for c, s := range symbols {
			p, err := ParsePiece(s)
			if err != nil {
				return nil, errors.WithMessagef(err, "cell (%d,%d)", r, c)
			}
			row[c] = p
		}
		rows[r] = row
	}
	return GridFromRows(rows)
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(text string) *Board {
	b, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return b
}

// Load reads a board file from disk.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading board %s", path)
	}
	b, err := Parse(string(data))
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing board %s", path)
	}
	return b, nil
}

// Format renders b in the text format, without a trailing delimiter.
func Format(b *Board) string {
	var sb strings.Builder
	sb.Grow(b.Height() * b.Width() * 2)
	for r, row := range b.cells {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c, p := range row {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(byte(p))
		}
	}
	return sb.String()
}

// Write stores b at path in the text format.
func Write(path string, b *Board) error {
	if err := os.WriteFile(path, []byte(Format(b)), 0644); err != nil {
		return errors.Wrapf(err, "writing board %s", path)
	}
	return nil
}

// Locate returns the first Start and End cells in row-major order.
func Locate(b *Board) (start, end Coord, err error) {
	starts := FindAll(b, Start)
	if len(starts) == 0 {
		return Coord{}, Coord{}, ErrNoStart
	}
	ends := FindAll(b, End)
	if len(ends) == 0 {
		return starts[0], Coord{}, ErrNoEnd
	}
	return starts[0], ends[0], nil
}
