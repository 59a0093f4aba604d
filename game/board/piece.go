package board

import (
	"github.com/pkg/errors"
)

// Piece is the content of a single board cell. Its value is the one-byte
// symbol used in the text format.
type Piece byte

const (
	Start    Piece = 'S'
	End      Piece = 'E'
	Empty    Piece = '.'
	Barrier  Piece = 'B'
	Water    Piece = 'W'
	Rock     Piece = 'R'
	Teleport Piece = 'T'
	Lava     Piece = 'L'
)

// Pieces lists the whole vocabulary in display order.
var Pieces = []Piece{Start, End, Empty, Barrier, Water, Rock, Teleport, Lava}

// landingCost is the price of moving onto a piece. Barrier and Rock are
// absent: they cannot be landed on.
var landingCost = map[Piece]int{
	Empty:    1,
	Water:    2,
	Teleport: 1,
	Lava:     5,
	Start:    0,
	End:      1,
}

var pieceNames = map[Piece]string{
	Start:    "start",
	End:      "end",
	Empty:    "empty",
	Barrier:  "barrier",
	Water:    "water",
	Rock:     "rock",
	Teleport: "teleport",
	Lava:     "lava",
}

// ParsePiece converts a text symbol into a Piece.
func ParsePiece(symbol string) (Piece, error) {
	if len(symbol) != 1 {
		return 0, errors.Wrapf(ErrUnknownPiece, "symbol %q", symbol)
	}
	p := Piece(symbol[0])
	if !p.Valid() {
		return 0, errors.Wrapf(ErrUnknownPiece, "symbol %q", symbol)
	}
	return p, nil
}

// Valid reports whether p belongs to the vocabulary.
func (p Piece) Valid() bool {
	_, ok := pieceNames[p]
	return ok
}

// Cost returns the landing cost of p and false for impassable pieces.
func (p Piece) Cost() (int, bool) {
	c, ok := landingCost[p]
	return c, ok
}

// Passable reports whether a knight may land on p.
func (p Piece) Passable() bool {
	_, ok := landingCost[p]
	return ok
}

// Name returns the lower-case English name of the piece.
func (p Piece) Name() string {
	if n, ok := pieceNames[p]; ok {
		return n
	}
	return "unknown"
}

func (p Piece) String() string {
	return string(rune(p))
}

// MarshalText encodes the piece as its symbol.
func (p Piece) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, errors.Wrapf(ErrUnknownPiece, "byte 0x%02x", byte(p))
	}
	return []byte{byte(p)}, nil
}

// UnmarshalText decodes a piece symbol.
func (p *Piece) UnmarshalText(text []byte) error {
	v, err := ParsePiece(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
