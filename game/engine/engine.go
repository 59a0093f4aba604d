package engine

import (
	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// Engine answers the movement questions the planners ask about a board.
type Engine interface {
	Board() *board.Board

	// PossibleMoves lists every legal destination from pos.
	PossibleMoves(pos board.Coord) ([]board.Coord, error)
	// CostAt is the price of landing on pos.
	CostAt(pos board.Coord) (int, error)
	// TeleportPartner returns the linked teleport when pos is a teleport.
	TeleportPartner(pos board.Coord) (board.Coord, bool, error)
}

// Rules implements Engine for a single board.
//
// Rules never writes to the board. Several searches may share one Rules
// value as long as nothing else mutates the board meanwhile.
type Rules struct {
	board *board.Board
	mode  BarrierMode
}

var _ Engine = (*Rules)(nil)

// Option configures Rules.
type Option func(*Rules)

// WithBarrierMode overrides the default BarrierAny clearance rule.
func WithBarrierMode(m BarrierMode) Option {
	return func(r *Rules) { r.mode = m }
}

// NewRules returns the move rules for b. The board is validated for
// structural defects first.
func NewRules(b *board.Board, opts ...Option) (*Rules, error) {
	if err := ValidateBoard(b); err != nil {
		return nil, err
	}
	r := &Rules{board: b, mode: BarrierAny}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Board returns the underlying board.
func (r *Rules) Board() *board.Board {
	return r.board
}

// Clone returns rules over a deep copy of the board, with the same options.
func (r *Rules) Clone() *Rules {
	return &Rules{board: r.board.Clone(), mode: r.mode}
}

// BarrierMode returns the clearance rule in effect.
func (r *Rules) BarrierMode() BarrierMode {
	return r.mode
}

// MoveCost is the price of landing on p.
func MoveCost(p board.Piece) (int, error) {
	if !p.Valid() {
		return 0, errors.Wrapf(board.ErrUnknownPiece, "symbol %q", p.String())
	}
	c, ok := p.Cost()
	if !ok {
		return 0, errors.Wrapf(ErrImpassable, "%s (%s)", p.Name(), p)
	}
	return c, nil
}

// CostAt is the price of landing on pos.
func (r *Rules) CostAt(pos board.Coord) (int, error) {
	p, ok := r.board.Lookup(pos)
	if !ok {
		return 0, errors.Wrapf(ErrOutOfBounds, "%v", pos)
	}
	c, err := MoveCost(p)
	if err != nil {
		return 0, errors.WithMessagef(err, "at %v", pos)
	}
	return c, nil
}

// Landable reports whether pos is on the board and not a Barrier or Rock.
func (r *Rules) Landable(pos board.Coord) bool {
	p, ok := r.board.Lookup(pos)
	return ok && p.Passable()
}

// DegreeMap counts the legal moves out of every landable cell of eng's
// board. Blocked cells hold zero.
func DegreeMap(eng Engine) (*board.Grid[int], error) {
	b := eng.Board()
	degrees := board.NewGrid(b.Height(), b.Width(), 0)
	var err error
	b.Each(func(pos board.Coord, p board.Piece) {
		if err != nil || !p.Passable() {
			return
		}
		var moves []board.Coord
		if moves, err = eng.PossibleMoves(pos); err == nil {
			degrees.Set(pos, len(moves))
		}
	})
	if err != nil {
		return nil, err
	}
	return degrees, nil
}
