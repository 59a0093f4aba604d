package engine

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// PossibleMoves lists the legal destinations from pos: every knight offset
// that stays on the board, avoids Barrier and Rock cells and passes the
// barrier clearance rule, followed by the teleport partner when pos is a
// teleport. A partner that is also a knight move away is listed once.
func (r *Rules) PossibleMoves(pos board.Coord) ([]board.Coord, error) {
	if !r.board.InBounds(pos) {
		return nil, errors.Wrapf(ErrOutOfBounds, "%v", pos)
	}
	moves := make([]board.Coord, 0, len(KnightOffsets)+1)
	for _, off := range KnightOffsets {
		next := pos.Add(off)
		if !r.Landable(next) {
			continue
		}
		if !r.BarrierClear(pos, next) {
			continue
		}
		moves = append(moves, next)
	}
	partner, ok, err := r.TeleportPartner(pos)
	if err != nil {
		return nil, err
	}
	if ok && !slices.Contains(moves, partner) {
		moves = append(moves, partner)
	}
	return moves, nil
}

// CanMove reports whether to is a legal destination from from.
func (r *Rules) CanMove(from, to board.Coord) (bool, error) {
	moves, err := r.PossibleMoves(from)
	if err != nil {
		return false, err
	}
	for _, m := range moves {
		if m == to {
			return true, nil
		}
	}
	return false, nil
}

// BarrierClear checks the two ways of drawing the L between from and to:
// along from's row then to's column, or along from's column then to's row.
// Every stepped cell is checked, the origin excluded. Only Barrier blocks a
// tracing. Offsets that are not knight moves are reported clear.
func (r *Rules) BarrierClear(from, to board.Coord) bool {
	if !IsKnightMove(to.Sub(from)) {
		return true
	}
	rowFirst := r.clearAlongRow(from.Row, from.Col, to.Col) && r.clearAlongCol(to.Col, from.Row, to.Row)
	colFirst := r.clearAlongCol(from.Col, from.Row, to.Row) && r.clearAlongRow(to.Row, from.Col, to.Col)
	if r.mode == BarrierAll {
		return rowFirst && colFirst
	}
	return rowFirst || colFirst
}

func (r *Rules) clearAlongRow(row, fromCol, toCol int) bool {
	step := board.C(0, toCol-fromCol).Sign()
	for p := board.C(row, fromCol); p.Col != toCol; {
		p = p.Add(step)
		if r.isBarrier(p) {
			return false
		}
	}
	return true
}

func (r *Rules) clearAlongCol(col, fromRow, toRow int) bool {
	step := board.C(toRow-fromRow, 0).Sign()
	for p := board.C(fromRow, col); p.Row != toRow; {
		p = p.Add(step)
		if r.isBarrier(p) {
			return false
		}
	}
	return true
}

func (r *Rules) isBarrier(pos board.Coord) bool {
	p, ok := r.board.Lookup(pos)
	return ok && p == board.Barrier
}

// TeleportPartner returns the other teleport when pos holds a teleport.
// The board is scanned on every call; a count other than zero or two is a
// configuration error.
func (r *Rules) TeleportPartner(pos board.Coord) (board.Coord, bool, error) {
	p, ok := r.board.Lookup(pos)
	if !ok || p != board.Teleport {
		return board.Coord{}, false, nil
	}
	teleports := board.FindAll(r.board, board.Teleport)
	if len(teleports) != 2 {
		return board.Coord{}, false, &ConfigError{
			Err:    ErrTeleportCount,
			Detail: teleportDetail(teleports),
		}
	}
	if teleports[0] == pos {
		return teleports[1], true, nil
	}
	return teleports[0], true, nil
}

// IsKnightMove reports whether delta is one of the eight L displacements.
func IsKnightMove(delta board.Coord) bool {
	d := delta.Abs()
	return (d.Row == 1 && d.Col == 2) || (d.Row == 2 && d.Col == 1)
}
