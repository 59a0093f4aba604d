package engine

import (
	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// ValidateSequence checks that path is something a knight could walk: every
// position is landable and each consecutive pair is a knight move or a
// teleport hop. The returned error is a *SequenceError naming the first bad
// step.
func (r *Rules) ValidateSequence(path []board.Coord) error {
	if len(path) == 0 {
		return ErrEmptySequence
	}
	if !r.Landable(path[0]) {
		return &SequenceError{Index: 0, From: path[0], To: path[0], Err: ErrOffBoard}
	}
	for i := 1; i < len(path); i++ {
		prev, pos := path[i-1], path[i]
		if !r.Landable(pos) {
			return &SequenceError{Index: i, From: prev, To: pos, Err: ErrOffBoard}
		}
		if IsKnightMove(pos.Sub(prev)) {
			continue
		}
		partner, ok, err := r.TeleportPartner(prev)
		if err != nil {
			return errors.WithMessagef(err, "step %d", i)
		}
		if ok && partner == pos {
			continue
		}
		return &SequenceError{Index: i, From: prev, To: pos, Err: ErrNotKnightMove}
	}
	return nil
}

// PathCost totals the landing cost of every position after the first.
func (r *Rules) PathCost(path []board.Coord) (int, error) {
	total := 0
	for i := 1; i < len(path); i++ {
		c, err := r.CostAt(path[i])
		if err != nil {
			return 0, err
		}
		total += c
	}
	return total, nil
}

// CountPieces tallies the pieces on b.
func CountPieces(b *board.Board) map[board.Piece]int {
	counts := make(map[board.Piece]int, len(board.Pieces))
	b.Each(func(_ board.Coord, p board.Piece) {
		counts[p]++
	})
	return counts
}

// LandableCells counts the cells a knight may stand on.
func LandableCells(b *board.Board) int {
	n := 0
	b.Each(func(_ board.Coord, p board.Piece) {
		if p.Passable() {
			n++
		}
	})
	return n
}
