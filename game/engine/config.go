package engine

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// ValidateBoard checks the structural rules every board must satisfy before
// it can be searched: it has cells, every cell is a known piece and it holds
// either no teleports or exactly one pair.
func ValidateBoard(b *board.Board) error {
	if b == nil || b.Height() == 0 || b.Width() == 0 {
		return &ConfigError{Err: board.ErrEmptyBoard}
	}
	var bad []string
	b.Each(func(pos board.Coord, p board.Piece) {
		if !p.Valid() {
			bad = append(bad, fmt.Sprintf("%q at %v", p.String(), pos))
		}
	})
	if len(bad) > 0 {
		return &ConfigError{Err: board.ErrUnknownPiece, Detail: strings.Join(bad, ", ")}
	}
	if teleports := board.FindAll(b, board.Teleport); len(teleports) != 0 && len(teleports) != 2 {
		return &ConfigError{Err: ErrTeleportCount, Detail: teleportDetail(teleports)}
	}
	return nil
}

// ValidateLayout adds the rules a playable board file must follow on top of
// ValidateBoard: exactly one Start and one End.
func ValidateLayout(b *board.Board) error {
	if err := ValidateBoard(b); err != nil {
		return err
	}
	for _, want := range []board.Piece{board.Start, board.End} {
		if n := board.Count(b, want); n != 1 {
			return &ConfigError{
				Err:    errors.Errorf("engine: board must hold exactly one %s cell", want.Name()),
				Detail: fmt.Sprintf("found %d", n),
			}
		}
	}
	return nil
}

func teleportDetail(teleports []board.Coord) string {
	parts := make([]string, len(teleports))
	for i, t := range teleports {
		parts[i] = t.String()
	}
	return fmt.Sprintf("found %d: [%s]", len(teleports), strings.Join(parts, " "))
}
