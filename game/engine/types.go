package engine

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// BarrierMode selects how barrier cells along a knight's L are treated.
type BarrierMode int

const (
	// BarrierAny allows a move when at least one of the two L tracings is
	// free of barriers.
	BarrierAny BarrierMode = iota
	// BarrierAll requires both tracings to be free of barriers.
	BarrierAll
)

func (m BarrierMode) String() string {
	switch m {
	case BarrierAny:
		return "any"
	case BarrierAll:
		return "all"
	}
	return fmt.Sprintf("BarrierMode(%d)", int(m))
}

// ParseBarrierMode accepts "any" (or "") and "all".
func ParseBarrierMode(s string) (BarrierMode, error) {
	switch s {
	case "", "any":
		return BarrierAny, nil
	case "all", "strict":
		return BarrierAll, nil
	}
	return BarrierAny, errors.Errorf("unknown barrier mode %q", s)
}

// KnightOffsets are the eight L-shaped displacements.
var KnightOffsets = [8]board.Coord{
	{Row: -2, Col: -1}, {Row: -2, Col: 1},
	{Row: -1, Col: -2}, {Row: -1, Col: 2},
	{Row: 1, Col: -2}, {Row: 1, Col: 2},
	{Row: 2, Col: -1}, {Row: 2, Col: 1},
}

var (
	ErrImpassable    = errors.New("engine: piece cannot be landed on")
	ErrTeleportCount = errors.New("engine: board must hold zero or two teleports")
	ErrOutOfBounds   = errors.New("engine: position outside the board")
	ErrOffBoard      = errors.New("engine: move leaves the board or lands on a blocked cell")
	ErrNotKnightMove = errors.New("engine: consecutive positions are not a knight move")
	ErrEmptySequence = errors.New("engine: empty position sequence")
)

// ConfigError marks a defect in the board itself, as opposed to a bad
// request against a well-formed board.
type ConfigError struct {
	Err    error
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err was caused by a malformed board.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// SequenceError reports the first offending step of a position sequence.
type SequenceError struct {
	Index int
	From  board.Coord
	To    board.Coord
	Err   error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("step %d %v -> %v: %v", e.Index, e.From, e.To, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }
