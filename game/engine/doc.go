// Package engine implements the knight's movement rules on a board.
//
// Rules is the single source of truth for legality and cost:
//
//   - a knight moves by one of the eight L offsets (±1,±2) and (±2,±1);
//   - a destination must be on the board and must not be a Barrier or Rock;
//   - a move is blocked by barriers only when the L cannot be drawn around
//     them (BarrierAny, the default) or, with WithBarrierMode(BarrierAll),
//     when either drawing crosses one;
//   - standing on a teleport additionally offers its partner as a move.
//
// Landing costs are Empty 1, Water 2, Teleport 1, Lava 5, Start 0 and End 1.
//
// Usage:
//
//	b, err := board.Load("boards/8x8.txt")
//	if err != nil {
//		return err
//	}
//	rules, err := engine.NewRules(b)
//	if err != nil {
//		return err
//	}
//	moves, err := rules.PossibleMoves(board.C(1, 1))
//
// Boards with a teleport count other than zero or two are rejected with a
// ConfigError wrapping ErrTeleportCount.
package engine
