// Package board provides the grid store used by the knight planners.
//
// A Board is a rectangular Grid of Piece values parsed from a flat text
// format: one row per line, cells separated by a single space.
//
//	S . . B
//	. W . .
//	L . T E
//
// Grid is generic so that the planners can keep their own overlays (cost
// maps, journey maps, degree maps, visited sets) with the same shape and
// indexing as the board they were built from.
//
// Coordinates are (row, column) pairs with the origin in the top-left corner.
package board
