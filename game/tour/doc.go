// Package tour searches for long simple knight paths.
//
// Finding the longest simple path is NP-hard, so the search is a bounded
// depth-first walk: every frame orders its unvisited moves with a Heuristic,
// descends into each in turn and keeps the most expensive path seen. A
// degree map, the number of onward moves each cell still has, is kept in
// step with the walk so heuristics can prefer constrained or open cells.
//
// The walk stops when the branches run out, when the time budget passes or
// when an acceptance threshold (a target cost, or covering every reachable
// cell) is met. Visited cells live in a private overlay; the board is never
// written.
//
// Compare runs several heuristics side by side on independent board copies.
package tour
