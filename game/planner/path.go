package planner

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
)

// Path walks the journey map back from goal and returns the positions in
// travel order, start first.
//
// For a goal that was never reached the walk stops immediately and the
// result is just [goal]; check Reachable first or use ShortestPath.
func (r *Result) Path(goal board.Coord) []board.Coord {
	if !r.Journey.InBounds(goal) {
		return nil
	}
	limit := r.Journey.Height() * r.Journey.Width()
	path := []board.Coord{goal}
	for curr := goal; len(path) <= limit; {
		link := r.Journey.Get(curr)
		if !link.Set {
			break
		}
		curr = link.From
		path = append(path, curr)
	}
	slices.Reverse(path)
	return path
}

// ShortestPath returns the cheapest path from the start to goal, or
// ErrUnreachable.
func (r *Result) ShortestPath(goal board.Coord) ([]board.Coord, error) {
	if !r.Reachable(goal) {
		return nil, errors.Wrapf(ErrUnreachable, "%v -> %v", r.Start, goal)
	}
	return r.Path(goal), nil
}

// StepCosts returns the accumulated cost at every position of path.
func (r *Result) StepCosts(path []board.Coord) []int {
	costs := make([]int, len(path))
	for i, pos := range path {
		c, _ := r.Cost(pos)
		costs[i] = c
	}
	return costs
}
