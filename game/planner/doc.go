// Package planner finds minimum-cost knight paths.
//
// Plan relaxes costs outward from a start cell until no cell can be reached
// more cheaply, keeping for every reached cell the predecessor it was last
// improved from. The default frontier is first-in first-out; WithPriorityQueue
// pops the cheapest cell first, which usually relaxes fewer cells and always
// yields the same costs.
//
// The returned Result answers cost and path queries for every goal:
//
//	res, err := planner.Plan(ctx, rules, start)
//	if err != nil {
//		return err
//	}
//	path, err := res.ShortestPath(goal)
//	if errors.Is(err, planner.ErrUnreachable) {
//		...
//	}
package planner
