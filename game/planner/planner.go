package planner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
)

// Cost is an accumulated path cost. Undiscovered marks cells no path has
// reached.
type Cost int

const Undiscovered Cost = -1

// Backlink points at the cell a cell was reached from. Set is false for the
// start cell and for cells never reached.
type Backlink struct {
	From board.Coord `json:"from"`
	Set  bool        `json:"set"`
}

var (
	ErrInvalidStart = errors.New("planner: start must be a landable cell on the board")
	ErrUnreachable  = errors.New("planner: goal cannot be reached from start")
)

// ctxCheckInterval is how many frontier pops happen between context checks.
const ctxCheckInterval = 1024

type options struct {
	priority bool
}

// Option configures Plan.
type Option func(*options)

// WithPriorityQueue pops the cheapest frontier cell first instead of the
// oldest one.
func WithPriorityQueue() Option {
	return func(o *options) { o.priority = true }
}

// Result holds the cost and journey maps computed by Plan.
type Result struct {
	Start   board.Coord
	Costs   *board.Grid[Cost]
	Journey *board.Grid[Backlink]

	// Pops counts frontier removals, Relaxations counts cost improvements.
	Pops        int
	Relaxations int
	Elapsed     time.Duration
}

// Plan computes the cheapest cost from start to every reachable cell.
func Plan(ctx context.Context, eng engine.Engine, start board.Coord, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := eng.Board()
	if p, ok := b.Lookup(start); !ok || !p.Passable() {
		return nil, errors.Wrapf(ErrInvalidStart, "%v", start)
	}

	began := time.Now()
	res := &Result{
		Start:   start,
		Costs:   board.NewGrid(b.Height(), b.Width(), Undiscovered),
		Journey: board.NewGrid(b.Height(), b.Width(), Backlink{}),
	}
	res.Costs.Set(start, 0)

	var queue frontier = &fifo{}
	if o.priority {
		queue = newCostQueue()
	}
	queue.Push(start, 0)

	for queue.Len() > 0 {
		if res.Pops%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "planner interrupted")
			}
		}
		curr, queued := queue.Pop()
		res.Pops++
		currCost := res.Costs.Get(curr)
		if o.priority && queued > currCost {
			// Stale entry, curr was improved after being queued.
			continue
		}

		moves, err := eng.PossibleMoves(curr)
		if err != nil {
			return nil, err
		}
		for _, next := range moves {
			step, err := eng.CostAt(next)
			if err != nil {
				return nil, err
			}
			candidate := currCost + Cost(step)
			if known := res.Costs.Get(next); known != Undiscovered && candidate >= known {
				continue
			}
			res.Costs.Set(next, candidate)
			res.Journey.Set(next, Backlink{From: curr, Set: true})
			res.Relaxations++
			queue.Push(next, candidate)
			if klog.V(3).Enabled() {
				klog.Infof("planner: %v -> %v cost %d", curr, next, candidate)
			}
		}
	}

	res.Elapsed = time.Since(began)
	klog.V(1).Infof("planner: from %v reached %d cells, %d pops, %d relaxations in %s",
		start, res.Reached(), res.Pops, res.Relaxations, res.Elapsed)
	return res, nil
}

// Cost returns the cheapest cost to goal and whether goal was reached.
func (r *Result) Cost(goal board.Coord) (int, bool) {
	c, ok := r.Costs.Lookup(goal)
	if !ok || c == Undiscovered {
		return 0, false
	}
	return int(c), true
}

// Reachable reports whether goal was reached.
func (r *Result) Reachable(goal board.Coord) bool {
	_, ok := r.Cost(goal)
	return ok
}

// Reached counts the cells with a known cost, the start included.
func (r *Result) Reached() int {
	return r.Costs.Height()*r.Costs.Width() - board.Count(r.Costs, Undiscovered)
}
