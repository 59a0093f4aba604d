package tour

import (
	"context"
	"slices"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/planner"
)

// DefaultBudget bounds a search when no budget is given.
const DefaultBudget = 5 * time.Second

// pollInterval is how many nodes are expanded between context checks.
const pollInterval = 256

var ErrInvalidStart = errors.New("tour: start must be a landable cell on the board")

// Progress describes an improvement found while the search is running.
type Progress struct {
	Heuristic string        `json:"heuristic"`
	Path      []board.Coord `json:"path"`
	Cost      int           `json:"cost"`
	Nodes     int           `json:"nodes"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Result is the best path a search found.
type Result struct {
	Heuristic string        `json:"heuristic"`
	Start     board.Coord   `json:"start"`
	Path      []board.Coord `json:"path"`
	Cost      int           `json:"cost"`

	Nodes        int           `json:"nodes"`
	Improvements int           `json:"improvements"`
	Elapsed      time.Duration `json:"elapsed"`

	// BudgetExhausted is set when the deadline passed or the context was
	// cancelled before the search space was exhausted.
	BudgetExhausted bool `json:"budget_exhausted"`
	// Accepted is set when the acceptance threshold ended the search early.
	Accepted bool `json:"accepted"`
}

// Found reports whether any path was recorded. With WithEnd a search may
// finish without one.
func (r *Result) Found() bool {
	return len(r.Path) > 0
}

// Complete reports whether every branch was explored.
func (r *Result) Complete() bool {
	return !r.BudgetExhausted && !r.Accepted
}

// Searcher looks for long simple knight paths by depth-first search with
// heuristic move ordering.
type Searcher struct {
	eng        engine.Engine
	heuristic  Heuristic
	budget     time.Duration
	end        board.Coord
	requireEnd bool
	acceptCost int
	coverage   bool
	progress   func(Progress)
	now        func() time.Time
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithHeuristic sets the move ordering. The default is Identity.
func WithHeuristic(h Heuristic) Option {
	return func(s *Searcher) { s.heuristic = h }
}

// WithBudget bounds the wall-clock time of a search.
func WithBudget(d time.Duration) Option {
	return func(s *Searcher) { s.budget = d }
}

// WithEnd only records paths that finish on end.
func WithEnd(end board.Coord) Option {
	return func(s *Searcher) {
		s.end = end
		s.requireEnd = true
	}
}

// WithAcceptCost stops the search once a path of at least cost is recorded.
func WithAcceptCost(cost int) Option {
	return func(s *Searcher) { s.acceptCost = cost }
}

// WithCoverage stops the search once the recorded path visits every cell
// reachable from the start.
func WithCoverage() Option {
	return func(s *Searcher) { s.coverage = true }
}

// WithProgress registers fn to be called on every improvement. fn runs on the
// search goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(s *Searcher) { s.progress = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) { s.now = now }
}

// NewSearcher returns a searcher over eng's board.
func NewSearcher(eng engine.Engine, opts ...Option) *Searcher {
	s := &Searcher{
		eng:       eng,
		heuristic: Identity{},
		budget:    DefaultBudget,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run is the state of one Search call.
type run struct {
	*Searcher
	ctx context.Context

	visited *board.Grid[bool]
	degrees *board.Grid[int]
	path    []board.Coord

	best     []board.Coord
	bestCost int
	accept   func(*run) bool

	began, deadline time.Time
	nodes           int
	improvements    int
	stopped         bool
	exhausted       bool
	accepted        bool
	err             error
}

// Search explores simple paths from start and returns the most expensive one
// found before the search space, the budget or the acceptance threshold ran
// out. The board is only read.
func (s *Searcher) Search(ctx context.Context, start board.Coord) (*Result, error) {
	b := s.eng.Board()
	if p, ok := b.Lookup(start); !ok || !p.Passable() {
		return nil, errors.Wrapf(ErrInvalidStart, "%v", start)
	}

	startCost, err := s.eng.CostAt(start)
	if err != nil {
		return nil, err
	}
	degrees, err := engine.DegreeMap(s.eng)
	if err != nil {
		return nil, err
	}

	r := &run{
		Searcher: s,
		ctx:      ctx,
		visited:  board.NewGrid(b.Height(), b.Width(), false),
		degrees:  degrees,
		bestCost: -1,
	}
	if r.accept, err = s.acceptance(ctx, start); err != nil {
		return nil, err
	}

	r.began = s.now()
	r.deadline = r.began.Add(s.budget)

	err = exceptions.TryCatch[error](func() {
		r.explore(start, startCost)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "tour search with heuristic %s", s.heuristic.Name())
	}
	if r.err != nil {
		return nil, r.err
	}

	res := &Result{
		Heuristic:       s.heuristic.Name(),
		Start:           start,
		Path:            r.best,
		Cost:            max(r.bestCost, 0),
		Nodes:           r.nodes,
		Improvements:    r.improvements,
		Elapsed:         s.now().Sub(r.began),
		BudgetExhausted: r.exhausted,
		Accepted:        r.accepted,
	}
	klog.V(1).Infof("tour[%s]: from %v best cost %d over %d cells, %d nodes in %s (exhausted=%v accepted=%v)",
		res.Heuristic, start, res.Cost, len(res.Path), res.Nodes, res.Elapsed, res.BudgetExhausted, res.Accepted)
	return res, nil
}

func (s *Searcher) acceptance(ctx context.Context, start board.Coord) (func(*run) bool, error) {
	var checks []func(*run) bool
	if s.acceptCost > 0 {
		checks = append(checks, func(r *run) bool { return r.bestCost >= s.acceptCost })
	}
	if s.coverage {
		reach, err := planner.Plan(ctx, s.eng, start)
		if err != nil {
			return nil, errors.WithMessage(err, "counting reachable cells")
		}
		target := reach.Reached()
		checks = append(checks, func(r *run) bool { return len(r.best) >= target })
	}
	return func(r *run) bool {
		for _, check := range checks {
			if check(r) {
				return true
			}
		}
		return false
	}, nil
}

// explore is one frame of the depth-first search. cost already includes
// every cell of the path up to and including curr.
func (r *run) explore(curr board.Coord, cost int) {
	if r.shouldStop() {
		return
	}
	r.nodes++

	r.visited.Set(curr, true)
	r.path = append(r.path, curr)
	defer func() {
		r.path = r.path[:len(r.path)-1]
		r.visited.Set(curr, false)
	}()

	if cost > r.bestCost && (!r.requireEnd || curr == r.end) {
		r.record(cost)
		if r.accept(r) {
			r.accepted = true
			r.stopped = true
			return
		}
	}

	moves, err := r.eng.PossibleMoves(curr)
	if err != nil {
		r.fail(err)
		return
	}
	candidates := make([]Candidate, 0, len(moves))
	for _, m := range moves {
		if r.visited.Get(m) {
			continue
		}
		candidates = append(candidates, Candidate{Degree: r.degrees.Get(m), Pos: m})
	}
	if len(candidates) == 0 {
		return
	}

	n := len(candidates)
	candidates = r.heuristic.Order(candidates)
	if len(candidates) != n {
		exceptions.Panicf("heuristic %s returned %d candidates for %d moves at %v",
			r.heuristic.Name(), len(candidates), n, curr)
	}

	for _, c := range candidates {
		r.degrees.Set(c.Pos, r.degrees.Get(c.Pos)-1)
	}
	defer func() {
		for _, c := range candidates {
			r.degrees.Set(c.Pos, r.degrees.Get(c.Pos)+1)
		}
	}()

	for _, c := range candidates {
		if r.stopped {
			return
		}
		step, err := r.eng.CostAt(c.Pos)
		if err != nil {
			r.fail(err)
			return
		}
		r.explore(c.Pos, cost+step)
	}
}

func (r *run) record(cost int) {
	r.bestCost = cost
	r.best = slices.Clone(r.path)
	r.improvements++
	if klog.V(2).Enabled() {
		klog.Infof("tour[%s]: improved to cost %d over %d cells after %d nodes",
			r.heuristic.Name(), cost, len(r.best), r.nodes)
	}
	if r.progress != nil {
		r.progress(Progress{
			Heuristic: r.heuristic.Name(),
			Path:      slices.Clone(r.best),
			Cost:      cost,
			Nodes:     r.nodes,
			Elapsed:   r.now().Sub(r.began),
		})
	}
}

func (r *run) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	r.stopped = true
}

func (r *run) shouldStop() bool {
	if r.stopped {
		return true
	}
	if r.nodes%pollInterval == 0 && r.ctx.Err() != nil {
		r.exhausted = true
		r.stopped = true
		return true
	}
	if !r.now().Before(r.deadline) {
		r.exhausted = true
		r.stopped = true
		return true
	}
	return false
}
