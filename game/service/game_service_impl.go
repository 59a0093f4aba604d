package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/planner"
	"github.com/wricardo/knightboard/game/render"
	"github.com/wricardo/knightboard/game/tour"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBoardNotFound   = errors.New("board not found")
	ErrMissingStart    = errors.New("no start given and the board has no start cell")
	ErrMissingGoal     = errors.New("no goal given and the board has no end cell")
	ErrInvalidRequest  = errors.New("invalid request")
)

// progressInterval throttles tour progress events per search.
const progressInterval = 100 * time.Millisecond

// plannerServiceImpl implements the PlannerService interface
type plannerServiceImpl struct {
	sessions      SessionManager
	boards        BoardLibrary
	publisher     Publisher
	renderer      *render.Renderer
	defaultBudget time.Duration
	mu            sync.RWMutex
}

// Option configures the planner service.
type Option func(*plannerServiceImpl)

// WithPublisher sends session events to p.
func WithPublisher(p Publisher) Option {
	return func(s *plannerServiceImpl) { s.publisher = p }
}

// WithDefaultBudget sets the tour budget used when a request gives none.
func WithDefaultBudget(d time.Duration) Option {
	return func(s *plannerServiceImpl) { s.defaultBudget = d }
}

// NewPlannerService creates a new planner service instance
func NewPlannerService(sessions SessionManager, boards BoardLibrary, opts ...Option) PlannerService {
	s := &plannerServiceImpl{
		sessions:      sessions,
		boards:        boards,
		renderer:      render.New(render.WithValueWidth(2)),
		defaultBudget: tour.DefaultBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new planning session
func (s *plannerServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode, err := engine.ParseBarrierMode(req.BarrierMode)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	var (
		b    *board.Board
		name = req.Board
	)
	switch {
	case req.Layout != "":
		b, err = board.Parse(req.Layout)
		if err != nil {
			return nil, errors.WithMessage(err, "inline layout")
		}
		if name == "" {
			name = "inline"
		}
	case name != "":
		b, err = s.boards.LoadBoard(name)
		if err != nil {
			if errors.Is(err, ErrBoardNotFound) {
				return nil, s.boardNotFound(name)
			}
			return nil, errors.WithMessagef(err, "loading board %s", name)
		}
	default:
		name, b = s.boards.GetDefault()
		b = b.Clone()
	}

	rules, err := engine.NewRules(b, engine.WithBarrierMode(mode))
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create("", name, rules)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create session")
	}

	info := sessionInfo(sess)
	s.publish(sess.ID, "session_created", "session created on board "+name, info)
	return info, nil
}

func (s *plannerServiceImpl) boardNotFound(name string) error {
	available, err := s.boards.ListBoards()
	if err != nil || len(available) == 0 {
		return errors.Wrapf(ErrBoardNotFound, "board '%s' not found. Use /api/boards to list available boards", name)
	}
	ids := make([]string, len(available))
	for i, info := range available {
		ids[i] = info.BoardID
	}
	return errors.Wrapf(ErrBoardNotFound, "board '%s' not found. Available boards: %v", name, ids)
}

// GetSession retrieves session information
func (s *plannerServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *plannerServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	slices.SortFunc(result, func(a, b *SessionInfo) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return result, nil
}

// DeleteSession removes a session
func (s *plannerServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sessions.Delete(sessionID); err != nil {
		return errors.WithMessagef(err, "session %s", sessionID)
	}
	return nil
}

// PossibleMoves lists the legal moves from a cell
func (s *plannerServiceImpl) PossibleMoves(ctx context.Context, sessionID string, from board.Coord) (*MovesResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	moves, err := sess.Rules.PossibleMoves(from)
	if err != nil {
		return nil, err
	}
	partner, hasPartner, err := sess.Rules.TeleportPartner(from)
	if err != nil {
		return nil, err
	}

	b := sess.Board()
	result := &MovesResult{From: from, Piece: b.Get(from).Name(), Moves: make([]MoveOption, 0, len(moves))}
	for _, m := range moves {
		cost, err := sess.Rules.CostAt(m)
		if err != nil {
			return nil, err
		}
		result.Moves = append(result.Moves, MoveOption{
			Pos:      m,
			Piece:    b.Get(m).Name(),
			Cost:     cost,
			Teleport: hasPartner && m == partner && !engine.IsKnightMove(m.Sub(from)),
		})
	}
	return result, nil
}

// ValidateSequence checks whether a knight could walk path
func (s *plannerServiceImpl) ValidateSequence(ctx context.Context, sessionID string, path []board.Coord) (*ValidateResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err = sess.Rules.ValidateSequence(path)
	var seqErr *engine.SequenceError
	switch {
	case errors.As(err, &seqErr):
		return &ValidateResult{Valid: false, FailedStep: seqErr.Index, Reason: seqErr.Error()}, nil
	case errors.Is(err, engine.ErrEmptySequence):
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	case err != nil:
		return nil, err
	}

	cost, err := sess.Rules.PathCost(path)
	if err != nil {
		return nil, err
	}
	return &ValidateResult{Valid: true, Cost: cost}, nil
}

// Plan finds the cheapest path between two cells
func (s *plannerServiceImpl) Plan(ctx context.Context, sessionID string, req PlanRequest) (*PlanResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	start, goal, err := endpoints(sess.Board(), req.Start, req.Goal, true)
	if err != nil {
		return nil, err
	}

	var opts []planner.Option
	if req.PriorityQueue {
		opts = append(opts, planner.WithPriorityQueue())
	}
	res, err := planner.Plan(ctx, sess.Rules, start, opts...)
	if err != nil {
		return nil, err
	}

	result := &PlanResult{
		Start:       start,
		Goal:        goal,
		Reached:     res.Reached(),
		Pops:        res.Pops,
		Relaxations: res.Relaxations,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
	if path, err := res.ShortestPath(goal); err == nil {
		result.Reachable = true
		result.Path = path
		result.StepCosts = res.StepCosts(path)
		result.Cost = result.StepCosts[len(result.StepCosts)-1]
		result.Grid = s.renderer.PathGrid(sess.Board(), path, result.StepCosts)
		result.List = s.renderer.PathList(path, result.StepCosts)
	}

	msg := "goal unreachable"
	if result.Reachable {
		msg = "path found"
	}
	s.publish(sess.ID, "plan", msg, result)
	return result, nil
}

// Tour searches for a long simple path
func (s *plannerServiceImpl) Tour(ctx context.Context, sessionID string, req TourRequest) (*TourResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	start, _, err := endpoints(sess.Board(), req.Start, nil, false)
	if err != nil {
		return nil, err
	}
	h, err := tour.HeuristicByName(req.Heuristic, req.Seed)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	opts := append(s.tourOptions(req), tour.WithHeuristic(h), tour.WithProgress(s.progressPublisher(sess.ID)))
	res, err := tour.NewSearcher(sess.Rules, opts...).Search(ctx, start)
	if err != nil {
		return nil, err
	}

	result, err := s.tourResult(sess, res, true)
	if err != nil {
		return nil, err
	}
	s.publish(sess.ID, "tour", "tour search finished", result)
	return result, nil
}

// Compare runs several heuristics side by side
func (s *plannerServiceImpl) Compare(ctx context.Context, sessionID string, req CompareRequest) (*CompareResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	start, _, err := endpoints(sess.Board(), req.Start, nil, false)
	if err != nil {
		return nil, err
	}

	results, err := tour.Compare(ctx, sess.Rules, start, req.Heuristics, req.Seed, s.tourOptions(req.TourRequest)...)
	if err != nil {
		if errors.Is(err, tour.ErrUnknownHeuristic) {
			return nil, errors.Wrap(ErrInvalidRequest, err.Error())
		}
		return nil, err
	}

	out := &CompareResult{Results: make([]*TourResult, len(results))}
	for i, res := range results {
		if out.Results[i], err = s.tourResult(sess, res, i == 0); err != nil {
			return nil, err
		}
	}
	s.publish(sess.ID, "compare", "heuristic comparison finished", out)
	return out, nil
}

// RenderBoard draws the session board, optionally with the knight on it
func (s *plannerServiceImpl) RenderBoard(ctx context.Context, sessionID string, knight *board.Coord) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	r := render.New()
	if knight == nil {
		return r.Board(sess.Board(), nil), nil
	}
	if !sess.Board().InBounds(*knight) {
		return "", errors.Wrapf(engine.ErrOutOfBounds, "%v", *knight)
	}
	return r.Knight(sess.Board(), *knight), nil
}

// ListBoards returns the boards in the library
func (s *plannerServiceImpl) ListBoards(ctx context.Context) ([]*BoardInfo, error) {
	return s.boards.ListBoards()
}

// LoadBoard returns a copy of a library board
func (s *plannerServiceImpl) LoadBoard(ctx context.Context, name string) (*board.Board, error) {
	b, err := s.boards.LoadBoard(name)
	if err != nil {
		if errors.Is(err, ErrBoardNotFound) {
			return nil, s.boardNotFound(name)
		}
		return nil, err
	}
	return b, nil
}

// SaveBoard validates layout and stores it in the library under name
func (s *plannerServiceImpl) SaveBoard(ctx context.Context, name string, layout string) (*BoardInfo, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, errors.Wrapf(ErrInvalidRequest, "invalid board name %q", name)
	}
	b, err := board.Parse(layout)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateBoard(b); err != nil {
		return nil, err
	}
	if err := s.boards.SaveBoard(name, b); err != nil {
		return nil, err
	}
	return DescribeBoard(name, b), nil
}

func (s *plannerServiceImpl) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateLastAccessed(id); err != nil {
		klog.Warningf("session %s: updating access time: %v", id, err)
	}
	return sess, nil
}

func (s *plannerServiceImpl) tourOptions(req TourRequest) []tour.Option {
	budget := s.defaultBudget
	if req.BudgetMS > 0 {
		budget = time.Duration(req.BudgetMS) * time.Millisecond
	}
	opts := []tour.Option{tour.WithBudget(budget)}
	if req.End != nil {
		opts = append(opts, tour.WithEnd(*req.End))
	}
	if req.AcceptCost > 0 {
		opts = append(opts, tour.WithAcceptCost(req.AcceptCost))
	}
	if req.Coverage {
		opts = append(opts, tour.WithCoverage())
	}
	return opts
}

func (s *plannerServiceImpl) progressPublisher(sessionID string) func(tour.Progress) {
	if s.publisher == nil {
		return nil
	}
	var last time.Time
	return func(p tour.Progress) {
		now := time.Now()
		if now.Sub(last) < progressInterval {
			return
		}
		last = now
		s.publish(sessionID, "tour_progress", "tour improved", p)
	}
}

func (s *plannerServiceImpl) tourResult(sess *Session, res *tour.Result, withGrid bool) (*TourResult, error) {
	steps := make([]int, len(res.Path))
	for i, pos := range res.Path {
		c, err := sess.Rules.CostAt(pos)
		if err != nil {
			return nil, err
		}
		steps[i] = c
	}
	result := &TourResult{
		Heuristic:       res.Heuristic,
		Start:           res.Start,
		Found:           res.Found(),
		Cost:            res.Cost,
		Length:          len(res.Path),
		Path:            res.Path,
		StepCosts:       render.AccumulatedCosts(steps),
		Nodes:           res.Nodes,
		Improvements:    res.Improvements,
		ElapsedMS:       res.Elapsed.Milliseconds(),
		BudgetExhausted: res.BudgetExhausted,
		Accepted:        res.Accepted,
	}
	if withGrid && result.Found {
		result.Grid = render.New(render.WithValueWidth(3)).PathGrid(sess.Board(), res.Path, indices(len(res.Path)))
	}
	return result, nil
}

func (s *plannerServiceImpl) publish(sessionID, kind, msg string, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(sessionID, Event{
		Type:      kind,
		SessionID: sessionID,
		Message:   msg,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// endpoints fills in missing start and goal coordinates from the board's
// Start and End cells.
func endpoints(b *board.Board, start, goal *board.Coord, needGoal bool) (board.Coord, board.Coord, error) {
	var s, g board.Coord
	if start != nil {
		s = *start
	} else if found := board.FindAll(b, board.Start); len(found) > 0 {
		s = found[0]
	} else {
		return s, g, ErrMissingStart
	}
	if !needGoal {
		return s, g, nil
	}
	if goal != nil {
		g = *goal
	} else if found := board.FindAll(b, board.End); len(found) > 0 {
		g = found[0]
	} else {
		return s, g, ErrMissingGoal
	}
	if !b.InBounds(g) {
		return s, g, errors.Wrapf(engine.ErrOutOfBounds, "goal %v", g)
	}
	return s, g, nil
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func sessionInfo(sess *Session) *SessionInfo {
	b := sess.Board()
	info := &SessionInfo{
		ID:             sess.ID,
		BoardName:      sess.BoardName,
		BarrierMode:    sess.Rules.BarrierMode().String(),
		Width:          b.Width(),
		Height:         b.Height(),
		Teleports:      board.FindAll(b, board.Teleport),
		Board:          board.Format(b),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
	if found := board.FindAll(b, board.Start); len(found) > 0 {
		info.Start = &found[0]
	}
	if found := board.FindAll(b, board.End); len(found) > 0 {
		info.End = &found[0]
	}
	return info
}

// DescribeBoard summarises b for listings.
func DescribeBoard(name string, b *board.Board) *BoardInfo {
	info := &BoardInfo{
		Filename:  name + ".txt",
		BoardID:   name,
		Width:     b.Width(),
		Height:    b.Height(),
		Teleports: board.Count(b, board.Teleport),
		Landable:  engine.LandableCells(b),
		Pieces:    make(map[string]int),
	}
	for p, n := range engine.CountPieces(b) {
		info.Pieces[p.Name()] = n
	}
	if found := board.FindAll(b, board.Start); len(found) > 0 {
		info.Start = &found[0]
	}
	if found := board.FindAll(b, board.End); len(found) > 0 {
		info.End = &found[0]
	}
	return info
}
