package service

import (
	"time"

	"github.com/wricardo/knightboard/game/board"
)

// SessionInfo describes a planning session and the board it works on.
type SessionInfo struct {
	ID             string        `json:"id"`
	BoardName      string        `json:"board_name"`
	BarrierMode    string        `json:"barrier_mode"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Start          *board.Coord  `json:"start,omitempty"`
	End            *board.Coord  `json:"end,omitempty"`
	Teleports      []board.Coord `json:"teleports,omitempty"`
	Board          string        `json:"board"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
}

// CreateSessionRequest selects the board and rules for a new session.
type CreateSessionRequest struct {
	// Board is a board name from the library; empty selects the default.
	Board string `json:"board,omitempty"`
	// Layout is an inline board in the text format. It wins over Board.
	Layout string `json:"layout,omitempty"`
	// BarrierMode is "any" (default) or "all".
	BarrierMode string `json:"barrier_mode,omitempty"`
}

// MoveOption is one legal destination.
type MoveOption struct {
	Pos      board.Coord `json:"pos"`
	Piece    string      `json:"piece"`
	Cost     int         `json:"cost"`
	Teleport bool        `json:"teleport,omitempty"`
}

// MovesResult lists the legal moves from a cell.
type MovesResult struct {
	From  board.Coord  `json:"from"`
	Piece string       `json:"piece"`
	Moves []MoveOption `json:"moves"`
}

// ValidateResult reports whether a position sequence is walkable.
type ValidateResult struct {
	Valid      bool   `json:"valid"`
	Cost       int    `json:"cost,omitempty"`
	FailedStep int    `json:"failed_step,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PlanRequest asks for the cheapest path between two cells. Missing
// coordinates default to the board's Start and End cells.
type PlanRequest struct {
	Start         *board.Coord `json:"start,omitempty"`
	Goal          *board.Coord `json:"goal,omitempty"`
	PriorityQueue bool         `json:"priority_queue,omitempty"`
}

// PlanResult is the outcome of a shortest-path query.
type PlanResult struct {
	Start       board.Coord   `json:"start"`
	Goal        board.Coord   `json:"goal"`
	Reachable   bool          `json:"reachable"`
	Cost        int           `json:"cost"`
	Path        []board.Coord `json:"path,omitempty"`
	StepCosts   []int         `json:"step_costs,omitempty"`
	Reached     int           `json:"reached"`
	Pops        int           `json:"pops"`
	Relaxations int           `json:"relaxations"`
	ElapsedMS   int64         `json:"elapsed_ms"`
	Grid        string        `json:"grid,omitempty"`
	List        string        `json:"list,omitempty"`
}

// TourRequest asks for a long simple path. A zero Budget uses the default;
// End restricts recorded paths to those finishing on it.
type TourRequest struct {
	Start      *board.Coord `json:"start,omitempty"`
	End        *board.Coord `json:"end,omitempty"`
	Heuristic  string       `json:"heuristic,omitempty"`
	BudgetMS   int          `json:"budget_ms,omitempty"`
	AcceptCost int          `json:"accept_cost,omitempty"`
	Coverage   bool         `json:"coverage,omitempty"`
	Seed       uint64       `json:"seed,omitempty"`
}

// TourResult is the best path a tour search found.
type TourResult struct {
	Heuristic       string        `json:"heuristic"`
	Start           board.Coord   `json:"start"`
	Found           bool          `json:"found"`
	Cost            int           `json:"cost"`
	Length          int           `json:"length"`
	Path            []board.Coord `json:"path,omitempty"`
	StepCosts       []int         `json:"step_costs,omitempty"`
	Nodes           int           `json:"nodes"`
	Improvements    int           `json:"improvements"`
	ElapsedMS       int64         `json:"elapsed_ms"`
	BudgetExhausted bool          `json:"budget_exhausted"`
	Accepted        bool          `json:"accepted"`
	Grid            string        `json:"grid,omitempty"`
}

// CompareRequest runs several heuristics on the same start. An empty
// Heuristics list compares all of them.
type CompareRequest struct {
	TourRequest
	Heuristics []string `json:"heuristics,omitempty"`
}

// CompareResult ranks tour results, best first.
type CompareResult struct {
	Results []*TourResult `json:"results"`
}

// Event is pushed to subscribers of a session.
type Event struct {
	Type      string    `json:"type"` // "session_created", "plan", "tour_progress", "tour", "compare"
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// BoardInfo describes a board in the library.
type BoardInfo struct {
	Filename  string         `json:"filename"`
	BoardID   string         `json:"board_id"` // The identifier to use for session creation
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Teleports int            `json:"teleports"`
	Landable  int            `json:"landable"`
	Start     *board.Coord   `json:"start,omitempty"`
	End       *board.Coord   `json:"end,omitempty"`
	Pieces    map[string]int `json:"pieces"`
}
