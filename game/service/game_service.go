package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
)

// PlannerService defines all planning operations
type PlannerService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Movement
	PossibleMoves(ctx context.Context, sessionID string, from board.Coord) (*MovesResult, error)
	ValidateSequence(ctx context.Context, sessionID string, path []board.Coord) (*ValidateResult, error)

	// Searches
	Plan(ctx context.Context, sessionID string, req PlanRequest) (*PlanResult, error)
	Tour(ctx context.Context, sessionID string, req TourRequest) (*TourResult, error)
	Compare(ctx context.Context, sessionID string, req CompareRequest) (*CompareResult, error)

	// Rendering
	RenderBoard(ctx context.Context, sessionID string, knight *board.Coord) (string, error)

	// Board library
	ListBoards(ctx context.Context) ([]*BoardInfo, error)
	LoadBoard(ctx context.Context, name string) (*board.Board, error)
	SaveBoard(ctx context.Context, name string, layout string) (*BoardInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, boardName string, rules *engine.Rules) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// BoardLibrary loads and stores board files
type BoardLibrary interface {
	LoadBoard(name string) (*board.Board, error)
	ListBoards() ([]*BoardInfo, error)
	GetDefault() (string, *board.Board)
	SaveBoard(name string, b *board.Board) error
}

// Publisher receives session events, typically to push them to websocket
// subscribers.
type Publisher interface {
	Publish(sessionID string, event Event)
}

// Session is a board with its movement rules, worked on by one client.
type Session struct {
	ID             string
	BoardName      string
	Rules          *engine.Rules
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// mu serialises searches on the session.
	mu sync.Mutex
}

// Board returns the session's board.
func (s *Session) Board() *board.Board {
	return s.Rules.Board()
}
