package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/service"
)

const board8x8 = `. . . . . . . .
. . . . . . . .
. S . . . . . .
. . . . . . . .
. . . . . E . .
. . . . . . . .
. . . . . . . .
. . . . . . . .`

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{sessions: make(map[string]*service.Session)}
}

func (m *MockSessionManager) Create(id, boardName string, rules *engine.Rules) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}
	sess := &service.Session{
		ID:             id,
		BoardName:      boardName,
		Rules:          rules,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	sess, exists := m.sessions[id]
	if !exists {
		return nil, errors.Wrap(service.ErrSessionNotFound, id)
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.Wrap(service.ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if sess, exists := m.sessions[id]; exists {
		sess.LastAccessedAt = time.Now()
		return nil
	}
	return errors.Wrap(service.ErrSessionNotFound, id)
}

func (m *MockSessionManager) Save(id string) error {
	return nil
}

// MockBoardLibrary implements service.BoardLibrary for testing
type MockBoardLibrary struct {
	boards map[string]*board.Board
}

func NewMockBoardLibrary() *MockBoardLibrary {
	return &MockBoardLibrary{boards: map[string]*board.Board{
		"8x8":  board.MustParse(board8x8),
		"lava": board.MustParse("S . . . .\n. L L . .\n. . L . E"),
	}}
}

func (m *MockBoardLibrary) LoadBoard(name string) (*board.Board, error) {
	b, ok := m.boards[name]
	if !ok {
		return nil, errors.Wrap(service.ErrBoardNotFound, name)
	}
	return b.Clone(), nil
}

func (m *MockBoardLibrary) ListBoards() ([]*service.BoardInfo, error) {
	var result []*service.BoardInfo
	for name, b := range m.boards {
		result = append(result, service.DescribeBoard(name, b))
	}
	return result, nil
}

func (m *MockBoardLibrary) GetDefault() (string, *board.Board) {
	return "8x8", m.boards["8x8"]
}

func (m *MockBoardLibrary) SaveBoard(name string, b *board.Board) error {
	m.boards[name] = b.Clone()
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []service.Event
}

func (p *recordingPublisher) Publish(sessionID string, event service.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newService(t *testing.T, opts ...service.Option) service.PlannerService {
	t.Helper()
	return service.NewPlannerService(NewMockSessionManager(), NewMockBoardLibrary(), opts...)
}

func coord(r, c int) *board.Coord {
	p := board.C(r, c)
	return &p
}

func TestPlannerService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	tests := []struct {
		name      string
		req       service.CreateSessionRequest
		wantBoard string
		wantErr   error
	}{
		{name: "default board", req: service.CreateSessionRequest{}, wantBoard: "8x8"},
		{name: "named board", req: service.CreateSessionRequest{Board: "lava"}, wantBoard: "lava"},
		{name: "inline layout", req: service.CreateSessionRequest{Layout: "S .\n. E"}, wantBoard: "inline"},
		{name: "strict barriers", req: service.CreateSessionRequest{Board: "8x8", BarrierMode: "all"}, wantBoard: "8x8"},
		{name: "unknown board", req: service.CreateSessionRequest{Board: "missing"}, wantErr: service.ErrBoardNotFound},
		{name: "bad barrier mode", req: service.CreateSessionRequest{BarrierMode: "sometimes"}, wantErr: service.ErrInvalidRequest},
		{name: "three teleports", req: service.CreateSessionRequest{Layout: "T T\nT ."}, wantErr: engine.ErrTeleportCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, info.ID)
			assert.Equal(t, tt.wantBoard, info.BoardName)
		})
	}
}

func TestPlannerService_SessionInfo(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{BarrierMode: "all"})
	require.NoError(t, err)
	assert.Equal(t, 8, info.Width)
	assert.Equal(t, 8, info.Height)
	assert.Equal(t, "all", info.BarrierMode)
	assert.Equal(t, coord(2, 1), info.Start)
	assert.Equal(t, coord(4, 5), info.End)
	assert.Equal(t, board8x8, info.Board)

	got, err := svc.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSession(ctx, info.ID))
	_, err = svc.GetSession(ctx, info.ID)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, info.ID), service.ErrSessionNotFound)
}

func TestPlannerService_DefaultBoardIsNotShared(t *testing.T) {
	ctx := context.Background()
	boards := NewMockBoardLibrary()
	svc := service.NewPlannerService(NewMockSessionManager(), boards)

	_, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, board8x8, board.Format(boards.boards["8x8"]))
}

func TestPlannerService_PossibleMoves(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Layout: "S . T\n. . .\nT . E"})
	require.NoError(t, err)

	res, err := svc.PossibleMoves(ctx, info.ID, board.C(0, 2))
	require.NoError(t, err)
	assert.Equal(t, "teleport", res.Piece)

	var teleports []board.Coord
	for _, m := range res.Moves {
		if m.Teleport {
			teleports = append(teleports, m.Pos)
		}
	}
	assert.Equal(t, []board.Coord{board.C(2, 0)}, teleports)

	_, err = svc.PossibleMoves(ctx, info.ID, board.C(5, 5))
	assert.ErrorIs(t, err, engine.ErrOutOfBounds)

	_, err = svc.PossibleMoves(ctx, "nope", board.C(0, 0))
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestPlannerService_ValidateSequence(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	res, err := svc.ValidateSequence(ctx, info.ID, []board.Coord{board.C(2, 1), board.C(3, 3), board.C(4, 5)})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.Cost)

	res, err = svc.ValidateSequence(ctx, info.ID, []board.Coord{board.C(2, 1), board.C(3, 3), board.C(3, 4)})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, 2, res.FailedStep)
	assert.NotEmpty(t, res.Reason)

	_, err = svc.ValidateSequence(ctx, info.ID, nil)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestPlannerService_Plan(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(t, service.WithPublisher(pub))
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	for _, pq := range []bool{false, true} {
		res, err := svc.Plan(ctx, info.ID, service.PlanRequest{PriorityQueue: pq})
		require.NoError(t, err)
		assert.True(t, res.Reachable)
		assert.Equal(t, 2, res.Cost)
		assert.Equal(t, []board.Coord{board.C(2, 1), board.C(3, 3), board.C(4, 5)}, res.Path)
		assert.Equal(t, []int{0, 1, 2}, res.StepCosts)
		assert.Equal(t, 64, res.Reached)
		assert.Contains(t, res.Grid, "0 ")
		assert.Contains(t, res.List, "Position: (4,5)")
	}
	assert.Equal(t, []string{"session_created", "plan", "plan"}, pub.types())
}

func TestPlannerService_PlanLava(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Board: "lava"})
	require.NoError(t, err)

	res, err := svc.Plan(ctx, info.ID, service.PlanRequest{})
	require.NoError(t, err)
	require.True(t, res.Reachable)
	assert.Equal(t, board.C(0, 0), res.Start)
	assert.Equal(t, board.C(2, 4), res.Goal)
	assert.Equal(t, res.StepCosts[len(res.StepCosts)-1], res.Cost)
}

func TestPlannerService_PlanEndpoints(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Layout: ". . .\n. . .\n. . ."})
	require.NoError(t, err)

	_, err = svc.Plan(ctx, info.ID, service.PlanRequest{})
	assert.ErrorIs(t, err, service.ErrMissingStart)

	_, err = svc.Plan(ctx, info.ID, service.PlanRequest{Start: coord(0, 0)})
	assert.ErrorIs(t, err, service.ErrMissingGoal)

	res, err := svc.Plan(ctx, info.ID, service.PlanRequest{Start: coord(0, 0), Goal: coord(1, 1)})
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Equal(t, 8, res.Reached)
	assert.Empty(t, res.Path)

	_, err = svc.Plan(ctx, info.ID, service.PlanRequest{Start: coord(0, 0), Goal: coord(9, 9)})
	assert.ErrorIs(t, err, engine.ErrOutOfBounds)
}

func TestPlannerService_Tour(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(t, service.WithPublisher(pub))
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	res, err := svc.Tour(ctx, info.ID, service.TourRequest{Heuristic: "dense", Coverage: true, BudgetMS: 10000})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.True(t, res.Accepted)
	assert.Equal(t, 64, res.Length)
	assert.Equal(t, 63, res.Cost)
	assert.Equal(t, res.Cost, res.StepCosts[len(res.StepCosts)-1])
	assert.NotEmpty(t, res.Grid)
	assert.Contains(t, pub.types(), "tour")

	_, err = svc.Tour(ctx, info.ID, service.TourRequest{Heuristic: "zigzag"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestPlannerService_Compare(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Layout: "S . . .\n. . . .\n. . . ."})
	require.NoError(t, err)

	res, err := svc.Compare(ctx, info.ID, service.CompareRequest{Heuristics: []string{"identity", "dense"}})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		assert.True(t, r.Found)
		assert.Equal(t, 11, r.Cost)
	}
	assert.NotEmpty(t, res.Results[0].Grid)
	assert.Empty(t, res.Results[1].Grid)

	_, err = svc.Compare(ctx, info.ID, service.CompareRequest{Heuristics: []string{"bogus"}})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestPlannerService_RenderBoard(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{Layout: "S .\n. E"})
	require.NoError(t, err)

	out, err := svc.RenderBoard(ctx, info.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "S .\n. E", out)

	out, err = svc.RenderBoard(ctx, info.ID, coord(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "S .\nK E", out)

	_, err = svc.RenderBoard(ctx, info.ID, coord(3, 0))
	assert.ErrorIs(t, err, engine.ErrOutOfBounds)
}

func TestPlannerService_Boards(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	infos, err := svc.ListBoards(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	info, err := svc.SaveBoard(ctx, "tiny", "S T\nT E")
	require.NoError(t, err)
	assert.Equal(t, "tiny", info.BoardID)
	assert.Equal(t, 2, info.Teleports)
	assert.Equal(t, 4, info.Landable)

	b, err := svc.LoadBoard(ctx, "tiny")
	require.NoError(t, err)
	assert.Equal(t, "S T\nT E", board.Format(b))

	_, err = svc.SaveBoard(ctx, "../escape", "S E")
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = svc.SaveBoard(ctx, "bad", "S X")
	assert.ErrorIs(t, err, board.ErrUnknownPiece)

	_, err = svc.LoadBoard(ctx, "nope")
	require.ErrorIs(t, err, service.ErrBoardNotFound)
	assert.True(t, strings.Contains(err.Error(), "Available boards"))
}
