package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/api"
	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/config"
	"github.com/wricardo/knightboard/game/service"
	"github.com/wricardo/knightboard/game/session"
	"github.com/wricardo/knightboard/transport/websocket"
)

var testBoards = map[string]string{
	"small":  "S . . .\n. . W .\n. . . E",
	"walled": "S . .\n. E .\n. . .",
}

func newTestServer(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	for name, layout := range testBoards {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(layout), 0644))
	}
	boards, err := config.NewManager(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	svc := service.NewPlannerService(session.NewManager(), boards, service.WithPublisher(hub))
	ts := httptest.NewServer(api.NewServer(svc, hub))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/")
}

func TestProbe(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	var watched string
	r, err := probe(ctx, c, "small", service.TourRequest{BudgetMS: 500}, func(id string) { watched = id })
	require.NoError(t, err)
	assert.True(t, r.OK(), "failures: %v", r.Failures)
	assert.Equal(t, r.SessionID, watched)
	assert.Equal(t, "small", r.Board)
	require.NotNil(t, r.Plan)
	assert.Equal(t, 3, r.Plan.Cost)
	require.NotNil(t, r.Tour)
	require.True(t, r.Tour.Found)
	assert.Equal(t, board.C(2, 3), r.Tour.Path[len(r.Tour.Path)-1])
	assert.GreaterOrEqual(t, r.Tour.Cost, r.Plan.Cost)

	var buf bytes.Buffer
	printReport(&buf, r)
	assert.Contains(t, buf.String(), "Cheapest: (0,0) -> (2,3) cost 3 in 3 moves")
	assert.Contains(t, buf.String(), "All checks passed")

	require.NoError(t, c.DeleteSession(ctx, r.SessionID))
	assert.Error(t, c.DeleteSession(ctx, r.SessionID))
}

func TestProbe_UnreachableEnd(t *testing.T) {
	c := newTestServer(t)

	r, err := probe(context.Background(), c, "walled", service.TourRequest{BudgetMS: 200}, nil)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Contains(t, r.Failures, "end (1,1) unreachable from start (0,0)")

	var buf bytes.Buffer
	printReport(&buf, r)
	assert.Contains(t, buf.String(), "unreachable")
	assert.Contains(t, buf.String(), "❌ end (1,1)")
}

func TestProbe_UnknownBoard(t *testing.T) {
	c := newTestServer(t)
	_, err := probe(context.Background(), c, "missing", service.TourRequest{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientValidate(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()
	info, err := c.CreateSession(ctx, service.CreateSessionRequest{Board: "small"})
	require.NoError(t, err)

	v, err := c.Validate(ctx, info.ID, []board.Coord{board.C(0, 0), board.C(1, 2)})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 2, v.Cost)

	v, err = c.Validate(ctx, info.ID, []board.Coord{board.C(0, 0), board.C(0, 1)})
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, 1, v.FailedStep)
}

func TestClientWatch(t *testing.T) {
	c := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := c.CreateSession(ctx, service.CreateSessionRequest{Board: "small"})
	require.NoError(t, err)

	events := make(chan service.Event, 16)
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, info.ID, events) }()

	// Registration with the hub is asynchronous; plan until an event arrives.
	var got service.Event
	for got.Type == "" {
		_, err := c.Plan(ctx, info.ID, service.PlanRequest{})
		require.NoError(t, err)
		select {
		case got = <-events:
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
	assert.Equal(t, "plan", got.Type)
	assert.Equal(t, info.ID, got.SessionID)
	assert.Equal(t, "path found", got.Message)

	cancel()
	assert.NoError(t, <-done)
}
