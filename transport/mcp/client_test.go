package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/api"
	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/config"
	"github.com/wricardo/knightboard/game/service"
	"github.com/wricardo/knightboard/game/session"
)

const smallBoard = "S . . .\n. . W .\n. . . E"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.txt"), []byte(smallBoard), 0644))

	boards, err := config.NewManager(dir)
	require.NoError(t, err)
	svc := service.NewPlannerService(session.NewManager(), boards)
	ts := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/")
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text
}

func createSession(t *testing.T, c *Client) string {
	t.Helper()
	res, err := c.handleCreateSession(context.Background(), callTool(map[string]any{"board": "small"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	text := resultText(t, res)
	require.True(t, strings.HasPrefix(text, "Created session: "), text)
	line, _, _ := strings.Cut(strings.TrimPrefix(text, "Created session: "), "\n")
	return line
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestToolsAreRegistered(t *testing.T) {
	client := NewClient("http://localhost:8080")
	msg := client.GetMCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	resp, ok := msg.(mcp.JSONRPCResponse)
	require.True(t, ok, "unexpected message %#v", msg)
	list, ok := resp.Result.(mcp.ListToolsResult)
	require.True(t, ok, "unexpected result %#v", resp.Result)

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_boards", "create_session", "list_sessions", "get_session",
		"possible_moves", "validate_sequence", "plan_path", "longest_path",
		"compare_heuristics", "show_board", "describe_cell",
	}, names)
}

func TestListBoardsAndSessions(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	res, err := c.handleListBoards(ctx, callTool(nil))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "Boards (1)")
	assert.Contains(t, text, "- small: 3x4")

	id := createSession(t, c)
	assert.Len(t, id, 4)

	res, err = c.handleListSessions(ctx, callTool(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), id)

	res, err = c.handleGetSession(ctx, callTool(map[string]any{"session_id": id}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), smallBoard)

	res, err = c.handleGetSession(ctx, callTool(map[string]any{"session_id": "zzzz"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestPossibleMoves(t *testing.T) {
	c := newTestClient(t)
	id := createSession(t, c)

	res, err := c.handlePossibleMoves(context.Background(), callTool(map[string]any{
		"session_id": id, "row": float64(0), "col": float64(0),
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "2 moves")
	assert.Contains(t, text, "(1,2) water, cost 2")
	assert.Contains(t, text, "(2,1) empty, cost 1")

	res, err = c.handlePossibleMoves(context.Background(), callTool(map[string]any{"session_id": id, "row": float64(0)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestValidateSequence(t *testing.T) {
	c := newTestClient(t)
	id := createSession(t, c)
	ctx := context.Background()

	res, err := c.handleValidateSequence(ctx, callTool(map[string]any{"session_id": id, "path": "0,0 2,1 0,2 2,3"}))
	require.NoError(t, err)
	assert.Equal(t, "VALID: 4 positions, total cost 3", resultText(t, res))

	res, err = c.handleValidateSequence(ctx, callTool(map[string]any{"session_id": id, "path": "(0,0) (1,1)"}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resultText(t, res), "INVALID at step 1"), resultText(t, res))

	res, err = c.handleValidateSequence(ctx, callTool(map[string]any{"session_id": id, "path": "0;0"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestPlanPath(t *testing.T) {
	c := newTestClient(t)
	id := createSession(t, c)

	res, err := c.handlePlanPath(context.Background(), callTool(map[string]any{"session_id": id}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "Cheapest path (0,0) -> (2,3): cost 3, 3 moves")
	assert.Contains(t, text, "Path: 0,0 2,1 0,2 2,3")

	res, err = c.handlePlanPath(context.Background(), callTool(map[string]any{
		"session_id": id, "goal": "9,9",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestLongestPathAndCompare(t *testing.T) {
	c := newTestClient(t)
	id := createSession(t, c)
	ctx := context.Background()

	res, err := c.handleLongestPath(ctx, callTool(map[string]any{
		"session_id": id, "heuristic": "dense", "budget_ms": float64(2000), "coverage": true,
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.True(t, strings.HasPrefix(text, "dense: cost "), text)
	assert.Contains(t, text, "Path: 0,0 ")

	res, err = c.handleCompareHeuristics(ctx, callTool(map[string]any{
		"session_id": id, "heuristics": "identity, sparse", "budget_ms": float64(500),
	}))
	require.NoError(t, err)
	text = resultText(t, res)
	assert.Contains(t, text, "1. ")
	assert.Contains(t, text, "2. ")
	assert.Contains(t, text, "identity")
	assert.Contains(t, text, "sparse")

	res, err = c.handleCompareHeuristics(ctx, callTool(map[string]any{"session_id": id, "heuristics": "bogus"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestShowBoardAndDescribeCell(t *testing.T) {
	c := newTestClient(t)
	id := createSession(t, c)
	ctx := context.Background()

	res, err := c.handleShowBoard(ctx, callTool(map[string]any{"session_id": id, "row": float64(1), "col": float64(1)}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "K")

	res, err = c.handleDescribeCell(ctx, callTool(map[string]any{"session_id": id, "row": float64(1), "col": float64(2)}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "Type: water")
	assert.Contains(t, text, "Landing cost: 2")

	res, err = c.handleDescribeCell(ctx, callTool(map[string]any{"session_id": id, "row": float64(5), "col": float64(0)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServeHTTP(t *testing.T) {
	c := NewClient("http://localhost:8080")

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	w := httptest.NewRecorder()
	c.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "plan_path")

	req = httptest.NewRequest(http.MethodGet, "/mcp", nil)
	w = httptest.NewRecorder()
	c.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestParsePath(t *testing.T) {
	path, err := parsePath(" (0,0) 2, 1;0,2\n")
	require.Error(t, err)
	assert.Nil(t, path)

	path, err = parsePath("(0,0) 2,1;0,2\n")
	require.NoError(t, err)
	assert.Equal(t, []board.Coord{board.C(0, 0), board.C(2, 1), board.C(0, 2)}, path)

	_, err = parsePath("   ")
	assert.Error(t, err)
}
