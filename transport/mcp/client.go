package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/service"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Client is a thin MCP server whose tools proxy to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// Tours run for their whole budget; leave room above the longest one.
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"knightboard",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`knightboard - knight path planning on grid boards

This is a thin client that proxies all requests to the REST API server.

BOARDS:
Boards are grids of single-letter cells: S start, E end, . empty, W water,
L lava, T teleport, B barrier, R rock. Coordinates are (row, col) from the
top-left corner, starting at 0.

MOVES:
The knight moves in an L: two cells one way and one cell across. It may
never land on B or R, and a B cell on both L-shaped tracings between the
two cells blocks the move. Standing on a T it may also jump to the other T.
Landing costs: . 1, W 2, T 1, L 5, E 1, S 0.

AVAILABLE TOOLS:
- list_boards / create_session / list_sessions / get_session
- possible_moves: legal moves from a cell
- validate_sequence: check a path you planned yourself
- plan_path: cheapest path (defaults to S -> E)
- longest_path: longest simple path within a time budget
- compare_heuristics: run move-ordering heuristics side by side
- show_board / describe_cell: inspect the board`),
	)
	c.registerTools()
}

func (c *Client) registerTools() {
	sessionArg := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))

	c.mcpServer.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List the boards in the library with their size and piece counts"),
	), c.handleListBoards)

	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a planning session on a library board or an inline layout"),
		mcp.WithString("board", mcp.Description("Board name from list_boards (default board when omitted)")),
		mcp.WithString("layout", mcp.Description("Inline board: rows separated by newlines, cells by single spaces")),
		mcp.WithString("barrier_mode", mcp.Description("How barriers block moves"), mcp.Enum("any", "all")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List active planning sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get session details including the board"),
		sessionArg,
	), c.handleGetSession)

	c.mcpServer.AddTool(mcp.NewTool("possible_moves",
		mcp.WithDescription("List legal knight moves from a cell, with landing costs"),
		sessionArg,
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row of the cell")),
		mcp.WithNumber("col", mcp.Required(), mcp.Description("Column of the cell")),
	), c.handlePossibleMoves)

	c.mcpServer.AddTool(mcp.NewTool("validate_sequence",
		mcp.WithDescription("Check that a sequence of positions is a walkable knight path and total its cost"),
		sessionArg,
		mcp.WithString("path", mcp.Required(), mcp.Description(`Positions as "row,col" separated by spaces, e.g. "2,1 3,3 4,5"`)),
	), c.handleValidateSequence)

	c.mcpServer.AddTool(mcp.NewTool("plan_path",
		mcp.WithDescription("Find the cheapest knight path between two cells (defaults to the S and E cells)"),
		sessionArg,
		mcp.WithString("start", mcp.Description(`Start as "row,col"`)),
		mcp.WithString("goal", mcp.Description(`Goal as "row,col"`)),
		mcp.WithBoolean("priority_queue", mcp.Description("Expand cheapest cells first instead of in discovery order")),
	), c.handlePlanPath)

	c.mcpServer.AddTool(mcp.NewTool("longest_path",
		mcp.WithDescription("Search for the most expensive simple knight path within a time budget"),
		sessionArg,
		mcp.WithString("start", mcp.Description(`Start as "row,col" (defaults to the S cell)`)),
		mcp.WithString("end", mcp.Description(`Only accept paths finishing here, as "row,col"`)),
		mcp.WithString("heuristic", mcp.Description("Move ordering"), mcp.Enum("identity", "dense", "sparse", "random")),
		mcp.WithNumber("budget_ms", mcp.Description("Time budget in milliseconds (default 5000)")),
		mcp.WithNumber("accept_cost", mcp.Description("Stop once a path reaches this cost")),
		mcp.WithBoolean("coverage", mcp.Description("Stop once a path visits every reachable cell")),
	), c.handleLongestPath)

	c.mcpServer.AddTool(mcp.NewTool("compare_heuristics",
		mcp.WithDescription("Run several longest-path heuristics in parallel and rank them"),
		sessionArg,
		mcp.WithString("heuristics", mcp.Description(`Comma separated heuristic names (default: all)`)),
		mcp.WithString("start", mcp.Description(`Start as "row,col" (defaults to the S cell)`)),
		mcp.WithNumber("budget_ms", mcp.Description("Time budget per heuristic in milliseconds")),
		mcp.WithNumber("accept_cost", mcp.Description("Stop each search once a path reaches this cost")),
	), c.handleCompareHeuristics)

	c.mcpServer.AddTool(mcp.NewTool("show_board",
		mcp.WithDescription("Render the session board, optionally with the knight (K) on a cell"),
		sessionArg,
		mcp.WithNumber("row", mcp.Description("Knight row")),
		mcp.WithNumber("col", mcp.Description("Knight column")),
	), c.handleShowBoard)

	c.mcpServer.AddTool(mcp.NewTool("describe_cell",
		mcp.WithDescription("Describe one board cell: piece, landing cost and whether the knight can land on it"),
		sessionArg,
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row of the cell")),
		mcp.WithNumber("col", mcp.Required(), mcp.Description("Column of the cell")),
	), c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers one JSON-RPC message per POST request.
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)
	w.Header().Set("Content-Type", "application/json")
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
	}
}

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return errors.New(msg)
		}
		return errors.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Tool handlers

func (c *Client) handleListBoards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var boards []*service.BoardInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/boards", nil, &boards); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Boards (%d):\n", len(boards))
	for _, b := range boards {
		fmt.Fprintf(&sb, "- %s: %dx%d, %d landable cells, %d teleports%s%s\n",
			b.BoardID, b.Height, b.Width, b.Landable, b.Teleports, coordSuffix(" start", b.Start), coordSuffix(" end", b.End))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := service.CreateSessionRequest{
		Board:       request.GetString("board", ""),
		Layout:      request.GetString("layout", ""),
		BarrierMode: request.GetString("barrier_mode", ""),
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Created session: " + formatSessionInfo(&info)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Active sessions (%d):\n", len(response.Sessions))
	for _, s := range response.Sessions {
		fmt.Fprintf(&sb, "- %s: board %s (%dx%d), last used %s\n",
			s.ID, s.BoardName, s.Height, s.Width, s.LastAccessedAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handlePossibleMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := request.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	col, err := request.RequireInt("col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res service.MovesResult
	path := fmt.Sprintf("/api/sessions/%s/moves?row=%d&col=%d", url.PathEscape(sessionID), row, col)
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From %v (%s): %d moves\n", res.From, res.Piece, len(res.Moves))
	for _, m := range res.Moves {
		via := ""
		if m.Teleport {
			via = " via teleport"
		}
		fmt.Fprintf(&sb, "- %v %s, cost %d%s\n", m.Pos, m.Piece, m.Cost, via)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleValidateSequence(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	positions, err := parsePath(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var res service.ValidateResult
	body := map[string]any{"path": positions}
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/validate", body, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !res.Valid {
		return mcp.NewToolResultText(fmt.Sprintf("INVALID at step %d: %s", res.FailedStep, res.Reason)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("VALID: %d positions, total cost %d", len(positions), res.Cost)), nil
}

func (c *Client) handlePlanPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var req service.PlanRequest
	if req.Start, err = optionalCoord(request, "start"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.Goal, err = optionalCoord(request, "goal"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.PriorityQueue = request.GetBool("priority_queue", false)

	var res service.PlanResult
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/plan", req, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPlan(&res)), nil
}

func (c *Client) handleLongestPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req, err := tourRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.End, err = optionalCoord(request, "end"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.Heuristic = request.GetString("heuristic", "")
	req.Coverage = request.GetBool("coverage", false)

	var res service.TourResult
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/tour", req, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTour(&res, true)), nil
}

func (c *Client) handleCompareHeuristics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tr, err := tourRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := service.CompareRequest{TourRequest: tr}
	for _, name := range strings.Split(request.GetString("heuristics", ""), ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Heuristics = append(req.Heuristics, name)
		}
	}

	var res service.CompareResult
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/compare", req, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Ranking (best first):\n")
	for i, r := range res.Results {
		fmt.Fprintf(&sb, "%d. %s", i+1, formatTour(r, false))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleShowBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := "/api/sessions/" + url.PathEscape(sessionID) + "/board"
	args := request.GetArguments()
	_, hasRow := args["row"]
	_, hasCol := args["col"]
	if hasRow || hasCol {
		path += fmt.Sprintf("?row=%d&col=%d", request.GetInt("row", 0), request.GetInt("col", 0))
	}

	var res struct {
		Board string `json:"board"`
	}
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(res.Board), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := request.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	col, err := request.RequireInt("col")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := board.Parse(info.Board)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pos := board.C(row, col)
	piece, ok := b.Lookup(pos)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Cell %v is out of bounds. Board is %d rows by %d columns (rows 0-%d, cols 0-%d)",
			pos, b.Height(), b.Width(), b.Height()-1, b.Width()-1)), nil
	}

	cost := "cannot land"
	if n, ok := piece.Cost(); ok {
		cost = fmt.Sprintf("%d", n)
	}
	result := fmt.Sprintf("Cell %v:\nSymbol: %s\nType: %s\nLandable: %v\nLanding cost: %s\n",
		pos, piece, piece.Name(), piece.Passable(), cost)
	if piece == board.Barrier {
		result += "Barrier cells also block knight moves whose L-shaped tracings both cross them.\n"
	}
	return mcp.NewToolResultText(result), nil
}

// Argument helpers

func tourRequest(request mcp.CallToolRequest) (service.TourRequest, error) {
	var req service.TourRequest
	var err error
	if req.Start, err = optionalCoord(request, "start"); err != nil {
		return req, err
	}
	req.BudgetMS = request.GetInt("budget_ms", 0)
	req.AcceptCost = request.GetInt("accept_cost", 0)
	return req, nil
}

func optionalCoord(request mcp.CallToolRequest, key string) (*board.Coord, error) {
	raw := strings.TrimSpace(request.GetString(key, ""))
	if raw == "" {
		return nil, nil
	}
	pos, err := board.ParseCoord(raw)
	if err != nil {
		return nil, errors.WithMessage(err, key)
	}
	return &pos, nil
}

// parsePath reads positions separated by whitespace or ";".
func parsePath(s string) ([]board.Coord, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ';' || r == '\n' || r == '\t' })
	path := make([]board.Coord, 0, len(fields))
	for _, f := range fields {
		pos, err := board.ParseCoord(f)
		if err != nil {
			return nil, err
		}
		path = append(path, pos)
	}
	if len(path) == 0 {
		return nil, errors.New("path is empty")
	}
	return path, nil
}

// Formatting helpers

func coordSuffix(label string, pos *board.Coord) string {
	if pos == nil {
		return ""
	}
	return fmt.Sprintf(",%s %v", label, *pos)
}

func formatSessionInfo(s *service.SessionInfo) string {
	return fmt.Sprintf("%s\nBoard: %s (%d rows x %d cols, barrier mode %s)%s%s\n\n%s\n",
		s.ID, s.BoardName, s.Height, s.Width, s.BarrierMode,
		coordSuffix("\nStart:", s.Start), coordSuffix("\nEnd:", s.End), s.Board)
}

func formatPlan(res *service.PlanResult) string {
	if !res.Reachable {
		return fmt.Sprintf("No path from %v to %v. %d cells are reachable from the start.\n", res.Start, res.Goal, res.Reached)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Cheapest path %v -> %v: cost %d, %d moves\n", res.Start, res.Goal, res.Cost, len(res.Path)-1)
	fmt.Fprintf(&sb, "Path: %s\n\n", formatPositions(res.Path))
	sb.WriteString(res.Grid)
	sb.WriteString("\n")
	return sb.String()
}

func formatTour(res *service.TourResult, withGrid bool) string {
	status := "search space exhausted"
	switch {
	case res.Accepted:
		status = "accepted"
	case res.BudgetExhausted:
		status = "budget exhausted"
	}
	if !res.Found {
		return fmt.Sprintf("%s: no path found (%s, %d nodes, %dms)\n", res.Heuristic, status, res.Nodes, res.ElapsedMS)
	}

	line := fmt.Sprintf("%s: cost %d, %d positions (%s, %d nodes, %dms)\n",
		res.Heuristic, res.Cost, res.Length, status, res.Nodes, res.ElapsedMS)
	if !withGrid {
		return line
	}
	return line + "Path: " + formatPositions(res.Path) + "\n\n" + res.Grid + "\n"
}

func formatPositions(path []board.Coord) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprintf("%d,%d", p.Row, p.Col)
	}
	return strings.Join(parts, " ")
}
