// Package mcp exposes the planner to AI agents over the Model Context
// Protocol.
//
// The Client is a thin MCP server: every tool call is forwarded to the REST
// API, so agents, browsers and the command line share one set of sessions.
//
// Tools:
//   - list_boards, create_session, list_sessions, get_session
//   - possible_moves: legal knight moves from a cell
//   - validate_sequence: check and price a hand-made path
//   - plan_path: cheapest path, defaulting to the S and E cells
//   - longest_path: budgeted longest simple path
//   - compare_heuristics: rank move-ordering heuristics
//   - show_board, describe_cell
//
// Positions are passed as "row,col" strings; paths as space separated
// positions.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// or over HTTP, one JSON-RPC message per POST
//	router.Handle("/mcp", client)
package mcp
