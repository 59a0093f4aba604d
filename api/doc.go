// Package api is the HTTP REST surface of the planner service.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"board": "8x8"}, {"layout": "..."}, "barrier_mode")
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session details and board text
//   - DELETE /api/sessions/{id} - Delete a session
//
// Planning:
//   - GET /api/sessions/{id}/moves?row=&col= - Legal knight moves from a cell
//   - POST /api/sessions/{id}/validate - Check a position sequence ({"path": [...]})
//   - POST /api/sessions/{id}/plan - Cheapest path, defaults to Start and End cells
//   - POST /api/sessions/{id}/tour - Longest simple path within a time budget
//   - POST /api/sessions/{id}/compare - Run several tour heuristics in parallel
//   - GET /api/sessions/{id}/board?row=&col= - Rendered board, optional knight marker
//
// Boards:
//   - GET /api/boards - Board library listing
//   - GET /api/boards/{name} - Board layout and metadata
//   - POST /api/boards - Save a board ({"name": "...", "layout": "..."})
//
// Live updates:
//   - GET /ws/{id} (or /ws?session={id}) - WebSocket stream of session events
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions and
// boards, 400 for malformed requests and 422 for boards that break the
// teleport rule.
package api
