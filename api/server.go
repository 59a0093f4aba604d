package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/wricardo/knightboard/game/board"
	"github.com/wricardo/knightboard/game/engine"
	"github.com/wricardo/knightboard/game/planner"
	"github.com/wricardo/knightboard/game/service"
	"github.com/wricardo/knightboard/game/tour"
	"github.com/wricardo/knightboard/transport/websocket"
)

// maxBodyBytes bounds request bodies; inline layouts are the largest.
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.PlannerService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, which disables the
// websocket endpoints.
func NewServer(svc service.PlannerService, hub *websocket.Hub) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleIndex).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Planning
	api.HandleFunc("/sessions/{id}/moves", s.handleMoves).Methods("GET")
	api.HandleFunc("/sessions/{id}/validate", s.handleValidate).Methods("POST")
	api.HandleFunc("/sessions/{id}/plan", s.handlePlan).Methods("POST")
	api.HandleFunc("/sessions/{id}/tour", s.handleTour).Methods("POST")
	api.HandleFunc("/sessions/{id}/compare", s.handleCompare).Methods("POST")
	api.HandleFunc("/sessions/{id}/board", s.handleRenderBoard).Methods("GET")

	// Board library
	api.HandleFunc("/boards", s.handleListBoards).Methods("GET")
	api.HandleFunc("/boards", s.handleSaveBoard).Methods("POST")
	api.HandleFunc("/boards/{name}", s.handleGetBoard).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/ws/{id}", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		klog.Warningf("writing response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and domain errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrBoardNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrMissingStart),
		errors.Is(err, service.ErrMissingGoal),
		errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, planner.ErrInvalidStart),
		errors.Is(err, tour.ErrInvalidStart),
		errors.Is(err, tour.ErrUnknownHeuristic),
		errors.Is(err, board.ErrUnknownPiece),
		errors.Is(err, board.ErrNotRectangular),
		errors.Is(err, board.ErrEmptyBoard):
		return http.StatusBadRequest
	case engine.IsConfigError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(service.ErrInvalidRequest, "invalid request body: "+err.Error())
	}
	return nil
}

// coordQuery reads ?row=&col=. ok is false when both are absent.
func coordQuery(r *http.Request) (pos board.Coord, ok bool, err error) {
	q := r.URL.Query()
	rowStr, colStr := q.Get("row"), q.Get("col")
	if rowStr == "" && colStr == "" {
		return pos, false, nil
	}
	row, rerr := strconv.Atoi(rowStr)
	col, cerr := strconv.Atoi(colStr)
	if rerr != nil || cerr != nil {
		return pos, false, errors.Wrapf(service.ErrInvalidRequest, "row and col must be integers, got row=%q col=%q", rowStr, colStr)
	}
	return board.C(row, col), true, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name": "knightboard",
		"endpoints": []string{
			"POST /api/sessions", "GET /api/sessions", "GET /api/sessions/{id}", "DELETE /api/sessions/{id}",
			"GET /api/sessions/{id}/moves?row=&col=", "POST /api/sessions/{id}/validate",
			"POST /api/sessions/{id}/plan", "POST /api/sessions/{id}/tour", "POST /api/sessions/{id}/compare",
			"GET /api/sessions/{id}/board", "GET /api/boards", "POST /api/boards", "GET /api/boards/{name}",
			"GET /ws/{id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	info, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < total {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Planning Handlers

func (s *Server) handleMoves(w http.ResponseWriter, r *http.Request) {
	from, ok, err := coordQuery(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusBadRequest, "row and col query parameters are required")
		return
	}

	result, err := s.service.PossibleMoves(r.Context(), mux.Vars(r)["id"], from)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path []board.Coord `json:"path"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.ValidateSequence(r.Context(), mux.Vars(r)["id"], req.Path)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	var req service.PlanRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.Plan(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	klog.V(1).Infof("[PLAN] session=%s %v->%v reachable=%t cost=%d pops=%d",
		sessionID, result.Start, result.Goal, result.Reachable, result.Cost, result.Pops)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleTour(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	var req service.TourRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.Tour(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	klog.V(1).Infof("[TOUR] session=%s heuristic=%s cost=%d length=%d nodes=%d exhausted=%t accepted=%t",
		sessionID, result.Heuristic, result.Cost, result.Length, result.Nodes, result.BudgetExhausted, result.Accepted)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req service.CompareRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.service.Compare(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRenderBoard(w http.ResponseWriter, r *http.Request) {
	knight, ok, err := coordQuery(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	var pos *board.Coord
	if ok {
		pos = &knight
	}

	text, err := s.service.RenderBoard(r.Context(), mux.Vars(r)["id"], pos)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, text)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"board": text})
}

// Board Library Handlers

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.service.ListBoards(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, boards)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".txt")
	b, err := s.service.LoadBoard(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"info":   service.DescribeBoard(name, b),
		"layout": board.Format(b),
	})
}

func (s *Server) handleSaveBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		Layout string `json:"layout"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	if req.Name == "" || req.Layout == "" {
		respondError(w, http.StatusBadRequest, "name and layout are required")
		return
	}

	info, err := s.service.SaveBoard(r.Context(), req.Name, req.Layout)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, info)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket updates are disabled", http.StatusNotImplemented)
		return
	}

	sessionID := mux.Vars(r)["id"]
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}
	s.hub.ServeWS(w, r, sessionID)
}
