package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/computor/core/computor"
	cerrors "github.com/FocuswithJustin/computor/core/errors"
	"github.com/FocuswithJustin/computor/core/format"
	"github.com/FocuswithJustin/computor/core/sqlite"
	"github.com/FocuswithJustin/computor/internal/cache"
	"github.com/FocuswithJustin/computor/internal/history"
	"github.com/FocuswithJustin/computor/internal/logging"
	"github.com/FocuswithJustin/computor/internal/validation"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SolveRequest is the request body for POST /solve.
type SolveRequest struct {
	Equation string `json:"equation"`
	Verbose  bool   `json:"verbose,omitempty"`
	// NoHistory skips recording the equation.
	NoHistory bool `json:"no_history,omitempty"`
}

// SolveResponse is a solved equation.
type SolveResponse struct {
	computor.Summary
	HistoryID string `json:"history_id,omitempty"`
	Cached    bool   `json:"cached"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status         string       `json:"status"`
	Version        string       `json:"version"`
	Uptime         string       `json:"uptime"`
	HistoryEnabled bool         `json:"history_enabled"`
	HistoryEntries int          `json:"history_entries"`
	SQLite         *sqlite.Info `json:"sqlite,omitempty"`
	Cache          cache.Stats  `json:"cache"`
	ActiveJobs     int          `json:"active_jobs"`
	WSClients      int          `json:"ws_clients"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "computor API",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /cache",
			"DELETE /cache",
			"POST /solve",
			"GET /history",
			"GET /history/:id",
			"DELETE /history/:id",
			"GET /jobs",
			"POST /jobs",
			"GET /jobs/:id",
			"DELETE /jobs/:id",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	info := HealthInfo{
		Status:         "healthy",
		Version:        s.cfg.Version,
		Uptime:         time.Since(s.startTime).Round(time.Second).String(),
		HistoryEnabled: s.history != nil,
		Cache:          s.cache.Stats(),
		ActiveJobs:     s.jobs.Active(),
		WSClients:      s.hub.ClientCount(),
	}
	if s.history != nil {
		driver := sqlite.GetInfo()
		info.SQLite = &driver
		n, err := s.history.Count(r.Context())
		if err != nil {
			logging.ErrorContext(r.Context(), "history count failed", "error", err)
			info.Status = "degraded"
		}
		info.HistoryEntries = n
	}
	respond(w, http.StatusOK, info)
}

// CacheCleared is the response to DELETE /cache.
type CacheCleared struct {
	Cleared int `json:"cleared"`
}

// handleCache reports solve cache counters and clears the cache on DELETE.
func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respond(w, http.StatusOK, s.cache.Stats())
	case http.MethodDelete:
		n := s.cache.Len()
		s.cache.Invalidate()
		logging.InfoContext(r.Context(), "cache_cleared", "entries", n)
		respond(w, http.StatusOK, CacheCleared{Cleared: n})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	var req SolveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateEquation(req.Equation); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	start := time.Now()
	result, cached, err := s.solve(req.Equation)
	if err != nil {
		logging.SolveEvent(r.Context(), req.Equation, "", time.Since(start), err)
		respondSolveError(w, err)
		return
	}
	logging.SolveEvent(r.Context(), req.Equation, result.Kind.String(), time.Since(start), nil, "cached", cached)

	resp := SolveResponse{
		Summary: result.Summarize(format.Options{Verbose: req.Verbose}),
		Cached:  cached,
	}
	if s.history != nil && !req.NoHistory {
		entry, err := s.history.Record(r.Context(), result)
		if err != nil {
			logging.ErrorContext(r.Context(), "history record failed", "error", err)
		} else {
			resp.HistoryID = entry.ID
		}
	}
	respond(w, http.StatusOK, resp)
}

// solve runs the pipeline through the cache. Only successes are cached
// because error positions depend on the exact input text.
func (s *Server) solve(input string) (*computor.Result, bool, error) {
	key := computor.InputKey(input)
	if hit, ok := s.cache.Get(key); ok {
		res := *hit
		res.Input = input
		return &res, true, nil
	}
	result, err := computor.Solve(input)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(key, result)
	return result, false, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	if !s.requireHistory(w) {
		return
	}

	var (
		entries []history.Entry
		err     error
	)
	if fp := r.URL.Query().Get("fingerprint"); fp != "" {
		entries, err = s.history.FindByFingerprint(r.Context(), fp)
	} else {
		limit := history.DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit <= 0 {
				respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
				return
			}
		}
		entries, err = s.history.List(r.Context(), limit)
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondList(w, entries, len(entries))
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/history/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "History ID is required")
		return
	}
	if !s.requireHistory(w) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		entry, err := s.history.Get(r.Context(), id)
		if err != nil {
			respondLookupError(w, r, err)
			return
		}
		respond(w, http.StatusOK, entry)
	case http.MethodDelete:
		if err := s.history.Delete(r.Context(), id); err != nil {
			respondLookupError(w, r, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "History entry deleted"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "History is not enabled on this server")
		return false
	}
	return true
}

// decodeJSON reads a size-limited JSON body into v, responding on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return false
	}
	return true
}

// solveErrorBody maps a pipeline error to its API error.
func solveErrorBody(err error) *APIError {
	apiErr := &APIError{Code: cerrors.Kind(err), Message: err.Error()}

	var (
		lexErr   *cerrors.LexError
		parseErr *cerrors.ParseError
		degErr   *cerrors.UnsupportedDegreeError
	)
	switch {
	case errors.As(err, &lexErr):
		apiErr.Details = positionDetails(lexErr.Pos)
		apiErr.Details["text"] = lexErr.Text
	case errors.As(err, &parseErr):
		apiErr.Details = positionDetails(parseErr.Pos)
		apiErr.Details["reason"] = parseErr.Reason
	case errors.As(err, &degErr):
		apiErr.Details = map[string]any{
			"degree":  degErr.Degree,
			"reduced": degErr.Reduced,
		}
	}
	return apiErr
}

func positionDetails(p cerrors.Position) map[string]any {
	return map[string]any{
		"offset": p.Offset,
		"line":   p.Line,
		"column": p.Column,
	}
}

func respondSolveError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, cerrors.ErrUnsupportedDegree) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   solveErrorBody(err),
		Meta:    newMeta(0),
	})
}

func respondLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, cerrors.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	respondInternal(w, r, err)
}

func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func newMeta(total int) *APIMeta {
	return &APIMeta{
		Total:     total,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    newMeta(0),
	})
}

func respondList(w http.ResponseWriter, data interface{}, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    newMeta(total),
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: newMeta(0),
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
