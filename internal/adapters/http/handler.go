package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halcyonlabs/halcyon/internal/app/activity"
	"github.com/halcyonlabs/halcyon/internal/app/insights"
	"github.com/halcyonlabs/halcyon/internal/app/session"
	"github.com/halcyonlabs/halcyon/internal/app/stressgate"
	"github.com/halcyonlabs/halcyon/internal/domain"
)

type Server struct {
	sessions   *session.Service
	activities *activity.Service
	insights   *insights.Engine
}

func NewServer(sessions *session.Service, activities *activity.Service, engine *insights.Engine) http.Handler {
	s := &Server{
		sessions:   sessions,
		activities: activities,
		insights:   engine,
	}

	mux := http.NewServeMux()

	// /sessions → POST: start session, GET: list sessions
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}          →  GET: session with timeline
	// /sessions/{id}/messages → POST: process one turn
	// /sessions/{id}/close    → POST: close session
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	mux.HandleFunc("/activities", s.handleActivities)
	mux.HandleFunc("/moods", s.handleMoods)
	mux.HandleFunc("/dashboard", s.handleDashboard)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type sessionResponse struct {
	SessionID string            `json:"sessionId"`
	UserID    string            `json:"userId"`
	Status    string            `json:"status"`
	Messages  []messageResponse `json:"messages"`
	Memory    domain.Memory     `json:"memory"`
	StartTime time.Time         `json:"startTime"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type messageResponse struct {
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	Timestamp time.Time               `json:"timestamp"`
	Metadata  *domain.MessageMetadata `json:"metadata,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// sendMessageResponse has two shapes: a stress signal short-circuits the
// turn and carries no reply, a normal turn carries the reply and analysis.
type sendMessageResponse struct {
	StressSignal *stressgate.Signal `json:"stressSignal,omitempty"`

	Response string           `json:"response,omitempty"`
	Analysis *domain.Analysis `json:"analysis,omitempty"`
	Metadata *turnMetadata    `json:"metadata,omitempty"`
}

type turnMetadata struct {
	Progress domain.Progress `json:"progress"`
}

type logActivityRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

type submitMoodRequest struct {
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

type activityResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    int       `json:"duration,omitempty"`
	Completed   bool      `json:"completed"`
	MoodScore   *int      `json:"moodScore,omitempty"`
	MoodNote    string    `json:"moodNote,omitempty"`
}

type dashboardResponse struct {
	Stats    domain.DailyStats `json:"stats"`
	Insights []domain.Insight  `json:"insights"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleStartSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}, /sessions/{id}/messages or /sessions/{id}/close
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 {
		switch {
		case parts[1] == "messages" && r.Method == http.MethodPost:
			s.handleSendMessage(w, r, domain.SessionID(id))
			return
		case parts[1] == "close" && r.Method == http.MethodPost:
			s.handleCloseSession(w, r, domain.SessionID(id))
			return
		case parts[1] == "messages" || parts[1] == "close":
			methodNotAllowed(w)
			return
		}
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Session handlers
// ─────────────────────────────────────────────

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	out, err := s.sessions.StartSession(r.Context(), session.StartSessionInput{UserID: userID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(out.Session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := s.sessions.ListSessions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	sess, err := s.sessions.GetSession(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	out, err := s.sessions.ProcessTurn(r.Context(), session.ProcessTurnInput{
		SessionID: sessionID,
		UserID:    userID,
		Message:   req.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if out.StressSignal != nil {
		writeJSON(w, http.StatusOK, sendMessageResponse{StressSignal: out.StressSignal})
		return
	}

	analysis := out.Analysis
	writeJSON(w, http.StatusOK, sendMessageResponse{
		Response: out.Reply,
		Analysis: &analysis,
		Metadata: &turnMetadata{
			Progress: domain.Progress{
				EmotionalState: analysis.EmotionalState,
				RiskLevel:      analysis.RiskLevel,
			},
		},
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	sess, err := s.sessions.CloseSession(r.Context(), sessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// ─────────────────────────────────────────────
// Activity handlers
// ─────────────────────────────────────────────

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req logActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	entry, err := s.activities.LogActivity(r.Context(), activity.LogActivityInput{
		UserID:      userID,
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toActivityResponse(entry))
}

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req submitMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	entry, err := s.activities.SubmitMood(r.Context(), activity.SubmitMoodInput{
		UserID: userID,
		Score:  req.Score,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toActivityResponse(entry))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	userID, ok := identity(w, r)
	if !ok {
		return
	}

	entries, err := s.activities.ListActivities(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:    s.insights.DailyStats(entries),
		Insights: s.insights.RankedInsights(entries),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// identity reads the caller from the X-User-ID header. Missing header means
// 401; the response is already written when ok is false.
func identity(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "X-User-ID header is required",
		})
		return "", false
	}
	return domain.UserID(userID), true
}

func toSessionResponse(sess *domain.ChatSession) sessionResponse {
	messages := make([]messageResponse, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		messages = append(messages, messageResponse{
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Metadata:  m.Metadata,
		})
	}

	return sessionResponse{
		SessionID: string(sess.SessionID),
		UserID:    string(sess.UserID),
		Status:    string(sess.Status),
		Messages:  messages,
		Memory:    sess.Memory,
		StartTime: sess.StartTime,
		UpdatedAt: sess.UpdatedAt,
	}
}

func toActivityResponse(a *domain.Activity) activityResponse {
	return activityResponse{
		ID:          string(a.ID),
		UserID:      string(a.UserID),
		Type:        a.Type,
		Name:        a.Name,
		Description: a.Description,
		Timestamp:   a.Timestamp,
		Duration:    a.Duration,
		Completed:   a.Completed,
		MoodScore:   a.MoodScore,
		MoodNote:    a.MoodNote,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}

// writeError maps domain sentinels onto HTTP statuses. Anything unknown is
// a 500 with a generic body; details stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, domain.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "session is closed"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
