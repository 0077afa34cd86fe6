package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

// Server provides the admin HTTP API used by modbot-mcp and operators
type Server struct {
	staffUC     *usecase.StaffUsecase
	whitelistUC *usecase.WhitelistUsecase
	reviewUC    *usecase.ReviewUsecase
	chatID      string // default chat for summaries

	logger *slog.Logger
	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(
	staffUC *usecase.StaffUsecase,
	whitelistUC *usecase.WhitelistUsecase,
	reviewUC *usecase.ReviewUsecase,
	chatID string,
	port int,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		staffUC:     staffUC,
		whitelistUC: whitelistUC,
		reviewUC:    reviewUC,
		chatID:      chatID,
		port:        port,
		logger:      logger.With("component", "api"),
	}
}

// Handler returns the routing table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Whitelist management
	mux.HandleFunc("/api/whitelist", s.handleWhitelist)
	mux.HandleFunc("/api/whitelist/", s.handleWhitelistItem)

	// Exempt list
	mux.HandleFunc("/api/exempt", s.handleExempt)
	mux.HandleFunc("/api/exempt/", s.handleExemptItem)

	// Jailed users and per-user state
	mux.HandleFunc("/api/jailed", s.handleJailed)
	mux.HandleFunc("/api/users/", s.handleUser)

	// Reviews
	mux.HandleFunc("/api/reviews", s.handleReviews)
	mux.HandleFunc("/api/reviews/", s.handleReviewHistory)

	// Staff actions
	mux.HandleFunc("/api/dm", s.handleDM)
	mux.HandleFunc("/api/summarize", s.handleSummarize)

	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("starting HTTP server", "port", s.port)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// GetPort returns the server port
func (s *Server) GetPort() int {
	return s.port
}

// ============ Whitelist Handlers ============

func (s *Server) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		phrases, err := s.whitelistUC.List(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"phrases": nonNil(phrases)})

	case http.MethodPost:
		var req struct {
			Phrase string `json:"phrase"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Phrase == "" {
			http.Error(w, "phrase is required", http.StatusBadRequest)
			return
		}
		added, err := s.whitelistUC.Add(ctx, req.Phrase)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "added": added})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWhitelistItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	phrase := strings.TrimPrefix(r.URL.Path, "/api/whitelist/")
	if phrase == "" {
		http.Error(w, "phrase is required", http.StatusBadRequest)
		return
	}

	removed, err := s.whitelistUC.Remove(r.Context(), phrase)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true, "removed": removed})
}

// ============ Exempt Handlers ============

func (s *Server) handleExempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		ids, err := s.staffUC.ListExempt(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"users": nonNil(ids)})

	case http.MethodPost:
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "user_id is required", http.StatusBadRequest)
			return
		}
		added, err := s.staffUC.AddExempt(ctx, req.UserID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "added": added})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleExemptItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/exempt/")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	removed, err := s.staffUC.RemoveExempt(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true, "removed": removed})
}

// ============ User Handlers ============

func (s *Server) handleJailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ids, err := s.staffUC.ListJailed(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"users": nonNil(ids)})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/users/{user_id} or /api/users/{user_id}/warnings
	path := strings.TrimPrefix(r.URL.Path, "/api/users/")
	userID, action, _ := strings.Cut(path, "/")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		state, err := s.staffUC.UserState(r.Context(), userID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, state)

	case action == "warnings" && r.Method == http.MethodDelete:
		if err := s.staffUC.ResetWarnings(r.Context(), userID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	case action == "" || action == "warnings":
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

// ============ Review Handlers ============

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending, err := s.reviewUC.ListPending(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if pending == nil {
		pending = []*domain.PendingReview{}
	}
	s.writeJSON(w, map[string]interface{}{"pending": pending})
}

func (s *Server) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	ctx := r.Context()
	pending, err := s.reviewUC.PendingFor(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	history, err := s.reviewUC.History(ctx, userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if history == nil {
		history = []*domain.ReviewDecisionRecord{}
	}
	s.writeJSON(w, map[string]interface{}{"pending": pending, "decisions": history})
}

// ============ Staff Action Handlers ============

func (s *Server) handleDM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "user_id and text are required", http.StatusBadRequest)
		return
	}

	if err := s.staffUC.DirectMessage(r.Context(), req.UserID, req.Text); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ChatID string `json:"chat_id"`
		Count  int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ChatID == "" {
		req.ChatID = s.chatID
	}

	summary, err := s.staffUC.Summarize(r.Context(), req.ChatID, req.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"summary": summary})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrSummaryTooLong):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
