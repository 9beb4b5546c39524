// Package server exposes the bid store and inference endpoints over a local
// HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/paintbid/paintbid/internal/ai"
	"github.com/paintbid/paintbid/internal/bids"
	"github.com/paintbid/paintbid/internal/estimate"
)

// Server serves the bid CRUD and AI proxy routes on a single bind address.
type Server struct {
	bind   string
	logger *slog.Logger
	store  *bids.Store
	ai     *ai.Client

	listener net.Listener
	server   *http.Server
}

func New(bind string, store *bids.Store, aiClient *ai.Client, logger *slog.Logger) *Server {
	srv := &Server{
		bind:   strings.TrimSpace(bind),
		logger: logger,
		store:  store,
		ai:     aiClient,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/bids", srv.handleBids)
	mux.HandleFunc("/api/bids/", srv.handleBid)
	mux.HandleFunc("/api/ai/chat", srv.handleChat)
	mux.HandleFunc("/api/ai/estimate", srv.handleEstimate)
	mux.HandleFunc("/api/ai/tts", srv.handleTTS)
	mux.HandleFunc("/api/ai/transcribe", srv.handleTranscribe)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the bind address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"chat_configured":   s.ai.ChatConfigured(),
		"speech_configured": s.ai.SpeechConfigured(),
	})
}

func (s *Server) handleBids(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			s.writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		list, err := s.store.ListByUser(r.Context(), userID)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"bids": list})

	case http.MethodPost:
		var draft bids.Draft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		bid, err := s.store.Save(r.Context(), draft)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]any{"bid": bid})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/bids/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "bid not found")
		return
	}
	bid, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"bid": bid})
}

type chatRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.ai.Ask(r.Context(), req.Question, req.Context)
	if err != nil {
		s.writeAIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"response": answer})
}

type estimateRequest struct {
	Transcript string `json:"transcript,omitempty"`
	Image      string `json:"image,omitempty"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch {
	case strings.TrimSpace(req.Image) != "":
		suggestion, err := s.ai.EstimateFromImage(r.Context(), req.Image)
		if err != nil {
			s.writeAIError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, suggestionPayload(suggestion.Items, suggestion.Complexity))

	case strings.TrimSpace(req.Transcript) != "":
		items, err := s.ai.SuggestItems(r.Context(), req.Transcript)
		if err != nil {
			s.writeAIError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, suggestionPayload(items, ""))

	default:
		s.writeError(w, http.StatusBadRequest, "transcript or image is required")
	}
}

func suggestionPayload(items []estimate.LineItem, complexity string) map[string]any {
	payload := map[string]any{"items": items}
	if complexity != "" {
		payload["complexity"] = complexity
	}
	return payload
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	clip, err := s.ai.Synthesize(r.Context(), req.Text, ai.FormatMP3)
	if err != nil {
		s.writeAIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip)
}

// maxClipBytes bounds uploaded transcription payloads (25MB, the endpoint limit).
const maxClipBytes = 25 << 20

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		filename = "clip.wav"
	}

	body := http.MaxBytesReader(w, r.Body, maxClipBytes)
	defer body.Close()

	text, err := s.ai.Transcribe(r.Context(), io.Reader(body), filename)
	if err != nil {
		s.writeAIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"text": text})
}

// writeStoreError maps store failures to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var validation *estimate.ValidationError
	switch {
	case errors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, bids.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "bid not found")
	default:
		s.logger.Error("store operation failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "store operation failed")
	}
}

// writeAIError maps inference failures to HTTP statuses.
func (s *Server) writeAIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		s.writeError(w, http.StatusServiceUnavailable, "ai endpoint not configured")
	case errors.Is(err, ai.ErrUnavailable):
		s.writeError(w, http.StatusBadGateway, "inference service unavailable")
	default:
		s.logger.Error("ai request failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "ai request failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
