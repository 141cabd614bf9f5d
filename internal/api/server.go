// Package api exposes the orchestrator over HTTP: a Server-Sent
// Events stream per conversation turn plus conversation inspection
// endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avashisht/tandem/internal/logging"
	"github.com/avashisht/tandem/internal/orchestrator"
	"github.com/avashisht/tandem/internal/store"
)

// Server serves the conversation API.
type Server struct {
	orch   *orchestrator.Orchestrator
	tasks  store.TaskStore
	convs  store.ConversationStore
	logger *logging.DebugLogger
	http   *http.Server
}

// NewServer wires the HTTP surface over an orchestrator and its stores.
func NewServer(addr string, orch *orchestrator.Orchestrator, tasks store.TaskStore, convs store.ConversationStore, logger *logging.DebugLogger) *Server {
	s := &Server{
		orch:   orch,
		tasks:  tasks,
		convs:  convs,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/agents/stream", s.handleStream)
	mux.HandleFunc("/v1/conversations/", s.handleConversation)

	s.http = &http.Server{
		Addr:    addr,
		Handler: cors(mux),
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Log("api: listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// streamRequest is the body of POST /v1/agents/stream.
type streamRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// handleStream runs one conversation turn and streams its chunks as
// SSE events, one `data:` line per chunk.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	chunks := s.orch.ProcessUserInput(r.Context(), orchestrator.UserInput{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Query:          req.Query,
	})

	enc := json.NewEncoder(w)
	for chunk := range chunks {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if err := enc.Encode(chunk); err != nil {
			return
		}
		// Encode already wrote one newline; SSE needs a blank line.
		if _, err := w.Write([]byte("\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleConversation routes /v1/conversations/{id}[/history|/tasks].
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id, sub := splitConversationPath(r.URL.Path)
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		conv, err := s.convs.GetConversation(id)
		if err != nil {
			s.respondStoreErr(w, err)
			return
		}
		respondJSON(w, conv)

	case sub == "" && r.Method == http.MethodDelete:
		if err := s.convs.DeleteConversation(id); err != nil {
			s.respondStoreErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case sub == "history" && r.Method == http.MethodGet:
		msgs, err := s.convs.History(id, 200)
		if err != nil {
			s.respondStoreErr(w, err)
			return
		}
		respondJSON(w, msgs)

	case sub == "tasks" && r.Method == http.MethodGet:
		tasks, err := s.tasks.ListByConversation(id)
		if err != nil {
			s.respondStoreErr(w, err)
			return
		}
		respondJSON(w, tasks)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) respondStoreErr(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.logger.Log("api: store error: %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// splitConversationPath extracts the conversation ID and optional
// trailing segment from /v1/conversations/{id}[/{sub}].
func splitConversationPath(path string) (id, sub string) {
	const prefix = "/v1/conversations/"
	if len(path) <= len(prefix) {
		return "", ""
	}
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// cors is permissive middleware for local development clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
