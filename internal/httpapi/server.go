// Package httpapi exposes the Memory Garden REST and websocket
// surface: the memory and stack stores, the chat channel, and the AI
// provider proxy routes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/AketfONG/Memory-Garden-sub001/internal/chat"
	"github.com/AketfONG/Memory-Garden-sub001/internal/config"
	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
	"github.com/AketfONG/Memory-Garden-sub001/internal/imagegen"
	"github.com/AketfONG/Memory-Garden-sub001/internal/observability"
	"github.com/AketfONG/Memory-Garden-sub001/internal/personality"
	"github.com/AketfONG/Memory-Garden-sub001/internal/transcribe"
)

type Server struct {
	cfg         config.Config
	repo        *garden.Repository
	stacks      *garden.Stacks
	sessions    *chat.SessionManager
	chatSvc     *chat.Service
	persona     *personality.Manager
	transcriber transcribe.Provider
	imager      imagegen.Generator
	metrics     *observability.Metrics
	upgrader    websocket.Upgrader
}

func New(
	cfg config.Config,
	repo *garden.Repository,
	stacks *garden.Stacks,
	sessions *chat.SessionManager,
	chatSvc *chat.Service,
	persona *personality.Manager,
	transcriber transcribe.Provider,
	imager imagegen.Generator,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:         cfg,
		repo:        repo,
		stacks:      stacks,
		sessions:    sessions,
		chatSvc:     chatSvc,
		persona:     persona,
		transcriber: transcriber,
		imager:      imager,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. This keeps other
				// websites from driving a user's journal if the service
				// is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/api/memories", func(r chi.Router) {
		r.Get("/", s.handleListMemories)
		r.Post("/", s.handleSaveMemory)
		r.Delete("/", s.handleClearMemories)
		r.Get("/count", s.handleMemoryCount)
		r.Get("/search", s.handleSearchMemories)
		r.Get("/category/{category}", s.handleMemoriesByCategory)
		r.Get("/{id}", s.handleGetMemory)
		r.Delete("/{id}", s.handleDeleteMemory)
		r.Post("/{id}/messages", s.handleAppendMessage)
		r.Get("/{id}/image", s.handleGetCoverImage)
		r.Put("/{id}/image", s.handlePutCoverImage)
		r.Get("/{id}/images", s.handleGetImageSet)
		r.Put("/{id}/images", s.handlePutImageSet)
	})

	r.Route("/api/stacks", func(r chi.Router) {
		r.Get("/", s.handleListStacks)
		r.Post("/", s.handleSaveStack)
		r.Delete("/", s.handleClearStacks)
		r.Get("/{id}", s.handleGetStack)
		r.Delete("/{id}", s.handleDeleteStack)
	})

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)
	r.Post("/api/chat/session", s.handleCreateChatSession)
	r.Post("/api/chat/session/{id}/end", s.handleEndChatSession)

	r.Post("/api/generate-image", s.handleGenerateImage)
	r.Get("/api/generate-image", s.handleGenerateImageDoc)
	r.Post("/api/transcribe", s.handleTranscribe)
	r.Get("/api/ai-config", s.handleGetAIConfig)
	r.Post("/api/ai-config", s.handlePostAIConfig)
	r.Get("/api/setup/status", s.handleSetupStatus)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the backing keyspace answers; a broken store
	// should drop us from the pool.
	s.repo.MemoryCount(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"memories":       s.repo.MemoryCount(r.Context()),
		"activeSessions": s.sessions.ActiveCount(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
