package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
)

type saveMemoryRequest struct {
	garden.Draft
	ChatHistory []garden.Message `json:"chatHistory,omitempty"`
	AIInsights  string           `json:"aiInsights,omitempty"`
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		respondJSON(w, http.StatusOK, s.repo.MemoriesByCategory(r.Context(), category))
		return
	}
	memories := s.repo.AllMemories(r.Context())
	s.metrics.StoreOps.WithLabelValues("list", "ok").Inc()
	respondJSON(w, http.StatusOK, memories)
}

func (s *Server) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	var req saveMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, "invalid_request", "request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := s.repo.SaveMemory(r.Context(), req.Draft, req.ChatHistory, req.AIInsights)
	if err != nil {
		if errors.Is(err, garden.ErrSaveFailed) {
			s.metrics.StoreOps.WithLabelValues("save", "error").Inc()
			respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
			return
		}
		s.metrics.StoreOps.WithLabelValues("save", "invalid").Inc()
		respondError(w, http.StatusBadRequest, "invalid_draft", err.Error())
		return
	}

	s.metrics.StoreOps.WithLabelValues("save", "ok").Inc()
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleClearMemories(w http.ResponseWriter, r *http.Request) {
	s.repo.ClearAllMemories(r.Context())
	s.metrics.StoreOps.WithLabelValues("clear", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleMemoryCount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"count": s.repo.MemoryCount(r.Context())})
}

func (s *Server) handleSearchMemories(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "query parameter q is required")
		return
	}
	respondJSON(w, http.StatusOK, s.repo.SearchMemories(r.Context(), query))
}

func (s *Server) handleMemoriesByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	respondJSON(w, http.StatusOK, s.repo.MemoriesByCategory(r.Context(), category))
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	memory, ok := s.repo.GetMemory(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, "memory_not_found", "no memory with id "+id)
		return
	}
	respondJSON(w, http.StatusOK, memory)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted := s.repo.DeleteMemory(r.Context(), id)
	s.metrics.StoreOps.WithLabelValues("delete", "ok").Inc()
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

type appendMessageRequest struct {
	Role    string `json:"type"`
	Content string `json:"content"`
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req appendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Role != garden.RoleUser && req.Role != garden.RoleAssistant {
		respondError(w, http.StatusBadRequest, "invalid_role", "type must be user or assistant")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "invalid_content", "content is required")
		return
	}

	memory, ok := s.repo.GetMemory(r.Context(), id)
	if !ok {
		s.metrics.StoreOps.WithLabelValues("append", "not_found").Inc()
		respondError(w, http.StatusNotFound, "memory_not_found", "no memory with id "+id)
		return
	}

	msg := garden.Message{
		ID:        nextMessageID(memory.ChatHistory),
		Role:      req.Role,
		Content:   req.Content,
		Timestamp: time.Now().UTC(),
	}
	if !s.repo.AppendChatMessage(r.Context(), id, msg) {
		s.metrics.StoreOps.WithLabelValues("append", "error").Inc()
		respondError(w, http.StatusInternalServerError, "append_failed", "failed to append chat message")
		return
	}
	s.metrics.StoreOps.WithLabelValues("append", "ok").Inc()
	respondJSON(w, http.StatusCreated, msg)
}

func nextMessageID(history []garden.Message) int {
	next := len(history) + 1
	for _, msg := range history {
		if msg.ID >= next {
			next = msg.ID + 1
		}
	}
	return next
}

type coverImageRequest struct {
	ImageData string `json:"imageData"`
}

func (s *Server) handleGetCoverImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, ok := s.repo.CoverImage(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, "image_not_found", "no cached image for memory "+id)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"imageData": data})
}

func (s *Server) handlePutCoverImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req coverImageRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ImageData) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "imageData is required")
		return
	}
	if err := s.repo.SaveCoverImage(r.Context(), id, req.ImageData); err != nil {
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (s *Server) handleGetImageSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	images, ok := s.repo.ImageSet(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, "images_not_found", "no cached images for memory "+id)
		return
	}
	respondJSON(w, http.StatusOK, images)
}

func (s *Server) handlePutImageSet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var images []garden.StoredImage
	if err := decodeJSON(r, &images); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.repo.SaveImageSet(r.Context(), id, images); err != nil {
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"saved": true})
}
