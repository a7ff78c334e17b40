package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
)

func (s *Server) handleListStacks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stacks.AllStacks(r.Context()))
}

func (s *Server) handleSaveStack(w http.ResponseWriter, r *http.Request) {
	var draft garden.StackDraft
	if err := decodeJSON(r, &draft); err != nil {
		if errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, "invalid_request", "request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := s.stacks.SaveStack(r.Context(), draft)
	if err != nil {
		s.metrics.StoreOps.WithLabelValues("save_stack", "error").Inc()
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	s.metrics.StoreOps.WithLabelValues("save_stack", "ok").Inc()
	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleClearStacks(w http.ResponseWriter, r *http.Request) {
	s.stacks.ClearAllStacks(r.Context())
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleGetStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stack, ok := s.stacks.GetStack(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, "stack_not_found", "no stack with id "+id)
		return
	}
	respondJSON(w, http.StatusOK, stack)
}

func (s *Server) handleDeleteStack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted := s.stacks.DeleteStack(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
