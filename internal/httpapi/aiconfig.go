package httpapi

import (
	"net/http"
	"strings"

	"github.com/AketfONG/Memory-Garden-sub001/internal/personality"
)

func (s *Server) handleGetAIConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.persona.Load())
}

type aiConfigRequest struct {
	Action string                `json:"action"`
	Config *personality.Document `json:"config,omitempty"`
}

func (s *Server) handlePostAIConfig(w http.ResponseWriter, r *http.Request) {
	var req aiConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Action is required"})
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Action is required"})
		return
	}

	switch req.Action {
	case "update_config":
		patch := personality.Document{}
		if req.Config != nil {
			patch = *req.Config
		}
		doc, err := s.persona.Update(patch)
		if err != nil {
			respondJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "config": doc})
	case "reset_config":
		doc, err := s.persona.Reset()
		if err != nil {
			respondJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "config": doc})
	case "export_config":
		out, err := s.persona.Export()
		if err != nil {
			respondJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "config_json": out})
	case "import_config":
		if req.Config == nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action"})
			return
		}
		if err := s.persona.Import(*req.Config); err != nil {
			respondJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "config": req.Config})
	default:
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action"})
	}
}
