package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/imagegen"
	"github.com/AketfONG/Memory-Garden-sub001/internal/transcribe"
)

const maxAudioUpload = 32 << 20

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imagegen.PromptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Prompt is required for image generation",
		})
		return
	}
	if imagegen.BuildPrompt(req) == "" {
		s.metrics.ImageGenerations.WithLabelValues("invalid").Inc()
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Prompt is required for image generation",
		})
		return
	}

	img, err := s.imager.Generate(r.Context(), req)
	if err != nil {
		s.metrics.ImageGenerations.WithLabelValues("error").Inc()
		s.metrics.ProviderErrors.WithLabelValues("imagegen", "generate").Inc()
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to generate image",
			"details": err.Error(),
		})
		return
	}

	s.metrics.ImageGenerations.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"imageData": img.DataURL,
		"prompt":    img.Prompt,
		"provider":  img.Provider,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerateImageDoc(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Image Generation API",
		"types": map[string]string{
			"custom":               "Generate image from custom prompt",
			"memory_visualization": "Generate visualization of a memory",
			"category_icon":        "Generate an icon for a category",
			"garden_background":    "Generate a garden background",
			"ai_artwork":           "Generate artwork inspired by a memory",
		},
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "No audio file provided",
		})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.metrics.Transcriptions.WithLabelValues("invalid").Inc()
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "No audio file provided",
		})
		return
	}
	defer file.Close()

	clip, err := io.ReadAll(io.LimitReader(file, maxAudioUpload))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Failed to read audio file",
		})
		return
	}

	transcript, err := s.transcriber.Transcribe(r.Context(), clip, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, transcribe.ErrNotConfigured) {
			s.metrics.Transcriptions.WithLabelValues("unconfigured").Inc()
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"error":   "Transcription is not configured on this deployment.",
			})
			return
		}
		s.metrics.Transcriptions.WithLabelValues("error").Inc()
		s.metrics.ProviderErrors.WithLabelValues("transcribe", "transcribe").Inc()
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to transcribe audio",
			"details": err.Error(),
		})
		return
	}

	s.metrics.Transcriptions.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"transcript": transcript,
	})
}
