package httpapi

import (
	"net/http"
	"os"
	"os/exec"
	"strings"
)

type setupCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type setupStatusResponse struct {
	StorageBackend     string       `json:"storage_backend"`
	BrainProvider      string       `json:"brain_provider"`
	ImageProvider      string       `json:"image_provider"`
	TranscribeProvider string       `json:"transcribe_provider"`
	Checks             []setupCheck `json:"checks"`
}

// handleSetupStatus reports which backends this deployment actually
// has, so the first-run screen can point at what's missing.
func (s *Server) handleSetupStatus(w http.ResponseWriter, _ *http.Request) {
	checks := make([]setupCheck, 0, 8)

	storageBackend := s.storageBackend()
	switch storageBackend {
	case "memory":
		checks = append(checks, setupCheck{
			ID:     "storage",
			Status: "warn",
			Label:  "Memory persistence",
			Detail: "in-memory only",
			Fix:    "Set APP_DATA_DIR or DATABASE_URL to keep memories across restarts.",
		})
	default:
		checks = append(checks, setupCheck{
			ID:     "storage",
			Status: "ok",
			Label:  "Memory persistence",
			Detail: storageBackend,
		})
	}

	brainProvider := "mock"
	if strings.TrimSpace(s.cfg.BrainScriptPath) != "" {
		if _, err := os.Stat(s.cfg.BrainScriptPath); err == nil {
			brainProvider = "script"
			checks = append(checks, setupCheck{
				ID:     "brain_script",
				Status: "ok",
				Label:  "Chat script",
				Detail: s.cfg.BrainScriptPath,
			})
		}
	}
	if brainProvider == "mock" && strings.TrimSpace(s.cfg.BrainHTTPURL) != "" {
		brainProvider = "http"
		checks = append(checks, setupCheck{
			ID:     "brain_http",
			Status: "ok",
			Label:  "Chat endpoint",
			Detail: s.cfg.BrainHTTPURL,
		})
	}
	if brainProvider == "mock" {
		checks = append(checks, setupCheck{
			ID:     "brain",
			Status: "warn",
			Label:  "Chat backend is mock",
			Detail: "Replies are canned.",
			Fix:    "Set BRAIN_SCRIPT_PATH or BRAIN_HTTP_URL.",
		})
	}

	imageProvider := "mock"
	if strings.TrimSpace(s.cfg.ReplicateAPIKey) != "" {
		imageProvider = s.cfg.ReplicateModel
		checks = append(checks, setupCheck{
			ID:     "replicate_key",
			Status: "ok",
			Label:  "Replicate API key",
			Detail: "present",
		})
	} else {
		checks = append(checks, setupCheck{
			ID:     "replicate_key",
			Status: "warn",
			Label:  "Replicate API key",
			Detail: "REPLICATE_API_KEY is not set",
			Fix:    "Set REPLICATE_API_KEY to generate memory visualizations.",
		})
	}

	transcribeProvider := "none"
	switch {
	case strings.TrimSpace(s.cfg.DeepgramAPIKey) != "":
		transcribeProvider = "deepgram"
		checks = append(checks, setupCheck{
			ID:     "deepgram_key",
			Status: "ok",
			Label:  "Deepgram API key",
			Detail: "present",
		})
	default:
		cli := strings.TrimSpace(s.cfg.WhisperCLI)
		if cli == "" {
			cli = "whisper-cli"
		}
		if _, err := exec.LookPath(cli); err == nil {
			transcribeProvider = "whisper"
			checks = append(checks, setupCheck{
				ID:     "whisper_cli",
				Status: "ok",
				Label:  "Local whisper CLI",
				Detail: cli,
			})
		} else {
			checks = append(checks, setupCheck{
				ID:     "transcription",
				Status: "warn",
				Label:  "Transcription",
				Detail: "no provider configured",
				Fix:    "Set DEEPGRAM_API_KEY or install whisper-cli.",
			})
		}
	}

	if _, err := os.Stat(s.cfg.AIConfigPath); err == nil {
		checks = append(checks, setupCheck{
			ID:     "personality",
			Status: "ok",
			Label:  "Personality config",
			Detail: s.cfg.AIConfigPath,
		})
	} else {
		checks = append(checks, setupCheck{
			ID:     "personality",
			Status: "ok",
			Label:  "Personality config",
			Detail: "built-in defaults",
		})
	}

	respondJSON(w, http.StatusOK, setupStatusResponse{
		StorageBackend:     storageBackend,
		BrainProvider:      brainProvider,
		ImageProvider:      imageProvider,
		TranscribeProvider: transcribeProvider,
		Checks:             checks,
	})
}

func (s *Server) storageBackend() string {
	switch {
	case strings.HasPrefix(strings.TrimSpace(s.cfg.DatabaseURL), "sqlite"):
		return "sqlite"
	case strings.TrimSpace(s.cfg.DatabaseURL) != "":
		return "postgres"
	case strings.HasSuffix(strings.TrimSpace(s.cfg.DataDir), ".db"):
		return "sqlite"
	case strings.TrimSpace(s.cfg.DataDir) != "":
		return "file"
	default:
		return "memory"
	}
}
