// Package transcribe turns uploaded voice notes into text. Providers
// cover a hosted speech API, a local whisper.cpp binary, and a mock.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotConfigured reports that no transcription backend is available
// on this deployment.
var ErrNotConfigured = errors.New("transcription is not configured on this deployment")

// Provider converts one audio clip to a transcript.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Config controls provider construction.
type Config struct {
	Mode           string
	DeepgramAPIKey string
	DeepgramAPIURL string
	WhisperCLI     string
	ModelPath      string
	Language       string
}

func NewProvider(cfg Config) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoProvider(cfg), nil
	case "deepgram":
		if strings.TrimSpace(cfg.DeepgramAPIKey) == "" {
			return nil, errors.New("deepgram API key is required for deepgram mode")
		}
		return NewDeepgramProvider(cfg.DeepgramAPIKey, cfg.DeepgramAPIURL), nil
	case "whisper":
		return NewWhisperProvider(cfg.WhisperCLI, cfg.ModelPath, cfg.Language)
	case "mock":
		return NewMockProvider(""), nil
	case "none":
		return unconfiguredProvider{}, nil
	default:
		return nil, fmt.Errorf("unsupported transcribe provider mode %q", cfg.Mode)
	}
}

func newAutoProvider(cfg Config) Provider {
	if strings.TrimSpace(cfg.DeepgramAPIKey) != "" {
		return NewDeepgramProvider(cfg.DeepgramAPIKey, cfg.DeepgramAPIURL)
	}
	if w, err := NewWhisperProvider(cfg.WhisperCLI, cfg.ModelPath, cfg.Language); err == nil {
		return w
	}
	return unconfiguredProvider{}
}

// unconfiguredProvider keeps the route alive when no backend exists;
// the handler maps ErrNotConfigured to a 503.
type unconfiguredProvider struct{}

func (unconfiguredProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return "", ErrNotConfigured
}

func lookupCLI(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "whisper-cli"
	}
	return exec.LookPath(name)
}
