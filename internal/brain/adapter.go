// Package brain bridges chat turns to the AI reasoning backend. The
// backend may be a local python script, an HTTP endpoint, or a
// deterministic mock; the adapter hides which one is in play.
package brain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role    string `json:"type"`
	Content string `json:"content"`
}

// Request is the normalized request sent to the reasoning backend.
type Request struct {
	Message     string `json:"message"`
	History     []Turn `json:"conversationHistory,omitempty"`
	TestContext string `json:"testContext,omitempty"`
	// SystemPrompt carries the companion persona. Backends that manage
	// their own persona ignore it.
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Response is the final reply after streaming deltas.
type Response struct {
	Text string `json:"text"`
}

// DeltaHandler receives streaming text fragments.
type DeltaHandler func(delta string) error

// Adapter produces an assistant reply for one chat turn.
type Adapter interface {
	StreamResponse(ctx context.Context, req Request, onDelta DeltaHandler) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode       string
	Python     string
	ScriptPath string
	HTTPURL    string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		return newAutoAdapter(cfg), nil
	case "script":
		if strings.TrimSpace(cfg.ScriptPath) == "" {
			return nil, errors.New("chat script path is required for script mode")
		}
		return NewScriptAdapter(cfg.Python, cfg.ScriptPath), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("chat HTTP url is required for http mode")
		}
		return NewHTTPAdapter(cfg.HTTPURL), nil
	case "mock":
		return NewMockAdapter(""), nil
	default:
		return nil, fmt.Errorf("unsupported brain adapter mode %q", cfg.Mode)
	}
}

func newAutoAdapter(cfg Config) Adapter {
	scriptPath := strings.TrimSpace(cfg.ScriptPath)
	if scriptPath != "" {
		if _, err := os.Stat(scriptPath); err == nil {
			// Back the script with the mock so a broken python
			// environment still yields a reply.
			return NewFallbackAdapter(NewScriptAdapter(cfg.Python, scriptPath), NewMockAdapter(""))
		}
	}

	if httpURL := strings.TrimSpace(cfg.HTTPURL); httpURL != "" {
		return NewFallbackAdapter(NewHTTPAdapter(httpURL), NewMockAdapter(""))
	}

	return NewMockAdapter("")
}
