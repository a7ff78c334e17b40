// Package personality manages the companion's personality configuration
// document: a JSON file merged over built-in defaults, editable through
// the settings API and consumed by the chat adapters for system prompts
// and fallback replies.
package personality

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Document is the personality configuration. Sections are free-form
// maps so the settings UI can add keys without a server release.
type Document struct {
	Personality           map[string]any `json:"personality"`
	Responses             map[string]any `json:"responses"`
	TherapeuticTechniques map[string]any `json:"therapeutic_techniques"`
	ConversationFlow      map[string]any `json:"conversation_flow"`
	CustomPrompts         map[string]any `json:"custom_prompts"`
}

// Default returns the built-in configuration used when no file exists.
func Default() Document {
	return Document{
		Personality: map[string]any{
			"role":     "compassionate_therapist",
			"tone":     "warm_and_empathetic",
			"style":    "gentle_and_supportive",
			"approach": "listening_and_reflecting",
		},
		Responses: map[string]any{
			"greeting":      "I'm here to listen and support you. What's on your heart today? 💚",
			"fallback":      "I hear you. Take your time - I'm here with you. 💚",
			"encouragement": "You're doing great. Keep sharing what feels right for you.",
			"reflection":    "That sounds like it's bringing up some real feelings for you.",
			"closing":       "Thank you for sharing with me. I'm here whenever you need to talk.",
		},
		TherapeuticTechniques: map[string]any{
			"active_listening":     true,
			"reflective_responses": true,
			"emotional_validation": true,
			"gentle_questioning":   true,
			"mindfulness_prompts":  true,
		},
		ConversationFlow: map[string]any{
			"max_response_length":      200,
			"use_emojis":               true,
			"ask_follow_up_questions":  true,
			"acknowledge_emotions":     true,
			"provide_safe_space":       true,
		},
		CustomPrompts: map[string]any{
			"memory_sharing":        "Tell me more about this memory. What makes it special to you?",
			"emotional_exploration": "What feelings come up when you think about this?",
			"support_offering":      "How can I best support you right now?",
			"reflection_request":    "Would you like to explore this further?",
		},
	}
}

// SystemPrompt renders the companion instruction used by the chat
// adapters. The persona text matches the original product voice.
func (d Document) SystemPrompt() string {
	limit := 200
	if v, ok := d.ConversationFlow["max_response_length"]; ok {
		switch n := v.(type) {
		case float64:
			limit = int(n)
		case int:
			limit = n
		}
	}
	return fmt.Sprintf("You are Sprout, a compassionate and nurturing AI companion in Memory Garden. "+
		"You help users reflect on their memories with empathy and understanding. "+
		"Be warm, natural, and genuinely curious about their experiences. "+
		"Keep responses conversational and concise (under %d words).", limit)
}

// FallbackReply is the canned reply substituted when the AI provider
// fails.
func (d Document) FallbackReply() string {
	if v, ok := d.Responses["fallback"].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return Default().Responses["fallback"].(string)
}

// Manager loads, merges, and persists the document at a file path.
type Manager struct {
	mu   sync.Mutex
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads the document from disk; a missing or unreadable file yields
// the defaults.
func (m *Manager) Load() Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *Manager) loadLocked() Document {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Default()
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Default()
	}
	return merged(Default(), doc)
}

// Update shallow-merges the sections of patch over the stored document
// and persists the result.
func (m *Manager) Update(patch Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := merged(m.loadLocked(), patch)
	if err := m.saveLocked(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Reset restores and persists the defaults.
func (m *Manager) Reset() (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := Default()
	if err := m.saveLocked(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Export renders the stored document as indented JSON.
func (m *Manager) Export() (string, error) {
	doc := m.Load()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export config: %w", err)
	}
	return string(data), nil
}

// Import replaces the stored document wholesale.
func (m *Manager) Import(doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(doc)
}

func (m *Manager) saveLocked(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// merged overlays non-empty sections of b on a, key by key.
func merged(a, b Document) Document {
	a.Personality = mergeSection(a.Personality, b.Personality)
	a.Responses = mergeSection(a.Responses, b.Responses)
	a.TherapeuticTechniques = mergeSection(a.TherapeuticTechniques, b.TherapeuticTechniques)
	a.ConversationFlow = mergeSection(a.ConversationFlow, b.ConversationFlow)
	a.CustomPrompts = mergeSection(a.CustomPrompts, b.CustomPrompts)
	return a
}

func mergeSection(base, patch map[string]any) map[string]any {
	if len(patch) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
