package garden

import (
	"errors"
	"fmt"
	"time"
)

// Wire format note: JSON field names match the collection documents the
// original web client persisted, so an exported/imported garden keeps
// working across versions.

// RoleUser and RoleAssistant are the only legal chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ModeNormal and ModeSimple are the two memory capture modes.
const (
	ModeNormal = "normal"
	ModeSimple = "simple"
)

// Message is one turn in a memory's chat history. IDs are sequential and
// unique only within the parent memory.
type Message struct {
	ID        int       `json:"id"`
	Role      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaFile is a lightweight descriptor of an attached file. Binary
// content lives in the image cache keyed by memory id, not here.
type MediaFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Memory is a single journaled entry.
type Memory struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	StartDate      string      `json:"startDate"`
	StartTime      string      `json:"startTime"`
	EndDate        string      `json:"endDate"`
	EndTime        string      `json:"endTime"`
	VagueTime      string      `json:"vagueTime"`
	Categories     []string    `json:"categories"`
	CustomCategory string      `json:"customCategory"`
	CustomEmotion  string      `json:"customEmotion"`
	Tags           string      `json:"tags"`
	MediaFiles     []MediaFile `json:"mediaFiles"`
	Mode           string      `json:"mode"`
	Timestamp      string      `json:"timestamp"`
	ChatHistory    []Message   `json:"chatHistory"`
	AIInsights     string      `json:"aiInsights"`
}

// Draft is the validated construction input for a memory. Every field is
// optional; unset fields are defaulted at save time.
type Draft struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	StartDate      string      `json:"startDate"`
	StartTime      string      `json:"startTime"`
	EndDate        string      `json:"endDate"`
	EndTime        string      `json:"endTime"`
	VagueTime      string      `json:"vagueTime"`
	Categories     []string    `json:"categories"`
	CustomCategory string      `json:"customCategory"`
	CustomEmotion  string      `json:"customEmotion"`
	Tags           string      `json:"tags"`
	MediaFiles     []MediaFile `json:"mediaFiles"`
	Mode           string      `json:"mode"`
	Timestamp      string      `json:"timestamp"`
}

var errInvalidDraft = errors.New("invalid memory draft")

// Validate rejects malformed drafts before they reach the repository.
func (d Draft) Validate() error {
	switch d.Mode {
	case "", ModeNormal, ModeSimple:
	default:
		return fmt.Errorf("%w: mode %q", errInvalidDraft, d.Mode)
	}
	if d.Timestamp != "" {
		if _, err := parseTimestamp(d.Timestamp); err != nil {
			return fmt.Errorf("%w: timestamp %q", errInvalidDraft, d.Timestamp)
		}
	}
	for _, f := range d.MediaFiles {
		if f.Size < 0 {
			return fmt.Errorf("%w: media file %q has negative size", errInvalidDraft, f.Name)
		}
	}
	return nil
}

// materialize fills every unset field with its default and stamps now.
func (d Draft) materialize(id string, chatHistory []Message, aiInsights string, now time.Time) Memory {
	m := Memory{
		ID:             id,
		Title:          d.Title,
		Description:    d.Description,
		StartDate:      d.StartDate,
		StartTime:      d.StartTime,
		EndDate:        d.EndDate,
		EndTime:        d.EndTime,
		VagueTime:      d.VagueTime,
		Categories:     d.Categories,
		CustomCategory: d.CustomCategory,
		CustomEmotion:  d.CustomEmotion,
		Tags:           d.Tags,
		MediaFiles:     d.MediaFiles,
		Mode:           d.Mode,
		Timestamp:      d.Timestamp,
		ChatHistory:    chatHistory,
		AIInsights:     aiInsights,
	}
	if m.Title == "" {
		m.Title = "Untitled Memory"
	}
	if m.Categories == nil {
		m.Categories = []string{}
	}
	if m.MediaFiles == nil {
		m.MediaFiles = []MediaFile{}
	}
	if m.Mode == "" {
		m.Mode = ModeSimple
	}
	if m.Timestamp == "" {
		m.Timestamp = now.UTC().Format(time.RFC3339)
	}
	if m.ChatHistory == nil {
		m.ChatHistory = []Message{}
	}
	return m
}

// parseTimestamp accepts the RFC3339 variants the web client wrote
// (with and without fractional seconds).
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
