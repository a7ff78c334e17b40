// Package imagegen renders memory visualizations through a hosted
// prediction API or a deterministic mock.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Image is a finished generation, encoded as a data URL ready for the
// client image cache.
type Image struct {
	DataURL  string
	Prompt   string
	Provider string
}

// Generator produces one image for a prompt request.
type Generator interface {
	Generate(ctx context.Context, req PromptRequest) (Image, error)
}

// PromptRequest carries the raw prompt inputs. Type selects the prompt
// template; custom prompts pass through unchanged.
type PromptRequest struct {
	Prompt            string `json:"prompt,omitempty"`
	MemoryTitle       string `json:"memoryTitle,omitempty"`
	MemoryDescription string `json:"memoryDescription,omitempty"`
	Category          string `json:"category,omitempty"`
	Emotion           string `json:"emotion,omitempty"`
	Style             string `json:"style,omitempty"`
	Type              string `json:"type,omitempty"`
}

// BuildPrompt renders the final text prompt for the provider.
func BuildPrompt(req PromptRequest) string {
	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = "realistic"
	}
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		kind = "custom"
	}

	switch {
	case kind == "custom" && strings.TrimSpace(req.Prompt) != "":
		return strings.TrimSpace(req.Prompt)
	case kind == "memory_visualization":
		title := strings.TrimSpace(req.MemoryTitle)
		if title == "" {
			title = "A precious moment"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "A beautiful, warm, and emotional visualization of a memory: %s.", title)
		if d := strings.TrimSpace(req.MemoryDescription); d != "" {
			fmt.Fprintf(&b, " %s", d)
		}
		if c := strings.TrimSpace(req.Category); c != "" {
			fmt.Fprintf(&b, " Category: %s.", c)
		}
		if e := strings.TrimSpace(req.Emotion); e != "" {
			fmt.Fprintf(&b, " Emotion: %s.", e)
		}
		fmt.Fprintf(&b, " Style: %s. Create an image that captures the essence and feeling of this memory with warmth and nostalgia.", style)
		return b.String()
	case kind == "category_icon":
		return fmt.Sprintf("A simple, elegant icon representing the category %q. Minimalist design, clean lines, suitable for a memory garden app.", strings.TrimSpace(req.Category))
	case kind == "garden_background":
		return fmt.Sprintf("A peaceful, serene background for a memory garden. Soft colors, gentle atmosphere, %s style. Perfect for displaying memories.", style)
	case kind == "ai_artwork":
		title := strings.TrimSpace(req.MemoryTitle)
		if title == "" {
			title = "a memory"
		}
		emotion := strings.TrimSpace(req.Emotion)
		if emotion == "" {
			emotion = "peaceful"
		}
		out := fmt.Sprintf("Create beautiful AI artwork inspired by: %s.", title)
		if d := strings.TrimSpace(req.MemoryDescription); d != "" {
			out += " " + d
		}
		return fmt.Sprintf("%s Style: %s. Emotion: %s.", out, style, emotion)
	default:
		subject := strings.TrimSpace(req.Prompt)
		if subject == "" {
			subject = strings.TrimSpace(req.MemoryTitle)
		}
		if subject == "" {
			subject = "a memory"
		}
		return fmt.Sprintf("A beautiful image: %s. Style: %s.", subject, style)
	}
}

// Config controls generator construction.
type Config struct {
	Mode         string
	APIKey       string
	APIURL       string
	Model        string
	PollInterval time.Duration
}

func NewGenerator(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewReplicateGenerator(cfg.APIKey, cfg.APIURL, cfg.Model, cfg.PollInterval), nil
		}
		return NewMockGenerator(), nil
	case "replicate":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("replicate API key is required for replicate mode")
		}
		return NewReplicateGenerator(cfg.APIKey, cfg.APIURL, cfg.Model, cfg.PollInterval), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported image generator mode %q", cfg.Mode)
	}
}
