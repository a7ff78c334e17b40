package transcribe

import (
	"context"
	"strings"
)

// MockProvider returns a fixed transcript for tests and demos.
type MockProvider struct {
	transcript string
}

func NewMockProvider(transcript string) *MockProvider {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		transcript = "This is a sample transcription."
	}
	return &MockProvider{transcript: transcript}
}

func (p *MockProvider) Transcribe(ctx context.Context, clip []byte, mimeType string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	if len(clip) == 0 {
		return "", nil
	}
	return p.transcript, nil
}
