package brain

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no backend is
// configured.
type MockAdapter struct {
	reply string
}

// NewMockAdapter builds a mock. An empty reply means echo-style replies
// derived from the incoming message.
func NewMockAdapter(reply string) *MockAdapter {
	return &MockAdapter{reply: strings.TrimSpace(reply)}
}

func (a *MockAdapter) StreamResponse(
	ctx context.Context,
	req Request,
	onDelta DeltaHandler,
) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	text := a.reply
	if text == "" {
		text = buildMockReply(req)
	}
	if onDelta != nil && text != "" {
		if err := onDelta(text); err != nil {
			return Response{}, err
		}
	}
	return Response{Text: text}, nil
}

func buildMockReply(req Request) string {
	base := strings.TrimSpace(req.Message)
	if base == "" {
		return "I'm here with you. Take your time."
	}
	if len(req.History) == 0 {
		return fmt.Sprintf("Thank you for sharing that with me. I heard: %s", base)
	}
	return fmt.Sprintf("I'm still here with you. You said: %s", base)
}
