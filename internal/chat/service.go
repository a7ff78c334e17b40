// Package chat runs the companion conversation loop: it appends the
// user's turn to the owning memory, asks the reasoning backend for a
// reply, and appends that reply. The two appends are separate writes;
// a backend failure after the user turn landed leaves the user turn in
// place and substitutes the persona fallback.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/brain"
	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
	"github.com/AketfONG/Memory-Garden-sub001/internal/personality"
)

// ErrEmptyMessage rejects turns with no user text.
var ErrEmptyMessage = errors.New("message is required")

// Turn is the input for one exchange.
type Turn struct {
	MemoryID    string
	Message     string
	History     []brain.Turn
	TestContext string
}

// Reply is the outcome of one exchange.
type Reply struct {
	Text string
	// Fallback is set when the backend failed and the persona fallback
	// was substituted.
	Fallback bool
	// UserPersisted and AssistantPersisted report whether each turn
	// reached the memory's chat history. Both stay false for
	// memory-less conversations.
	UserPersisted      bool
	AssistantPersisted bool
}

// Service glues the memory store, persona, and reasoning backend.
type Service struct {
	repo    *garden.Repository
	adapter brain.Adapter
	persona *personality.Manager
	now     func() time.Time
}

func NewService(repo *garden.Repository, adapter brain.Adapter, persona *personality.Manager) *Service {
	return &Service{
		repo:    repo,
		adapter: adapter,
		persona: persona,
		now:     time.Now,
	}
}

// Continue processes one user turn. onDelta may be nil for
// non-streaming callers.
func (s *Service) Continue(ctx context.Context, turn Turn, onDelta brain.DeltaHandler) (Reply, error) {
	message := strings.TrimSpace(turn.Message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	var reply Reply
	history := turn.History

	if turn.MemoryID != "" {
		if memory, ok := s.repo.GetMemory(ctx, turn.MemoryID); ok {
			// The stored history wins over whatever the client sent.
			history = historyToTurns(memory.ChatHistory)
			userMsg := garden.Message{
				ID:        nextMessageID(memory.ChatHistory),
				Role:      garden.RoleUser,
				Content:   message,
				Timestamp: s.now().UTC(),
			}
			reply.UserPersisted = s.repo.AppendChatMessage(ctx, turn.MemoryID, userMsg)
		} else {
			log.Printf("chat: memory %s not found, continuing without persistence", turn.MemoryID)
		}
	}

	doc := s.persona.Load()
	resp, err := s.adapter.StreamResponse(ctx, brain.Request{
		Message:      message,
		History:      history,
		TestContext:  turn.TestContext,
		SystemPrompt: doc.SystemPrompt(),
	}, onDelta)
	if err != nil {
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		log.Printf("chat: backend error, using fallback reply: %v", err)
		reply.Text = doc.FallbackReply()
		reply.Fallback = true
	} else {
		reply.Text = strings.TrimSpace(resp.Text)
		if reply.Text == "" {
			reply.Text = doc.FallbackReply()
			reply.Fallback = true
		}
	}

	if turn.MemoryID != "" && reply.UserPersisted {
		if memory, ok := s.repo.GetMemory(ctx, turn.MemoryID); ok {
			assistantMsg := garden.Message{
				ID:        nextMessageID(memory.ChatHistory),
				Role:      garden.RoleAssistant,
				Content:   reply.Text,
				Timestamp: s.now().UTC(),
			}
			reply.AssistantPersisted = s.repo.AppendChatMessage(ctx, turn.MemoryID, assistantMsg)
		}
	}

	return reply, nil
}

func historyToTurns(history []garden.Message) []brain.Turn {
	if len(history) == 0 {
		return nil
	}
	out := make([]brain.Turn, len(history))
	for i, msg := range history {
		out[i] = brain.Turn{Role: msg.Role, Content: msg.Content}
	}
	return out
}

// nextMessageID keeps message ids sequential within one memory.
func nextMessageID(history []garden.Message) int {
	next := len(history) + 1
	for _, msg := range history {
		if msg.ID >= next {
			next = msg.ID + 1
		}
	}
	return next
}
