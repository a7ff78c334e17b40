package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/brain"
	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
	"github.com/AketfONG/Memory-Garden-sub001/internal/personality"
	"github.com/AketfONG/Memory-Garden-sub001/internal/storage"
)

type stubAdapter struct {
	text string
	err  error
	last brain.Request
}

func (s *stubAdapter) StreamResponse(ctx context.Context, req brain.Request, onDelta brain.DeltaHandler) (brain.Response, error) {
	s.last = req
	if s.err != nil {
		return brain.Response{}, s.err
	}
	if onDelta != nil {
		if err := onDelta(s.text); err != nil {
			return brain.Response{}, err
		}
	}
	return brain.Response{Text: s.text}, nil
}

func newTestService(t *testing.T, adapter brain.Adapter) (*Service, *garden.Repository) {
	t.Helper()
	repo := garden.NewRepository(storage.NewMemoryKeyspace(), garden.Options{})
	persona := personality.NewManager(filepath.Join(t.TempDir(), "ai_config.json"))
	return NewService(repo, adapter, persona), repo
}

func TestContinueAppendsBothTurns(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{text: "That sounds like a lovely day."}
	svc, repo := newTestService(t, adapter)

	id, err := repo.SaveMemory(ctx, garden.Draft{Title: "Beach Day"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}

	reply, err := svc.Continue(ctx, Turn{MemoryID: id, Message: "we built sandcastles"}, nil)
	if err != nil {
		t.Fatalf("Continue error = %v", err)
	}
	if reply.Fallback {
		t.Fatalf("unexpected fallback reply")
	}
	if !reply.UserPersisted || !reply.AssistantPersisted {
		t.Fatalf("persistence flags = %+v, want both true", reply)
	}

	memory, ok := repo.GetMemory(ctx, id)
	if !ok {
		t.Fatalf("memory disappeared")
	}
	if len(memory.ChatHistory) != 2 {
		t.Fatalf("ChatHistory len = %d, want 2", len(memory.ChatHistory))
	}
	if memory.ChatHistory[0].Role != garden.RoleUser || memory.ChatHistory[0].Content != "we built sandcastles" {
		t.Fatalf("user turn = %+v", memory.ChatHistory[0])
	}
	if memory.ChatHistory[1].Role != garden.RoleAssistant || memory.ChatHistory[1].Content != adapter.text {
		t.Fatalf("assistant turn = %+v", memory.ChatHistory[1])
	}
	if memory.ChatHistory[0].ID != 1 || memory.ChatHistory[1].ID != 2 {
		t.Fatalf("message ids = %d, %d; want 1, 2", memory.ChatHistory[0].ID, memory.ChatHistory[1].ID)
	}
}

func TestContinueBackendFailureKeepsUserTurn(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{err: errors.New("backend down")}
	svc, repo := newTestService(t, adapter)

	id, err := repo.SaveMemory(ctx, garden.Draft{Title: "Quiet Evening"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}

	reply, err := svc.Continue(ctx, Turn{MemoryID: id, Message: "I feel tired today"}, nil)
	if err != nil {
		t.Fatalf("Continue error = %v", err)
	}
	if !reply.Fallback {
		t.Fatalf("expected a fallback reply")
	}
	if reply.Text == "" {
		t.Fatalf("fallback reply is empty")
	}

	memory, _ := repo.GetMemory(ctx, id)
	if len(memory.ChatHistory) != 2 {
		t.Fatalf("ChatHistory len = %d, want user turn plus fallback", len(memory.ChatHistory))
	}
	if memory.ChatHistory[1].Content != reply.Text {
		t.Fatalf("persisted assistant turn %q != reply %q", memory.ChatHistory[1].Content, reply.Text)
	}
}

func TestContinueUnknownMemoryStillReplies(t *testing.T) {
	adapter := &stubAdapter{text: "I'm listening."}
	svc, _ := newTestService(t, adapter)

	reply, err := svc.Continue(context.Background(), Turn{MemoryID: "memory_1_missing", Message: "hello"}, nil)
	if err != nil {
		t.Fatalf("Continue error = %v", err)
	}
	if reply.UserPersisted || reply.AssistantPersisted {
		t.Fatalf("persistence flags = %+v, want both false", reply)
	}
	if reply.Text != "I'm listening." {
		t.Fatalf("Text = %q", reply.Text)
	}
}

func TestContinueRejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestService(t, &stubAdapter{text: "x"})
	_, err := svc.Continue(context.Background(), Turn{Message: "   "}, nil)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("error = %v, want ErrEmptyMessage", err)
	}
}

func TestContinuePrefersStoredHistory(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{text: "noted"}
	svc, repo := newTestService(t, adapter)

	seed := []garden.Message{
		{ID: 1, Role: garden.RoleUser, Content: "earlier turn", Timestamp: time.Now().UTC()},
	}
	id, err := repo.SaveMemory(ctx, garden.Draft{Title: "History Check"}, seed, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}

	_, err = svc.Continue(ctx, Turn{
		MemoryID: id,
		Message:  "next turn",
		History:  []brain.Turn{{Role: garden.RoleUser, Content: "client-side junk"}},
	}, nil)
	if err != nil {
		t.Fatalf("Continue error = %v", err)
	}
	if len(adapter.last.History) != 1 || adapter.last.History[0].Content != "earlier turn" {
		t.Fatalf("backend history = %+v, want the stored history", adapter.last.History)
	}
}

func TestSessionManagerLifecycle(t *testing.T) {
	m := NewSessionManager(time.Minute)

	s := m.Create("memory_1_abc")
	if s.Status != StatusActive || s.MemoryID != "memory_1_abc" {
		t.Fatalf("created session = %+v", s)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", m.ActiveCount())
	}

	if err := m.Touch(s.ID); err != nil {
		t.Fatalf("Touch error = %v", err)
	}
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if got.TurnCount != 1 {
		t.Fatalf("TurnCount = %d, want 1", got.TurnCount)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("Status = %v, want ended", ended.Status)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", m.ActiveCount())
	}

	if _, err := m.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrSessionNotFound", err)
	}
}
