package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AketfONG/Memory-Garden-sub001/internal/brain"
	"github.com/AketfONG/Memory-Garden-sub001/internal/chat"
	"github.com/AketfONG/Memory-Garden-sub001/internal/protocol"
)

type chatRequest struct {
	Message             string       `json:"message"`
	ConversationHistory []brain.Turn `json:"conversationHistory,omitempty"`
	TestContext         string       `json:"testContext,omitempty"`
	MemoryID            string       `json:"memoryId,omitempty"`
	Stream              bool         `json:"stream,omitempty"`
}

// handleChat serves one chat turn. With "stream": true the response
// body is NDJSON chunk frames followed by a complete frame; otherwise
// a single JSON object with the full reply.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.metrics.ChatRequests.WithLabelValues("http", "invalid").Inc()
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}

	turn := chat.Turn{
		MemoryID:    req.MemoryID,
		Message:     req.Message,
		History:     req.ConversationHistory,
		TestContext: req.TestContext,
	}

	started := time.Now()
	if req.Stream {
		s.streamChat(w, r, turn, started)
		return
	}

	reply, err := s.chatSvc.Continue(r.Context(), turn, nil)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
			return
		}
		s.metrics.ChatRequests.WithLabelValues("http", "error").Inc()
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to process chat message"})
		return
	}

	outcome := "ok"
	if reply.Fallback {
		outcome = "fallback"
	}
	s.metrics.ChatRequests.WithLabelValues("http", outcome).Inc()
	s.metrics.ObserveChatReplyLatency(time.Since(started))
	respondJSON(w, http.StatusOK, map[string]string{"response": reply.Text})
}

func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, turn chat.Turn, started time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	writeFrame := func(frame protocol.StreamFrame) {
		_ = enc.Encode(frame)
		flusher.Flush()
	}

	reply, err := s.chatSvc.Continue(r.Context(), turn, func(delta string) error {
		writeFrame(protocol.ChunkFrame(delta))
		return nil
	})
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("http_stream", "error").Inc()
		writeFrame(protocol.ErrorFrame("Failed to process chat message"))
		return
	}

	// Fallback replies never streamed as chunks; send them in the
	// terminal frame so the client always ends with the full text.
	writeFrame(protocol.CompleteFrame(reply.Text))

	outcome := "ok"
	if reply.Fallback {
		outcome = "fallback"
	}
	s.metrics.ChatRequests.WithLabelValues("http_stream", outcome).Inc()
	s.metrics.ObserveChatReplyLatency(time.Since(started))
}

type createChatSessionRequest struct {
	MemoryID string `json:"memory_id,omitempty"`
}

type createChatSessionResponse struct {
	SessionID       string      `json:"session_id"`
	MemoryID        string      `json:"memory_id,omitempty"`
	Status          chat.Status `json:"status"`
	StartedAt       time.Time   `json:"started_at"`
	InactivityTTLMS int64       `json:"inactivity_ttl_ms"`
}

func (s *Server) handleCreateChatSession(w http.ResponseWriter, r *http.Request) {
	var req createChatSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess := s.sessions.Create(strings.TrimSpace(req.MemoryID))
	s.metrics.ActiveChatSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, createChatSessionResponse{
		SessionID:       sess.ID,
		MemoryID:        sess.MemoryID,
		Status:          sess.Status,
		StartedAt:       sess.StartedAt,
		InactivityTTLMS: s.cfg.ChatSessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndChatSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveChatSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	writeJSON := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			return false
		}
		if t, ok := messageTypeOf(v); ok {
			s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
		}
		return true
	}

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			writeJSON(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch msg := parsed.(type) {
		case protocol.UserMessage:
			if !s.serveWSTurn(r, conn, sess, msg, writeJSON) {
				return
			}
		case protocol.ClientControl:
			if msg.Action == "end" {
				if ended, err := s.sessions.End(sessionID); err == nil {
					s.metrics.ActiveChatSessions.Set(float64(s.sessions.ActiveCount()))
					s.metrics.SessionEvents.WithLabelValues("ended").Inc()
					writeJSON(protocol.SystemEvent{
						Type:      protocol.TypeSystemEvent,
						SessionID: ended.ID,
						Code:      "session_ended",
					})
				}
				s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
				return
			}
		}
	}

	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

// serveWSTurn runs one chat turn over the websocket. Turns are
// processed one at a time per connection; websocket writes stay
// single-threaded.
func (s *Server) serveWSTurn(r *http.Request, conn *websocket.Conn, sess *chat.Session, msg protocol.UserMessage, writeJSON func(any) bool) bool {
	_ = s.sessions.Touch(sess.ID)

	memoryID := strings.TrimSpace(msg.MemoryID)
	if memoryID == "" {
		memoryID = sess.MemoryID
	}

	turnID := uuid.NewString()
	started := time.Now()
	reply, err := s.chatSvc.Continue(r.Context(), chat.Turn{
		MemoryID:    memoryID,
		Message:     msg.Content,
		TestContext: msg.TestContext,
	}, func(delta string) error {
		if !writeJSON(protocol.AssistantDelta{
			Type:      protocol.TypeAssistantDelta,
			SessionID: sess.ID,
			TurnID:    turnID,
			TextDelta: delta,
		}) {
			return errors.New("websocket write failed")
		}
		return nil
	})
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("ws", "error").Inc()
		return writeJSON(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sess.ID,
			Code:      "chat_failed",
			Source:    "brain",
			Retryable: true,
			Detail:    "failed to process chat message",
		})
	}

	reason := "complete"
	outcome := "ok"
	if reply.Fallback {
		reason = "fallback"
		outcome = "fallback"
	}
	s.metrics.ChatRequests.WithLabelValues("ws", outcome).Inc()
	s.metrics.ObserveChatReplyLatency(time.Since(started))

	return writeJSON(protocol.AssistantDone{
		Type:      protocol.TypeAssistantDone,
		SessionID: sess.ID,
		TurnID:    turnID,
		Content:   reply.Text,
		Reason:    reason,
	})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.UserMessage:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantDelta:
		return m.Type, true
	case protocol.AssistantDone:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
