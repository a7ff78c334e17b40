package protocol

// StreamFrame is one newline-delimited JSON line of a streaming chat
// response body.
type StreamFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	StreamChunk    = "chunk"
	StreamComplete = "complete"
	StreamError    = "error"
)

func ChunkFrame(content string) StreamFrame {
	return StreamFrame{Type: StreamChunk, Content: content}
}

func CompleteFrame(content string) StreamFrame {
	return StreamFrame{Type: StreamComplete, Content: content}
}

func ErrorFrame(message string) StreamFrame {
	return StreamFrame{Type: StreamError, Error: message}
}
