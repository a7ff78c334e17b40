package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/AketfONG/Memory-Garden-sub001/internal/policy"
)

// ScriptAdapter executes the local chat script and extracts its reply.
// The script receives the message, the JSON-encoded history, and the
// JSON-encoded test context as positional arguments and prints a single
// JSON object line on stdout.
type ScriptAdapter struct {
	python     string
	scriptPath string
}

func NewScriptAdapter(python, scriptPath string) *ScriptAdapter {
	python = strings.TrimSpace(python)
	if python == "" {
		python = "python3"
	}
	return &ScriptAdapter{python: python, scriptPath: strings.TrimSpace(scriptPath)}
}

func (a *ScriptAdapter) StreamResponse(
	ctx context.Context,
	req Request,
	onDelta DeltaHandler,
) (Response, error) {
	message, _ := policy.RedactPII(req.Message)

	history := req.History
	if history == nil {
		history = []Turn{}
	}
	redactedHistory := make([]Turn, len(history))
	for i, turn := range history {
		content, _ := policy.RedactPII(turn.Content)
		redactedHistory[i] = Turn{Role: turn.Role, Content: content}
	}

	historyJSON, err := json.Marshal(redactedHistory)
	if err != nil {
		return Response{}, fmt.Errorf("marshal history: %w", err)
	}

	testContext := strings.TrimSpace(req.TestContext)
	testContextJSON := []byte("null")
	if testContext != "" {
		if testContextJSON, err = json.Marshal(testContext); err != nil {
			return Response{}, fmt.Errorf("marshal test context: %w", err)
		}
	}

	scriptsDir := filepath.Dir(a.scriptPath)
	cmd := exec.CommandContext(ctx, a.python, a.scriptPath, message, string(historyJSON), string(testContextJSON))
	cmd.Dir = scriptsDir
	cmd.Env = append(os.Environ(),
		"PYTHONPATH="+scriptsDir,
		"PYTHONUNBUFFERED=1",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// exec.CommandContext may surface "signal: killed" instead of context cancellation.
			return Response{}, ctx.Err()
		}
		errText := strings.TrimSpace(stderr.String())
		if errText == "" {
			errText = strings.TrimSpace(stdout.String())
		}
		if errText != "" {
			return Response{}, fmt.Errorf("chat script failed: %w: %s", err, errText)
		}
		return Response{}, fmt.Errorf("chat script failed: %w", err)
	}

	text, err := parseScriptReply(stdout.String())
	if err != nil {
		return Response{}, err
	}
	if text != "" && onDelta != nil {
		if err := onDelta(text); err != nil {
			return Response{}, err
		}
	}
	return Response{Text: text}, nil
}

// parseScriptReply finds the first JSON object line in output that may
// be interleaved with debug prints.
func parseScriptReply(raw string) (string, error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}

		var obj struct {
			Response string `json:"response"`
			Error    string `json:"error"`
		}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if obj.Error != "" {
			return "", fmt.Errorf("chat script error: %s", obj.Error)
		}
		return strings.TrimSpace(obj.Response), nil
	}
	return "", fmt.Errorf("no JSON reply in script output")
}
