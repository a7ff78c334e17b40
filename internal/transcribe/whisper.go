package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/AketfONG/Memory-Garden-sub001/internal/audio"
)

// WhisperProvider shells out to a local whisper.cpp CLI. Uploaded clips
// that are not already WAV are wrapped as PCM16LE mono before handoff.
type WhisperProvider struct {
	cliPath   string
	modelPath string
	language  string
}

func NewWhisperProvider(cli, modelPath, language string) (*WhisperProvider, error) {
	cliPath, err := lookupCLI(cli)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp CLI not found: %w", err)
	}

	modelPath = strings.TrimSpace(modelPath)
	if modelPath == "" {
		return nil, errors.New("whisper model path is required")
	}
	if !filepath.IsAbs(modelPath) {
		if wd, err := os.Getwd(); err == nil {
			modelPath = filepath.Join(wd, modelPath)
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found: %s", modelPath)
	}

	language = strings.TrimSpace(language)
	if language == "" {
		language = "en"
	}

	return &WhisperProvider{cliPath: cliPath, modelPath: modelPath, language: language}, nil
}

func (p *WhisperProvider) Transcribe(ctx context.Context, clip []byte, mimeType string) (string, error) {
	if len(clip) == 0 {
		return "", nil
	}

	tmpDir, err := os.MkdirTemp("", "garden-whisper-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "clip.wav")
	if err := audio.WriteFile(wavPath, clip, 16000); err != nil {
		return "", err
	}
	outPrefix := filepath.Join(tmpDir, "out")

	// whisper.cpp CLI flag set varies slightly across builds; keep this conservative.
	args := []string{
		"-m", p.modelPath,
		"-f", wavPath,
		"-l", p.language,
		"-otxt",
		"-of", outPrefix,
		"-nt",
	}

	cmd := exec.CommandContext(ctx, p.cliPath, args...)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		// whisper.cpp can be extremely chatty; keep errors readable.
		if len(detail) > 8<<10 {
			detail = strings.TrimSpace(detail[len(detail)-(8<<10):])
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("whisper.cpp failed: %s", detail)
	}

	b, err := os.ReadFile(outPrefix + ".txt")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
