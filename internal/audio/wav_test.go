package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWrapPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 320)
	out := WrapPCM16LE(pcm, 16000)

	if len(out) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(out), 44+len(pcm))
	}
	if !IsWAV(out) {
		t.Fatalf("wrapped output is not recognized as WAV")
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestWrapPCM16LEDefaultsSampleRate(t *testing.T) {
	out := WrapPCM16LE(nil, 0)
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want default 16000", got)
	}
}

func TestIsWAV(t *testing.T) {
	if IsWAV([]byte("not audio at all")) {
		t.Errorf("arbitrary bytes detected as WAV")
	}
	if IsWAV(nil) {
		t.Errorf("empty input detected as WAV")
	}
}

func TestWriteFilePassesThroughExistingWAV(t *testing.T) {
	wav := WrapPCM16LE([]byte{1, 2, 3, 4}, 16000)
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteFile(path, wav, 16000); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if len(got) != len(wav) {
		t.Errorf("existing WAV was re-wrapped: len %d, want %d", len(got), len(wav))
	}
}
