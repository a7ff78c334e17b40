package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/brain"
	"github.com/AketfONG/Memory-Garden-sub001/internal/chat"
	"github.com/AketfONG/Memory-Garden-sub001/internal/config"
	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
	"github.com/AketfONG/Memory-Garden-sub001/internal/imagegen"
	"github.com/AketfONG/Memory-Garden-sub001/internal/observability"
	"github.com/AketfONG/Memory-Garden-sub001/internal/personality"
	"github.com/AketfONG/Memory-Garden-sub001/internal/storage"
	"github.com/AketfONG/Memory-Garden-sub001/internal/transcribe"
)

var metricsSeq atomic.Int64

func newTestServer(t *testing.T, adapter brain.Adapter) (*httptest.Server, *garden.Repository) {
	t.Helper()

	cfg := config.Config{
		ChatSessionInactivityTimeout: 2 * time.Minute,
		AIConfigPath:                 filepath.Join(t.TempDir(), "ai_config.json"),
	}

	ks := storage.NewMemoryKeyspace()
	repo := garden.NewRepository(ks, garden.Options{})
	stacks := garden.NewStacks(ks, 0)
	sessions := chat.NewSessionManager(cfg.ChatSessionInactivityTimeout)
	persona := personality.NewManager(cfg.AIConfigPath)
	if adapter == nil {
		adapter = brain.NewMockAdapter("a calm reply")
	}
	chatSvc := chat.NewService(repo, adapter, persona)
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", metricsSeq.Add(1)))

	srv := New(cfg, repo, stacks, sessions, chatSvc, persona, transcribe.NewMockProvider(""), imagegen.NewMockGenerator(), metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, repo
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestMemoryLifecycleOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	res := postJSON(t, ts.URL+"/api/memories", map[string]any{
		"title":       "Beach Sunset",
		"description": "Golden hour at the pier",
		"tags":        "beach, sunset",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created map[string]string
	decodeBody(t, res, &created)
	id := created["id"]
	if !strings.HasPrefix(id, "memory_") {
		t.Fatalf("id = %q, want memory_ prefix", id)
	}

	getRes, err := http.Get(ts.URL + "/api/memories/" + id)
	if err != nil {
		t.Fatalf("GET memory error = %v", err)
	}
	var memory garden.Memory
	decodeBody(t, getRes, &memory)
	if memory.Title != "Beach Sunset" {
		t.Fatalf("Title = %q", memory.Title)
	}

	countRes, err := http.Get(ts.URL + "/api/memories/count")
	if err != nil {
		t.Fatalf("GET count error = %v", err)
	}
	var count map[string]int
	decodeBody(t, countRes, &count)
	if count["count"] != 1 {
		t.Fatalf("count = %d, want 1", count["count"])
	}

	searchRes, err := http.Get(ts.URL + "/api/memories/search?q=beach")
	if err != nil {
		t.Fatalf("GET search error = %v", err)
	}
	var found []garden.Memory
	decodeBody(t, searchRes, &found)
	if len(found) != 1 {
		t.Fatalf("search results = %d, want 1", len(found))
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/memories/"+id, nil)
	delRes, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	var deleted map[string]bool
	decodeBody(t, delRes, &deleted)
	if !deleted["deleted"] {
		t.Fatalf("deleted = false")
	}
}

func TestAppendMessageRoute(t *testing.T) {
	ts, repo := newTestServer(t, nil)

	id, err := repo.SaveMemory(context.Background(), garden.Draft{Title: "Walk"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}

	res := postJSON(t, ts.URL+"/api/memories/"+id+"/messages", map[string]string{
		"type":    "user",
		"content": "it rained the whole time",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("append status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var msg garden.Message
	decodeBody(t, res, &msg)
	if msg.ID != 1 || msg.Role != garden.RoleUser {
		t.Fatalf("message = %+v", msg)
	}

	missing := postJSON(t, ts.URL+"/api/memories/memory_0_none/messages", map[string]string{
		"type":    "user",
		"content": "hello",
	})
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("append to missing memory status = %d, want %d", missing.StatusCode, http.StatusNotFound)
	}

	badRole := postJSON(t, ts.URL+"/api/memories/"+id+"/messages", map[string]string{
		"type":    "narrator",
		"content": "hello",
	})
	defer badRole.Body.Close()
	if badRole.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad role status = %d, want %d", badRole.StatusCode, http.StatusBadRequest)
	}
}

func TestChatRouteNonStreaming(t *testing.T) {
	ts, _ := newTestServer(t, brain.NewMockAdapter("that sounds wonderful"))

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": "we planted tomatoes"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var reply map[string]string
	decodeBody(t, res, &reply)
	if reply["response"] != "that sounds wonderful" {
		t.Fatalf("response = %q", reply["response"])
	}

	bad := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": ""})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message status = %d, want %d", bad.StatusCode, http.StatusBadRequest)
	}
}

func TestChatRouteStreaming(t *testing.T) {
	ts, _ := newTestServer(t, brain.NewMockAdapter("slow down and breathe"))

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": "busy day", "stream": true})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stream status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "application/x-ndjson") {
		t.Fatalf("Content-Type = %q", ct)
	}

	dec := json.NewDecoder(res.Body)
	var frames []map[string]string
	for dec.More() {
		var frame map[string]string
		if err := dec.Decode(&frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		frames = append(frames, frame)
	}
	if len(frames) < 2 {
		t.Fatalf("frames = %v, want chunk plus complete", frames)
	}
	last := frames[len(frames)-1]
	if last["type"] != "complete" || last["content"] != "slow down and breathe" {
		t.Fatalf("terminal frame = %v", last)
	}
}

func TestChatPersistsToMemory(t *testing.T) {
	ts, repo := newTestServer(t, brain.NewMockAdapter("noted"))

	id, err := repo.SaveMemory(context.Background(), garden.Draft{Title: "Picnic"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}

	res := postJSON(t, ts.URL+"/api/chat", map[string]any{"message": "we had sandwiches", "memoryId": id})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d", res.StatusCode)
	}

	memory, _ := repo.GetMemory(context.Background(), id)
	if len(memory.ChatHistory) != 2 {
		t.Fatalf("ChatHistory len = %d, want 2", len(memory.ChatHistory))
	}
}

func TestTranscribeRoute(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatalf("CreateFormFile error = %v", err)
	}
	fw.Write([]byte("fake audio bytes"))
	mw.Close()

	res, err := http.Post(ts.URL+"/api/transcribe", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST transcribe error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("transcribe status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var out map[string]any
	decodeBody(t, res, &out)
	if out["success"] != true || out["transcript"] == "" {
		t.Fatalf("transcribe response = %v", out)
	}

	empty, err := http.Post(ts.URL+"/api/transcribe", "multipart/form-data; boundary=x", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST empty transcribe error = %v", err)
	}
	defer empty.Body.Close()
	if empty.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty transcribe status = %d, want %d", empty.StatusCode, http.StatusBadRequest)
	}
}

func TestGenerateImageRoute(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	res := postJSON(t, ts.URL+"/api/generate-image", map[string]any{
		"type":        "memory_visualization",
		"memoryTitle": "Beach Day",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var out map[string]any
	decodeBody(t, res, &out)
	if out["success"] != true {
		t.Fatalf("generate response = %v", out)
	}
	imageData, _ := out["imageData"].(string)
	if !strings.HasPrefix(imageData, "data:image/png;base64,") {
		t.Fatalf("imageData = %q", imageData)
	}
}

func TestAIConfigRoutes(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	getRes, err := http.Get(ts.URL + "/api/ai-config")
	if err != nil {
		t.Fatalf("GET ai-config error = %v", err)
	}
	var doc personality.Document
	decodeBody(t, getRes, &doc)
	if doc.Personality["role"] != "compassionate_therapist" {
		t.Fatalf("role = %v", doc.Personality["role"])
	}

	updateRes := postJSON(t, ts.URL+"/api/ai-config", map[string]any{
		"action": "update_config",
		"config": map[string]any{"personality": map[string]any{"tone": "playful"}},
	})
	var updated map[string]any
	decodeBody(t, updateRes, &updated)
	if updated["success"] != true {
		t.Fatalf("update response = %v", updated)
	}

	exportRes := postJSON(t, ts.URL+"/api/ai-config", map[string]any{"action": "export_config"})
	var exported map[string]any
	decodeBody(t, exportRes, &exported)
	if exported["success"] != true {
		t.Fatalf("export response = %v", exported)
	}
	if cj, _ := exported["config_json"].(string); !strings.Contains(cj, "playful") {
		t.Fatalf("config_json missing update: %v", exported["config_json"])
	}

	resetRes := postJSON(t, ts.URL+"/api/ai-config", map[string]any{"action": "reset_config"})
	var reset map[string]any
	decodeBody(t, resetRes, &reset)
	if reset["success"] != true {
		t.Fatalf("reset response = %v", reset)
	}

	badRes := postJSON(t, ts.URL+"/api/ai-config", map[string]any{"action": "explode"})
	defer badRes.Body.Close()
	if badRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid action status = %d, want %d", badRes.StatusCode, http.StatusBadRequest)
	}
}

func TestSetupStatusRoute(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	res, err := http.Get(ts.URL + "/api/setup/status")
	if err != nil {
		t.Fatalf("GET setup status error = %v", err)
	}
	var payload map[string]any
	decodeBody(t, res, &payload)
	if payload["storage_backend"] != "memory" {
		t.Fatalf("storage_backend = %v, want memory", payload["storage_backend"])
	}
	if _, ok := payload["checks"]; !ok {
		t.Fatalf("missing checks: %v", payload)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
	}
}
