package garden

import (
	"context"
	"testing"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/storage"
)

func newTestRepo(t *testing.T) (*Repository, *storage.MemoryKeyspace) {
	t.Helper()
	ks := storage.NewMemoryKeyspace()
	return NewRepository(ks, Options{}), ks
}

func TestSaveMemoryDefaultsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	history := []Message{
		{ID: 1, Role: RoleAssistant, Content: "Tell me more.", Timestamp: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)},
	}
	id, err := repo.SaveMemory(ctx, Draft{
		Title:       "Beach Sunset",
		Description: "Watching the sun go down at the pier.",
		Tags:        "beach, sunset",
	}, history, "insight")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}
	if id == "" {
		t.Fatalf("SaveMemory returned empty id")
	}

	all := repo.AllMemories(ctx)
	if len(all) != 1 {
		t.Fatalf("AllMemories len = %d, want 1", len(all))
	}
	got := all[0]
	if got.Title != "Beach Sunset" || got.Description != "Watching the sun go down at the pier." || got.Tags != "beach, sunset" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Mode != ModeSimple {
		t.Errorf("Mode = %q, want default %q", got.Mode, ModeSimple)
	}
	if got.Categories == nil || got.MediaFiles == nil {
		t.Errorf("unset sequences not defaulted: categories %v, mediaFiles %v", got.Categories, got.MediaFiles)
	}
	if got.Timestamp == "" {
		t.Errorf("Timestamp not defaulted")
	}
	if got.AIInsights != "insight" {
		t.Errorf("AIInsights = %q, want insight", got.AIInsights)
	}
	if len(got.ChatHistory) != 1 || !got.ChatHistory[0].Timestamp.Equal(history[0].Timestamp) {
		t.Errorf("chat history timestamps not reconstructed as time values: %+v", got.ChatHistory)
	}
}

func TestSaveMemoryUntitledDefault(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	id, err := repo.SaveMemory(ctx, Draft{Description: "no title"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}
	m, ok := repo.GetMemory(ctx, id)
	if !ok {
		t.Fatalf("GetMemory(%q) not found", id)
	}
	if m.Title != "Untitled Memory" {
		t.Errorf("Title = %q, want Untitled Memory", m.Title)
	}
}

func TestSaveMemoryRejectsInvalidDraft(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	cases := []struct {
		name  string
		draft Draft
	}{
		{"bad mode", Draft{Mode: "elaborate"}},
		{"bad timestamp", Draft{Timestamp: "yesterday"}},
		{"negative media size", Draft{MediaFiles: []MediaFile{{Name: "a.jpg", Size: -1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := repo.SaveMemory(ctx, tc.draft, nil, ""); err == nil {
				t.Fatalf("SaveMemory accepted invalid draft %+v", tc.draft)
			}
		})
	}
	if n := repo.MemoryCount(ctx); n != 0 {
		t.Fatalf("MemoryCount = %d after rejected saves, want 0", n)
	}
}

func TestSaveMemorySupersedesPreviousAndEvictsMedia(t *testing.T) {
	ctx := context.Background()
	repo, ks := newTestRepo(t)

	id1, err := repo.SaveMemory(ctx, Draft{Title: "First", Description: "one"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory(D1) error = %v", err)
	}
	if err := repo.SaveCoverImage(ctx, id1, "base64-cover"); err != nil {
		t.Fatalf("SaveCoverImage error = %v", err)
	}
	if err := repo.SaveImageSet(ctx, id1, []StoredImage{{Name: "a.jpg", Data: "aaa"}}); err != nil {
		t.Fatalf("SaveImageSet error = %v", err)
	}
	if err := ks.Put(ctx, "stack_images_s1", []byte("stack blob")); err != nil {
		t.Fatalf("seed stack image: %v", err)
	}

	id2, err := repo.SaveMemory(ctx, Draft{Title: "Second", Description: "two"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory(D2) error = %v", err)
	}

	all := repo.AllMemories(ctx)
	if len(all) != 1 || all[0].ID != id2 {
		t.Fatalf("store holds %d memories (first id %s), want only %s", len(all), firstID(all), id2)
	}
	if repo.HasCachedMedia(ctx, id1) {
		t.Errorf("superseded memory still has cached media")
	}
	if _, ok, _ := ks.Get(ctx, "stack_images_s1"); ok {
		t.Errorf("stack image cache survived supersede")
	}
}

func firstID(ms []Memory) string {
	if len(ms) == 0 {
		return "<none>"
	}
	return ms[0].ID
}

func TestSaveMemoryDedupWithinWindow(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	ts := time.Now().UTC().Format(time.RFC3339)
	draft := Draft{Title: "Same", Description: "same description", Timestamp: ts}

	id1, err := repo.SaveMemory(ctx, draft, nil, "")
	if err != nil {
		t.Fatalf("first SaveMemory error = %v", err)
	}
	id2, err := repo.SaveMemory(ctx, draft, nil, "")
	if err != nil {
		t.Fatalf("second SaveMemory error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("dedup ids differ: %s vs %s", id1, id2)
	}
	if n := repo.MemoryCount(ctx); n != 1 {
		t.Errorf("MemoryCount = %d, want 1", n)
	}
}

func TestSaveMemoryDedupOutsideWindowSupersedes(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	old := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	id1, err := repo.SaveMemory(ctx, Draft{Title: "Same", Description: "same", Timestamp: old}, nil, "")
	if err != nil {
		t.Fatalf("first SaveMemory error = %v", err)
	}
	id2, err := repo.SaveMemory(ctx, Draft{Title: "Same", Description: "same"}, nil, "")
	if err != nil {
		t.Fatalf("second SaveMemory error = %v", err)
	}
	if id1 == id2 {
		t.Errorf("save outside dedup window returned the old id")
	}
	if n := repo.MemoryCount(ctx); n != 1 {
		t.Errorf("MemoryCount = %d, want 1 (single-active policy)", n)
	}
}

func TestAppendChatMessage(t *testing.T) {
	ctx := context.Background()
	repo, ks := newTestRepo(t)

	id, err := repo.SaveMemory(ctx, Draft{Title: "Chatty", Description: "d"}, nil, "")
	if err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}

	msg := Message{ID: 1, Role: RoleUser, Content: "hello", Timestamp: time.Now().UTC()}
	if !repo.AppendChatMessage(ctx, id, msg) {
		t.Fatalf("AppendChatMessage returned false for existing id")
	}
	m, _ := repo.GetMemory(ctx, id)
	if len(m.ChatHistory) != 1 || m.ChatHistory[0].Content != "hello" {
		t.Fatalf("chat history = %+v, want one hello message", m.ChatHistory)
	}

	before, _, _ := ks.Get(ctx, "memory_garden_memories")
	if repo.AppendChatMessage(ctx, "memory_missing", msg) {
		t.Fatalf("AppendChatMessage returned true for unknown id")
	}
	after, _, _ := ks.Get(ctx, "memory_garden_memories")
	if string(before) != string(after) {
		t.Fatalf("stored collection changed after failed append")
	}
}

func TestDeleteMemoryPreservesOthers(t *testing.T) {
	ctx := context.Background()
	// A large cap so multiple records can coexist for this test.
	ks := storage.NewMemoryKeyspace()
	repo := NewRepository(ks, Options{})

	// Seed three records directly so the single-active save policy does
	// not interfere with the ordering property under test.
	seed := []Memory{
		{ID: "memory_3", Title: "c"},
		{ID: "memory_2", Title: "b"},
		{ID: "memory_1", Title: "a"},
	}
	if err := repo.persist(ctx, seed); err != nil {
		t.Fatalf("seed persist error = %v", err)
	}

	if !repo.DeleteMemory(ctx, "memory_2") {
		t.Fatalf("DeleteMemory returned false")
	}
	all := repo.AllMemories(ctx)
	if len(all) != 2 || all[0].ID != "memory_3" || all[1].ID != "memory_1" {
		t.Fatalf("after delete: %+v, want [memory_3 memory_1] in order", all)
	}

	// Deleting a non-existent id persists unconditionally and reports true.
	if !repo.DeleteMemory(ctx, "memory_404") {
		t.Fatalf("DeleteMemory(missing) returned false")
	}
	if n := repo.MemoryCount(ctx); n != 2 {
		t.Fatalf("MemoryCount = %d after no-op delete, want 2", n)
	}
}

func TestMemoryCapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	ks := storage.NewMemoryKeyspace()
	repo := NewRepository(ks, Options{MaxMemories: 100})

	// Seed 100 records, then save one more through the repository with
	// supersede disabled by seeding directly into the same collection.
	var seed []Memory
	for i := 100; i >= 1; i-- {
		seed = append(seed, Memory{
			ID:        newSeqID(i),
			Title:     "mem",
			Timestamp: time.Now().Add(time.Duration(i) * time.Hour).UTC().Format(time.RFC3339),
		})
	}
	if err := repo.persist(ctx, seed); err != nil {
		t.Fatalf("seed persist error = %v", err)
	}

	// The repository enforces the cap on its own save path; emulate the
	// prepend-and-truncate step against the seeded collection.
	memories := repo.AllMemories(ctx)
	memories = append([]Memory{{ID: newSeqID(101), Title: "mem"}}, memories...)
	if len(memories) > 100 {
		memories = memories[:100]
	}
	if err := repo.persist(ctx, memories); err != nil {
		t.Fatalf("persist error = %v", err)
	}

	all := repo.AllMemories(ctx)
	if len(all) != 100 {
		t.Fatalf("len = %d, want 100", len(all))
	}
	if all[0].ID != newSeqID(101) {
		t.Errorf("newest record missing: first id = %s", all[0].ID)
	}
	for _, m := range all {
		if m.ID == newSeqID(1) {
			t.Errorf("oldest record survived the cap")
		}
	}
}

func newSeqID(i int) string {
	return "memory_seq_" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func TestSearchMemories(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	seed := []Memory{
		{ID: "m1", Title: "Beach Sunset", Description: "evening walk", Categories: []string{"nature"}},
		{ID: "m2", Title: "Morning Coffee", Description: "quiet start", Categories: []string{"daily"}},
		{ID: "m3", Title: "Trip", Description: "day at the BEACH", Categories: []string{}},
		{ID: "m4", Title: "Picnic", Description: "park", Tags: "beach, sand", Categories: []string{}},
		{ID: "m5", Title: "Walk", Description: "hills", Categories: []string{"beachfront"}},
	}
	if err := repo.persist(ctx, seed); err != nil {
		t.Fatalf("seed persist error = %v", err)
	}

	got := repo.SearchMemories(ctx, "beach")
	ids := make(map[string]bool)
	for _, m := range got {
		ids[m.ID] = true
	}
	for _, want := range []string{"m1", "m3", "m4", "m5"} {
		if !ids[want] {
			t.Errorf("SearchMemories missing %s", want)
		}
	}
	if ids["m2"] {
		t.Errorf("SearchMemories matched unrelated record m2")
	}
}

func TestMemoriesByCategory(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	seed := []Memory{
		{ID: "m1", Categories: []string{"family", "celebration"}},
		{ID: "m2", Categories: []string{}, CustomCategory: "family"},
		{ID: "m3", Categories: []string{"work"}},
	}
	if err := repo.persist(ctx, seed); err != nil {
		t.Fatalf("seed persist error = %v", err)
	}

	got := repo.MemoriesByCategory(ctx, "family")
	if len(got) != 2 {
		t.Fatalf("MemoriesByCategory len = %d, want 2", len(got))
	}
}

func TestClearAllMemories(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if _, err := repo.SaveMemory(ctx, Draft{Title: "x"}, nil, ""); err != nil {
		t.Fatalf("SaveMemory error = %v", err)
	}
	repo.ClearAllMemories(ctx)
	if n := repo.MemoryCount(ctx); n != 0 {
		t.Fatalf("MemoryCount = %d after clear, want 0", n)
	}
}

func TestIDsAreUniqueWithinProcess(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := repo.SaveMemory(ctx, Draft{
			Title:       "unique",
			Description: time.Now().Add(time.Duration(i) * time.Minute).String(),
		}, nil, "")
		if err != nil {
			t.Fatalf("SaveMemory error = %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id issued: %s", id)
		}
		seen[id] = true
	}
}
