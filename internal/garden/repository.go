package garden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/storage"
)

const (
	memoriesKey = "memory_garden_memories"

	coverImagePrefix  = "memory_image_"
	memoryImagePrefix = "memory_images_"
	stackImagePrefix  = "stack_images_"
)

// ErrSaveFailed is the generic error surfaced when persisting a memory
// fails. Callers must not assume partial success.
var ErrSaveFailed = errors.New("failed to save memory")

// Repository owns the memory collection. All operations are serialized
// by an internal mutex; cross-process writers are last-write-wins, which
// matches the multi-tab behavior of the original client.
type Repository struct {
	mu sync.Mutex
	ks storage.Keyspace

	dedupWindow time.Duration
	maxMemories int

	now    func() time.Time
	rand   *rand.Rand
	issued map[string]struct{}
}

// Options tune the store policies. Zero values fall back to the product
// defaults (5s dedup window, 100 memory cap).
type Options struct {
	DedupWindow time.Duration
	MaxMemories int
}

func NewRepository(ks storage.Keyspace, opts Options) *Repository {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 5 * time.Second
	}
	if opts.MaxMemories <= 0 {
		opts.MaxMemories = 100
	}
	return &Repository{
		ks:          ks,
		dedupWindow: opts.DedupWindow,
		maxMemories: opts.MaxMemories,
		now:         time.Now,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
		issued:      make(map[string]struct{}),
	}
}

// Close releases the underlying keyspace.
func (r *Repository) Close() error { return r.ks.Close() }

// SaveMemory persists a new memory and returns its id.
//
// Saving supersedes: when the collection already holds memories, every
// cached media blob for existing memories and stacks is erased and the
// previous collection is discarded before the new record is written.
// A duplicate draft (same title, same description, creation timestamps
// within the dedup window) returns the existing id without writing.
func (r *Repository) SaveMemory(ctx context.Context, draft Draft, chatHistory []Message, aiInsights string) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.loadAll(ctx)
	now := r.now()

	candidateTS := draft.Timestamp
	if candidateTS == "" {
		candidateTS = now.UTC().Format(time.RFC3339)
	}
	if dup, ok := r.findDuplicate(existing, draft, candidateTS); ok {
		return dup.ID, nil
	}

	if len(existing) > 0 {
		r.evictCachedMedia(ctx)
		existing = existing[:0]
	}

	id := r.newID(now, existing)
	memory := draft.materialize(id, chatHistory, aiInsights, now)

	existing = append([]Memory{memory}, existing...)
	if len(existing) > r.maxMemories {
		existing = existing[:r.maxMemories]
	}

	if err := r.persist(ctx, existing); err != nil {
		log.Printf("garden: save memory: %v", err)
		return "", ErrSaveFailed
	}
	r.issued[id] = struct{}{}
	return id, nil
}

// AllMemories returns the collection newest-first. Read errors are
// logged and yield an empty collection.
func (r *Repository) AllMemories(ctx context.Context) []Memory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadAll(ctx)
}

// GetMemory looks a memory up by id.
func (r *Repository) GetMemory(ctx context.Context, id string) (Memory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.loadAll(ctx) {
		if m.ID == id {
			return m, true
		}
	}
	return Memory{}, false
}

// AppendChatMessage appends one message to a memory's chat history.
// Returns false without writing when the id matches nothing.
func (r *Repository) AppendChatMessage(ctx context.Context, id string, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	memories := r.loadAll(ctx)
	for i := range memories {
		if memories[i].ID != id {
			continue
		}
		memories[i].ChatHistory = append(memories[i].ChatHistory, msg)
		if err := r.persist(ctx, memories); err != nil {
			log.Printf("garden: append chat message: %v", err)
			return false
		}
		return true
	}
	return false
}

// DeleteMemory removes the matching memory and persists the filtered
// collection unconditionally; it reports true even when nothing matched.
func (r *Repository) DeleteMemory(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	memories := r.loadAll(ctx)
	filtered := memories[:0:0]
	for _, m := range memories {
		if m.ID != id {
			filtered = append(filtered, m)
		}
	}
	if err := r.persist(ctx, filtered); err != nil {
		log.Printf("garden: delete memory: %v", err)
		return false
	}
	return true
}

// MemoryCount reports how many memories are stored.
func (r *Repository) MemoryCount(ctx context.Context) int {
	return len(r.AllMemories(ctx))
}

// MemoriesByCategory returns memories tagged with the category, either
// in the category list or as the custom category.
func (r *Repository) MemoriesByCategory(ctx context.Context, category string) []Memory {
	var out []Memory
	for _, m := range r.AllMemories(ctx) {
		if m.CustomCategory == category {
			out = append(out, m)
			continue
		}
		for _, c := range m.Categories {
			if c == category {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// SearchMemories performs a case-insensitive substring match over title,
// description, tags, and categories.
func (r *Repository) SearchMemories(ctx context.Context, query string) []Memory {
	q := strings.ToLower(query)
	var out []Memory
	for _, m := range r.AllMemories(ctx) {
		if matchesQuery(m, q) {
			out = append(out, m)
		}
	}
	return out
}

// ClearAllMemories erases the entire collection.
func (r *Repository) ClearAllMemories(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ks.Delete(ctx, memoriesKey); err != nil {
		log.Printf("garden: clear memories: %v", err)
	}
}

func matchesQuery(m Memory, q string) bool {
	if strings.Contains(strings.ToLower(m.Title), q) ||
		strings.Contains(strings.ToLower(m.Description), q) ||
		strings.Contains(strings.ToLower(m.Tags), q) {
		return true
	}
	for _, c := range m.Categories {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	return false
}

func (r *Repository) findDuplicate(existing []Memory, draft Draft, candidateTS string) (Memory, bool) {
	title := draft.Title
	if title == "" {
		title = "Untitled Memory"
	}
	candidate, err := parseTimestamp(candidateTS)
	if err != nil {
		return Memory{}, false
	}
	for _, m := range existing {
		if m.Title != title || m.Description != draft.Description {
			continue
		}
		ts, err := parseTimestamp(m.Timestamp)
		if err != nil {
			continue
		}
		delta := candidate.Sub(ts)
		if delta < 0 {
			delta = -delta
		}
		if delta <= r.dedupWindow {
			return m, true
		}
	}
	return Memory{}, false
}

// evictCachedMedia erases every cached media blob for existing memories
// and stacks. Destructive: the caches are shared with the stacks store.
func (r *Repository) evictCachedMedia(ctx context.Context) {
	for _, prefix := range []string{coverImagePrefix, memoryImagePrefix, stackImagePrefix} {
		keys, err := r.ks.Keys(ctx, prefix)
		if err != nil {
			log.Printf("garden: scan %s keys: %v", prefix, err)
			continue
		}
		for _, k := range keys {
			if err := r.ks.Delete(ctx, k); err != nil {
				log.Printf("garden: evict %s: %v", k, err)
			}
		}
	}
}

func (r *Repository) loadAll(ctx context.Context) []Memory {
	data, ok, err := r.ks.Get(ctx, memoriesKey)
	if err != nil {
		log.Printf("garden: load memories: %v", err)
		return []Memory{}
	}
	if !ok {
		return []Memory{}
	}
	var memories []Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		log.Printf("garden: decode memories: %v", err)
		return []Memory{}
	}
	return memories
}

func (r *Repository) persist(ctx context.Context, memories []Memory) error {
	if memories == nil {
		memories = []Memory{}
	}
	data, err := json.Marshal(memories)
	if err != nil {
		return fmt.Errorf("encode memories: %w", err)
	}
	if err := r.ks.Put(ctx, memoriesKey, data); err != nil {
		return fmt.Errorf("write memories: %w", err)
	}
	return nil
}

// newID mints a time-based id with a random suffix, unique for the
// process lifetime and the stored collection.
func (r *Repository) newID(now time.Time, existing []Memory) string {
	for {
		id := fmt.Sprintf("memory_%d_%s", now.UnixMilli(), randSuffix(r.rand, 9))
		if _, taken := r.issued[id]; taken {
			continue
		}
		clash := false
		for _, m := range existing {
			if m.ID == id {
				clash = true
				break
			}
		}
		if !clash {
			return id
		}
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randSuffix(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[r.Intn(len(base36))]
	}
	return string(b)
}
