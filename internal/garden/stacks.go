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

const stacksKey = "memory_garden_stacks"

// ErrStackSaveFailed is the generic error surfaced when persisting a
// stack fails.
var ErrStackSaveFailed = errors.New("failed to save stack")

// Stack groups related memories under a shared theme.
type Stack struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Emoji          string      `json:"emoji,omitempty"`
	StartDate      string      `json:"startDate"`
	StartTime      string      `json:"startTime"`
	EndDate        string      `json:"endDate"`
	EndTime        string      `json:"endTime"`
	VagueTime      string      `json:"vagueTime"`
	Categories     []string    `json:"categories"`
	CustomCategory string      `json:"customCategory"`
	CustomEmotion  string      `json:"customEmotion"`
	Tags           string      `json:"tags"`
	MediaFiles     []MediaFile `json:"mediaFiles"`
	Timestamp      string      `json:"timestamp"`
}

// StackDraft is a stack without identity or creation time.
type StackDraft struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Emoji          string      `json:"emoji,omitempty"`
	StartDate      string      `json:"startDate"`
	StartTime      string      `json:"startTime"`
	EndDate        string      `json:"endDate"`
	EndTime        string      `json:"endTime"`
	VagueTime      string      `json:"vagueTime"`
	Categories     []string    `json:"categories"`
	CustomCategory string      `json:"customCategory"`
	CustomEmotion  string      `json:"customEmotion"`
	Tags           string      `json:"tags"`
	MediaFiles     []MediaFile `json:"mediaFiles"`
}

// Stacks owns the stack collection. Demo (preset) stacks survive the
// single-active-user-stack policy; user stacks do not.
type Stacks struct {
	mu        sync.Mutex
	ks        storage.Keyspace
	maxStacks int
	now       func() time.Time
	rand      *rand.Rand
}

func NewStacks(ks storage.Keyspace, maxStacks int) *Stacks {
	if maxStacks <= 0 {
		maxStacks = 100
	}
	return &Stacks{
		ks:        ks,
		maxStacks: maxStacks,
		now:       time.Now,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SaveStack persists a new user stack. Only one user-created stack is
// kept at a time: presets survive, previous user stacks and every cached
// stack image are dropped first.
func (s *Stacks) SaveStack(ctx context.Context, draft StackDraft) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.loadAll(ctx)
	if len(existing) > 0 {
		keys, err := s.ks.Keys(ctx, stackImagePrefix)
		if err != nil {
			log.Printf("garden: scan stack images: %v", err)
		}
		for _, k := range keys {
			if err := s.ks.Delete(ctx, k); err != nil {
				log.Printf("garden: evict %s: %v", k, err)
			}
		}

		presets := existing[:0:0]
		for _, st := range existing {
			if isPresetTitle(st.Title) {
				presets = append(presets, st)
			}
		}
		existing = presets
	}

	now := s.now()
	stack := Stack{
		ID:             fmt.Sprintf("stack_%d_%s", now.UnixMilli(), randSuffix(s.rand, 9)),
		Title:          draft.Title,
		Description:    draft.Description,
		Emoji:          draft.Emoji,
		StartDate:      draft.StartDate,
		StartTime:      draft.StartTime,
		EndDate:        draft.EndDate,
		EndTime:        draft.EndTime,
		VagueTime:      draft.VagueTime,
		Categories:     draft.Categories,
		CustomCategory: draft.CustomCategory,
		CustomEmotion:  draft.CustomEmotion,
		Tags:           draft.Tags,
		MediaFiles:     draft.MediaFiles,
		Timestamp:      now.UTC().Format(time.RFC3339),
	}
	if stack.Categories == nil {
		stack.Categories = []string{}
	}
	if stack.MediaFiles == nil {
		stack.MediaFiles = []MediaFile{}
	}

	existing = append([]Stack{stack}, existing...)
	if len(existing) > s.maxStacks {
		existing = existing[:s.maxStacks]
	}

	if err := s.persist(ctx, existing); err != nil {
		log.Printf("garden: save stack: %v", err)
		return "", ErrStackSaveFailed
	}
	return stack.ID, nil
}

// AllStacks returns the stack collection newest-first.
func (s *Stacks) AllStacks(ctx context.Context) []Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadAll(ctx)
}

// GetStack looks a stack up by id.
func (s *Stacks) GetStack(ctx context.Context, id string) (Stack, bool) {
	for _, st := range s.AllStacks(ctx) {
		if st.ID == id {
			return st, true
		}
	}
	return Stack{}, false
}

// DeleteStack removes the matching stack; true even when nothing matched.
func (s *Stacks) DeleteStack(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stacks := s.loadAll(ctx)
	filtered := stacks[:0:0]
	for _, st := range stacks {
		if st.ID != id {
			filtered = append(filtered, st)
		}
	}
	if err := s.persist(ctx, filtered); err != nil {
		log.Printf("garden: delete stack: %v", err)
		return false
	}
	return true
}

// ClearAllStacks erases the stack collection.
func (s *Stacks) ClearAllStacks(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ks.Delete(ctx, stacksKey); err != nil {
		log.Printf("garden: clear stacks: %v", err)
	}
}

// InitializePresets seeds the demo stacks that are missing, keeping any
// user stacks. Preset timestamps are spread over the past seven days so
// the timeline view has something to render. Idempotent by title.
func (s *Stacks) InitializePresets(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.loadAll(ctx)
	titles := make(map[string]struct{}, len(existing))
	for _, st := range existing {
		titles[st.Title] = struct{}{}
	}

	base := s.now().Add(-7 * 24 * time.Hour)
	added := false
	for i, preset := range PresetStacks {
		if _, ok := titles[preset.Title]; ok {
			continue
		}
		slug := strings.ToLower(strings.ReplaceAll(preset.Title, " ", "-"))
		stack := Stack{
			ID:             fmt.Sprintf("preset_%s_%d", slug, i),
			Title:          preset.Title,
			Description:    preset.Description,
			Emoji:          preset.Emoji,
			StartDate:      preset.StartDate,
			VagueTime:      preset.VagueTime,
			Categories:     preset.Categories,
			CustomEmotion:  preset.CustomEmotion,
			Tags:           preset.Tags,
			MediaFiles:     preset.MediaFiles,
			Timestamp:      base.Add(time.Duration(i) * 24 * time.Hour).UTC().Format(time.RFC3339),
		}
		if stack.Categories == nil {
			stack.Categories = []string{}
		}
		if stack.MediaFiles == nil {
			stack.MediaFiles = []MediaFile{}
		}
		existing = append(existing, stack)
		added = true
	}

	if added {
		if err := s.persist(ctx, existing); err != nil {
			log.Printf("garden: seed preset stacks: %v", err)
		}
	}
}

func (s *Stacks) loadAll(ctx context.Context) []Stack {
	data, ok, err := s.ks.Get(ctx, stacksKey)
	if err != nil {
		log.Printf("garden: load stacks: %v", err)
		return []Stack{}
	}
	if !ok {
		return []Stack{}
	}
	var stacks []Stack
	if err := json.Unmarshal(data, &stacks); err != nil {
		log.Printf("garden: decode stacks: %v", err)
		return []Stack{}
	}
	return stacks
}

func (s *Stacks) persist(ctx context.Context, stacks []Stack) error {
	if stacks == nil {
		stacks = []Stack{}
	}
	data, err := json.Marshal(stacks)
	if err != nil {
		return fmt.Errorf("encode stacks: %w", err)
	}
	if err := s.ks.Put(ctx, stacksKey, data); err != nil {
		return fmt.Errorf("write stacks: %w", err)
	}
	return nil
}
