package garden

import (
	"context"
	"encoding/json"
	"fmt"
)

// StoredImage is one named base64 payload in a memory's image set.
type StoredImage struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// SaveCoverImage caches the single visualization image for a memory.
func (r *Repository) SaveCoverImage(ctx context.Context, memoryID, base64Data string) error {
	if err := r.ks.Put(ctx, coverImagePrefix+memoryID, []byte(base64Data)); err != nil {
		return fmt.Errorf("save cover image: %w", err)
	}
	return nil
}

// CoverImage loads the cached visualization image, if any.
func (r *Repository) CoverImage(ctx context.Context, memoryID string) (string, bool) {
	data, ok, err := r.ks.Get(ctx, coverImagePrefix+memoryID)
	if err != nil || !ok {
		return "", false
	}
	return string(data), true
}

// SaveImageSet caches the uploaded image set attached to a memory.
func (r *Repository) SaveImageSet(ctx context.Context, memoryID string, images []StoredImage) error {
	data, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("encode image set: %w", err)
	}
	if err := r.ks.Put(ctx, memoryImagePrefix+memoryID, data); err != nil {
		return fmt.Errorf("save image set: %w", err)
	}
	return nil
}

// ImageSet loads the cached image set for a memory.
func (r *Repository) ImageSet(ctx context.Context, memoryID string) ([]StoredImage, bool) {
	data, ok, err := r.ks.Get(ctx, memoryImagePrefix+memoryID)
	if err != nil || !ok {
		return nil, false
	}
	var images []StoredImage
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, false
	}
	return images, true
}

// HasCachedMedia reports whether any media blob remains cached for the id.
// Used by tests and the supersede property checks.
func (r *Repository) HasCachedMedia(ctx context.Context, memoryID string) bool {
	if _, ok := r.CoverImage(ctx, memoryID); ok {
		return true
	}
	_, ok := r.ImageSet(ctx, memoryID)
	return ok
}
