package canvas

import (
	"context"
	"fmt"
	"sync"
)

// Entity is satisfied by a pointer to an annotation value.
type Entity[T any] interface {
	*T
	Ref() *Base
	Clone() T
}

// Cache room/project scoped mirror of one annotation table.
// Values are copied in and out so callers never share state with the cache.
type Cache[T any, P Entity[T]] struct {
	mu    sync.RWMutex
	items map[Key]T
}

type (
	TextCache   = Cache[TextBox, *TextBox]
	PollCache   = Cache[Poll, *Poll]
	ImageCache  = Cache[ImageRef, *ImageRef]
	StrokeCache = Cache[StrokeLayer, *StrokeLayer]
)

// NewCache empty cache
func NewCache[T any, P Entity[T]]() *Cache[T, P] {
	return &Cache[T, P]{items: make(map[Key]T)}
}

func keyOf[T any, P Entity[T]](v *T) Key {
	return P(v).Ref().Key()
}

// List every entity in the room and project, unordered.
func (c *Cache[T, P]) List(roomID, projectID string) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0)
	for k, v := range c.items {
		if k.RoomID == roomID && k.ProjectID == projectID {
			out = append(out, P(&v).Clone())
		}
	}
	return out
}

// Get one entity by key
func (c *Cache[T, P]) Get(key Key) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	return P(&v).Clone(), true
}

// Upsert stores a copy of v under its own key.
func (c *Cache[T, P]) Upsert(v T) {
	stored := P(&v).Clone()
	key := keyOf[T, P](&stored)

	c.mu.Lock()
	c.items[key] = stored
	c.mu.Unlock()
}

// Remove deletes the entity and reports whether it existed.
func (c *Cache[T, P]) Remove(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	return true
}

// Update applies fn to the stored entity atomically and returns the result.
// The routing fields cannot be changed through fn.
func (c *Cache[T, P]) Update(key Key, fn func(P)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	v = P(&v).Clone()
	fn(P(&v))

	ref := P(&v).Ref()
	ref.NodeID, ref.RoomID, ref.ProjectID = key.NodeID, key.RoomID, key.ProjectID

	c.items[key] = v
	return P(&v).Clone(), true
}

// Replace swaps the whole content for items.
func (c *Cache[T, P]) Replace(items []T) {
	next := make(map[Key]T, len(items))
	for i := range items {
		v := P(&items[i]).Clone()
		next[keyOf[T, P](&v)] = v
	}

	c.mu.Lock()
	c.items = next
	c.mu.Unlock()
}

// Len number of cached entities
func (c *Cache[T, P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Source loads every persisted entity for a rebuild.
type Source interface {
	LoadTexts(ctx context.Context) ([]TextBox, error)
	LoadPolls(ctx context.Context) ([]Poll, error)
	LoadImages(ctx context.Context) ([]ImageRef, error)
	LoadStrokes(ctx context.Context) ([]StrokeLayer, error)
}

// Caches one cache per annotation kind
type Caches struct {
	Texts   *TextCache
	Polls   *PollCache
	Images  *ImageCache
	Strokes *StrokeCache
}

// NewCaches empty caches
func NewCaches() *Caches {
	return &Caches{
		Texts:   NewCache[TextBox](),
		Polls:   NewCache[Poll](),
		Images:  NewCache[ImageRef](),
		Strokes: NewCache[StrokeLayer](),
	}
}

// RebuildStats entity counts after a rebuild
type RebuildStats struct {
	Texts   int `json:"texts"`
	Polls   int `json:"polls"`
	Images  int `json:"images"`
	Strokes int `json:"strokes"`
}

// Rebuild reloads every cache from src. Nothing is replaced unless all loads succeed.
func (c *Caches) Rebuild(ctx context.Context, src Source) (RebuildStats, error) {
	texts, err := src.LoadTexts(ctx)
	if err != nil {
		return RebuildStats{}, fmt.Errorf("load texts: %w", err)
	}
	polls, err := src.LoadPolls(ctx)
	if err != nil {
		return RebuildStats{}, fmt.Errorf("load polls: %w", err)
	}
	images, err := src.LoadImages(ctx)
	if err != nil {
		return RebuildStats{}, fmt.Errorf("load images: %w", err)
	}
	strokes, err := src.LoadStrokes(ctx)
	if err != nil {
		return RebuildStats{}, fmt.Errorf("load strokes: %w", err)
	}

	c.Texts.Replace(texts)
	c.Polls.Replace(polls)
	c.Images.Replace(images)
	c.Strokes.Replace(strokes)

	return RebuildStats{
		Texts:   c.Texts.Len(),
		Polls:   c.Polls.Len(),
		Images:  c.Images.Len(),
		Strokes: c.Strokes.Len(),
	}, nil
}

// Snapshot everything visible to one room and project
type Snapshot struct {
	RoomID    string       `json:"roomId"`
	ProjectID string       `json:"projectId"`
	Texts     []TextBox    `json:"texts"`
	Polls     []Poll       `json:"polls"`
	Images    []ImageRef   `json:"images"`
	Stroke    *StrokeLayer `json:"stroke,omitempty"`
}

// Snapshot filtered view for one room and project
func (c *Caches) Snapshot(roomID, projectID string) Snapshot {
	snap := Snapshot{
		RoomID:    roomID,
		ProjectID: projectID,
		Texts:     c.Texts.List(roomID, projectID),
		Polls:     c.Polls.List(roomID, projectID),
		Images:    c.Images.List(roomID, projectID),
	}
	if layer, ok := c.Strokes.Get(StrokeKey(roomID, projectID)); ok {
		snap.Stroke = &layer
	}
	return snap
}
