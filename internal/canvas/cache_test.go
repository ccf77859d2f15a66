package canvas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textAt(node, room, project string) TextBox {
	return TextBox{
		Base:     Base{NodeID: node, RoomID: room, ProjectID: project, Size: DefaultTextSize},
		Font:     DefaultFont,
		Color:    DefaultColor,
		FontSize: DefaultFontSize,
	}
}

// TestCacheListIsScoped verifies that list only returns entities of the requested room and project.
func TestCacheListIsScoped(t *testing.T) {
	c := NewCache[TextBox]()
	c.Upsert(textAt("n1", "R1", "P1"))
	c.Upsert(textAt("n2", "R1", "P2"))
	c.Upsert(textAt("n3", "R2", "P1"))

	t.Run("matching scope", func(t *testing.T) {
		got := c.List("R1", "P1")
		require.Len(t, got, 1)
		assert.Equal(t, "n1", got[0].NodeID)
	})

	t.Run("other room", func(t *testing.T) {
		assert.Empty(t, c.List("R3", "P1"))
	})

	t.Run("same node id in two projects stays distinct", func(t *testing.T) {
		c.Upsert(textAt("n1", "R1", "P2"))
		assert.Len(t, c.List("R1", "P2"), 2)
		assert.Len(t, c.List("R1", "P1"), 1)
	})
}

// TestCacheCopiesValues verifies that callers never alias cached state.
func TestCacheCopiesValues(t *testing.T) {
	c := NewCache[Poll]()
	p := Poll{Base: Base{NodeID: "v1", RoomID: "R1", ProjectID: "P1"}, Ballots: map[string]int{"a": 1}}
	c.Upsert(p)

	p.Ballots["b"] = 2

	got, ok := c.Get(p.Key())
	require.True(t, ok)
	assert.Len(t, got.Ballots, 1)

	got.Ballots["c"] = 3
	again, _ := c.Get(p.Key())
	assert.Len(t, again.Ballots, 1)
}

// TestCacheUpdate verifies in-place merges and that routing fields survive fn.
func TestCacheUpdate(t *testing.T) {
	c := NewCache[TextBox]()
	c.Upsert(textAt("n1", "R1", "P1"))
	key := Key{NodeID: "n1", RoomID: "R1", ProjectID: "P1"}

	content := "x"
	got, ok := c.Update(key, func(tb *TextBox) {
		tb.Apply(TextFields{Content: &content})
		tb.RoomID = "elsewhere"
	})
	require.True(t, ok)
	assert.Equal(t, "x", got.Content)
	assert.Equal(t, DefaultFont, got.Font)
	assert.Equal(t, DefaultColor, got.Color)
	assert.Equal(t, DefaultTextSize, got.Size)
	assert.Equal(t, "R1", got.RoomID)

	_, ok = c.Update(Key{NodeID: "missing", RoomID: "R1", ProjectID: "P1"}, func(*TextBox) {})
	assert.False(t, ok)
}

// TestCacheRemoveIsIdempotent verifies that a second remove reports nothing removed.
func TestCacheRemoveIsIdempotent(t *testing.T) {
	c := NewCache[ImageRef]()
	img := ImageRef{Base: Base{NodeID: "i1", RoomID: "R1", ProjectID: "P1"}}
	c.Upsert(img)

	assert.True(t, c.Remove(img.Key()))
	assert.False(t, c.Remove(img.Key()))
	assert.Equal(t, 0, c.Len())
}

// TestCacheConcurrentUpdates verifies that concurrent read-modify-write cycles are not lost.
func TestCacheConcurrentUpdates(t *testing.T) {
	c := NewCache[TextBox]()
	c.Upsert(textAt("n1", "R1", "P1"))
	key := Key{NodeID: "n1", RoomID: "R1", ProjectID: "P1"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(key, func(tb *TextBox) { tb.FontSize++ })
		}()
	}
	wg.Wait()

	got, _ := c.Get(key)
	assert.Equal(t, float64(DefaultFontSize+50), got.FontSize)
}

type fakeSource struct {
	texts   []TextBox
	polls   []Poll
	images  []ImageRef
	strokes []StrokeLayer
	err     error
}

func (f *fakeSource) LoadTexts(context.Context) ([]TextBox, error) { return f.texts, nil }
func (f *fakeSource) LoadPolls(context.Context) ([]Poll, error)    { return f.polls, nil }
func (f *fakeSource) LoadImages(context.Context) ([]ImageRef, error) {
	return f.images, f.err
}
func (f *fakeSource) LoadStrokes(context.Context) ([]StrokeLayer, error) { return f.strokes, nil }

// TestCachesRebuild verifies full reload and that a failed load leaves caches untouched.
func TestCachesRebuild(t *testing.T) {
	caches := NewCaches()
	caches.Texts.Upsert(textAt("stale", "R1", "P1"))

	src := &fakeSource{
		texts:   []TextBox{textAt("n1", "R1", "P1"), textAt("n2", "R1", "P1")},
		polls:   []Poll{{Base: Base{NodeID: "v1", RoomID: "R1", ProjectID: "P1"}}},
		strokes: []StrokeLayer{{Base: Base{NodeID: "P1", RoomID: "R1", ProjectID: "P1"}, Data: "blob", SavedAt: time.Now()}},
	}

	t.Run("success replaces everything", func(t *testing.T) {
		stats, err := caches.Rebuild(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, RebuildStats{Texts: 2, Polls: 1, Images: 0, Strokes: 1}, stats)

		_, ok := caches.Texts.Get(Key{NodeID: "stale", RoomID: "R1", ProjectID: "P1"})
		assert.False(t, ok)
	})

	t.Run("failure keeps previous view", func(t *testing.T) {
		broken := &fakeSource{err: errors.New("boom")}
		_, err := caches.Rebuild(context.Background(), broken)
		require.Error(t, err)
		assert.Equal(t, 2, caches.Texts.Len())
	})

	t.Run("snapshot includes the stroke layer", func(t *testing.T) {
		snap := caches.Snapshot("R1", "P1")
		assert.Len(t, snap.Texts, 2)
		assert.Len(t, snap.Polls, 1)
		assert.Empty(t, snap.Images)
		require.NotNil(t, snap.Stroke)
		assert.Equal(t, "blob", snap.Stroke.Data)

		other := caches.Snapshot("R1", "P9")
		assert.Nil(t, other.Stroke)
		assert.Empty(t, other.Texts)
	})
}
