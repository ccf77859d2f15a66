package canvas

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestTextApplyPartial verifies that only present fields are merged and "" clears.
func TestTextApplyPartial(t *testing.T) {
	tb := textAt("n1", "R1", "P1")
	tb.Content = "before"

	empty := ""
	tb.Apply(TextFields{Content: &empty})
	assert.Equal(t, "", tb.Content)
	assert.Equal(t, DefaultFont, tb.Font)

	color := "#ff0000"
	tb.Apply(TextFields{Color: &color})
	assert.Equal(t, "#ff0000", tb.Color)
	assert.Equal(t, "", tb.Content)
}

// TestPollTally verifies counts derived from ballots.
func TestPollTally(t *testing.T) {
	p := Poll{Ballots: map[string]int{"a": 2, "b": 2, "c": 4, "bad": 9}}
	assert.Equal(t, [MaxChoices]int{0, 2, 0, 1}, p.Tally())

	p.SetCounts(p.Tally())
	assert.Equal(t, [MaxChoices]int{0, 2, 0, 1}, p.Counts())
}

// TestPollSetLabels verifies that extra labels are dropped and missing ones cleared.
func TestPollSetLabels(t *testing.T) {
	p := Poll{}
	p.SetLabels([]string{"a", "b", "c", "d", "e"})
	assert.Equal(t, "d", p.Choices[3].Label)

	p.Choices[0].Count = 3
	labels := []string{"x"}
	p.Apply(PollFields{Choices: &labels})
	assert.Equal(t, "x", p.Choices[0].Label)
	assert.Equal(t, "", p.Choices[1].Label)
	assert.Equal(t, 3, p.Choices[0].Count)
}

// TestParseTags verifies wire tags for kinds and operations.
func TestParseTags(t *testing.T) {
	for _, s := range []string{"new", "update", "move", "resize", "delete", "choice"} {
		_, ok := ParseOp(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseOp("create")
	assert.False(t, ok)

	k, ok := ParseKind("stroke")
	assert.True(t, ok)
	assert.Equal(t, KindStroke, k)
	_, ok = ParseKind("calendar")
	assert.False(t, ok)
}

// TestMutationNewBase verifies defaults and explicit placement on create.
func TestMutationNewBase(t *testing.T) {
	m := Mutation{RoomID: "R1", ProjectID: "P1", UserID: "u1"}
	b := m.NewBase("n1", DefaultPollSize)
	assert.Equal(t, Point{}, b.Position)
	assert.Equal(t, DefaultPollSize, b.Size)
	assert.Equal(t, "u1", b.OwnerID)

	m.Position = &Point{X: 10, Y: 20}
	b = m.NewBase("n2", DefaultPollSize)
	assert.Equal(t, Point{X: 10, Y: 20}, b.Position)
	assert.Equal(t, DefaultPollSize, b.Size)
}

// TestKeyedMutex verifies mutual exclusion per key and cleanup once released.
func TestKeyedMutex(t *testing.T) {
	m := NewKeyedMutex()
	key := Key{NodeID: "n1", RoomID: "R1", ProjectID: "P1"}

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(key)
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, m.Held())

	t.Run("different keys do not block", func(t *testing.T) {
		unlockA := m.Lock(key)
		done := make(chan struct{})
		go func() {
			unlockB := m.Lock(Key{NodeID: "n2", RoomID: "R1", ProjectID: "P1"})
			unlockB()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on another key blocked")
		}
		unlockA()
	})
}
