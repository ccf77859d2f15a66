// Package sessiontest provides an in-memory transport that records every frame.
package sessiontest

import (
	"encoding/json"
	"errors"
	"sync"

	"realtime-canvas/internal/session"
)

// ErrFull returned once Limit frames are buffered
var ErrFull = errors.New("recorder full")

// Frame one decoded envelope
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Recorder session.Transport that keeps frames in memory.
type Recorder struct {
	// Limit caps buffered frames; zero means unbounded.
	Limit int

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (r *Recorder) TrySend(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return session.ErrClosed
	}
	if r.Limit > 0 && len(r.frames) >= r.Limit {
		return ErrFull
	}
	r.frames = append(r.frames, append([]byte(nil), data...))
	return nil
}

func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
}

// Closed reports whether Close ran.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// Raw copies of every frame
func (r *Recorder) Raw() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, len(r.frames))
	copy(out, r.frames)
	return out
}

// Frames decoded envelopes in send order. Undecodable frames are skipped.
func (r *Recorder) Frames() []Frame {
	raw := r.Raw()
	out := make([]Frame, 0, len(raw))
	for _, b := range raw {
		var f Frame
		if err := json.Unmarshal(b, &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Types event names in send order
func (r *Recorder) Types() []string {
	frames := r.Frames()
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

// Last most recent frame of type t
func (r *Recorder) Last(t string) (Frame, bool) {
	frames := r.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == t {
			return frames[i], true
		}
	}
	return Frame{}, false
}

// Count frames of type t
func (r *Recorder) Count(t string) int {
	n := 0
	for _, f := range r.Frames() {
		if f.Type == t {
			n++
		}
	}
	return n
}

// Reset drops recorded frames.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = nil
}

// NewSession session backed by a fresh recorder
func NewSession() (*session.Session, *Recorder) {
	rec := &Recorder{}
	return session.New(rec), rec
}
