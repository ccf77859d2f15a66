package collab

import (
	"context"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/session"
)

// StrokeHandler saves and clears the per-project drawing snapshot.
type StrokeHandler struct {
	*env
	minData int
}

func (h *StrokeHandler) Handle(ctx context.Context, s *session.Session, m canvas.Mutation) {
	// the layer is addressed by its project
	m.NodeID = m.ProjectID

	switch m.Op {
	case canvas.OpUpdate:
		h.save(ctx, s, m)
	case canvas.OpDelete:
		remove(ctx, h.env, s, m, h.caches.Strokes, func(ctx context.Context, layer canvas.StrokeLayer) error {
			return h.repos.Drawings.Delete(ctx, layer.RoomID, layer.ProjectID)
		})
	default:
		h.unsupported(m)
	}
}

// save overwrites the snapshot and acknowledges the sender only.
func (h *StrokeHandler) save(ctx context.Context, s *session.Session, m canvas.Mutation) {
	if m.Stroke.Data == nil || len(*m.Stroke.Data) < h.minData {
		h.malformed(m, "stroke data too short")
		return
	}

	key := canvas.StrokeKey(m.RoomID, m.ProjectID)
	unlock := h.locks.Lock(key)
	defer unlock()

	layer := canvas.StrokeLayer{
		Base: canvas.Base{
			NodeID:    key.NodeID,
			RoomID:    key.RoomID,
			ProjectID: key.ProjectID,
			OwnerID:   m.UserID,
		},
		Data:    *m.Stroke.Data,
		SavedAt: h.now().UTC(),
	}
	h.caches.Strokes.Upsert(layer)

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Drawings.Save(sctx, layer); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	_ = h.fabric.EmitTo(s, EventDrawingSaved, drawingSavedPayload{
		ProjectID: key.ProjectID,
		Reason:    m.Stroke.Reason,
		SavedAt:   layer.SavedAt,
	})
}
