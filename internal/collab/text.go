package collab

import (
	"context"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/session"
)

// TextHandler text box mutations
type TextHandler struct {
	*env
}

func (h *TextHandler) Handle(ctx context.Context, s *session.Session, m canvas.Mutation) {
	switch m.Op {
	case canvas.OpCreate:
		h.create(ctx, m)
	case canvas.OpUpdate:
		h.update(ctx, s, m)
	case canvas.OpMove, canvas.OpResize:
		place(ctx, h.env, s, m, h.caches.Texts)
	case canvas.OpDelete:
		remove(ctx, h.env, s, m, h.caches.Texts, func(ctx context.Context, t canvas.TextBox) error {
			return h.repos.Texts.Delete(ctx, t.Key())
		})
	default:
		h.unsupported(m)
	}
}

func (h *TextHandler) create(ctx context.Context, m canvas.Mutation) {
	tb := canvas.TextBox{
		Base:     m.NewBase(h.newID(), canvas.DefaultTextSize),
		Font:     canvas.DefaultFont,
		Color:    canvas.DefaultColor,
		FontSize: canvas.DefaultFontSize,
	}
	tb.Apply(m.Text)
	h.caches.Texts.Upsert(tb)

	key := tb.Key()
	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Texts.Create(sctx, tb); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	h.fabric.EmitToRoom(scopeOf(key), EventEntityAdded, entityPayload{Kind: canvas.KindText, Entity: tb})
}

func (h *TextHandler) update(ctx context.Context, s *session.Session, m canvas.Mutation) {
	if m.Text.Empty() {
		h.malformed(m, "update without fields")
		return
	}

	key := m.Key()
	unlock := h.locks.Lock(key)
	defer unlock()

	updated, ok := h.caches.Texts.Update(key, func(t *canvas.TextBox) {
		t.Apply(m.Text)
	})
	if !ok {
		h.notFound(m)
		return
	}

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Texts.UpdateContent(sctx, updated); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	h.fabric.EmitToRoomExceptSelf(scopeOf(key), s, EventEntityUpdated, entityPayload{Kind: canvas.KindText, Entity: updated})
}
