package collab

import (
	"context"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/session"
)

// PollHandler poll mutations and ballots
type PollHandler struct {
	*env
}

func (h *PollHandler) Handle(ctx context.Context, s *session.Session, m canvas.Mutation) {
	switch m.Op {
	case canvas.OpCreate:
		h.create(ctx, m)
	case canvas.OpUpdate:
		h.update(ctx, s, m)
	case canvas.OpMove, canvas.OpResize:
		place(ctx, h.env, s, m, h.caches.Polls)
	case canvas.OpDelete:
		remove(ctx, h.env, s, m, h.caches.Polls, func(ctx context.Context, p canvas.Poll) error {
			return h.repos.Polls.Delete(ctx, p.Key())
		})
	case canvas.OpChoice:
		h.choose(ctx, s, m)
	default:
		h.unsupported(m)
	}
}

func (h *PollHandler) create(ctx context.Context, m canvas.Mutation) {
	p := canvas.Poll{
		Base:    m.NewBase(h.newID(), canvas.DefaultPollSize),
		Ballots: make(map[string]int),
	}
	p.Apply(m.Poll)
	h.caches.Polls.Upsert(p)

	key := p.Key()
	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Polls.Create(sctx, p); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	h.fabric.EmitToRoom(scopeOf(key), EventEntityAdded, entityPayload{Kind: canvas.KindPoll, Entity: p})
}

func (h *PollHandler) update(ctx context.Context, s *session.Session, m canvas.Mutation) {
	if m.Poll.Empty() {
		h.malformed(m, "update without fields")
		return
	}

	key := m.Key()
	unlock := h.locks.Lock(key)
	defer unlock()

	updated, ok := h.caches.Polls.Update(key, func(p *canvas.Poll) {
		p.Apply(m.Poll)
	})
	if !ok {
		h.notFound(m)
		return
	}

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Polls.UpdateContent(sctx, updated); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	h.fabric.EmitToRoomExceptSelf(scopeOf(key), s, EventEntityUpdated, entityPayload{Kind: canvas.KindPoll, Entity: updated})
}

// choose records the user's single ballot and recounts every slot from the store.
func (h *PollHandler) choose(ctx context.Context, s *session.Session, m canvas.Mutation) {
	if !canvas.ValidSlot(m.Slot) {
		h.malformed(m, "slot out of range")
		return
	}
	if m.UserID == "" {
		h.malformed(m, "ballot without user")
		return
	}

	key := m.Key()
	unlock := h.locks.Lock(key)
	defer unlock()

	current, ok := h.caches.Polls.Get(key)
	if !ok {
		h.notFound(m)
		return
	}
	if prev, voted := current.Ballots[m.UserID]; voted && prev == m.Slot {
		_ = h.fabric.EmitTo(s, EventNotice, noticePayload{
			Code:   NoticeAlreadyChosen,
			NodeID: key.NodeID,
			Slot:   m.Slot,
		})
		return
	}

	voted, _ := h.caches.Polls.Update(key, func(p *canvas.Poll) {
		if p.Ballots == nil {
			p.Ballots = make(map[string]int)
		}
		p.Ballots[m.UserID] = m.Slot
	})
	counts := voted.Tally()

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Polls.UpsertBallot(sctx, key, m.UserID, m.Slot); err != nil {
		h.storeFailed(err, m)
	} else if stored, err := h.repos.Polls.CountBallots(sctx, key); err != nil {
		h.storeFailed(err, m)
	} else {
		counts = stored
		if err := h.repos.Polls.SaveCounts(sctx, key, counts); err != nil {
			h.storeFailed(err, m)
		}
	}
	h.record(sctx, m, key)

	updated, _ := h.caches.Polls.Update(key, func(p *canvas.Poll) {
		p.SetCounts(counts)
	})

	h.fabric.EmitToRoom(scopeOf(key), EventPollUpdated, pollUpdatedPayload{
		NodeID:    key.NodeID,
		ProjectID: key.ProjectID,
		Counts:    counts,
		Choices:   updated.Choices,
	})
}
