package collab

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/session"
)

// ObjectStore external home of stored-path image bytes
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
}

// ImageHandler image mutations. Images are created by Register, never over the socket.
type ImageHandler struct {
	*env
	objects ObjectStore
}

func (h *ImageHandler) Handle(ctx context.Context, s *session.Session, m canvas.Mutation) {
	switch m.Op {
	case canvas.OpUpdate:
		h.rename(ctx, s, m)
	case canvas.OpMove, canvas.OpResize:
		place(ctx, h.env, s, m, h.caches.Images)
	case canvas.OpDelete:
		remove(ctx, h.env, s, m, h.caches.Images, h.delete)
	default:
		h.unsupported(m)
	}
}

// Register adds an uploaded image to the cache and store and announces it to the project.
// data is only kept for inline images.
func (h *ImageHandler) Register(ctx context.Context, img canvas.ImageRef, data []byte) (canvas.ImageRef, error) {
	if img.RoomID == "" || img.ProjectID == "" {
		return img, fmt.Errorf("%w: missing room or project", ErrMalformed)
	}

	img.NodeID = h.newID()
	if img.Size == (canvas.Size{}) {
		img.Size = canvas.DefaultImageSize
	}
	if img.Storage == "" {
		img.Storage = canvas.ImageInline
	}
	h.caches.Images.Upsert(img)

	m := canvas.Mutation{
		Kind:      canvas.KindImage,
		Op:        canvas.OpCreate,
		RoomID:    img.RoomID,
		ProjectID: img.ProjectID,
		UserID:    img.OwnerID,
		NodeID:    img.NodeID,
	}
	key := img.Key()
	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Images.Create(sctx, img, data); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	h.fabric.EmitToRoom(scopeOf(key), EventEntityAdded, entityPayload{Kind: canvas.KindImage, Entity: img})
	return img, nil
}

func (h *ImageHandler) rename(ctx context.Context, s *session.Session, m canvas.Mutation) {
	if m.Image.Empty() {
		h.malformed(m, "update without fileName")
		return
	}

	key := m.Key()
	unlock := h.locks.Lock(key)
	defer unlock()

	updated, ok := h.caches.Images.Update(key, func(img *canvas.ImageRef) {
		img.Apply(m.Image)
	})
	if !ok {
		h.notFound(m)
		return
	}

	sctx, cancel := h.storeCtx(ctx)
	defer cancel()
	if err := h.repos.Images.UpdateFileName(sctx, updated); err != nil {
		h.storeFailed(err, m)
	}
	h.record(sctx, m, key)

	h.fabric.EmitToRoomExceptSelf(scopeOf(key), s, EventEntityUpdated, entityPayload{Kind: canvas.KindImage, Entity: updated})
}

func (h *ImageHandler) delete(ctx context.Context, img canvas.ImageRef) error {
	if err := h.repos.Images.Delete(ctx, img.Key()); err != nil {
		return err
	}
	if img.Storage == canvas.ImageStored && img.FilePath != "" && h.objects != nil {
		// orphaned objects are harmless; the rows are already gone
		if err := h.objects.Delete(ctx, img.FilePath); err != nil {
			log.Warn().Err(err).Str("module", "collab").Str("key", img.FilePath).Msg("object delete failed")
		}
	}
	return nil
}
