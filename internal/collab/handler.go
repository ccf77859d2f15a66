package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/repository"
	"realtime-canvas/internal/session"
)

// ErrMalformed request is missing routing fields or carries unknown tags
var ErrMalformed = errors.New("malformed request")

// mutationHandler one per annotation kind
type mutationHandler interface {
	Handle(ctx context.Context, s *session.Session, m canvas.Mutation)
}

// env state shared by every mutation handler
type env struct {
	caches  *canvas.Caches
	repos   *repository.Set
	fabric  *hub.Fabric
	locks   *canvas.KeyedMutex
	timeout time.Duration
	newID   func() string
	now     func() time.Time
}

// storeCtx store calls outlive the connection but not the timeout.
func (e *env) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
}

func mutationLog(ev *zerolog.Event, m canvas.Mutation) *zerolog.Event {
	return ev.Str("module", "collab").
		Str("kind", string(m.Kind)).
		Str("op", string(m.Op)).
		Str("room", m.RoomID).
		Str("project", m.ProjectID).
		Str("node", m.NodeID).
		Str("user", m.UserID)
}

func (e *env) storeFailed(err error, m canvas.Mutation) {
	mutationLog(log.Error().Err(err), m).Msg("store write failed, keeping cache change")
}

func (e *env) malformed(m canvas.Mutation, reason string) {
	mutationLog(log.Warn(), m).Str("reason", reason).Msg("dropped malformed mutation")
}

func (e *env) notFound(m canvas.Mutation) {
	mutationLog(log.Debug(), m).Msg("target not cached, ignoring")
}

func (e *env) unsupported(m canvas.Mutation) {
	mutationLog(log.Debug(), m).Msg("unsupported operation, ignoring")
}

// record appends the activity row. Failures are only logged.
func (e *env) record(ctx context.Context, m canvas.Mutation, key canvas.Key) {
	action := fmt.Sprintf("%s-%s", m.Kind, m.Op)
	if err := e.repos.Activity.Record(ctx, key, m.UserID, action); err != nil {
		mutationLog(log.Warn().Err(err), m).Msg("activity log failed")
	}
}

func scopeOf(key canvas.Key) hub.Scope {
	return hub.ProjectScope(key.RoomID, key.ProjectID)
}

// place handles move and resize for any kind. move requires a position, resize a size;
// the other field is applied when present.
func place[T any, P canvas.Entity[T]](ctx context.Context, e *env, s *session.Session, m canvas.Mutation, cache *canvas.Cache[T, P]) {
	event := EventEntityMoved
	switch m.Op {
	case canvas.OpMove:
		if m.Position == nil {
			e.malformed(m, "move without position")
			return
		}
	case canvas.OpResize:
		if m.Size == nil {
			e.malformed(m, "resize without size")
			return
		}
		event = EventEntityResized
	}

	key := m.Key()
	unlock := e.locks.Lock(key)
	defer unlock()

	updated, ok := cache.Update(key, func(p P) {
		p.Ref().Place(m.Position, m.Size)
	})
	if !ok {
		e.notFound(m)
		return
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.repos.Placements.Save(sctx, *P(&updated).Ref()); err != nil {
		e.storeFailed(err, m)
	}
	e.record(sctx, m, key)

	e.fabric.EmitToRoomExceptSelf(scopeOf(key), s, event, entityPayload{Kind: m.Kind, Entity: updated})
}

// remove handles delete for any kind. A missing entity produces no broadcast.
func remove[T any, P canvas.Entity[T]](ctx context.Context, e *env, s *session.Session, m canvas.Mutation, cache *canvas.Cache[T, P], del func(context.Context, T) error) {
	key := m.Key()
	unlock := e.locks.Lock(key)
	defer unlock()

	current, ok := cache.Get(key)
	if !ok {
		e.notFound(m)
		return
	}
	cache.Remove(key)

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := del(sctx, current); err != nil {
		e.storeFailed(err, m)
	}
	e.record(sctx, m, key)

	e.fabric.EmitToRoomExceptSelf(scopeOf(key), s, EventEntityRemoved, removedPayload{
		Kind:      m.Kind,
		NodeID:    key.NodeID,
		ProjectID: key.ProjectID,
	})
}

// decodeMutation builds the command from an entity-mutate payload and the session's routing fields.
func decodeMutation(raw json.RawMessage, s *session.Session) (canvas.Mutation, error) {
	var req mutateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return canvas.Mutation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind, ok := canvas.ParseKind(req.Kind)
	if !ok {
		return canvas.Mutation{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, req.Kind)
	}
	op, ok := canvas.ParseOp(req.Fnc)
	if !ok {
		return canvas.Mutation{}, fmt.Errorf("%w: unknown fnc %q", ErrMalformed, req.Fnc)
	}

	userID, roomID, projectID := s.Identity()
	m := canvas.Mutation{
		Kind:      kind,
		Op:        op,
		RoomID:    roomID,
		ProjectID: projectID,
		UserID:    userID,
		NodeID:    req.NodeID,
		Position:  req.Position,
		Size:      req.Size,
		Text: canvas.TextFields{
			Font:     req.Font,
			Color:    req.Color,
			FontSize: req.FontSize,
			Content:  req.Content,
		},
		Poll: canvas.PollFields{
			Title:   req.Title,
			Choices: req.Choices,
		},
		Image: canvas.ImageFields{
			FileName: req.FileName,
		},
		Stroke: canvas.StrokeFields{
			Data:   req.Data,
			Reason: req.Reason,
		},
		Slot: req.Slot,
	}

	if !m.Scoped() {
		return m, fmt.Errorf("%w: missing room or project", ErrMalformed)
	}
	// strokes are addressed by project; creates get a server id
	if kind != canvas.KindStroke && op != canvas.OpCreate && m.NodeID == "" {
		return m, fmt.Errorf("%w: missing nodeId", ErrMalformed)
	}
	return m, nil
}
