// Package collab is the room-scoped synchronization core: it applies
// canvas mutations to the caches, persists them and fans them out.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/repository"
	"realtime-canvas/internal/session"
)

// ErrNotMember the user does not belong to the room
var ErrNotMember = errors.New("not a member of this room")

const defaultStoreTimeout = 10 * time.Second

// Presence optional mirror of room membership, e.g. Redis
type Presence interface {
	Join(ctx context.Context, roomID, userID string) error
	Leave(ctx context.Context, roomID, userID string) error
}

// Options collaborators and limits. Zero values fall back to defaults.
type Options struct {
	StoreTimeout   time.Duration
	MinStrokeData  int
	Summarizer     Summarizer
	SummaryTimeout time.Duration
	Presence       Presence
	Objects        ObjectStore
}

// Coordinator owns the per-connection lifecycle and routes inbound events.
type Coordinator struct {
	caches   *canvas.Caches
	repos    *repository.Set
	fabric   *hub.Fabric
	registry *hub.Registry

	handlers  map[canvas.Kind]mutationHandler
	images    *ImageHandler
	relay     *Relay
	summaries *Summaries
	presence  Presence
	timeout   time.Duration
}

// NewCoordinator wires every handler to the shared caches, store and fabric.
func NewCoordinator(caches *canvas.Caches, repos *repository.Set, fabric *hub.Fabric, opts Options) *Coordinator {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.MinStrokeData <= 0 {
		opts.MinStrokeData = 100
	}

	e := &env{
		caches:  caches,
		repos:   repos,
		fabric:  fabric,
		locks:   canvas.NewKeyedMutex(),
		timeout: opts.StoreTimeout,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	images := &ImageHandler{env: e, objects: opts.Objects}

	return &Coordinator{
		caches:   caches,
		repos:    repos,
		fabric:   fabric,
		registry: fabric.Registry(),
		handlers: map[canvas.Kind]mutationHandler{
			canvas.KindText:   &TextHandler{env: e},
			canvas.KindPoll:   &PollHandler{env: e},
			canvas.KindImage:  images,
			canvas.KindStroke: &StrokeHandler{env: e, minData: opts.MinStrokeData},
		},
		images:    images,
		relay:     NewRelay(fabric),
		summaries: NewSummaries(caches, opts.Summarizer, opts.SummaryTimeout),
		presence:  opts.Presence,
		timeout:   opts.StoreTimeout,
	}
}

// Images upload boundary
func (c *Coordinator) Images() *ImageHandler {
	return c.images
}

// Registry live room registry
func (c *Coordinator) Registry() *hub.Registry {
	return c.registry
}

// Rebuild reloads every cache from the store.
func (c *Coordinator) Rebuild(ctx context.Context) (canvas.RebuildStats, error) {
	stats, err := c.caches.Rebuild(ctx, c.repos)
	if err != nil {
		return stats, err
	}
	log.Info().
		Str("module", "collab").
		Int("texts", stats.Texts).
		Int("polls", stats.Polls).
		Int("images", stats.Images).
		Int("strokes", stats.Strokes).
		Msg("caches rebuilt")
	return stats, nil
}

// Connect creates the session of a new connection.
func (c *Coordinator) Connect(t session.Transport) *session.Session {
	s := session.New(t)
	log.Info().Str("module", "collab").Str("session", s.ID).Msg("connected")
	return s
}

// Disconnect tears the session down and tells the room.
func (c *Coordinator) Disconnect(s *session.Session) {
	c.leave(s)
	s.Close()
	log.Info().
		Str("module", "collab").
		Str("session", s.ID).
		Str("user", s.UserID()).
		Dur("duration", s.Duration()).
		Msg("disconnected")
}

// Handle processes one inbound frame to completion.
func (c *Coordinator) Handle(ctx context.Context, s *session.Session, data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Warn().Err(err).Str("module", "collab").Str("session", s.ID).Msg("bad json")
		return
	}

	switch req.Type {
	case EventJoinRoom:
		c.joinRoom(ctx, s, req.Payload)
	case EventJoinProject:
		c.joinProject(s, req.Payload)
	case EventLeaveRoom:
		c.leave(s)
	case EventEntityMutate:
		c.mutate(ctx, s, req.Payload)
	case EventSignalOffer, EventSignalAnswer, EventSignalCandidate:
		c.relay.Forward(s, req.Type, req.Payload)
	case EventCursorMove:
		c.cursor(s, req.Payload)
	case EventStrokeStart, EventStrokeMove, EventStrokeEnd:
		c.liveStroke(s, req.Type, req.Payload)
	case EventSummarize:
		c.summarize(ctx, s)
	case EventPing:
		_ = c.fabric.EmitTo(s, EventPong, nil)
	default:
		log.Warn().Str("module", "collab").Str("session", s.ID).Str("type", req.Type).Msg("unknown event")
	}
}

func (c *Coordinator) joinRoom(ctx context.Context, s *session.Session, raw json.RawMessage) {
	var req joinRoomRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.RoomID == "" || req.UserID == "" {
		log.Warn().Str("module", "collab").Str("session", s.ID).Msg("join-room without roomId or userId")
		return
	}

	if err := c.checkMember(ctx, s, req.RoomID, req.UserID); err != nil {
		code := ErrorUnavailable
		if errors.Is(err, ErrNotMember) {
			code = ErrorNotAMember
		}
		log.Info().Err(err).Str("module", "collab").Str("room", req.RoomID).Str("user", req.UserID).Msg("join rejected")
		_ = c.fabric.EmitTo(s, EventError, errorPayload{Code: code, Message: err.Error()})
		return
	}

	// switching rooms leaves the old one first
	c.leave(s)

	if err := s.JoinRoom(req.RoomID, req.UserID); err != nil {
		return
	}
	// users already present; another connection of the joiner counts
	present := c.registry.Users(req.RoomID)
	c.registry.Add(req.RoomID, s)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	projects, err := c.repos.Members.Projects(sctx, req.RoomID)
	if err != nil {
		log.Error().Err(err).Str("module", "collab").Str("room", req.RoomID).Msg("list projects failed")
		projects = []repository.ProjectInfo{}
	}

	_ = c.fabric.EmitTo(s, EventRoomJoined, roomJoinedPayload{
		RoomID:   req.RoomID,
		UserID:   req.UserID,
		Users:    present,
		Projects: projects,
	})
	c.fabric.EmitToRoomExceptSelf(hub.RoomScope(req.RoomID), s, EventUserJoined, userPayload{UserID: req.UserID})

	if c.presence != nil {
		if err := c.presence.Join(sctx, req.RoomID, req.UserID); err != nil {
			log.Warn().Err(err).Str("module", "collab").Str("room", req.RoomID).Msg("presence join failed")
		}
	}

	log.Info().Str("module", "collab").Str("session", s.ID).Str("room", req.RoomID).Str("user", req.UserID).Msg("joined room")
}

// checkMember enforces the token identity and the stored membership.
func (c *Coordinator) checkMember(ctx context.Context, s *session.Session, roomID, userID string) error {
	if auth := s.AuthUserID(); auth != "" && auth != userID {
		return ErrNotMember
	}

	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ok, err := c.repos.Members.IsMember(sctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

func (c *Coordinator) joinProject(s *session.Session, raw json.RawMessage) {
	var req joinProjectRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.ProjectID == "" {
		log.Warn().Str("module", "collab").Str("session", s.ID).Msg("join-project without projectId")
		return
	}

	if err := s.JoinProject(req.ProjectID); err != nil {
		if errors.Is(err, session.ErrNoRoom) {
			_ = c.fabric.EmitTo(s, EventError, errorPayload{Code: ErrorNoRoom, Message: err.Error()})
		}
		return
	}

	roomID := s.RoomID()
	_ = c.fabric.EmitTo(s, EventSnapshot, c.caches.Snapshot(roomID, req.ProjectID))
	log.Debug().Str("module", "collab").Str("session", s.ID).Str("room", roomID).Str("project", req.ProjectID).Msg("joined project")
}

// leave removes s from its room, if any, and announces the departure once the user has no other connection there.
func (c *Coordinator) leave(s *session.Session) {
	roomID, ok := s.LeaveRoom()
	if !ok {
		return
	}
	userID := s.UserID()

	gone := c.registry.Remove(roomID, s)
	if !gone && c.registry.HasUser(roomID, userID) {
		return
	}
	c.fabric.EmitToRoom(hub.RoomScope(roomID), EventUserLeft, userPayload{UserID: userID})

	if c.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.presence.Leave(ctx, roomID, userID); err != nil {
			log.Warn().Err(err).Str("module", "collab").Str("room", roomID).Msg("presence leave failed")
		}
	}
}

func (c *Coordinator) mutate(ctx context.Context, s *session.Session, raw json.RawMessage) {
	m, err := decodeMutation(raw, s)
	if err != nil {
		log.Warn().Err(err).Str("module", "collab").Str("session", s.ID).Msg("dropped mutation")
		return
	}
	c.handlers[m.Kind].Handle(ctx, s, m)
}

func (c *Coordinator) cursor(s *session.Session, raw json.RawMessage) {
	userID, roomID, _ := s.Identity()
	if roomID == "" {
		return
	}
	var req cursorRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	c.fabric.EmitToRoomExceptSelf(hub.RoomScope(roomID), s, EventCursorMoved, cursorPayload{UserID: userID, X: req.X, Y: req.Y})
}

// liveStroke relays transient stroke events with the sender's id added. Nothing is stored.
func (c *Coordinator) liveStroke(s *session.Session, event string, raw json.RawMessage) {
	userID, roomID, projectID := s.Identity()
	if roomID == "" || projectID == "" {
		return
	}
	var fields map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			log.Debug().Err(err).Str("module", "collab").Str("event", event).Msg("bad stroke payload")
			return
		}
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["userId"] = userID
	c.fabric.EmitToRoomExceptSelf(hub.ProjectScope(roomID, projectID), s, remotePrefix+event, fields)
}

func (c *Coordinator) summarize(ctx context.Context, s *session.Session) {
	_, roomID, projectID := s.Identity()
	if roomID == "" || projectID == "" {
		return
	}
	text := c.summaries.Summarize(ctx, roomID, projectID)
	_ = c.fabric.EmitTo(s, EventSummary, summaryPayload{Text: strings.TrimSpace(text)})
}
