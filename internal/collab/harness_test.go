package collab

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/repository"
	"realtime-canvas/internal/session"
	"realtime-canvas/internal/session/sessiontest"
	"realtime-canvas/internal/store"
	"realtime-canvas/internal/store/storetest"
)

type harness struct {
	t      *testing.T
	repos  *repository.Set
	caches *canvas.Caches
	coord  *Coordinator
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	return newHarnessWith(t, storetest.NewGateway(t), opts)
}

func newHarnessWith(t *testing.T, gw store.Gateway, opts Options) *harness {
	t.Helper()
	repos := repository.NewSet(gw)
	caches := canvas.NewCaches()
	fabric := hub.NewFabric(hub.NewRegistry())
	return &harness{
		t:      t,
		repos:  repos,
		caches: caches,
		coord:  NewCoordinator(caches, repos, fabric, opts),
	}
}

func (h *harness) addMember(roomID, userID string) {
	h.t.Helper()
	require.NoError(h.t, h.repos.Members.AddMember(context.Background(), roomID, userID))
}

// join connects userID through join-room and join-project and clears the replies.
func (h *harness) join(roomID, projectID, userID string) (*session.Session, *sessiontest.Recorder) {
	h.t.Helper()
	h.addMember(roomID, userID)

	rec := &sessiontest.Recorder{}
	s := h.coord.Connect(rec)
	h.send(s, EventJoinRoom, joinRoomRequest{RoomID: roomID, UserID: userID})
	require.Equal(h.t, session.StateRoomJoined, s.State())
	if projectID != "" {
		h.send(s, EventJoinProject, joinProjectRequest{ProjectID: projectID})
		require.Equal(h.t, session.StateProjectJoined, s.State())
	}
	rec.Reset()
	return s, rec
}

// attach places a session in a room and project without the membership check.
func (h *harness) attach(roomID, projectID, userID string) (*session.Session, *sessiontest.Recorder) {
	h.t.Helper()
	rec := &sessiontest.Recorder{}
	s := h.coord.Connect(rec)
	require.NoError(h.t, s.JoinRoom(roomID, userID))
	h.coord.Registry().Add(roomID, s)
	require.NoError(h.t, s.JoinProject(projectID))
	return s, rec
}

func (h *harness) send(s *session.Session, event string, payload any) {
	h.t.Helper()
	data, err := hub.Encode(event, payload)
	require.NoError(h.t, err)
	h.coord.Handle(context.Background(), s, data)
}

func (h *harness) mutate(s *session.Session, req map[string]any) {
	h.t.Helper()
	h.send(s, EventEntityMutate, req)
}

type entityFrame struct {
	Kind   canvas.Kind     `json:"kind"`
	Entity json.RawMessage `json:"entity"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func lastEntity[T any](t *testing.T, rec *sessiontest.Recorder, event string) (canvas.Kind, T) {
	t.Helper()
	f, ok := rec.Last(event)
	require.True(t, ok, "no %s frame", event)
	ef := decode[entityFrame](t, f.Payload)
	return ef.Kind, decode[T](t, ef.Entity)
}

type fakePresence struct {
	joins  []string
	leaves []string
}

func (p *fakePresence) Join(_ context.Context, roomID, userID string) error {
	p.joins = append(p.joins, roomID+"/"+userID)
	return nil
}

func (p *fakePresence) Leave(_ context.Context, roomID, userID string) error {
	p.leaves = append(p.leaves, roomID+"/"+userID)
	return nil
}

type fakeSummarizer struct {
	reply  string
	err    error
	digest string
}

func (f *fakeSummarizer) Summarize(_ context.Context, digest string) (string, error) {
	f.digest = digest
	return f.reply, f.err
}

type fakeObjects struct {
	deleted []string
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}
