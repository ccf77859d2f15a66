package hub_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/session"
	"realtime-canvas/internal/session/sessiontest"
)

func joined(t *testing.T, reg *hub.Registry, roomID, projectID, userID string) (*session.Session, *sessiontest.Recorder) {
	t.Helper()
	s, rec := sessiontest.NewSession()
	require.NoError(t, s.JoinRoom(roomID, userID))
	if projectID != "" {
		require.NoError(t, s.JoinProject(projectID))
	}
	reg.Add(roomID, s)
	return s, rec
}

// TestRegistryLifecycle verifies membership, user lookup and removal of empty rooms.
func TestRegistryLifecycle(t *testing.T) {
	reg := hub.NewRegistry()

	a, _ := joined(t, reg, "R1", "", "alice")
	b, _ := joined(t, reg, "R1", "", "bob")

	assert.Len(t, reg.Members("R1"), 2)
	assert.Equal(t, []string{"alice", "bob"}, reg.Users("R1"))

	got, ok := reg.Lookup("R1", "bob")
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = reg.Lookup("R2", "bob")
	assert.False(t, ok)

	assert.False(t, reg.Remove("R1", a))
	assert.False(t, reg.HasUser("R1", "alice"))
	assert.True(t, reg.HasRoom("R1"))

	assert.True(t, reg.Remove("R1", b))
	assert.False(t, reg.HasRoom("R1"))
	assert.Empty(t, reg.Users("R1"))
	assert.Nil(t, reg.Members("R1"))

	assert.False(t, reg.Remove("R1", b))
}

// TestRegistrySecondConnection verifies the user mapping survives when one of two tabs leaves.
func TestRegistrySecondConnection(t *testing.T) {
	reg := hub.NewRegistry()
	first, _ := joined(t, reg, "R1", "", "alice")
	second, _ := joined(t, reg, "R1", "", "alice")

	got, _ := reg.Lookup("R1", "alice")
	assert.Same(t, second, got)

	reg.Remove("R1", second)
	got, ok := reg.Lookup("R1", "alice")
	require.True(t, ok)
	assert.Same(t, first, got)

	stats := reg.Rooms()
	require.Len(t, stats, 1)
	assert.Equal(t, "R1", stats[0].RoomID)
	assert.Equal(t, 1, stats[0].Sessions)
	assert.Equal(t, []string{"alice"}, stats[0].Users)
}

// TestFabricScopes verifies the three primitives and project filtering.
func TestFabricScopes(t *testing.T) {
	reg := hub.NewRegistry()
	fab := hub.NewFabric(reg)

	a, recA := joined(t, reg, "R1", "P1", "alice")
	_, recB := joined(t, reg, "R1", "P1", "bob")
	_, recC := joined(t, reg, "R1", "P2", "carol")
	_, recD := joined(t, reg, "R2", "P1", "dave")

	t.Run("room including sender", func(t *testing.T) {
		n := fab.EmitToRoom(hub.ProjectScope("R1", "P1"), "entity-added", map[string]string{"nodeId": "n1"})
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, recA.Count("entity-added"))
		assert.Equal(t, 1, recB.Count("entity-added"))
		assert.Equal(t, 0, recC.Count("entity-added"))
		assert.Equal(t, 0, recD.Count("entity-added"))
	})

	t.Run("room except sender", func(t *testing.T) {
		n := fab.EmitToRoomExceptSelf(hub.ProjectScope("R1", "P1"), a, "entity-moved", nil)
		assert.Equal(t, 1, n)
		assert.Equal(t, 0, recA.Count("entity-moved"))
		assert.Equal(t, 1, recB.Count("entity-moved"))
	})

	t.Run("whole room ignores project", func(t *testing.T) {
		n := fab.EmitToRoomExceptSelf(hub.RoomScope("R1"), a, "user-joined", nil)
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, recC.Count("user-joined"))
		assert.Equal(t, 0, recD.Count("user-joined"))
	})

	t.Run("direct", func(t *testing.T) {
		require.NoError(t, fab.EmitTo(a, "pong", nil))
		f, ok := recA.Last("pong")
		require.True(t, ok)
		assert.Equal(t, "pong", f.Type)
		assert.Empty(t, f.Payload)
	})

	assert.Equal(t, 0, fab.EmitToRoom(hub.RoomScope("nowhere"), "x", nil))
}

// TestFabricBackpressure verifies a full transport drops frames without blocking others.
func TestFabricBackpressure(t *testing.T) {
	reg := hub.NewRegistry()
	fab := hub.NewFabric(reg)

	slowRec := &sessiontest.Recorder{Limit: 1}
	slow := session.New(slowRec)
	require.NoError(t, slow.JoinRoom("R1", "slow"))
	reg.Add("R1", slow)
	_, fastRec := joined(t, reg, "R1", "", "fast")

	for i := 0; i < 3; i++ {
		fab.EmitToRoom(hub.RoomScope("R1"), "cursor-moved", map[string]int{"x": i})
	}
	assert.Len(t, slowRec.Raw(), 1)
	assert.Len(t, fastRec.Raw(), 3)
}

// TestEncode verifies the envelope shape.
func TestEncode(t *testing.T) {
	data, err := hub.Encode("notice", map[string]string{"code": "already-chosen"})
	require.NoError(t, err)

	var env struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "notice", env.Type)
	assert.Equal(t, "already-chosen", env.Payload["code"])

	_, err = hub.Encode("bad", make(chan int))
	assert.Error(t, err)
}
