package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/session"
	"realtime-canvas/internal/session/sessiontest"
)

// TestStateMachine walks Connected → RoomJoined → ProjectJoined → Connected → Disconnected.
func TestStateMachine(t *testing.T) {
	s, rec := sessiontest.NewSession()
	assert.Equal(t, session.StateConnected, s.State())
	assert.NotEmpty(t, s.ID)

	require.ErrorIs(t, s.JoinProject("P1"), session.ErrNoRoom)
	assert.Equal(t, session.StateConnected, s.State())

	require.NoError(t, s.JoinRoom("R1", "alice"))
	assert.Equal(t, session.StateRoomJoined, s.State())

	require.NoError(t, s.JoinProject("P1"))
	user, room, project := s.Identity()
	assert.Equal(t, "alice", user)
	assert.Equal(t, "R1", room)
	assert.Equal(t, "P1", project)
	assert.Equal(t, session.StateProjectJoined, s.State())

	t.Run("joining another room clears the project", func(t *testing.T) {
		require.NoError(t, s.JoinRoom("R2", "alice"))
		assert.Equal(t, "", s.ProjectID())
		assert.Equal(t, session.StateRoomJoined, s.State())
	})

	roomID, ok := s.LeaveRoom()
	assert.True(t, ok)
	assert.Equal(t, "R2", roomID)
	assert.Equal(t, session.StateConnected, s.State())
	assert.Equal(t, "alice", s.UserID())

	_, ok = s.LeaveRoom()
	assert.False(t, ok)

	s.Close()
	s.Close()
	assert.True(t, s.IsClosed())
	assert.True(t, rec.Closed())
	assert.Error(t, s.Context().Err())
	assert.ErrorIs(t, s.JoinRoom("R1", "alice"), session.ErrClosed)
	assert.ErrorIs(t, s.Send([]byte("x")), session.ErrClosed)
}

// TestStateString verifies the log names of every state.
func TestStateString(t *testing.T) {
	tests := []struct {
		state session.State
		want  string
	}{
		{session.StateDisconnected, "disconnected"},
		{session.StateConnected, "connected"},
		{session.StateRoomJoined, "room_joined"},
		{session.StateProjectJoined, "project_joined"},
		{session.State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

// TestSendUsesTransport verifies frames reach the transport untouched.
func TestSendUsesTransport(t *testing.T) {
	s, rec := sessiontest.NewSession()
	require.NoError(t, s.Send([]byte(`{"type":"pong"}`)))
	assert.Equal(t, []string{"pong"}, rec.Types())
}

// TestAuthenticate verifies the token identity is kept across leaves.
func TestAuthenticate(t *testing.T) {
	s, _ := sessiontest.NewSession()
	assert.Equal(t, "", s.AuthUserID())

	s.Authenticate("alice")
	assert.Equal(t, "alice", s.AuthUserID())
	assert.Equal(t, "alice", s.UserID())

	require.NoError(t, s.JoinRoom("R1", "alice"))
	s.LeaveRoom()
	assert.Equal(t, "alice", s.AuthUserID())
}
