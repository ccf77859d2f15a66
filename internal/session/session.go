package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClosed = errors.New("session closed")
	ErrNoRoom = errors.New("session has not joined a room")
)

// State connection lifecycle
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateRoomJoined
	StateProjectJoined
)

// String state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateRoomJoined:
		return "room_joined"
	case StateProjectJoined:
		return "project_joined"
	default:
		return "unknown"
	}
}

// Transport outbound side of one connection. TrySend must not block.
type Transport interface {
	TrySend(data []byte) error
	Close()
}

// Session per-connection context (thread-safe)
type Session struct {
	ID          string
	ConnectedAt time.Time

	transport Transport

	mu        sync.RWMutex
	state     State
	authUser  string
	userID    string
	roomID    string
	projectID string

	ctx    context.Context
	cancel context.CancelFunc
}

// New connected session over t
func New(t Transport) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now(),
		transport:   t,
		state:       StateConnected,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context cancelled when the session closes
func (s *Session) Context() context.Context {
	return s.ctx
}

// Send hands data to the transport without blocking.
func (s *Session) Send(data []byte) error {
	if s.IsClosed() {
		return ErrClosed
	}
	return s.transport.TrySend(data)
}

// State current state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// UserID identity given on join-room (or by the token)
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userID
}

// RoomID current room, empty outside a room
func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roomID
}

// ProjectID current project, empty outside a project
func (s *Session) ProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.projectID
}

// Identity consistent snapshot of the routing fields
func (s *Session) Identity() (userID, roomID, projectID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userID, s.roomID, s.projectID
}

// Authenticate binds the identity proven by a token. Joins must then use it.
func (s *Session) Authenticate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authUser = userID
	s.userID = userID
}

// AuthUserID token identity, empty for anonymous connections
func (s *Session) AuthUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.authUser
}

// JoinRoom moves to RoomJoined and clears the project.
func (s *Session) JoinRoom(roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return ErrClosed
	}
	s.roomID = roomID
	s.userID = userID
	s.projectID = ""
	s.state = StateRoomJoined
	return nil
}

// JoinProject moves to ProjectJoined. A room is required.
func (s *Session) JoinProject(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisconnected:
		return ErrClosed
	case StateConnected:
		return ErrNoRoom
	}
	s.projectID = projectID
	s.state = StateProjectJoined
	return nil
}

// LeaveRoom returns to Connected and reports the room that was left.
func (s *Session) LeaveRoom() (roomID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomID == "" {
		return "", false
	}
	roomID = s.roomID
	s.roomID = ""
	s.projectID = ""
	if s.state != StateDisconnected {
		s.state = StateConnected
	}
	return roomID, true
}

// Duration time since connect
func (s *Session) Duration() time.Duration {
	return time.Since(s.ConnectedAt)
}

// Close moves to Disconnected and closes the transport once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	s.cancel()
	s.transport.Close()
}

// IsClosed reports whether Close has run.
func (s *Session) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state == StateDisconnected
}
