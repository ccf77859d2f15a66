package hub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/session"
)

// ErrBackpressure returned by transports whose send queue is full
var ErrBackpressure = errors.New("backpressure")

// Envelope wire frame shared by every event
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Encode marshals one frame.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return data, nil
}

// Scope broadcast target. An empty ProjectID addresses the whole room.
type Scope struct {
	RoomID    string
	ProjectID string
}

// RoomScope whole room
func RoomScope(roomID string) Scope {
	return Scope{RoomID: roomID}
}

// ProjectScope sessions of roomID currently in projectID
func ProjectScope(roomID, projectID string) Scope {
	return Scope{RoomID: roomID, ProjectID: projectID}
}

// Includes reports whether s is addressed by the scope.
func (sc Scope) Includes(s *session.Session) bool {
	_, roomID, projectID := s.Identity()
	if roomID != sc.RoomID {
		return false
	}
	return sc.ProjectID == "" || projectID == sc.ProjectID
}

// Fabric the three delivery primitives over the registry.
// Sends never block; a slow client loses the frame.
type Fabric struct {
	registry *Registry
}

func NewFabric(registry *Registry) *Fabric {
	return &Fabric{registry: registry}
}

// Registry backing registry
func (f *Fabric) Registry() *Registry {
	return f.registry
}

// EmitTo delivers to exactly one session.
func (f *Fabric) EmitTo(s *session.Session, event string, payload any) error {
	data, err := Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "hub.fabric").Msg("encode failed")
		return err
	}
	return f.send(s, event, data)
}

// EmitToRoomExceptSelf delivers to every session in scope but sender. It returns the delivered count.
func (f *Fabric) EmitToRoomExceptSelf(scope Scope, sender *session.Session, event string, payload any) int {
	return f.broadcast(scope, sender, event, payload)
}

// EmitToRoom delivers to every session in scope. It returns the delivered count.
func (f *Fabric) EmitToRoom(scope Scope, event string, payload any) int {
	return f.broadcast(scope, nil, event, payload)
}

func (f *Fabric) broadcast(scope Scope, skip *session.Session, event string, payload any) int {
	members := f.registry.Members(scope.RoomID)
	if len(members) == 0 {
		return 0
	}

	data, err := Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "hub.fabric").Str("room", scope.RoomID).Msg("encode failed")
		return 0
	}

	delivered := 0
	for _, s := range members {
		if s == skip || !scope.Includes(s) {
			continue
		}
		if f.send(s, event, data) == nil {
			delivered++
		}
	}
	return delivered
}

func (f *Fabric) send(s *session.Session, event string, data []byte) error {
	err := s.Send(data)
	if err == nil {
		return nil
	}
	ev := log.Warn()
	if errors.Is(err, session.ErrClosed) {
		ev = log.Debug()
	}
	ev.Err(err).
		Str("module", "hub.fabric").
		Str("session", s.ID).
		Str("user", s.UserID()).
		Str("event", event).
		Msg("dropped frame")
	return err
}
