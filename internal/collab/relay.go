package collab

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"realtime-canvas/internal/hub"
	"realtime-canvas/internal/session"
)

// signalRequest routing fields of a signal-* payload. Everything else is opaque.
type signalRequest struct {
	RoomID     string `json:"roomId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// Relay forwards call negotiation between two users of one room.
type Relay struct {
	fabric *hub.Fabric
}

func NewRelay(fabric *hub.Fabric) *Relay {
	return &Relay{fabric: fabric}
}

// Forward sends raw unchanged under event to toUserId. The sender must be in roomId as
// fromUserId. An absent target drops the frame silently.
func (r *Relay) Forward(from *session.Session, event string, raw json.RawMessage) bool {
	var req signalRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		log.Warn().Err(err).Str("module", "collab.relay").Str("event", event).Msg("bad signal payload")
		return false
	}
	if req.RoomID == "" || req.FromUserID == "" || req.ToUserID == "" {
		log.Warn().Str("module", "collab.relay").Str("event", event).Msg("signal without routing fields")
		return false
	}
	if userID, roomID, _ := from.Identity(); roomID != req.RoomID || userID != req.FromUserID {
		log.Warn().
			Str("module", "collab.relay").
			Str("event", event).
			Str("session", from.ID).
			Str("room", req.RoomID).
			Str("from", req.FromUserID).
			Msg("signal sender does not match session")
		return false
	}

	target, ok := r.fabric.Registry().Lookup(req.RoomID, req.ToUserID)
	if !ok {
		log.Debug().
			Str("module", "collab.relay").
			Str("event", event).
			Str("room", req.RoomID).
			Str("from", req.FromUserID).
			Str("to", req.ToUserID).
			Msg("signal target not present")
		return false
	}
	return r.fabric.EmitTo(target, event, raw) == nil
}
