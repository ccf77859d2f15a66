package collab

import (
	"encoding/json"
	"time"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/repository"
)

// Inbound event types
const (
	EventJoinRoom        = "join-room"
	EventJoinProject     = "join-project"
	EventLeaveRoom       = "leave-room"
	EventEntityMutate    = "entity-mutate"
	EventSignalOffer     = "signal-offer"
	EventSignalAnswer    = "signal-answer"
	EventSignalCandidate = "signal-candidate"
	EventCursorMove      = "cursor-move"
	EventStrokeStart     = "stroke-start"
	EventStrokeMove      = "stroke-move"
	EventStrokeEnd       = "stroke-end"
	EventSummarize       = "summarize"
	EventPing            = "ping"
)

// Outbound event types
const (
	EventRoomJoined    = "room-joined"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventSnapshot      = "snapshot"
	EventEntityAdded   = "entity-added"
	EventEntityUpdated = "entity-updated"
	EventEntityMoved   = "entity-moved"
	EventEntityResized = "entity-resized"
	EventEntityRemoved = "entity-removed"
	EventPollUpdated   = "poll-updated"
	EventDrawingSaved  = "drawing-saved"
	EventNotice        = "notice"
	EventError         = "error"
	EventCursorMoved   = "cursor-moved"
	EventSummary       = "summary"
	EventPong          = "pong"

	// live strokes go out as remote-stroke-start and so on
	remotePrefix = "remote-"
)

// Notice and error codes
const (
	NoticeAlreadyChosen = "already-chosen"
	ErrorNotAMember     = "not-a-member"
	ErrorNoRoom         = "no-room"
	ErrorUnavailable    = "unavailable"
)

// inbound envelope
type request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type joinProjectRequest struct {
	ProjectID string `json:"projectId"`
}

type cursorRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// mutateRequest entity-mutate payload. Pointer fields distinguish absent from zero.
type mutateRequest struct {
	Kind     string        `json:"kind"`
	Fnc      string        `json:"fnc"`
	NodeID   string        `json:"nodeId"`
	Position *canvas.Point `json:"position"`
	Size     *canvas.Size  `json:"size"`

	Font     *string  `json:"font"`
	Color    *string  `json:"color"`
	FontSize *float64 `json:"fontSize"`
	Content  *string  `json:"content"`

	Title   *string   `json:"title"`
	Choices *[]string `json:"choices"`

	FileName *string `json:"fileName"`

	Data   *string `json:"data"`
	Reason string  `json:"reason"`

	Slot int `json:"slot"`
}

// Outbound payloads

type roomJoinedPayload struct {
	RoomID   string                   `json:"roomId"`
	UserID   string                   `json:"userId"`
	Users    []string                 `json:"users"`
	Projects []repository.ProjectInfo `json:"projects"`
}

type userPayload struct {
	UserID string `json:"userId"`
}

type entityPayload struct {
	Kind   canvas.Kind `json:"kind"`
	Entity any         `json:"entity"`
}

type removedPayload struct {
	Kind      canvas.Kind `json:"kind"`
	NodeID    string      `json:"nodeId"`
	ProjectID string      `json:"projectId"`
}

type pollUpdatedPayload struct {
	NodeID    string                           `json:"nodeId"`
	ProjectID string                           `json:"projectId"`
	Counts    [canvas.MaxChoices]int           `json:"counts"`
	Choices   [canvas.MaxChoices]canvas.Choice `json:"choices"`
}

type drawingSavedPayload struct {
	ProjectID string    `json:"projectId"`
	Reason    string    `json:"reason,omitempty"`
	SavedAt   time.Time `json:"savedAt"`
}

type noticePayload struct {
	Code   string `json:"code"`
	NodeID string `json:"nodeId,omitempty"`
	Slot   int    `json:"slot,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type cursorPayload struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type summaryPayload struct {
	Text string `json:"text"`
}
