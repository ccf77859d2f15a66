package model

// EntityKind annotation kind stored on a placement row
type EntityKind string

const (
	EntityKindText  EntityKind = "text"
	EntityKindPoll  EntityKind = "poll"
	EntityKindImage EntityKind = "image"
)

func (k EntityKind) String() string {
	return string(k)
}
