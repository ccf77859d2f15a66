package canvas

// Kind annotation kind addressed by a mutation
type Kind string

const (
	KindText   Kind = "text"
	KindPoll   Kind = "poll"
	KindImage  Kind = "image"
	KindStroke Kind = "stroke"
)

// ParseKind validates a wire kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindText, KindPoll, KindImage, KindStroke:
		return k, true
	default:
		return "", false
	}
}

// Op mutation operation tag; values match the wire "fnc" field.
type Op string

const (
	OpCreate Op = "new"
	OpUpdate Op = "update"
	OpMove   Op = "move"
	OpResize Op = "resize"
	OpDelete Op = "delete"
	OpChoice Op = "choice"
)

// ParseOp validates a wire operation.
func ParseOp(s string) (Op, bool) {
	switch op := Op(s); op {
	case OpCreate, OpUpdate, OpMove, OpResize, OpDelete, OpChoice:
		return op, true
	default:
		return "", false
	}
}

// TextFields optional text content; nil means unspecified.
type TextFields struct {
	Font     *string
	Color    *string
	FontSize *float64
	Content  *string
}

// Empty reports whether no field is present.
func (f TextFields) Empty() bool {
	return f.Font == nil && f.Color == nil && f.FontSize == nil && f.Content == nil
}

// PollFields optional poll content
type PollFields struct {
	Title   *string
	Choices *[]string
}

func (f PollFields) Empty() bool {
	return f.Title == nil && f.Choices == nil
}

// ImageFields optional image metadata
type ImageFields struct {
	FileName *string
}

func (f ImageFields) Empty() bool {
	return f.FileName == nil
}

// StrokeFields stroke layer save
type StrokeFields struct {
	Data   *string
	Reason string
}

// Mutation one decoded entity-mutate command. Routing fields come from the session.
type Mutation struct {
	Kind      Kind
	Op        Op
	RoomID    string
	ProjectID string
	UserID    string
	NodeID    string

	Position *Point
	Size     *Size

	Text   TextFields
	Poll   PollFields
	Image  ImageFields
	Stroke StrokeFields

	// Slot is the 1-based poll choice.
	Slot int
}

// Key routing key of the target entity
func (m *Mutation) Key() Key {
	return Key{NodeID: m.NodeID, RoomID: m.RoomID, ProjectID: m.ProjectID}
}

// Scoped reports whether room and project are present.
func (m *Mutation) Scoped() bool {
	return m.RoomID != "" && m.ProjectID != ""
}

// NewBase base for a freshly created entity with defaults applied.
func (m *Mutation) NewBase(nodeID string, defaultSize Size) Base {
	b := Base{
		NodeID:    nodeID,
		RoomID:    m.RoomID,
		ProjectID: m.ProjectID,
		OwnerID:   m.UserID,
		Size:      defaultSize,
	}
	b.Place(m.Position, m.Size)
	return b
}
