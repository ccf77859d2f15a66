package model

import (
	"time"

	"gorm.io/datatypes"
)

// Placement shared position/size row for every placed annotation
type Placement struct {
	NodeID    string         `gorm:"primaryKey;type:varchar(64)" json:"node_id"`
	ProjectID string         `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	RoomID    string         `gorm:"primaryKey;type:varchar(64);index:idx_placements_scope" json:"room_id"`
	Kind      EntityKind     `gorm:"type:varchar(16);not null" json:"kind"`
	Position  datatypes.JSON `gorm:"not null" json:"position"`
	Size      datatypes.JSON `gorm:"not null" json:"size"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Placement) TableName() string {
	return "placements"
}

// TextBox text annotation content
type TextBox struct {
	NodeID    string    `gorm:"primaryKey;type:varchar(64)" json:"node_id"`
	ProjectID string    `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	RoomID    string    `gorm:"primaryKey;type:varchar(64)" json:"room_id"`
	OwnerID   string    `gorm:"type:varchar(64)" json:"owner_id"`
	Content   string    `gorm:"type:text" json:"content"`
	Font      string    `gorm:"type:varchar(100)" json:"font"`
	Color     string    `gorm:"type:varchar(32)" json:"color"`
	FontSize  float64   `json:"font_size"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TextBox) TableName() string {
	return "text_boxes"
}

// Poll poll content with denormalized slot counts
type Poll struct {
	NodeID    string    `gorm:"primaryKey;type:varchar(64)" json:"node_id"`
	ProjectID string    `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	RoomID    string    `gorm:"primaryKey;type:varchar(64)" json:"room_id"`
	OwnerID   string    `gorm:"type:varchar(64)" json:"owner_id"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	Choice1   string    `gorm:"type:varchar(255)" json:"choice1"`
	Choice2   string    `gorm:"type:varchar(255)" json:"choice2"`
	Choice3   string    `gorm:"type:varchar(255)" json:"choice3"`
	Choice4   string    `gorm:"type:varchar(255)" json:"choice4"`
	Count1    int       `gorm:"default:0" json:"count1"`
	Count2    int       `gorm:"default:0" json:"count2"`
	Count3    int       `gorm:"default:0" json:"count3"`
	Count4    int       `gorm:"default:0" json:"count4"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Poll) TableName() string {
	return "polls"
}

// PollBallot one user's choice in a poll
type PollBallot struct {
	NodeID    string    `gorm:"primaryKey;type:varchar(64)" json:"node_id"`
	ProjectID string    `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	RoomID    string    `gorm:"primaryKey;type:varchar(64)" json:"room_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Slot      int       `gorm:"not null" json:"slot"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PollBallot) TableName() string {
	return "poll_ballots"
}

// Image image metadata; Data and FilePath are mutually exclusive
type Image struct {
	NodeID    string    `gorm:"primaryKey;type:varchar(64)" json:"node_id"`
	ProjectID string    `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	RoomID    string    `gorm:"primaryKey;type:varchar(64)" json:"room_id"`
	OwnerID   string    `gorm:"type:varchar(64)" json:"owner_id"`
	FileName  string    `gorm:"type:varchar(255)" json:"file_name"`
	MimeType  string    `gorm:"type:varchar(100)" json:"mime_type"`
	Data      []byte    `json:"-"`
	FilePath  *string   `gorm:"type:text" json:"file_path,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Image) TableName() string {
	return "images"
}

// Drawing single serialized stroke layer per project
type Drawing struct {
	ProjectID  string    `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	RoomID     string    `gorm:"primaryKey;type:varchar(64)" json:"room_id"`
	OwnerID    string    `gorm:"type:varchar(64)" json:"owner_id"`
	CanvasData string    `gorm:"type:text;not null" json:"canvas_data"`
	SavedAt    time.Time `json:"saved_at"`
}

func (Drawing) TableName() string {
	return "drawings"
}

// RoomMember room membership
type RoomMember struct {
	RoomID   string    `gorm:"primaryKey;type:varchar(64)" json:"room_id"`
	UserID   string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (RoomMember) TableName() string {
	return "room_members"
}

// Project canvas workspace inside a room
type Project struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RoomID    string    `gorm:"type:varchar(64);not null;index" json:"room_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Project) TableName() string {
	return "projects"
}

// ActivityLog append-only mutation audit
type ActivityLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	NodeID    string    `gorm:"type:varchar(64)" json:"node_id"`
	ProjectID string    `gorm:"type:varchar(64);index:idx_activity_scope" json:"project_id"`
	RoomID    string    `gorm:"type:varchar(64);index:idx_activity_scope" json:"room_id"`
	UserID    string    `gorm:"type:varchar(64)" json:"user_id"`
	Action    string    `gorm:"type:varchar(50);not null" json:"action"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// All every model managed by AutoMigrate
func All() []any {
	return []any{
		&Placement{},
		&TextBox{},
		&Poll{},
		&PollBallot{},
		&Image{},
		&Drawing{},
		&RoomMember{},
		&Project{},
		&ActivityLog{},
	}
}
