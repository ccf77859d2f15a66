// Package canvas holds the room- and project-scoped annotation model and
// its in-memory caches.
package canvas

import (
	"strings"
	"time"
)

// Default sizes applied on create when the request carries none.
var (
	DefaultTextSize  = Size{Width: 180, Height: 100}
	DefaultPollSize  = Size{Width: 300, Height: 200}
	DefaultImageSize = Size{Width: 200, Height: 200}
)

// Text defaults
const (
	DefaultFont     = "Arial"
	DefaultColor    = "#000000"
	DefaultFontSize = 14
)

// MaxChoices slots per poll
const MaxChoices = 4

// Point canvas position
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size canvas extent
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Key identifies one entity inside its room and project.
type Key struct {
	NodeID    string
	RoomID    string
	ProjectID string
}

// Valid reports whether every routing field is present.
func (k Key) Valid() bool {
	return k.NodeID != "" && k.RoomID != "" && k.ProjectID != ""
}

func (k Key) String() string {
	return strings.Join([]string{k.RoomID, k.ProjectID, k.NodeID}, "/")
}

// Base fields shared by every annotation.
type Base struct {
	NodeID    string `json:"nodeId"`
	RoomID    string `json:"roomId"`
	ProjectID string `json:"projectId"`
	OwnerID   string `json:"ownerId,omitempty"`
	Position  Point  `json:"position"`
	Size      Size   `json:"size"`
}

// Ref exposes the shared fields of an embedding entity.
func (b *Base) Ref() *Base {
	return b
}

// Key returns the routing key
func (b Base) Key() Key {
	return Key{NodeID: b.NodeID, RoomID: b.RoomID, ProjectID: b.ProjectID}
}

// Place overwrites position and/or size. It reports whether anything was given.
func (b *Base) Place(position *Point, size *Size) bool {
	if position != nil {
		b.Position = *position
	}
	if size != nil {
		b.Size = *size
	}
	return position != nil || size != nil
}

// TextBox free text annotation
type TextBox struct {
	Base
	Font     string  `json:"font"`
	Color    string  `json:"color"`
	FontSize float64 `json:"fontSize"`
	Content  string  `json:"content"`
}

func (t TextBox) Clone() TextBox {
	return t
}

// Apply merges only the fields that are present.
func (t *TextBox) Apply(f TextFields) {
	if f.Font != nil {
		t.Font = *f.Font
	}
	if f.Color != nil {
		t.Color = *f.Color
	}
	if f.FontSize != nil {
		t.FontSize = *f.FontSize
	}
	if f.Content != nil {
		t.Content = *f.Content
	}
}

// Choice one poll slot
type Choice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Poll titled vote with up to four slots and one ballot per user
type Poll struct {
	Base
	Title   string             `json:"title"`
	Choices [MaxChoices]Choice `json:"choices"`
	// Ballots maps userId to a 1-based slot.
	Ballots map[string]int `json:"-"`
}

func (p Poll) Clone() Poll {
	if p.Ballots != nil {
		ballots := make(map[string]int, len(p.Ballots))
		for user, slot := range p.Ballots {
			ballots[user] = slot
		}
		p.Ballots = ballots
	}
	return p
}

// Apply merges title and labels. A given choice list replaces all four labels; counts are kept.
func (p *Poll) Apply(f PollFields) {
	if f.Title != nil {
		p.Title = *f.Title
	}
	if f.Choices != nil {
		p.SetLabels(*f.Choices)
	}
}

// SetLabels assigns labels in slot order, dropping anything past MaxChoices.
func (p *Poll) SetLabels(labels []string) {
	for i := range p.Choices {
		p.Choices[i].Label = ""
		if i < len(labels) {
			p.Choices[i].Label = labels[i]
		}
	}
}

// Tally counts ballots per slot.
func (p *Poll) Tally() [MaxChoices]int {
	var counts [MaxChoices]int
	for _, slot := range p.Ballots {
		if ValidSlot(slot) {
			counts[slot-1]++
		}
	}
	return counts
}

// Counts current slot counts
func (p *Poll) Counts() [MaxChoices]int {
	var counts [MaxChoices]int
	for i, c := range p.Choices {
		counts[i] = c.Count
	}
	return counts
}

// SetCounts overwrites every slot count.
func (p *Poll) SetCounts(counts [MaxChoices]int) {
	for i := range p.Choices {
		p.Choices[i].Count = counts[i]
	}
}

// ValidSlot reports 1 <= slot <= MaxChoices.
func ValidSlot(slot int) bool {
	return slot >= 1 && slot <= MaxChoices
}

// ImageStorage where the image bytes live
type ImageStorage string

const (
	ImageInline ImageStorage = "inline"
	ImageStored ImageStorage = "stored"
)

// ImageRef uploaded image placed on the canvas. The bytes never live in the cache.
type ImageRef struct {
	Base
	FileName string       `json:"fileName"`
	MimeType string       `json:"mimeType"`
	Storage  ImageStorage `json:"storage"`
	FilePath string       `json:"filePath,omitempty"`
}

func (i ImageRef) Clone() ImageRef {
	return i
}

// Apply merges the file name when present.
func (i *ImageRef) Apply(f ImageFields) {
	if f.FileName != nil {
		i.FileName = *f.FileName
	}
}

// StrokeLayer serialized drawing snapshot, one per project. NodeID equals ProjectID.
type StrokeLayer struct {
	Base
	Data    string    `json:"data"`
	SavedAt time.Time `json:"savedAt"`
}

func (s StrokeLayer) Clone() StrokeLayer {
	return s
}

// StrokeKey key of the layer owned by a project.
func StrokeKey(roomID, projectID string) Key {
	return Key{NodeID: projectID, RoomID: roomID, ProjectID: projectID}
}
