package repository

import (
	"context"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/store"
)

// Set every repository over one gateway. It is the rebuild source for the caches.
type Set struct {
	Placements *PlacementRepository
	Texts      *TextRepository
	Polls      *PollRepository
	Images     *ImageRepository
	Drawings   *DrawingRepository
	Members    *MemberRepository
	Activity   *ActivityRepository
}

// NewSet wires all repositories to gw
func NewSet(gw store.Gateway) *Set {
	return &Set{
		Placements: NewPlacementRepository(gw),
		Texts:      NewTextRepository(gw),
		Polls:      NewPollRepository(gw),
		Images:     NewImageRepository(gw),
		Drawings:   NewDrawingRepository(gw),
		Members:    NewMemberRepository(gw),
		Activity:   NewActivityRepository(gw),
	}
}

var _ canvas.Source = (*Set)(nil)

func (s *Set) LoadTexts(ctx context.Context) ([]canvas.TextBox, error) {
	return s.Texts.LoadAll(ctx)
}

func (s *Set) LoadPolls(ctx context.Context) ([]canvas.Poll, error) {
	return s.Polls.LoadAll(ctx)
}

func (s *Set) LoadImages(ctx context.Context) ([]canvas.ImageRef, error) {
	return s.Images.LoadAll(ctx)
}

func (s *Set) LoadStrokes(ctx context.Context) ([]canvas.StrokeLayer, error) {
	return s.Drawings.LoadAll(ctx)
}
