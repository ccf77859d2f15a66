package repository

import (
	"context"
	"fmt"
	"time"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/store"
)

const (
	upsertDrawingSQL = `INSERT INTO drawings (project_id, room_id, owner_id, canvas_data, saved_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (project_id, room_id) DO UPDATE SET
	owner_id = excluded.owner_id, canvas_data = excluded.canvas_data, saved_at = excluded.saved_at`
	deleteDrawingSQL = `DELETE FROM drawings WHERE project_id = ? AND room_id = ?`
	loadDrawingsSQL  = `SELECT project_id, room_id, owner_id, canvas_data, saved_at FROM drawings`
)

type drawingRow struct {
	ProjectID  string    `gorm:"column:project_id"`
	RoomID     string    `gorm:"column:room_id"`
	OwnerID    string    `gorm:"column:owner_id"`
	CanvasData string    `gorm:"column:canvas_data"`
	SavedAt    time.Time `gorm:"column:saved_at"`
}

// DrawingRepository one stroke layer blob per project
type DrawingRepository struct {
	gw store.Gateway
}

func NewDrawingRepository(gw store.Gateway) *DrawingRepository {
	return &DrawingRepository{gw: gw}
}

// Save overwrites the layer wholesale.
func (r *DrawingRepository) Save(ctx context.Context, layer canvas.StrokeLayer) error {
	if _, err := r.gw.Exec(ctx, upsertDrawingSQL,
		layer.ProjectID, layer.RoomID, layer.OwnerID, layer.Data, layer.SavedAt.UTC(),
	); err != nil {
		return fmt.Errorf("save drawing %s/%s: %w", layer.RoomID, layer.ProjectID, err)
	}
	return nil
}

// Delete clears the layer of one project.
func (r *DrawingRepository) Delete(ctx context.Context, roomID, projectID string) error {
	if _, err := r.gw.Exec(ctx, deleteDrawingSQL, projectID, roomID); err != nil {
		return fmt.Errorf("delete drawing %s/%s: %w", roomID, projectID, err)
	}
	return nil
}

// LoadAll every saved layer
func (r *DrawingRepository) LoadAll(ctx context.Context) ([]canvas.StrokeLayer, error) {
	var rows []drawingRow
	if err := r.gw.Query(ctx, &rows, loadDrawingsSQL); err != nil {
		return nil, fmt.Errorf("load drawings: %w", err)
	}

	out := make([]canvas.StrokeLayer, 0, len(rows))
	for _, row := range rows {
		out = append(out, canvas.StrokeLayer{
			Base: canvas.Base{
				NodeID:    row.ProjectID,
				RoomID:    row.RoomID,
				ProjectID: row.ProjectID,
				OwnerID:   row.OwnerID,
			},
			Data:    row.CanvasData,
			SavedAt: row.SavedAt,
		})
	}
	return out, nil
}
