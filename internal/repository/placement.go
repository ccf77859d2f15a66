// Package repository maps canvas entities onto the content tables and the
// shared placement table through the store gateway.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/store"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrStorageConflict = errors.New("image has both inline data and a file path")
)

const (
	insertPlacementSQL = `INSERT INTO placements (node_id, project_id, room_id, kind, position, size, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	updatePlacementSQL = `UPDATE placements SET position = ?, size = ?, updated_at = ?
WHERE node_id = ? AND project_id = ? AND room_id = ?`
	deletePlacementSQL = `DELETE FROM placements WHERE node_id = ? AND project_id = ? AND room_id = ?`
)

type (
	jsonPoint = datatypes.JSONType[canvas.Point]
	jsonSize  = datatypes.JSONType[canvas.Size]
)

func insertPlacement(ctx context.Context, gw store.Gateway, kind model.EntityKind, b canvas.Base) error {
	_, err := gw.Exec(ctx, insertPlacementSQL,
		b.NodeID, b.ProjectID, b.RoomID, kind.String(),
		datatypes.NewJSONType(b.Position), datatypes.NewJSONType(b.Size), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert placement %s: %w", b.Key(), err)
	}
	return nil
}

func deletePlacement(ctx context.Context, gw store.Gateway, key canvas.Key) error {
	if _, err := gw.Exec(ctx, deletePlacementSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
		return fmt.Errorf("delete placement %s: %w", key, err)
	}
	return nil
}

// PlacementRepository shared position/size rows
type PlacementRepository struct {
	gw store.Gateway
}

func NewPlacementRepository(gw store.Gateway) *PlacementRepository {
	return &PlacementRepository{gw: gw}
}

// Save overwrites position and size of an existing placement.
func (r *PlacementRepository) Save(ctx context.Context, b canvas.Base) error {
	n, err := r.gw.Exec(ctx, updatePlacementSQL,
		datatypes.NewJSONType(b.Position), datatypes.NewJSONType(b.Size), time.Now().UTC(),
		b.NodeID, b.ProjectID, b.RoomID,
	)
	if err != nil {
		return fmt.Errorf("update placement %s: %w", b.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("update placement %s: %w", b.Key(), ErrNotFound)
	}
	return nil
}
