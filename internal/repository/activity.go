package repository

import (
	"context"
	"fmt"
	"time"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/store"
)

const (
	insertActivitySQL = `INSERT INTO activity_logs (node_id, project_id, room_id, user_id, action, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	recentActivitySQL = `SELECT node_id, user_id, action, created_at FROM activity_logs
WHERE room_id = ? AND project_id = ?
ORDER BY id DESC
LIMIT ?`
)

// Activity one audit entry
type Activity struct {
	NodeID    string    `gorm:"column:node_id" json:"nodeId"`
	UserID    string    `gorm:"column:user_id" json:"userId"`
	Action    string    `gorm:"column:action" json:"action"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

// ActivityRepository append-only mutation log
type ActivityRepository struct {
	gw store.Gateway
}

func NewActivityRepository(gw store.Gateway) *ActivityRepository {
	return &ActivityRepository{gw: gw}
}

// Record appends one entry.
func (r *ActivityRepository) Record(ctx context.Context, key canvas.Key, userID, action string) error {
	if _, err := r.gw.Exec(ctx, insertActivitySQL,
		key.NodeID, key.ProjectID, key.RoomID, userID, action, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record activity %s %s: %w", key, action, err)
	}
	return nil
}

// Recent newest entries of one room and project
func (r *ActivityRepository) Recent(ctx context.Context, roomID, projectID string, limit int) ([]Activity, error) {
	out := make([]Activity, 0)
	if err := r.gw.Query(ctx, &out, recentActivitySQL, roomID, projectID, limit); err != nil {
		return nil, fmt.Errorf("recent activity %s/%s: %w", roomID, projectID, err)
	}
	return out, nil
}
