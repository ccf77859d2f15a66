package repository

import (
	"context"
	"fmt"
	"time"

	"realtime-canvas/internal/store"
)

const (
	countMemberSQL = `SELECT COUNT(*) AS n FROM room_members WHERE room_id = ? AND user_id = ?`
	addMemberSQL   = `INSERT INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)
ON CONFLICT (room_id, user_id) DO NOTHING`
	listProjectsSQL = `SELECT id, name FROM projects WHERE room_id = ? ORDER BY created_at, id`
	addProjectSQL   = `INSERT INTO projects (id, room_id, name, created_at) VALUES (?, ?, ?, ?)`
)

// ProjectInfo project summary returned on join
type ProjectInfo struct {
	ID   string `gorm:"column:id" json:"id"`
	Name string `gorm:"column:name" json:"name"`
}

type countRow struct {
	N int64 `gorm:"column:n"`
}

// MemberRepository room membership and project listing
type MemberRepository struct {
	gw store.Gateway
}

func NewMemberRepository(gw store.Gateway) *MemberRepository {
	return &MemberRepository{gw: gw}
}

// IsMember reports whether userID belongs to roomID.
func (r *MemberRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var rows []countRow
	if err := r.gw.Query(ctx, &rows, countMemberSQL, roomID, userID); err != nil {
		return false, fmt.Errorf("check member %s/%s: %w", roomID, userID, err)
	}
	return len(rows) > 0 && rows[0].N > 0, nil
}

// AddMember idempotently adds userID to roomID.
func (r *MemberRepository) AddMember(ctx context.Context, roomID, userID string) error {
	if _, err := r.gw.Exec(ctx, addMemberSQL, roomID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add member %s/%s: %w", roomID, userID, err)
	}
	return nil
}

// Projects of a room, oldest first
func (r *MemberRepository) Projects(ctx context.Context, roomID string) ([]ProjectInfo, error) {
	projects := make([]ProjectInfo, 0)
	if err := r.gw.Query(ctx, &projects, listProjectsSQL, roomID); err != nil {
		return nil, fmt.Errorf("list projects %s: %w", roomID, err)
	}
	return projects, nil
}

// AddProject creates a project in a room.
func (r *MemberRepository) AddProject(ctx context.Context, roomID string, p ProjectInfo) error {
	if _, err := r.gw.Exec(ctx, addProjectSQL, p.ID, roomID, p.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("add project %s/%s: %w", roomID, p.ID, err)
	}
	return nil
}
