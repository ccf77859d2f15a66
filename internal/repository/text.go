package repository

import (
	"context"
	"fmt"
	"time"

	"realtime-canvas/internal/canvas"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/store"
)

const (
	insertTextSQL = `INSERT INTO text_boxes (node_id, project_id, room_id, owner_id, content, font, color, font_size, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateTextSQL = `UPDATE text_boxes SET content = ?, font = ?, color = ?, font_size = ?
WHERE node_id = ? AND project_id = ? AND room_id = ?`
	deleteTextSQL = `DELETE FROM text_boxes WHERE node_id = ? AND project_id = ? AND room_id = ?`
	loadTextsSQL  = `SELECT t.node_id, t.project_id, t.room_id, t.owner_id, t.content, t.font, t.color, t.font_size,
	p.position, p.size
FROM text_boxes t
JOIN placements p ON p.node_id = t.node_id AND p.project_id = t.project_id AND p.room_id = t.room_id`
)

type textRow struct {
	NodeID    string    `gorm:"column:node_id"`
	ProjectID string    `gorm:"column:project_id"`
	RoomID    string    `gorm:"column:room_id"`
	OwnerID   string    `gorm:"column:owner_id"`
	Content   string    `gorm:"column:content"`
	Font      string    `gorm:"column:font"`
	Color     string    `gorm:"column:color"`
	FontSize  float64   `gorm:"column:font_size"`
	Position  jsonPoint `gorm:"column:position"`
	Size      jsonSize  `gorm:"column:size"`
}

// TextRepository text_boxes + placements
type TextRepository struct {
	gw store.Gateway
}

func NewTextRepository(gw store.Gateway) *TextRepository {
	return &TextRepository{gw: gw}
}

// Create writes the content row and its placement in one transaction.
func (r *TextRepository) Create(ctx context.Context, t canvas.TextBox) error {
	return r.gw.Transaction(ctx, func(tx store.Gateway) error {
		if _, err := tx.Exec(ctx, insertTextSQL,
			t.NodeID, t.ProjectID, t.RoomID, t.OwnerID, t.Content, t.Font, t.Color, t.FontSize, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("insert text %s: %w", t.Key(), err)
		}
		return insertPlacement(ctx, tx, model.EntityKindText, t.Base)
	})
}

// UpdateContent persists the content fields.
func (r *TextRepository) UpdateContent(ctx context.Context, t canvas.TextBox) error {
	n, err := r.gw.Exec(ctx, updateTextSQL, t.Content, t.Font, t.Color, t.FontSize, t.NodeID, t.ProjectID, t.RoomID)
	if err != nil {
		return fmt.Errorf("update text %s: %w", t.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("update text %s: %w", t.Key(), ErrNotFound)
	}
	return nil
}

// Delete removes both rows.
func (r *TextRepository) Delete(ctx context.Context, key canvas.Key) error {
	return r.gw.Transaction(ctx, func(tx store.Gateway) error {
		if _, err := tx.Exec(ctx, deleteTextSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
			return fmt.Errorf("delete text %s: %w", key, err)
		}
		return deletePlacement(ctx, tx, key)
	})
}

// LoadAll every text box joined with its placement
func (r *TextRepository) LoadAll(ctx context.Context) ([]canvas.TextBox, error) {
	var rows []textRow
	if err := r.gw.Query(ctx, &rows, loadTextsSQL); err != nil {
		return nil, fmt.Errorf("load texts: %w", err)
	}

	out := make([]canvas.TextBox, 0, len(rows))
	for _, row := range rows {
		out = append(out, canvas.TextBox{
			Base: canvas.Base{
				NodeID:    row.NodeID,
				RoomID:    row.RoomID,
				ProjectID: row.ProjectID,
				OwnerID:   row.OwnerID,
				Position:  row.Position.Data(),
				Size:      row.Size.Data(),
			},
			Font:     row.Font,
			Color:    row.Color,
			FontSize: row.FontSize,
			Content:  row.Content,
		})
	}
	return out, nil
}
