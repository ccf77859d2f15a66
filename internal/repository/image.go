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
	insertImageSQL = `INSERT INTO images (node_id, project_id, room_id, owner_id, file_name, mime_type, data, file_path, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateImageSQL = `UPDATE images SET file_name = ? WHERE node_id = ? AND project_id = ? AND room_id = ?`
	deleteImageSQL = `DELETE FROM images WHERE node_id = ? AND project_id = ? AND room_id = ?`
	loadImagesSQL  = `SELECT i.node_id, i.project_id, i.room_id, i.owner_id, i.file_name, i.mime_type, i.file_path,
	p.position, p.size
FROM images i
JOIN placements p ON p.node_id = i.node_id AND p.project_id = i.project_id AND p.room_id = i.room_id`
	loadImageDataSQL = `SELECT data, mime_type FROM images WHERE node_id = ? AND project_id = ? AND room_id = ?`
)

type imageRow struct {
	NodeID    string    `gorm:"column:node_id"`
	ProjectID string    `gorm:"column:project_id"`
	RoomID    string    `gorm:"column:room_id"`
	OwnerID   string    `gorm:"column:owner_id"`
	FileName  string    `gorm:"column:file_name"`
	MimeType  string    `gorm:"column:mime_type"`
	FilePath  *string   `gorm:"column:file_path"`
	Position  jsonPoint `gorm:"column:position"`
	Size      jsonSize  `gorm:"column:size"`
}

type imageDataRow struct {
	Data     []byte `gorm:"column:data"`
	MimeType string `gorm:"column:mime_type"`
}

// ImageRepository images + placements
type ImageRepository struct {
	gw store.Gateway
}

func NewImageRepository(gw store.Gateway) *ImageRepository {
	return &ImageRepository{gw: gw}
}

// Create writes the image row and its placement. data is only stored for inline images.
func (r *ImageRepository) Create(ctx context.Context, img canvas.ImageRef, data []byte) error {
	var filePath *string
	switch img.Storage {
	case canvas.ImageStored:
		if len(data) > 0 {
			return fmt.Errorf("insert image %s: %w", img.Key(), ErrStorageConflict)
		}
		path := img.FilePath
		filePath = &path
		data = nil
	default:
		if img.FilePath != "" {
			return fmt.Errorf("insert image %s: %w", img.Key(), ErrStorageConflict)
		}
	}

	return r.gw.Transaction(ctx, func(tx store.Gateway) error {
		if _, err := tx.Exec(ctx, insertImageSQL,
			img.NodeID, img.ProjectID, img.RoomID, img.OwnerID, img.FileName, img.MimeType,
			data, filePath, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("insert image %s: %w", img.Key(), err)
		}
		return insertPlacement(ctx, tx, model.EntityKindImage, img.Base)
	})
}

// UpdateFileName persists a rename.
func (r *ImageRepository) UpdateFileName(ctx context.Context, img canvas.ImageRef) error {
	n, err := r.gw.Exec(ctx, updateImageSQL, img.FileName, img.NodeID, img.ProjectID, img.RoomID)
	if err != nil {
		return fmt.Errorf("update image %s: %w", img.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("update image %s: %w", img.Key(), ErrNotFound)
	}
	return nil
}

// Delete removes both rows.
func (r *ImageRepository) Delete(ctx context.Context, key canvas.Key) error {
	return r.gw.Transaction(ctx, func(tx store.Gateway) error {
		if _, err := tx.Exec(ctx, deleteImageSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
			return fmt.Errorf("delete image %s: %w", key, err)
		}
		return deletePlacement(ctx, tx, key)
	})
}

// LoadData inline bytes of one image
func (r *ImageRepository) LoadData(ctx context.Context, key canvas.Key) ([]byte, string, error) {
	var rows []imageDataRow
	if err := r.gw.Query(ctx, &rows, loadImageDataSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
		return nil, "", fmt.Errorf("load image data %s: %w", key, err)
	}
	if len(rows) == 0 || len(rows[0].Data) == 0 {
		return nil, "", fmt.Errorf("load image data %s: %w", key, ErrNotFound)
	}
	return rows[0].Data, rows[0].MimeType, nil
}

// LoadAll image metadata joined with placements, without the bytes
func (r *ImageRepository) LoadAll(ctx context.Context) ([]canvas.ImageRef, error) {
	var rows []imageRow
	if err := r.gw.Query(ctx, &rows, loadImagesSQL); err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}

	out := make([]canvas.ImageRef, 0, len(rows))
	for _, row := range rows {
		img := canvas.ImageRef{
			Base: canvas.Base{
				NodeID:    row.NodeID,
				RoomID:    row.RoomID,
				ProjectID: row.ProjectID,
				OwnerID:   row.OwnerID,
				Position:  row.Position.Data(),
				Size:      row.Size.Data(),
			},
			FileName: row.FileName,
			MimeType: row.MimeType,
			Storage:  canvas.ImageInline,
		}
		if row.FilePath != nil && *row.FilePath != "" {
			img.Storage = canvas.ImageStored
			img.FilePath = *row.FilePath
		}
		out = append(out, img)
	}
	return out, nil
}
