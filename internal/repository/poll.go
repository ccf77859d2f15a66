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
	insertPollSQL = `INSERT INTO polls (node_id, project_id, room_id, owner_id, title,
	choice1, choice2, choice3, choice4, count1, count2, count3, count4, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, ?)`
	updatePollSQL = `UPDATE polls SET title = ?, choice1 = ?, choice2 = ?, choice3 = ?, choice4 = ?
WHERE node_id = ? AND project_id = ? AND room_id = ?`
	updatePollCountsSQL = `UPDATE polls SET count1 = ?, count2 = ?, count3 = ?, count4 = ?
WHERE node_id = ? AND project_id = ? AND room_id = ?`
	deletePollSQL    = `DELETE FROM polls WHERE node_id = ? AND project_id = ? AND room_id = ?`
	deleteBallotsSQL = `DELETE FROM poll_ballots WHERE node_id = ? AND project_id = ? AND room_id = ?`
	upsertBallotSQL  = `INSERT INTO poll_ballots (node_id, project_id, room_id, user_id, slot, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (node_id, project_id, room_id, user_id) DO UPDATE SET slot = excluded.slot, updated_at = excluded.updated_at`
	countBallotsSQL = `SELECT slot, COUNT(*) AS votes FROM poll_ballots
WHERE node_id = ? AND project_id = ? AND room_id = ?
GROUP BY slot`
	loadPollsSQL = `SELECT v.node_id, v.project_id, v.room_id, v.owner_id, v.title,
	v.choice1, v.choice2, v.choice3, v.choice4, p.position, p.size
FROM polls v
JOIN placements p ON p.node_id = v.node_id AND p.project_id = v.project_id AND p.room_id = v.room_id`
	loadBallotsSQL = `SELECT node_id, project_id, room_id, user_id, slot FROM poll_ballots`
)

type pollRow struct {
	NodeID    string    `gorm:"column:node_id"`
	ProjectID string    `gorm:"column:project_id"`
	RoomID    string    `gorm:"column:room_id"`
	OwnerID   string    `gorm:"column:owner_id"`
	Title     string    `gorm:"column:title"`
	Choice1   string    `gorm:"column:choice1"`
	Choice2   string    `gorm:"column:choice2"`
	Choice3   string    `gorm:"column:choice3"`
	Choice4   string    `gorm:"column:choice4"`
	Position  jsonPoint `gorm:"column:position"`
	Size      jsonSize  `gorm:"column:size"`
}

type ballotRow struct {
	NodeID    string `gorm:"column:node_id"`
	ProjectID string `gorm:"column:project_id"`
	RoomID    string `gorm:"column:room_id"`
	UserID    string `gorm:"column:user_id"`
	Slot      int    `gorm:"column:slot"`
}

type slotCount struct {
	Slot  int   `gorm:"column:slot"`
	Votes int64 `gorm:"column:votes"`
}

// PollRepository polls + poll_ballots + placements
type PollRepository struct {
	gw store.Gateway
}

func NewPollRepository(gw store.Gateway) *PollRepository {
	return &PollRepository{gw: gw}
}

func labels(p canvas.Poll) [canvas.MaxChoices]string {
	var out [canvas.MaxChoices]string
	for i, c := range p.Choices {
		out[i] = c.Label
	}
	return out
}

// Create writes the poll row and its placement in one transaction.
func (r *PollRepository) Create(ctx context.Context, p canvas.Poll) error {
	l := labels(p)
	return r.gw.Transaction(ctx, func(tx store.Gateway) error {
		if _, err := tx.Exec(ctx, insertPollSQL,
			p.NodeID, p.ProjectID, p.RoomID, p.OwnerID, p.Title,
			l[0], l[1], l[2], l[3], time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("insert poll %s: %w", p.Key(), err)
		}
		return insertPlacement(ctx, tx, model.EntityKindPoll, p.Base)
	})
}

// UpdateContent persists title and labels.
func (r *PollRepository) UpdateContent(ctx context.Context, p canvas.Poll) error {
	l := labels(p)
	n, err := r.gw.Exec(ctx, updatePollSQL, p.Title, l[0], l[1], l[2], l[3], p.NodeID, p.ProjectID, p.RoomID)
	if err != nil {
		return fmt.Errorf("update poll %s: %w", p.Key(), err)
	}
	if n == 0 {
		return fmt.Errorf("update poll %s: %w", p.Key(), ErrNotFound)
	}
	return nil
}

// Delete removes the poll, its ballots and its placement.
func (r *PollRepository) Delete(ctx context.Context, key canvas.Key) error {
	return r.gw.Transaction(ctx, func(tx store.Gateway) error {
		if _, err := tx.Exec(ctx, deleteBallotsSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
			return fmt.Errorf("delete ballots %s: %w", key, err)
		}
		if _, err := tx.Exec(ctx, deletePollSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
			return fmt.Errorf("delete poll %s: %w", key, err)
		}
		return deletePlacement(ctx, tx, key)
	})
}

// UpsertBallot records or replaces the user's single ballot.
func (r *PollRepository) UpsertBallot(ctx context.Context, key canvas.Key, userID string, slot int) error {
	if !canvas.ValidSlot(slot) {
		return fmt.Errorf("ballot slot %d out of range", slot)
	}
	if _, err := r.gw.Exec(ctx, upsertBallotSQL,
		key.NodeID, key.ProjectID, key.RoomID, userID, slot, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("upsert ballot %s/%s: %w", key, userID, err)
	}
	return nil
}

// CountBallots recomputes the per-slot counts from the ballot rows.
func (r *PollRepository) CountBallots(ctx context.Context, key canvas.Key) ([canvas.MaxChoices]int, error) {
	var counts [canvas.MaxChoices]int

	var rows []slotCount
	if err := r.gw.Query(ctx, &rows, countBallotsSQL, key.NodeID, key.ProjectID, key.RoomID); err != nil {
		return counts, fmt.Errorf("count ballots %s: %w", key, err)
	}
	for _, row := range rows {
		if canvas.ValidSlot(row.Slot) {
			counts[row.Slot-1] = int(row.Votes)
		}
	}
	return counts, nil
}

// SaveCounts writes the denormalized counts back to the poll row.
func (r *PollRepository) SaveCounts(ctx context.Context, key canvas.Key, counts [canvas.MaxChoices]int) error {
	if _, err := r.gw.Exec(ctx, updatePollCountsSQL,
		counts[0], counts[1], counts[2], counts[3], key.NodeID, key.ProjectID, key.RoomID,
	); err != nil {
		return fmt.Errorf("save counts %s: %w", key, err)
	}
	return nil
}

// LoadAll every poll with its ballots; counts are derived from the ballots.
func (r *PollRepository) LoadAll(ctx context.Context) ([]canvas.Poll, error) {
	var rows []pollRow
	if err := r.gw.Query(ctx, &rows, loadPollsSQL); err != nil {
		return nil, fmt.Errorf("load polls: %w", err)
	}
	var ballots []ballotRow
	if err := r.gw.Query(ctx, &ballots, loadBallotsSQL); err != nil {
		return nil, fmt.Errorf("load ballots: %w", err)
	}

	byPoll := make(map[canvas.Key]map[string]int)
	for _, b := range ballots {
		key := canvas.Key{NodeID: b.NodeID, RoomID: b.RoomID, ProjectID: b.ProjectID}
		if byPoll[key] == nil {
			byPoll[key] = make(map[string]int)
		}
		byPoll[key][b.UserID] = b.Slot
	}

	out := make([]canvas.Poll, 0, len(rows))
	for _, row := range rows {
		p := canvas.Poll{
			Base: canvas.Base{
				NodeID:    row.NodeID,
				RoomID:    row.RoomID,
				ProjectID: row.ProjectID,
				OwnerID:   row.OwnerID,
				Position:  row.Position.Data(),
				Size:      row.Size.Data(),
			},
			Title:   row.Title,
			Ballots: byPoll[canvas.Key{NodeID: row.NodeID, RoomID: row.RoomID, ProjectID: row.ProjectID}],
		}
		if p.Ballots == nil {
			p.Ballots = make(map[string]int)
		}
		p.SetLabels([]string{row.Choice1, row.Choice2, row.Choice3, row.Choice4})
		p.SetCounts(p.Tally())
		out = append(out, p)
	}
	return out, nil
}
