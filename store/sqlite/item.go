package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
)

// CreateItem persists a new work item together with its creation history
// entry in one transaction.
func (s *Store) CreateItem(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	data, err := marshalData(w.Data)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: create item: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: create item: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_items
			(id, workflow_id, current_step_id, creator_id, assignee_id, data,
			 completed, completed_at, step_entered_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.WorkflowID, w.CurrentStepID, w.CreatorID, w.AssigneeID, data,
		w.Completed, formatTimePtr(w.CompletedAt), w.StepEnteredAt.Format(time.RFC3339Nano),
		w.Version, w.CreatedAt.Format(time.RFC3339Nano), w.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: create item: %w", err)
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// GetItem retrieves a work item by ID.
func (s *Store) GetItem(ctx context.Context, itemID id.ItemID) (*item.WorkItem, error) {
	w := new(item.WorkItem)
	var data, entered, created, updated string
	var completedAt *string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, current_step_id, creator_id, assignee_id, data,
		       completed, completed_at, step_entered_at, version, created_at, updated_at
		FROM work_items WHERE id = ?`,
		itemID,
	).Scan(&w.ID, &w.WorkflowID, &w.CurrentStepID, &w.CreatorID, &w.AssigneeID, &data,
		&w.Completed, &completedAt, &entered, &w.Version, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metatasks.ErrItemNotFound
		}
		return nil, fmt.Errorf("metatasks/sqlite: get item: %w", err)
	}

	if w.Data, err = unmarshalData(data); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: get item: %w", err)
	}
	if w.StepEnteredAt, err = time.Parse(time.RFC3339Nano, entered); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: get item: %w", err)
	}
	if w.CompletedAt, err = parseTimePtr(completedAt); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: get item: %w", err)
	}
	if w.CreatedAt, w.UpdatedAt, err = parseTimes(created, updated); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: get item: %w", err)
	}
	return w, nil
}

// CommitMove atomically persists a moved item and appends its history
// entry, guarded by the optimistic version check.
func (s *Store) CommitMove(ctx context.Context, w *item.WorkItem, expectedVersion int64, entry *item.HistoryEntry) error {
	data, err := marshalData(w.Data)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: commit move: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: commit move: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `
		UPDATE work_items
		SET current_step_id = ?, assignee_id = ?, data = ?, completed = ?,
		    completed_at = ?, step_entered_at = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		w.CurrentStepID, w.AssigneeID, data, w.Completed,
		formatTimePtr(w.CompletedAt), w.StepEnteredAt.Format(time.RFC3339Nano),
		expectedVersion+1, w.UpdatedAt.Format(time.RFC3339Nano),
		w.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: commit move: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM work_items WHERE id = ?)`, w.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("metatasks/sqlite: commit move: %w", err)
		}
		if !exists {
			return metatasks.ErrItemNotFound
		}
		return metatasks.ErrVersionConflict
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// ListHistory returns an item's history entries oldest first.
func (s *Store) ListHistory(ctx context.Context, itemID id.ItemID, opts item.ListOpts) ([]*item.HistoryEntry, error) {
	q := `
		SELECT id, item_id, from_step_id, to_step_id, actor_id, direction, comment, snapshot, created_at
		FROM work_item_history WHERE item_id = ?
		ORDER BY seq ASC`
	args := []any{itemID}
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			q += " LIMIT -1"
		}
		q += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: list history: %w", err)
	}
	defer rows.Close()

	var out []*item.HistoryEntry
	for rows.Next() {
		e := new(item.HistoryEntry)
		var snapshot, created string
		if err := rows.Scan(&e.ID, &e.ItemID, &e.FromStepID, &e.ToStepID, &e.ActorID,
			&e.Direction, &e.Comment, &snapshot, &created); err != nil {
			return nil, fmt.Errorf("metatasks/sqlite: list history scan: %w", err)
		}
		if e.Snapshot, err = unmarshalData(snapshot); err != nil {
			return nil, fmt.Errorf("metatasks/sqlite: list history: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("metatasks/sqlite: list history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: list history: %w", err)
	}

	if len(out) == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM work_items WHERE id = ?)`, itemID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("metatasks/sqlite: list history: %w", err)
		}
		if !exists {
			return nil, metatasks.ErrItemNotFound
		}
	}
	return out, nil
}

// insertHistory appends one entry, numbering it after the item's existing
// entries. The seq column carries the per-item order; text timestamps
// are too coarse to sort on.
func insertHistory(ctx context.Context, tx *sql.Tx, entry *item.HistoryEntry) error {
	snapshot, err := marshalData(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: insert history: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_item_history
			(id, item_id, seq, from_step_id, to_step_id, actor_id, direction, comment, snapshot, created_at)
		VALUES (?, ?,
			(SELECT COUNT(*) FROM work_item_history WHERE item_id = ?),
			?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ItemID, entry.ItemID, entry.FromStepID, entry.ToStepID,
		entry.ActorID, entry.Direction, entry.Comment, snapshot,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: insert history: %w", err)
	}
	return nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, fmt.Errorf("parse time: %w", err)
	}
	return &t, nil
}
