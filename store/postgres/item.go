package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
)

// CreateItem persists a new work item together with its creation history
// entry in one transaction.
func (s *Store) CreateItem(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	data, err := marshalData(w.Data)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: create item: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO work_items
				(id, workflow_id, current_step_id, creator_id, assignee_id, data,
				 completed, completed_at, step_entered_at, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			w.ID, w.WorkflowID, w.CurrentStepID, w.CreatorID, w.AssigneeID, data,
			w.Completed, w.CompletedAt, w.StepEnteredAt, w.Version, w.CreatedAt, w.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("metatasks/postgres: create item: %w", err)
		}
		return s.insertHistory(ctx, tx, entry)
	})
}

// GetItem retrieves a work item by ID.
func (s *Store) GetItem(ctx context.Context, itemID id.ItemID) (*item.WorkItem, error) {
	w := new(item.WorkItem)
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, workflow_id, current_step_id, creator_id, assignee_id, data,
		       completed, completed_at, step_entered_at, version, created_at, updated_at
		FROM work_items WHERE id = $1`,
		itemID,
	).Scan(&w.ID, &w.WorkflowID, &w.CurrentStepID, &w.CreatorID, &w.AssigneeID, &data,
		&w.Completed, &w.CompletedAt, &w.StepEnteredAt, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, metatasks.ErrItemNotFound
		}
		return nil, fmt.Errorf("metatasks/postgres: get item: %w", err)
	}
	if w.Data, err = unmarshalData(data); err != nil {
		return nil, fmt.Errorf("metatasks/postgres: get item: %w", err)
	}
	return w, nil
}

// CommitMove atomically persists a moved item and appends its history
// entry. The UPDATE is guarded by the expected version; zero rows
// affected inside the transaction distinguishes a lost race from a
// missing item.
func (s *Store) CommitMove(ctx context.Context, w *item.WorkItem, expectedVersion int64, entry *item.HistoryEntry) error {
	data, err := marshalData(w.Data)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: commit move: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE work_items
			SET current_step_id = $2, assignee_id = $3, data = $4, completed = $5,
			    completed_at = $6, step_entered_at = $7, version = $8, updated_at = $9
			WHERE id = $1 AND version = $10`,
			w.ID, w.CurrentStepID, w.AssigneeID, data, w.Completed,
			w.CompletedAt, w.StepEnteredAt, expectedVersion+1, w.UpdatedAt,
			expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("metatasks/postgres: commit move: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM work_items WHERE id = $1)`, w.ID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("metatasks/postgres: commit move: %w", err)
			}
			if !exists {
				return metatasks.ErrItemNotFound
			}
			return metatasks.ErrVersionConflict
		}
		return s.insertHistory(ctx, tx, entry)
	})
}

// ListHistory returns an item's history entries oldest first.
func (s *Store) ListHistory(ctx context.Context, itemID id.ItemID, opts item.ListOpts) ([]*item.HistoryEntry, error) {
	q := `
		SELECT id, item_id, from_step_id, to_step_id, actor_id, direction, comment, snapshot, created_at
		FROM work_item_history WHERE item_id = $1
		ORDER BY created_at ASC, id ASC`
	args := []any{itemID}
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("metatasks/postgres: list history: %w", err)
	}
	defer rows.Close()

	var out []*item.HistoryEntry
	for rows.Next() {
		e := new(item.HistoryEntry)
		var snapshot []byte
		if err := rows.Scan(&e.ID, &e.ItemID, &e.FromStepID, &e.ToStepID, &e.ActorID,
			&e.Direction, &e.Comment, &snapshot, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("metatasks/postgres: list history scan: %w", err)
		}
		if e.Snapshot, err = unmarshalData(snapshot); err != nil {
			return nil, fmt.Errorf("metatasks/postgres: list history: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metatasks/postgres: list history: %w", err)
	}

	if len(out) == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM work_items WHERE id = $1)`, itemID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("metatasks/postgres: list history: %w", err)
		}
		if !exists {
			return nil, metatasks.ErrItemNotFound
		}
	}
	return out, nil
}

func (s *Store) insertHistory(ctx context.Context, tx pgx.Tx, entry *item.HistoryEntry) error {
	snapshot, err := marshalData(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: insert history: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO work_item_history
			(id, item_id, from_step_id, to_step_id, actor_id, direction, comment, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ItemID, entry.FromStepID, entry.ToStepID, entry.ActorID,
		entry.Direction, entry.Comment, snapshot, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: insert history: %w", err)
	}
	return nil
}
