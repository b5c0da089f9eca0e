package item

import (
	"context"

	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// ListOpts controls pagination for history listings.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no
	// limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
}

// Store defines the persistence contract for work items and their
// history.
//
// Contract points backends must honor:
//   - CreateItem persists the item and its creation history entry as one
//     atomic unit.
//   - CommitMove persists the mutated item and appends the history entry
//     atomically, but only if the stored item still carries
//     expectedVersion; otherwise it returns metatasks.ErrVersionConflict
//     and writes nothing. The committed item's Version is
//     expectedVersion+1.
//   - ListHistory orders entries by creation time ascending — the strict
//     per-item order of moves.
type Store interface {
	// CreateItem persists a new work item together with its creation
	// history entry.
	CreateItem(ctx context.Context, w *WorkItem, entry *HistoryEntry) error

	// GetItem retrieves a work item by ID.
	GetItem(ctx context.Context, itemID id.ItemID) (*WorkItem, error)

	// CommitMove atomically persists a moved item and appends its history
	// entry, guarded by the optimistic version check.
	CommitMove(ctx context.Context, w *WorkItem, expectedVersion int64, entry *HistoryEntry) error

	// ListHistory returns an item's history entries oldest first.
	ListHistory(ctx context.Context, itemID id.ItemID, opts ListOpts) ([]*HistoryEntry, error)
}
