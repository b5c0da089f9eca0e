// Package ext defines the extension system for MetaTasks. Extensions are
// notified of lifecycle events (item created, transition applied, move
// denied, etc.) and can react to them — audit trails, metrics,
// notifications.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about. Hooks run after commit, outside the
// transaction boundary, fire-and-forget: a hook error is logged, never
// propagated to the caller or allowed to unwind a committed move.
package ext

import (
	"context"

	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ItemCreated is called after a work item and its creation history entry
// commit.
type ItemCreated interface {
	OnItemCreated(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error
}

// TransitionApplied is called after a forward move commits.
type TransitionApplied interface {
	OnTransitionApplied(ctx context.Context, w *item.WorkItem, t *workflow.Transition, entry *item.HistoryEntry) error
}

// MovedBackward is called after a backward move commits.
type MovedBackward interface {
	OnMovedBackward(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) error
}

// MoveDenied is called when a forward or backward move fails validation.
// No mutation has occurred.
type MoveDenied interface {
	OnMoveDenied(ctx context.Context, itemID id.ItemID, actorID id.ActorID, moveErr error) error
}
