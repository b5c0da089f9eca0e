package ext

import (
	"context"
	"log/slog"

	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type itemCreatedEntry struct {
	name string
	hook ItemCreated
}

type transitionAppliedEntry struct {
	name string
	hook TransitionApplied
}

type movedBackwardEntry struct {
	name string
	hook MovedBackward
}

type moveDeniedEntry struct {
	name string
	hook MoveDenied
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	itemCreated       []itemCreatedEntry
	transitionApplied []transitionAppliedEntry
	movedBackward     []movedBackwardEntry
	moveDenied        []moveDeniedEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(ItemCreated); ok {
		r.itemCreated = append(r.itemCreated, itemCreatedEntry{name, h})
	}
	if h, ok := e.(TransitionApplied); ok {
		r.transitionApplied = append(r.transitionApplied, transitionAppliedEntry{name, h})
	}
	if h, ok := e.(MovedBackward); ok {
		r.movedBackward = append(r.movedBackward, movedBackwardEntry{name, h})
	}
	if h, ok := e.(MoveDenied); ok {
		r.moveDenied = append(r.moveDenied, moveDeniedEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitItemCreated notifies all extensions that implement ItemCreated.
func (r *Registry) EmitItemCreated(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) {
	for _, e := range r.itemCreated {
		if err := e.hook.OnItemCreated(ctx, w, entry); err != nil {
			r.logHookError("OnItemCreated", e.name, err)
		}
	}
}

// EmitTransitionApplied notifies all extensions that implement
// TransitionApplied.
func (r *Registry) EmitTransitionApplied(ctx context.Context, w *item.WorkItem, t *workflow.Transition, entry *item.HistoryEntry) {
	for _, e := range r.transitionApplied {
		if err := e.hook.OnTransitionApplied(ctx, w, t, entry); err != nil {
			r.logHookError("OnTransitionApplied", e.name, err)
		}
	}
}

// EmitMovedBackward notifies all extensions that implement MovedBackward.
func (r *Registry) EmitMovedBackward(ctx context.Context, w *item.WorkItem, entry *item.HistoryEntry) {
	for _, e := range r.movedBackward {
		if err := e.hook.OnMovedBackward(ctx, w, entry); err != nil {
			r.logHookError("OnMovedBackward", e.name, err)
		}
	}
}

// EmitMoveDenied notifies all extensions that implement MoveDenied.
func (r *Registry) EmitMoveDenied(ctx context.Context, itemID id.ItemID, actorID id.ActorID, moveErr error) {
	for _, e := range r.moveDenied {
		if err := e.hook.OnMoveDenied(ctx, itemID, actorID, moveErr); err != nil {
			r.logHookError("OnMoveDenied", e.name, err)
		}
	}
}

func (r *Registry) logHookError(hook, extension string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extension),
		slog.String("error", err.Error()),
	)
}
