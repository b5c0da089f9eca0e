// Package memory provides a fully in-memory store backend. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ workflow.Store = (*Store)(nil)
	_ item.Store     = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	workflows   map[string]*workflow.Workflow
	steps       map[string]*workflow.Step
	transitions map[string]*workflow.Transition
	items       map[string]*item.WorkItem
	history     map[string][]*item.HistoryEntry // key: item ID
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		workflows:   make(map[string]*workflow.Workflow),
		steps:       make(map[string]*workflow.Step),
		transitions: make(map[string]*workflow.Transition),
		items:       make(map[string]*item.WorkItem),
		history:     make(map[string][]*item.HistoryEntry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// CreateWorkflow persists a new workflow definition.
func (m *Store) CreateWorkflow(_ context.Context, wf *workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *wf
	m.workflows[wf.ID.String()] = &cp
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (m *Store) GetWorkflow(_ context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wf, ok := m.workflows[workflowID.String()]
	if !ok {
		return nil, metatasks.ErrWorkflowNotFound
	}
	cp := *wf
	return &cp, nil
}

// UpdateWorkflow persists changes to an existing workflow.
func (m *Store) UpdateWorkflow(_ context.Context, wf *workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[wf.ID.String()]; !ok {
		return metatasks.ErrWorkflowNotFound
	}
	cp := *wf
	m.workflows[wf.ID.String()] = &cp
	return nil
}

// CreateStep persists a new step.
func (m *Store) CreateStep(_ context.Context, s *workflow.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[s.WorkflowID.String()]; !ok {
		return metatasks.ErrWorkflowNotFound
	}
	cp := *s
	m.steps[s.ID.String()] = &cp
	return nil
}

// GetStep retrieves a step by ID, scoped to a workflow.
func (m *Store) GetStep(_ context.Context, workflowID id.WorkflowID, stepID id.StepID) (*workflow.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.steps[stepID.String()]
	if !ok || s.WorkflowID.String() != workflowID.String() {
		return nil, metatasks.ErrStepNotFound
	}
	cp := *s
	return &cp, nil
}

// ListSteps returns a workflow's steps ordered by Order.
func (m *Store) ListSteps(_ context.Context, workflowID id.WorkflowID) ([]*workflow.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*workflow.Step
	for _, s := range m.steps {
		if s.WorkflowID.String() != workflowID.String() {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Order < out[k].Order })
	return out, nil
}

// CreateTransition persists a new transition after structural validation.
func (m *Store) CreateTransition(_ context.Context, t *workflow.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.steps[t.FromStepID.String()]
	if !ok {
		return metatasks.ErrStepNotFound
	}
	to, ok := m.steps[t.ToStepID.String()]
	if !ok {
		return metatasks.ErrStepNotFound
	}
	if err := workflow.ValidateStepPair(from, to); err != nil {
		return err
	}
	for _, existing := range m.transitions {
		if existing.FromStepID.String() == t.FromStepID.String() &&
			existing.ToStepID.String() == t.ToStepID.String() {
			return metatasks.ErrDuplicateTransition
		}
	}

	cp := *t
	m.transitions[t.ID.String()] = &cp
	return nil
}

// GetTransition retrieves a transition by ID, scoped to a workflow.
func (m *Store) GetTransition(_ context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) (*workflow.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transitions[transitionID.String()]
	if !ok || t.WorkflowID.String() != workflowID.String() {
		return nil, metatasks.ErrTransitionNotFound
	}
	cp := *t
	return &cp, nil
}

// ListTransitionsFrom returns the outgoing transitions of a step ordered
// by Order.
func (m *Store) ListTransitionsFrom(_ context.Context, stepID id.StepID) ([]*workflow.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*workflow.Transition
	for _, t := range m.transitions {
		if t.FromStepID.String() != stepID.String() {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Order < out[k].Order })
	return out, nil
}

// DeleteTransition removes a transition, scoped to a workflow.
func (m *Store) DeleteTransition(_ context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[transitionID.String()]
	if !ok || t.WorkflowID.String() != workflowID.String() {
		return metatasks.ErrTransitionNotFound
	}
	delete(m.transitions, transitionID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Item Store
// ──────────────────────────────────────────────────

// CreateItem persists a new work item together with its creation history
// entry.
func (m *Store) CreateItem(_ context.Context, w *item.WorkItem, entry *item.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workflows[w.WorkflowID.String()]; !ok {
		return metatasks.ErrWorkflowNotFound
	}

	key := w.ID.String()
	cp := copyItem(w)
	m.items[key] = cp
	m.history[key] = append(m.history[key], copyEntry(entry))
	return nil
}

// GetItem retrieves a work item by ID.
func (m *Store) GetItem(_ context.Context, itemID id.ItemID) (*item.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.items[itemID.String()]
	if !ok {
		return nil, metatasks.ErrItemNotFound
	}
	return copyItem(w), nil
}

// CommitMove atomically persists a moved item and appends its history
// entry, guarded by the optimistic version check.
func (m *Store) CommitMove(_ context.Context, w *item.WorkItem, expectedVersion int64, entry *item.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := w.ID.String()
	stored, ok := m.items[key]
	if !ok {
		return metatasks.ErrItemNotFound
	}
	if stored.Version != expectedVersion {
		return metatasks.ErrVersionConflict
	}

	cp := copyItem(w)
	cp.Version = expectedVersion + 1
	m.items[key] = cp
	m.history[key] = append(m.history[key], copyEntry(entry))
	return nil
}

// ListHistory returns an item's history entries oldest first.
func (m *Store) ListHistory(_ context.Context, itemID id.ItemID, opts item.ListOpts) ([]*item.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, ok := m.history[itemID.String()]
	if !ok {
		if _, exists := m.items[itemID.String()]; !exists {
			return nil, metatasks.ErrItemNotFound
		}
		return nil, nil
	}

	// Entries are appended per move, so insertion order is creation order.
	out := make([]*item.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, copyEntry(e))
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// copyItem returns a deep copy so callers can mutate without racing with
// the store.
func copyItem(w *item.WorkItem) *item.WorkItem {
	cp := *w
	cp.Data = item.CloneData(w.Data)
	if w.CompletedAt != nil {
		t := *w.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func copyEntry(e *item.HistoryEntry) *item.HistoryEntry {
	cp := *e
	cp.Snapshot = item.CloneData(e.Snapshot)
	return &cp
}
