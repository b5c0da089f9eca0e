package executor

import (
	"context"
	"fmt"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/scope"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// CreateRequest carries the inputs for a new work item.
type CreateRequest struct {
	// Data is the item's initial data contract. It is validated against
	// the workflow's resolved field plan.
	Data map[string]any

	// AssigneeID optionally assigns the item at creation.
	AssigneeID id.ActorID
}

// CreateItem creates a work item on the workflow's entry step (the
// lowest-order step) and writes its creation history entry. The entry has
// a Nil from-step: history records arrivals, and creation is the first
// arrival.
func (e *Executor) CreateItem(ctx context.Context, act *actor.Actor, workflowID id.WorkflowID, req CreateRequest) (*item.WorkItem, error) {
	ctx = scope.With(ctx, act.ID, act.OrgID)

	wf, err := e.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	data := item.CloneData(req.Data)
	if err := wf.FieldPlan().ValidateData(data); err != nil {
		return nil, err
	}

	entry, err := e.entryStep(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	w := &item.WorkItem{
		Entity:        metatasks.NewEntity(),
		ID:            id.NewItemID(),
		WorkflowID:    workflowID,
		CurrentStepID: entry.ID,
		CreatorID:     act.ID,
		AssigneeID:    req.AssigneeID,
		Data:          data,
		StepEnteredAt: now,
		Version:       1,
	}
	if entry.Terminal {
		w.Completed = true
		w.CompletedAt = &now
	}

	hist := &item.HistoryEntry{
		ID:        id.NewHistoryID(),
		ItemID:    w.ID,
		ToStepID:  entry.ID,
		ActorID:   act.ID,
		Direction: item.DirectionForward,
		Snapshot:  w.SnapshotData(),
		CreatedAt: now,
	}

	if err := e.items.CreateItem(ctx, w, hist); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "work item created",
		"item_id", w.ID.String(),
		"workflow_id", workflowID.String(),
		"step_id", entry.ID.String(),
		"actor_id", act.ID.String())

	e.exts.EmitItemCreated(ctx, w, hist)
	return w, nil
}

// entryStep returns the workflow's lowest-order step.
func (e *Executor) entryStep(ctx context.Context, workflowID id.WorkflowID) (*workflow.Step, error) {
	steps, err := e.workflows.ListSteps(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: workflow %s has no steps", metatasks.ErrStepNotFound, workflowID)
	}
	return steps[0], nil
}
