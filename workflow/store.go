package workflow

import (
	"context"

	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Store defines the persistence contract for workflow graphs. Graphs are
// rarely-mutated shared configuration; structural edits racing against
// in-flight executions are not auto-detected.
//
// Contract points backends must honor:
//   - CreateTransition returns metatasks.ErrDuplicateTransition when a
//     transition for the same (from, to) pair already exists, and
//     metatasks.ErrInvalidStepPair when the two steps are identical or
//     belong to different workflows.
//   - Step and transition fetches are scoped to a workflow: an ID that
//     exists under another workflow yields not-found.
//   - ListSteps orders by Step.Order; ListTransitionsFrom orders by
//     Transition.Order.
type Store interface {
	// CreateWorkflow persists a new workflow definition.
	CreateWorkflow(ctx context.Context, wf *Workflow) error

	// GetWorkflow retrieves a workflow by ID.
	GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Workflow, error)

	// UpdateWorkflow persists changes to an existing workflow.
	UpdateWorkflow(ctx context.Context, wf *Workflow) error

	// CreateStep persists a new step.
	CreateStep(ctx context.Context, s *Step) error

	// GetStep retrieves a step by ID, scoped to a workflow.
	GetStep(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID) (*Step, error)

	// ListSteps returns a workflow's steps ordered by Order.
	ListSteps(ctx context.Context, workflowID id.WorkflowID) ([]*Step, error)

	// CreateTransition persists a new transition after structural
	// validation.
	CreateTransition(ctx context.Context, t *Transition) error

	// GetTransition retrieves a transition by ID, scoped to a workflow.
	GetTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) (*Transition, error)

	// ListTransitionsFrom returns the outgoing transitions of a step
	// ordered by Order.
	ListTransitionsFrom(ctx context.Context, stepID id.StepID) ([]*Transition, error)

	// DeleteTransition removes a transition, scoped to a workflow.
	DeleteTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) error
}
