package workflow

import (
	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Step is one named stage in a workflow's state graph.
type Step struct {
	metatasks.Entity

	ID          id.StepID     `json:"id"`
	WorkflowID  id.WorkflowID `json:"workflow_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`

	// Order positions the step within the workflow. The lowest-order step
	// is the workflow's entry step.
	Order int `json:"order"`

	// AssignedTeamID is the team responsible for items on this step.
	// Nil when no team is assigned.
	AssignedTeamID id.TeamID `json:"assigned_team_id,omitempty"`

	// RequiresBooking gates arrival at this step on the external
	// booking/capacity collaborator.
	RequiresBooking bool `json:"requires_booking"`

	// EstimatedDurationHours is advisory step duration metadata.
	EstimatedDurationHours float64 `json:"estimated_duration_hours,omitempty"`

	// Terminal marks a completion step. A work item sitting on a terminal
	// step is completed.
	Terminal bool `json:"terminal"`
}

// NewStep creates a step in the given workflow at the given order.
func NewStep(workflowID id.WorkflowID, name string, order int) *Step {
	return &Step{
		Entity:     metatasks.NewEntity(),
		ID:         id.NewStepID(),
		WorkflowID: workflowID,
		Name:       name,
		Order:      order,
	}
}
