package workflow

import (
	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/field"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Workflow is an organization-scoped workflow definition.
type Workflow struct {
	metatasks.Entity

	ID          id.WorkflowID `json:"id"`
	OrgID       id.OrgID      `json:"org_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`

	// FieldConfig holds per-field overrides of the standard work item
	// fields. Read it only through field.Resolve.
	FieldConfig field.Config `json:"field_config"`

	Active bool `json:"active"`
}

// New creates an active workflow for the given organization.
func New(orgID id.OrgID, name string) *Workflow {
	return &Workflow{
		Entity: metatasks.NewEntity(),
		ID:     id.NewWorkflowID(),
		OrgID:  orgID,
		Name:   name,
		Active: true,
	}
}

// FieldPlan resolves the workflow's field configuration against the
// defaults.
func (w *Workflow) FieldPlan() field.Plan {
	return field.Resolve(w.FieldConfig)
}
