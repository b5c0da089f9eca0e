package postgres

import (
	"context"
	"fmt"
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// CreateWorkflow persists a new workflow definition.
func (s *Store) CreateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	cfg, err := marshalFieldConfig(wf.FieldConfig)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: create workflow: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflows (id, org_id, name, description, field_config, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		wf.ID, wf.OrgID, wf.Name, wf.Description, cfg, wf.Active, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: create workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	wf := new(workflow.Workflow)
	var cfg []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, org_id, name, description, field_config, active, created_at, updated_at
		FROM workflows WHERE id = $1`,
		workflowID,
	).Scan(&wf.ID, &wf.OrgID, &wf.Name, &wf.Description, &cfg, &wf.Active, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, metatasks.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("metatasks/postgres: get workflow: %w", err)
	}
	if err := unmarshalFieldConfig(cfg, &wf.FieldConfig); err != nil {
		return nil, fmt.Errorf("metatasks/postgres: get workflow: %w", err)
	}
	return wf, nil
}

// UpdateWorkflow persists changes to an existing workflow.
func (s *Store) UpdateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	cfg, err := marshalFieldConfig(wf.FieldConfig)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: update workflow: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE workflows
		SET name = $2, description = $3, field_config = $4, active = $5, updated_at = $6
		WHERE id = $1`,
		wf.ID, wf.Name, wf.Description, cfg, wf.Active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return metatasks.ErrWorkflowNotFound
	}
	return nil
}

// CreateStep persists a new step.
func (s *Store) CreateStep(ctx context.Context, st *workflow.Step) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workflow_steps
			(id, workflow_id, name, description, step_order, assigned_team_id,
			 requires_booking, estimated_duration_hours, terminal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			step_order = EXCLUDED.step_order,
			assigned_team_id = EXCLUDED.assigned_team_id,
			requires_booking = EXCLUDED.requires_booking,
			estimated_duration_hours = EXCLUDED.estimated_duration_hours,
			terminal = EXCLUDED.terminal,
			updated_at = EXCLUDED.updated_at`,
		st.ID, st.WorkflowID, st.Name, st.Description, st.Order, st.AssignedTeamID,
		st.RequiresBooking, st.EstimatedDurationHours, st.Terminal, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: create step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID, scoped to a workflow.
func (s *Store) GetStep(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID) (*workflow.Step, error) {
	st := new(workflow.Step)
	err := s.pool.QueryRow(ctx, `
		SELECT id, workflow_id, name, description, step_order, assigned_team_id,
		       requires_booking, estimated_duration_hours, terminal, created_at, updated_at
		FROM workflow_steps WHERE id = $1 AND workflow_id = $2`,
		stepID, workflowID,
	).Scan(&st.ID, &st.WorkflowID, &st.Name, &st.Description, &st.Order, &st.AssignedTeamID,
		&st.RequiresBooking, &st.EstimatedDurationHours, &st.Terminal, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, metatasks.ErrStepNotFound
		}
		return nil, fmt.Errorf("metatasks/postgres: get step: %w", err)
	}
	return st, nil
}

// ListSteps returns a workflow's steps ordered by Order.
func (s *Store) ListSteps(ctx context.Context, workflowID id.WorkflowID) ([]*workflow.Step, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workflow_id, name, description, step_order, assigned_team_id,
		       requires_booking, estimated_duration_hours, terminal, created_at, updated_at
		FROM workflow_steps WHERE workflow_id = $1
		ORDER BY step_order ASC`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("metatasks/postgres: list steps: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Step
	for rows.Next() {
		st := new(workflow.Step)
		if err := rows.Scan(&st.ID, &st.WorkflowID, &st.Name, &st.Description, &st.Order,
			&st.AssignedTeamID, &st.RequiresBooking, &st.EstimatedDurationHours, &st.Terminal,
			&st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("metatasks/postgres: list steps scan: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateTransition persists a new transition after structural validation.
func (s *Store) CreateTransition(ctx context.Context, t *workflow.Transition) error {
	from, err := s.GetStep(ctx, t.WorkflowID, t.FromStepID)
	if err != nil {
		return err
	}
	to, err := s.GetStep(ctx, t.WorkflowID, t.ToStepID)
	if err != nil {
		return err
	}
	if err := workflow.ValidateStepPair(from, to); err != nil {
		return err
	}

	cond, err := marshalCondition(t.Condition)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: create transition: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO workflow_transitions
			(id, workflow_id, from_step_id, to_step_id, label, description, color, icon,
			 requires_confirmation, confirmation_message, requires_comment, comment_prompt,
			 auto_assign_to_step_team, permission_level, condition, transition_order, active,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		t.ID, t.WorkflowID, t.FromStepID, t.ToStepID, t.Label, t.Description, t.Color, t.Icon,
		t.RequiresConfirmation, t.ConfirmationMessage, t.RequiresComment, t.CommentPrompt,
		t.AutoAssignToStepTeam, t.PermissionLevel, cond, t.Order, t.Active,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return metatasks.ErrDuplicateTransition
		}
		return fmt.Errorf("metatasks/postgres: create transition: %w", err)
	}
	return nil
}

// GetTransition retrieves a transition by ID, scoped to a workflow.
func (s *Store) GetTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) (*workflow.Transition, error) {
	t := new(workflow.Transition)
	var cond []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, workflow_id, from_step_id, to_step_id, label, description, color, icon,
		       requires_confirmation, confirmation_message, requires_comment, comment_prompt,
		       auto_assign_to_step_team, permission_level, condition, transition_order, active,
		       created_at, updated_at
		FROM workflow_transitions WHERE id = $1 AND workflow_id = $2`,
		transitionID, workflowID,
	).Scan(&t.ID, &t.WorkflowID, &t.FromStepID, &t.ToStepID, &t.Label, &t.Description, &t.Color,
		&t.Icon, &t.RequiresConfirmation, &t.ConfirmationMessage, &t.RequiresComment,
		&t.CommentPrompt, &t.AutoAssignToStepTeam, &t.PermissionLevel, &cond, &t.Order,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, metatasks.ErrTransitionNotFound
		}
		return nil, fmt.Errorf("metatasks/postgres: get transition: %w", err)
	}
	if t.Condition, err = unmarshalCondition(cond); err != nil {
		return nil, fmt.Errorf("metatasks/postgres: get transition: %w", err)
	}
	return t, nil
}

// ListTransitionsFrom returns the outgoing transitions of a step ordered
// by Order.
func (s *Store) ListTransitionsFrom(ctx context.Context, stepID id.StepID) ([]*workflow.Transition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, workflow_id, from_step_id, to_step_id, label, description, color, icon,
		       requires_confirmation, confirmation_message, requires_comment, comment_prompt,
		       auto_assign_to_step_team, permission_level, condition, transition_order, active,
		       created_at, updated_at
		FROM workflow_transitions WHERE from_step_id = $1
		ORDER BY transition_order ASC`,
		stepID,
	)
	if err != nil {
		return nil, fmt.Errorf("metatasks/postgres: list transitions: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Transition
	for rows.Next() {
		t := new(workflow.Transition)
		var cond []byte
		if err := rows.Scan(&t.ID, &t.WorkflowID, &t.FromStepID, &t.ToStepID, &t.Label,
			&t.Description, &t.Color, &t.Icon, &t.RequiresConfirmation, &t.ConfirmationMessage,
			&t.RequiresComment, &t.CommentPrompt, &t.AutoAssignToStepTeam, &t.PermissionLevel,
			&cond, &t.Order, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("metatasks/postgres: list transitions scan: %w", err)
		}
		if t.Condition, err = unmarshalCondition(cond); err != nil {
			return nil, fmt.Errorf("metatasks/postgres: list transitions: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransition removes a transition, scoped to a workflow.
func (s *Store) DeleteTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM workflow_transitions WHERE id = $1 AND workflow_id = $2`,
		transitionID, workflowID,
	)
	if err != nil {
		return fmt.Errorf("metatasks/postgres: delete transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return metatasks.ErrTransitionNotFound
	}
	return nil
}
