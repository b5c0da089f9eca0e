package sqlite

import (
	"context"
	"database/sql"
	"errors"
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
		return fmt.Errorf("metatasks/sqlite: create workflow: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, org_id, name, description, field_config, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.OrgID, wf.Name, wf.Description, cfg, wf.Active,
		wf.CreatedAt.Format(time.RFC3339Nano), wf.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: create workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	wf := new(workflow.Workflow)
	var cfg, created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, description, field_config, active, created_at, updated_at
		FROM workflows WHERE id = ?`,
		workflowID,
	).Scan(&wf.ID, &wf.OrgID, &wf.Name, &wf.Description, &cfg, &wf.Active, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metatasks.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("metatasks/sqlite: get workflow: %w", err)
	}
	if err := unmarshalFieldConfig(cfg, &wf.FieldConfig); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: get workflow: %w", err)
	}
	if wf.CreatedAt, wf.UpdatedAt, err = parseTimes(created, updated); err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: get workflow: %w", err)
	}
	return wf, nil
}

// UpdateWorkflow persists changes to an existing workflow.
func (s *Store) UpdateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	cfg, err := marshalFieldConfig(wf.FieldConfig)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: update workflow: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE workflows SET name = ?, description = ?, field_config = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		wf.Name, wf.Description, cfg, wf.Active,
		time.Now().UTC().Format(time.RFC3339Nano), wf.ID,
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: update workflow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return metatasks.ErrWorkflowNotFound
	}
	return nil
}

// CreateStep persists a new step, replacing an existing row with the same
// ID.
func (s *Store) CreateStep(ctx context.Context, st *workflow.Step) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_steps
			(id, workflow_id, name, description, step_order, assigned_team_id,
			 requires_booking, estimated_duration_hours, terminal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			step_order = excluded.step_order,
			assigned_team_id = excluded.assigned_team_id,
			requires_booking = excluded.requires_booking,
			estimated_duration_hours = excluded.estimated_duration_hours,
			terminal = excluded.terminal,
			updated_at = excluded.updated_at`,
		st.ID, st.WorkflowID, st.Name, st.Description, st.Order, st.AssignedTeamID,
		st.RequiresBooking, st.EstimatedDurationHours, st.Terminal,
		st.CreatedAt.Format(time.RFC3339Nano), st.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: create step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID, scoped to a workflow.
func (s *Store) GetStep(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID) (*workflow.Step, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, name, description, step_order, assigned_team_id,
		       requires_booking, estimated_duration_hours, terminal, created_at, updated_at
		FROM workflow_steps WHERE id = ? AND workflow_id = ?`,
		stepID, workflowID,
	)
	st, err := scanStep(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metatasks.ErrStepNotFound
		}
		return nil, fmt.Errorf("metatasks/sqlite: get step: %w", err)
	}
	return st, nil
}

// ListSteps returns a workflow's steps ordered by Order.
func (s *Store) ListSteps(ctx context.Context, workflowID id.WorkflowID) ([]*workflow.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, name, description, step_order, assigned_team_id,
		       requires_booking, estimated_duration_hours, terminal, created_at, updated_at
		FROM workflow_steps WHERE workflow_id = ?
		ORDER BY step_order ASC`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: list steps: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Step
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("metatasks/sqlite: list steps scan: %w", err)
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
		return fmt.Errorf("metatasks/sqlite: create transition: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_transitions
			(id, workflow_id, from_step_id, to_step_id, label, description, color, icon,
			 requires_confirmation, confirmation_message, requires_comment, comment_prompt,
			 auto_assign_to_step_team, permission_level, condition, transition_order, active,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkflowID, t.FromStepID, t.ToStepID, t.Label, t.Description, t.Color, t.Icon,
		t.RequiresConfirmation, t.ConfirmationMessage, t.RequiresComment, t.CommentPrompt,
		t.AutoAssignToStepTeam, t.PermissionLevel, cond, t.Order, t.Active,
		t.CreatedAt.Format(time.RFC3339Nano), t.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return metatasks.ErrDuplicateTransition
		}
		return fmt.Errorf("metatasks/sqlite: create transition: %w", err)
	}
	return nil
}

// GetTransition retrieves a transition by ID, scoped to a workflow.
func (s *Store) GetTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) (*workflow.Transition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, from_step_id, to_step_id, label, description, color, icon,
		       requires_confirmation, confirmation_message, requires_comment, comment_prompt,
		       auto_assign_to_step_team, permission_level, condition, transition_order, active,
		       created_at, updated_at
		FROM workflow_transitions WHERE id = ? AND workflow_id = ?`,
		transitionID, workflowID,
	)
	t, err := scanTransition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metatasks.ErrTransitionNotFound
		}
		return nil, fmt.Errorf("metatasks/sqlite: get transition: %w", err)
	}
	return t, nil
}

// ListTransitionsFrom returns the outgoing transitions of a step ordered
// by Order.
func (s *Store) ListTransitionsFrom(ctx context.Context, stepID id.StepID) ([]*workflow.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, from_step_id, to_step_id, label, description, color, icon,
		       requires_confirmation, confirmation_message, requires_comment, comment_prompt,
		       auto_assign_to_step_team, permission_level, condition, transition_order, active,
		       created_at, updated_at
		FROM workflow_transitions WHERE from_step_id = ?
		ORDER BY transition_order ASC`,
		stepID,
	)
	if err != nil {
		return nil, fmt.Errorf("metatasks/sqlite: list transitions: %w", err)
	}
	defer rows.Close()

	var out []*workflow.Transition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("metatasks/sqlite: list transitions scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTransition removes a transition, scoped to a workflow.
func (s *Store) DeleteTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workflow_transitions WHERE id = ? AND workflow_id = ?`,
		transitionID, workflowID,
	)
	if err != nil {
		return fmt.Errorf("metatasks/sqlite: delete transition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return metatasks.ErrTransitionNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStep(row scanner) (*workflow.Step, error) {
	st := new(workflow.Step)
	var created, updated string
	err := row.Scan(&st.ID, &st.WorkflowID, &st.Name, &st.Description, &st.Order,
		&st.AssignedTeamID, &st.RequiresBooking, &st.EstimatedDurationHours, &st.Terminal,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	if st.CreatedAt, st.UpdatedAt, err = parseTimes(created, updated); err != nil {
		return nil, err
	}
	return st, nil
}

func scanTransition(row scanner) (*workflow.Transition, error) {
	t := new(workflow.Transition)
	var cond *string
	var created, updated string
	err := row.Scan(&t.ID, &t.WorkflowID, &t.FromStepID, &t.ToStepID, &t.Label, &t.Description,
		&t.Color, &t.Icon, &t.RequiresConfirmation, &t.ConfirmationMessage, &t.RequiresComment,
		&t.CommentPrompt, &t.AutoAssignToStepTeam, &t.PermissionLevel, &cond, &t.Order,
		&t.Active, &created, &updated)
	if err != nil {
		return nil, err
	}
	if t.Condition, err = unmarshalCondition(cond); err != nil {
		return nil, err
	}
	if t.CreatedAt, t.UpdatedAt, err = parseTimes(created, updated); err != nil {
		return nil, err
	}
	return t, nil
}

func parseTimes(created, updated string) (time.Time, time.Time, error) {
	c, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse created_at: %w", err)
	}
	u, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, u, nil
}
