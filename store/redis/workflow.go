package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// CreateWorkflow persists a new workflow definition.
func (s *Store) CreateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("metatasks/redis: create workflow: %w", err)
	}
	if err := s.client.Set(ctx, workflowKey(wf.ID.String()), data, 0).Err(); err != nil {
		return fmt.Errorf("metatasks/redis: create workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Workflow, error) {
	data, err := s.client.Get(ctx, workflowKey(workflowID.String())).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, metatasks.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("metatasks/redis: get workflow: %w", err)
	}
	wf := new(workflow.Workflow)
	if err := json.Unmarshal(data, wf); err != nil {
		return nil, fmt.Errorf("metatasks/redis: get workflow: %w", err)
	}
	return wf, nil
}

// UpdateWorkflow persists changes to an existing workflow.
func (s *Store) UpdateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	key := workflowKey(wf.ID.String())
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("metatasks/redis: update workflow: %w", err)
	}
	if exists == 0 {
		return metatasks.ErrWorkflowNotFound
	}
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("metatasks/redis: update workflow: %w", err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("metatasks/redis: update workflow: %w", err)
	}
	return nil
}

// CreateStep persists a new step and indexes it under its workflow.
func (s *Store) CreateStep(ctx context.Context, st *workflow.Step) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("metatasks/redis: create step: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, stepKey(st.ID.String()), data, 0)
	pipe.SAdd(ctx, workflowStepsKey(st.WorkflowID.String()), st.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("metatasks/redis: create step: %w", err)
	}
	return nil
}

// GetStep retrieves a step by ID, scoped to a workflow.
func (s *Store) GetStep(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID) (*workflow.Step, error) {
	st, err := s.getStep(ctx, stepID.String())
	if err != nil {
		return nil, err
	}
	if st.WorkflowID.String() != workflowID.String() {
		return nil, metatasks.ErrStepNotFound
	}
	return st, nil
}

func (s *Store) getStep(ctx context.Context, stepID string) (*workflow.Step, error) {
	data, err := s.client.Get(ctx, stepKey(stepID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, metatasks.ErrStepNotFound
		}
		return nil, fmt.Errorf("metatasks/redis: get step: %w", err)
	}
	st := new(workflow.Step)
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("metatasks/redis: get step: %w", err)
	}
	return st, nil
}

// ListSteps returns a workflow's steps ordered by Order.
func (s *Store) ListSteps(ctx context.Context, workflowID id.WorkflowID) ([]*workflow.Step, error) {
	ids, err := s.client.SMembers(ctx, workflowStepsKey(workflowID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("metatasks/redis: list steps: %w", err)
	}

	out := make([]*workflow.Step, 0, len(ids))
	for _, stepID := range ids {
		st, err := s.getStep(ctx, stepID)
		if err != nil {
			if errors.Is(err, metatasks.ErrStepNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Order < out[k].Order })
	return out, nil
}

// CreateTransition persists a new transition after structural validation.
// The (from, to) pair is claimed with HSETNX so concurrent creates cannot
// both win.
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

	pair := t.FromStepID.String() + ":" + t.ToStepID.String()
	claimed, err := s.client.HSetNX(ctx, transitionPairsKey(t.WorkflowID.String()), pair, t.ID.String()).Result()
	if err != nil {
		return fmt.Errorf("metatasks/redis: create transition: %w", err)
	}
	if !claimed {
		return metatasks.ErrDuplicateTransition
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("metatasks/redis: create transition: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, transitionKey(t.ID.String()), data, 0)
	pipe.SAdd(ctx, stepTransitionsKey(t.FromStepID.String()), t.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("metatasks/redis: create transition: %w", err)
	}
	return nil
}

// GetTransition retrieves a transition by ID, scoped to a workflow.
func (s *Store) GetTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) (*workflow.Transition, error) {
	t, err := s.getTransition(ctx, transitionID.String())
	if err != nil {
		return nil, err
	}
	if t.WorkflowID.String() != workflowID.String() {
		return nil, metatasks.ErrTransitionNotFound
	}
	return t, nil
}

func (s *Store) getTransition(ctx context.Context, transitionID string) (*workflow.Transition, error) {
	data, err := s.client.Get(ctx, transitionKey(transitionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, metatasks.ErrTransitionNotFound
		}
		return nil, fmt.Errorf("metatasks/redis: get transition: %w", err)
	}
	t := new(workflow.Transition)
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("metatasks/redis: get transition: %w", err)
	}
	return t, nil
}

// ListTransitionsFrom returns the outgoing transitions of a step ordered
// by Order.
func (s *Store) ListTransitionsFrom(ctx context.Context, stepID id.StepID) ([]*workflow.Transition, error) {
	ids, err := s.client.SMembers(ctx, stepTransitionsKey(stepID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("metatasks/redis: list transitions: %w", err)
	}

	out := make([]*workflow.Transition, 0, len(ids))
	for _, trID := range ids {
		t, err := s.getTransition(ctx, trID)
		if err != nil {
			if errors.Is(err, metatasks.ErrTransitionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Order < out[k].Order })
	return out, nil
}

// DeleteTransition removes a transition, its index entry, and its pair
// claim.
func (s *Store) DeleteTransition(ctx context.Context, workflowID id.WorkflowID, transitionID id.TransitionID) error {
	t, err := s.GetTransition(ctx, workflowID, transitionID)
	if err != nil {
		return err
	}

	pair := t.FromStepID.String() + ":" + t.ToStepID.String()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, transitionKey(transitionID.String()))
	pipe.SRem(ctx, stepTransitionsKey(t.FromStepID.String()), transitionID.String())
	pipe.HDel(ctx, transitionPairsKey(workflowID.String()), pair)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("metatasks/redis: delete transition: %w", err)
	}
	return nil
}
