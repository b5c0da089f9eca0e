// Package permission decides whether an actor may execute a transition on
// a work item. Rules are layered: inactive transitions are denied before
// any permission logic, the transition's permission level selects a rule,
// and custom conditions evaluate fail-closed through the condition
// package.
package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// Decision is the outcome of a permission check. Reason names the missing
// capability when denied. Err is set when the denial came from a
// malformed custom condition; it wraps metatasks.ErrMalformedCondition.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Evaluator answers can-execute questions against a role directory and a
// condition leaf registry. A nil role directory fails closed: team and
// admin levels deny.
type Evaluator struct {
	roles    actor.RoleDirectory
	registry *condition.Registry
	logger   *slog.Logger
}

// NewEvaluator creates a permission evaluator. Passing a nil registry
// installs condition.DefaultRegistry().
func NewEvaluator(roles actor.RoleDirectory, registry *condition.Registry, logger *slog.Logger) *Evaluator {
	if registry == nil {
		registry = condition.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{roles: roles, registry: registry, logger: logger}
}

// CanExecute decides whether the actor may execute the transition on the
// work item sitting on currentStep. Lookup failures deny rather than
// grant (fail-closed).
func (e *Evaluator) CanExecute(ctx context.Context, act *actor.Actor, t *workflow.Transition, w *item.WorkItem, currentStep *workflow.Step) Decision {
	if !t.Active {
		return deny("transition is inactive")
	}

	switch t.PermissionLevel {
	case workflow.PermissionAny:
		return allow()

	case workflow.PermissionAssignee:
		if w.AssigneeID.IsNil() || act.ID.String() != w.AssigneeID.String() {
			return deny("requires the work item's current assignee")
		}
		return allow()

	case workflow.PermissionTeam:
		return e.checkTeam(ctx, act, currentStep)

	case workflow.PermissionAdmin:
		return e.checkAdmin(ctx, act)

	case workflow.PermissionCreator:
		if act.ID.String() != w.CreatorID.String() {
			return deny("requires the work item's creator")
		}
		return allow()

	case workflow.PermissionCustom:
		return e.checkCustom(act, t, w, currentStep)

	default:
		return deny(fmt.Sprintf("unknown permission level %q", t.PermissionLevel))
	}
}

// IsAdminOrStaff reports whether the actor holds an organization admin or
// staff role. Lookup failures report false.
func (e *Evaluator) IsAdminOrStaff(ctx context.Context, act *actor.Actor) bool {
	if e.roles == nil {
		return false
	}
	ok, err := e.roles.IsAdminOrStaff(ctx, act.ID, act.OrgID)
	if err != nil {
		e.logger.Warn("role lookup failed",
			slog.String("actor_id", act.ID.String()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// checkTeam passes when the current step has no assigned team, otherwise
// requires membership in it.
func (e *Evaluator) checkTeam(ctx context.Context, act *actor.Actor, currentStep *workflow.Step) Decision {
	if currentStep.AssignedTeamID.IsNil() {
		return allow()
	}
	if e.roles == nil {
		return deny("requires membership in the step's assigned team")
	}

	members, err := e.roles.TeamMembers(ctx, currentStep.AssignedTeamID)
	if err != nil {
		e.logger.Warn("team membership lookup failed",
			slog.String("team_id", currentStep.AssignedTeamID.String()),
			slog.String("error", err.Error()),
		)
		return deny("requires membership in the step's assigned team")
	}
	for _, m := range members {
		if m.String() == act.ID.String() {
			return allow()
		}
	}
	return deny("requires membership in the step's assigned team")
}

func (e *Evaluator) checkAdmin(ctx context.Context, act *actor.Actor) Decision {
	if e.IsAdminOrStaff(ctx, act) {
		return allow()
	}
	return deny("requires organization admin or staff role")
}

// checkCustom evaluates the transition's structured predicate. A nil
// condition on a custom-level transition allows; any malformed tree or
// unknown leaf denies with a distinct diagnostic.
func (e *Evaluator) checkCustom(act *actor.Actor, t *workflow.Transition, w *item.WorkItem, currentStep *workflow.Step) Decision {
	if t.Condition == nil {
		return allow()
	}

	env := condition.Env{
		ActorID:    act.ID,
		AssigneeID: w.AssigneeID,
		CreatorID:  w.CreatorID,
		StepName:   currentStep.Name,
		Priority:   w.Priority(),
		Data:       w.Data,
	}

	ok, err := t.Condition.Eval(e.registry, env)
	if err != nil {
		if !errors.Is(err, metatasks.ErrMalformedCondition) {
			err = fmt.Errorf("%w: %v", metatasks.ErrMalformedCondition, err)
		}
		return Decision{Reason: err.Error(), Err: err}
	}
	if !ok {
		return deny("custom condition not met")
	}
	return allow()
}
