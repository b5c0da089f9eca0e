package permission_test

import (
	"context"
	"errors"
	"testing"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/permission"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// stubRoles is an in-test role directory.
type stubRoles struct {
	admins  map[string]bool
	members map[string][]id.ActorID
	err     error
}

func (s *stubRoles) IsAdminOrStaff(_ context.Context, actorID id.ActorID, _ id.OrgID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.admins[actorID.String()], nil
}

func (s *stubRoles) TeamMembers(_ context.Context, teamID id.TeamID) ([]id.ActorID, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members[teamID.String()], nil
}

type fixture struct {
	actor *actor.Actor
	item  *item.WorkItem
	step  *workflow.Step
	trans *workflow.Transition
}

func newFixture(level workflow.PermissionLevel) fixture {
	orgID := id.NewOrgID()
	act := &actor.Actor{ID: id.NewActorID(), OrgID: orgID}
	wfID := id.NewWorkflowID()
	step := workflow.NewStep(wfID, "Review", 1)
	return fixture{
		actor: act,
		item: &item.WorkItem{
			ID:            id.NewItemID(),
			WorkflowID:    wfID,
			CurrentStepID: step.ID,
			CreatorID:     id.NewActorID(),
			Data:          map[string]any{},
		},
		step: step,
		trans: &workflow.Transition{
			ID:              id.NewTransitionID(),
			WorkflowID:      wfID,
			FromStepID:      step.ID,
			PermissionLevel: level,
			Active:          true,
		},
	}
}

func TestInactiveTransitionDenied(t *testing.T) {
	f := newFixture(workflow.PermissionAny)
	f.trans.Active = false

	e := permission.NewEvaluator(nil, nil, nil)
	d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step)
	if d.Allowed {
		t.Error("inactive transition allowed")
	}
}

func TestAnyAllowsEveryone(t *testing.T) {
	f := newFixture(workflow.PermissionAny)
	e := permission.NewEvaluator(nil, nil, nil)
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("any level denied: %s", d.Reason)
	}
}

func TestAssigneeLevel(t *testing.T) {
	f := newFixture(workflow.PermissionAssignee)
	e := permission.NewEvaluator(nil, nil, nil)

	// Unassigned item: nobody passes, not even on a nil-vs-nil match.
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("assignee level allowed on an unassigned item")
	}

	f.item.AssigneeID = id.NewActorID()
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("assignee level allowed a non-assignee")
	}

	f.item.AssigneeID = f.actor.ID
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("assignee denied: %s", d.Reason)
	}
}

func TestCreatorLevel(t *testing.T) {
	f := newFixture(workflow.PermissionCreator)
	e := permission.NewEvaluator(nil, nil, nil)

	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("creator level allowed a non-creator")
	}

	f.item.CreatorID = f.actor.ID
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("creator denied: %s", d.Reason)
	}
}

func TestTeamLevelNoAssignedTeamAllows(t *testing.T) {
	f := newFixture(workflow.PermissionTeam)
	e := permission.NewEvaluator(&stubRoles{}, nil, nil)

	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("team level denied on a step with no assigned team: %s", d.Reason)
	}
}

func TestTeamLevelMembership(t *testing.T) {
	f := newFixture(workflow.PermissionTeam)
	teamID := id.NewTeamID()
	f.step.AssignedTeamID = teamID

	roles := &stubRoles{members: map[string][]id.ActorID{}}
	e := permission.NewEvaluator(roles, nil, nil)

	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("team level allowed a non-member")
	}

	roles.members[teamID.String()] = []id.ActorID{id.NewActorID(), f.actor.ID}
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("team member denied: %s", d.Reason)
	}
}

func TestTeamLevelFailsClosed(t *testing.T) {
	f := newFixture(workflow.PermissionTeam)
	f.step.AssignedTeamID = id.NewTeamID()

	// Nil directory and lookup failure both deny.
	e := permission.NewEvaluator(nil, nil, nil)
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("team level allowed with no role directory")
	}

	e = permission.NewEvaluator(&stubRoles{err: errors.New("directory down")}, nil, nil)
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("team level allowed when the membership lookup failed")
	}
}

func TestAdminLevel(t *testing.T) {
	f := newFixture(workflow.PermissionAdmin)
	roles := &stubRoles{admins: map[string]bool{}}
	e := permission.NewEvaluator(roles, nil, nil)

	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("admin level allowed a regular actor")
	}

	roles.admins[f.actor.ID.String()] = true
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("admin denied: %s", d.Reason)
	}
}

func TestAdminLevelFailsClosed(t *testing.T) {
	f := newFixture(workflow.PermissionAdmin)

	e := permission.NewEvaluator(nil, nil, nil)
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("admin level allowed with no role directory")
	}

	e = permission.NewEvaluator(&stubRoles{err: errors.New("directory down")}, nil, nil)
	if e.IsAdminOrStaff(context.Background(), f.actor) {
		t.Error("IsAdminOrStaff true when the role lookup failed")
	}
}

func TestCustomNilConditionAllows(t *testing.T) {
	f := newFixture(workflow.PermissionCustom)
	e := permission.NewEvaluator(nil, nil, nil)
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("custom level with nil condition denied: %s", d.Reason)
	}
}

func TestCustomConditionEvaluates(t *testing.T) {
	f := newFixture(workflow.PermissionCustom)
	f.trans.Condition = condition.NewLeaf(condition.LeafMinPriority, map[string]any{"level": "high"})
	e := permission.NewEvaluator(nil, nil, nil)

	f.item.Data["priority"] = "low"
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("min_priority allowed a low-priority item")
	}

	f.item.Data["priority"] = "critical"
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); !d.Allowed {
		t.Errorf("min_priority denied a critical item: %s", d.Reason)
	}
}

func TestCustomMalformedConditionDenies(t *testing.T) {
	f := newFixture(workflow.PermissionCustom)
	f.trans.Condition = condition.NewLeaf("no_such_leaf", nil)
	e := permission.NewEvaluator(nil, nil, nil)

	d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step)
	if d.Allowed {
		t.Fatal("malformed condition allowed")
	}
	if !errors.Is(d.Err, metatasks.ErrMalformedCondition) {
		t.Errorf("decision err = %v, want ErrMalformedCondition", d.Err)
	}
}

func TestUnknownPermissionLevelDenies(t *testing.T) {
	f := newFixture(workflow.PermissionLevel("sorcerer"))
	e := permission.NewEvaluator(nil, nil, nil)
	if d := e.CanExecute(context.Background(), f.actor, f.trans, f.item, f.step); d.Allowed {
		t.Error("unknown permission level allowed")
	}
}
