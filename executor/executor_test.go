package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/executor"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/store/memory"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// fakeRoles is a RoleDirectory backed by in-memory sets.
type fakeRoles struct {
	admins map[string]bool
	teams  map[string][]id.ActorID
	err    error
}

func (f *fakeRoles) IsAdminOrStaff(_ context.Context, actorID id.ActorID, _ id.OrgID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.admins[actorID.String()], nil
}

func (f *fakeRoles) TeamMembers(_ context.Context, teamID id.TeamID) ([]id.ActorID, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.teams[teamID.String()], nil
}

// fixture is a three-step Draft → Review → Done graph with one actor.
type fixture struct {
	store *memory.Store
	exec  *executor.Executor
	roles *fakeRoles

	wf            *workflow.Workflow
	draft, review *workflow.Step
	done          *workflow.Step
	submit        *workflow.Transition // Draft → Review
	approve       *workflow.Transition // Review → Done

	creator *actor.Actor
}

func newFixture(t *testing.T, opts ...executor.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store: memory.New(),
		roles: &fakeRoles{admins: map[string]bool{}, teams: map[string][]id.ActorID{}},
	}

	orgID := id.NewOrgID()
	f.wf = workflow.New(orgID, "editorial")
	if err := f.store.CreateWorkflow(ctx, f.wf); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	f.draft = workflow.NewStep(f.wf.ID, "Draft", 0)
	f.review = workflow.NewStep(f.wf.ID, "Review", 1)
	f.done = workflow.NewStep(f.wf.ID, "Done", 2)
	f.done.Terminal = true
	for _, s := range []*workflow.Step{f.draft, f.review, f.done} {
		if err := f.store.CreateStep(ctx, s); err != nil {
			t.Fatalf("CreateStep %q: %v", s.Name, err)
		}
	}

	var err error
	f.submit, err = workflow.NewTransition(f.draft, f.review)
	if err != nil {
		t.Fatalf("NewTransition: %v", err)
	}
	f.approve, err = workflow.NewTransition(f.review, f.done)
	if err != nil {
		t.Fatalf("NewTransition: %v", err)
	}
	for _, tr := range []*workflow.Transition{f.submit, f.approve} {
		if err := f.store.CreateTransition(ctx, tr); err != nil {
			t.Fatalf("CreateTransition: %v", err)
		}
	}

	f.creator = &actor.Actor{ID: id.NewActorID(), OrgID: orgID, DisplayName: "creator"}

	eng, err := metatasks.New(metatasks.WithStore(f.store))
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	opts = append([]executor.Option{executor.WithRoles(f.roles)}, opts...)
	f.exec, err = executor.Build(eng, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return f
}

func (f *fixture) createItem(t *testing.T) *item.WorkItem {
	t.Helper()
	w, err := f.exec.CreateItem(context.Background(), f.creator, f.wf.ID, executor.CreateRequest{
		Data: map[string]any{"title": "Fix login page", "priority": "high"},
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return w
}

func (f *fixture) updateTransition(t *testing.T, tr *workflow.Transition) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.DeleteTransition(ctx, tr.WorkflowID, tr.ID); err != nil {
		t.Fatalf("DeleteTransition: %v", err)
	}
	if err := f.store.CreateTransition(ctx, tr); err != nil {
		t.Fatalf("CreateTransition: %v", err)
	}
}

// ──────────────────────────────────────────────────
// Creation
// ──────────────────────────────────────────────────

func TestCreateItemStartsOnEntryStep(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)

	if w.CurrentStepID.String() != f.draft.ID.String() {
		t.Errorf("current step = %s, want entry step %s", w.CurrentStepID, f.draft.ID)
	}
	if w.Version != 1 {
		t.Errorf("version = %d, want 1", w.Version)
	}
	if w.Completed {
		t.Error("new item marked completed")
	}

	hist, err := f.exec.History(context.Background(), w.ID, item.ListOpts{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("got %d history entries, want 1", len(hist))
	}
	if !hist[0].FromStepID.IsNil() {
		t.Errorf("creation entry from step = %s, want nil", hist[0].FromStepID)
	}
	if hist[0].ToStepID.String() != f.draft.ID.String() {
		t.Errorf("creation entry to step = %s, want %s", hist[0].ToStepID, f.draft.ID)
	}
}

func TestCreateItemValidatesFieldPlan(t *testing.T) {
	f := newFixture(t)

	// Title is required by default.
	_, err := f.exec.CreateItem(context.Background(), f.creator, f.wf.ID, executor.CreateRequest{
		Data: map[string]any{"priority": "low"},
	})
	if err == nil {
		t.Fatal("expected field validation error, got nil")
	}
}

// ──────────────────────────────────────────────────
// Forward moves
// ──────────────────────────────────────────────────

func TestApplyTransitionHappyPath(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	moved, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if moved.CurrentStepID.String() != f.review.ID.String() {
		t.Errorf("current step = %s, want %s", moved.CurrentStepID, f.review.ID)
	}
	if moved.Version != 2 {
		t.Errorf("version = %d, want 2", moved.Version)
	}

	hist, _ := f.exec.History(ctx, w.ID, item.ListOpts{})
	if len(hist) != 2 {
		t.Fatalf("got %d history entries, want 2", len(hist))
	}
	last := hist[len(hist)-1]
	if last.Direction != item.DirectionForward {
		t.Errorf("direction = %q, want forward", last.Direction)
	}
	if last.FromStepID.String() != f.draft.ID.String() {
		t.Errorf("from step = %s, want %s", last.FromStepID, f.draft.ID)
	}
}

func TestApplyTransitionWrongStep(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)

	// approve starts at Review; the item sits on Draft.
	_, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.approve.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	var mv *metatasks.MoveError
	if !errors.As(err, &mv) {
		t.Fatal("error is not a *MoveError")
	}
	if mv.ItemID.String() != w.ID.String() {
		t.Errorf("MoveError item = %s, want %s", mv.ItemID, w.ID)
	}
}

func TestApplyTransitionInactive(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)

	f.submit.Active = false
	f.updateTransition(t, f.submit)

	_, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrInactiveTransition) {
		t.Errorf("err = %v, want ErrInactiveTransition", err)
	}
}

func TestApplyTransitionPermissionDenied(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)

	f.submit.PermissionLevel = workflow.PermissionAdmin
	f.updateTransition(t, f.submit)

	_, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}

	// Grant the role; the move goes through.
	f.roles.admins[f.creator.ID.String()] = true
	if _, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("ApplyTransition as admin: %v", err)
	}
}

func TestApplyTransitionRequiresComment(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)

	f.submit.RequiresComment = true
	f.submit.CommentPrompt = "why is this ready?"
	f.updateTransition(t, f.submit)

	_, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrMissingComment) {
		t.Fatalf("err = %v, want ErrMissingComment", err)
	}

	moved, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID,
		executor.MoveRequest{Comment: "copy reviewed"})
	if err != nil {
		t.Fatalf("ApplyTransition with comment: %v", err)
	}

	hist, _ := f.exec.History(context.Background(), moved.ID, item.ListOpts{})
	if got := hist[len(hist)-1].Comment; got != "copy reviewed" {
		t.Errorf("comment = %q, want %q", got, "copy reviewed")
	}
}

func TestApplyTransitionRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)

	f.submit.RequiresConfirmation = true
	f.submit.ConfirmationMessage = "this notifies the editor"
	f.updateTransition(t, f.submit)

	_, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrConfirmationRequired) {
		t.Fatalf("err = %v, want ErrConfirmationRequired", err)
	}

	if _, err := f.exec.ApplyTransition(context.Background(), f.creator, w.ID, f.submit.ID,
		executor.MoveRequest{Confirmed: true}); err != nil {
		t.Fatalf("confirmed move: %v", err)
	}
}

func TestTerminalStepCompletesItem(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	moved, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.approve.ID, executor.MoveRequest{})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if !moved.Completed {
		t.Error("item on terminal step not completed")
	}
	if moved.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

// ──────────────────────────────────────────────────
// Booking gate
// ──────────────────────────────────────────────────

func TestBookingGateBlocksWithoutGate(t *testing.T) {
	f := newFixture(t)
	f.review.RequiresBooking = true
	ctx := context.Background()
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	w := f.createItem(t)

	_, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrBookingRequired) {
		t.Errorf("err = %v, want ErrBookingRequired (nil gate fails closed)", err)
	}
}

func TestBookingGateAllows(t *testing.T) {
	gate := executor.BookingGateFunc(func(_ context.Context, _ *workflow.Step, _ *item.WorkItem) (bool, error) {
		return true, nil
	})
	f := newFixture(t, executor.WithBookingGate(gate))
	f.review.RequiresBooking = true
	ctx := context.Background()
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	w := f.createItem(t)

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
}

func TestBookingGateErrorFailsClosed(t *testing.T) {
	gate := executor.BookingGateFunc(func(_ context.Context, _ *workflow.Step, _ *item.WorkItem) (bool, error) {
		return true, errors.New("capacity service down")
	})
	f := newFixture(t, executor.WithBookingGate(gate))
	f.review.RequiresBooking = true
	ctx := context.Background()
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	w := f.createItem(t)

	_, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrBookingRequired) {
		t.Errorf("err = %v, want ErrBookingRequired", err)
	}
}

func TestBookingGateTimeoutFailsClosed(t *testing.T) {
	gate := executor.BookingGateFunc(func(ctx context.Context, _ *workflow.Step, _ *item.WorkItem) (bool, error) {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(5 * time.Second):
			return true, nil
		}
	})
	f := newFixtureWithTimeout(t, 10*time.Millisecond, executor.WithBookingGate(gate))
	f.review.RequiresBooking = true
	ctx := context.Background()
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	w := f.createItem(t)

	_, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrBookingRequired) {
		t.Errorf("err = %v, want ErrBookingRequired", err)
	}
}

func newFixtureWithTimeout(t *testing.T, d time.Duration, opts ...executor.Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	eng, err := metatasks.New(
		metatasks.WithStore(f.store),
		metatasks.WithBookingTimeout(d),
	)
	if err != nil {
		t.Fatalf("New engine: %v", err)
	}
	opts = append([]executor.Option{executor.WithRoles(f.roles)}, opts...)
	f.exec, err = executor.Build(eng, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return f
}

// ──────────────────────────────────────────────────
// Auto-assignment
// ──────────────────────────────────────────────────

func TestAutoAssignToStepTeam(t *testing.T) {
	member := id.NewActorID()
	policy := executor.AssignmentPolicyFunc(func(_ context.Context, _ id.TeamID, _ *item.WorkItem) (id.ActorID, bool, error) {
		return member, true, nil
	})
	f := newFixture(t, executor.WithAssignmentPolicy(policy))

	team := id.NewTeamID()
	f.review.AssignedTeamID = team
	ctx := context.Background()
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	f.submit.AutoAssignToStepTeam = true
	f.updateTransition(t, f.submit)

	w := f.createItem(t)
	moved, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if moved.AssigneeID.String() != member.String() {
		t.Errorf("assignee = %s, want %s", moved.AssigneeID, member)
	}
}

func TestAutoAssignPolicyErrorLeavesAssignee(t *testing.T) {
	policy := executor.AssignmentPolicyFunc(func(_ context.Context, _ id.TeamID, _ *item.WorkItem) (id.ActorID, bool, error) {
		return id.ID{}, false, errors.New("directory unavailable")
	})
	f := newFixture(t, executor.WithAssignmentPolicy(policy))

	f.review.AssignedTeamID = id.NewTeamID()
	ctx := context.Background()
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	f.submit.AutoAssignToStepTeam = true
	f.updateTransition(t, f.submit)

	w := f.createItem(t)
	moved, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if !moved.AssigneeID.IsNil() {
		t.Errorf("assignee = %s, want unchanged nil", moved.AssigneeID)
	}
}

// ──────────────────────────────────────────────────
// Backward moves
// ──────────────────────────────────────────────────

func TestMoveBackwardHappyPath(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	moved, err := f.exec.MoveBackward(ctx, f.creator, w.ID, f.draft.ID, "needs another pass")
	if err != nil {
		t.Fatalf("MoveBackward: %v", err)
	}
	if moved.CurrentStepID.String() != f.draft.ID.String() {
		t.Errorf("current step = %s, want %s", moved.CurrentStepID, f.draft.ID)
	}

	hist, _ := f.exec.History(ctx, w.ID, item.ListOpts{})
	last := hist[len(hist)-1]
	if last.Direction != item.DirectionBackward {
		t.Errorf("direction = %q, want backward", last.Direction)
	}
	if last.Comment != "needs another pass" {
		t.Errorf("comment = %q, want %q", last.Comment, "needs another pass")
	}
}

func TestMoveBackwardRequiresComment(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := f.exec.MoveBackward(ctx, f.creator, w.ID, f.draft.ID, "")
	if !errors.Is(err, metatasks.ErrMissingComment) {
		t.Errorf("err = %v, want ErrMissingComment", err)
	}
}

func TestMoveBackwardUnauthorized(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stranger := &actor.Actor{ID: id.NewActorID(), OrgID: f.creator.OrgID}
	_, err := f.exec.MoveBackward(ctx, stranger, w.ID, f.draft.ID, "trying anyway")
	if !errors.Is(err, metatasks.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}

	// Admins may move any item backward.
	f.roles.admins[stranger.ID.String()] = true
	if _, err := f.exec.MoveBackward(ctx, stranger, w.ID, f.draft.ID, "admin override"); err != nil {
		t.Fatalf("MoveBackward as admin: %v", err)
	}
}

func TestMoveBackwardOnlyVisitedSteps(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Done was never visited.
	_, err := f.exec.MoveBackward(ctx, f.creator, w.ID, f.done.ID, "jumping ahead")
	if !errors.Is(err, metatasks.ErrInvalidBackwardTarget) {
		t.Errorf("err = %v, want ErrInvalidBackwardTarget", err)
	}

	// The current step is excluded.
	_, err = f.exec.MoveBackward(ctx, f.creator, w.ID, f.review.ID, "no-op")
	if !errors.Is(err, metatasks.ErrInvalidBackwardTarget) {
		t.Errorf("err = %v, want ErrInvalidBackwardTarget for current step", err)
	}
}

func TestMoveBackwardReopensCompletedItem(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.approve.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	moved, err := f.exec.MoveBackward(ctx, f.creator, w.ID, f.review.ID, "missed a case")
	if err != nil {
		t.Fatalf("MoveBackward: %v", err)
	}
	if moved.Completed {
		t.Error("item still completed after reopening")
	}
	if moved.CompletedAt != nil {
		t.Error("CompletedAt still set after reopening")
	}
}

// ──────────────────────────────────────────────────
// Listings
// ──────────────────────────────────────────────────

func TestListAvailableTransitionsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second outgoing edge from Draft, admin-only.
	reject, err := workflow.NewTransition(f.draft, f.done)
	if err != nil {
		t.Fatalf("NewTransition: %v", err)
	}
	reject.PermissionLevel = workflow.PermissionAdmin
	if err := f.store.CreateTransition(ctx, reject); err != nil {
		t.Fatalf("CreateTransition: %v", err)
	}

	w := f.createItem(t)

	got, err := f.exec.ListAvailableTransitions(ctx, f.creator, w.ID)
	if err != nil {
		t.Fatalf("ListAvailableTransitions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d transitions, want 1", len(got))
	}
	if got[0].ID.String() != f.submit.ID.String() {
		t.Errorf("transition = %s, want %s", got[0].ID, f.submit.ID)
	}

	f.roles.admins[f.creator.ID.String()] = true
	got, err = f.exec.ListAvailableTransitions(ctx, f.creator, w.ID)
	if err != nil {
		t.Fatalf("ListAvailableTransitions as admin: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d transitions as admin, want 2", len(got))
	}
}

func TestListAvailableBackwardSteps(t *testing.T) {
	f := newFixture(t)
	w := f.createItem(t)
	ctx := context.Background()

	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	steps, err := f.exec.ListAvailableBackwardSteps(ctx, f.creator, w.ID)
	if err != nil {
		t.Fatalf("ListAvailableBackwardSteps: %v", err)
	}
	if len(steps) != 1 || steps[0].ID.String() != f.draft.ID.String() {
		t.Fatalf("backward steps = %v, want [Draft]", steps)
	}

	// Unauthorized actors see an empty list, not an error.
	stranger := &actor.Actor{ID: id.NewActorID(), OrgID: f.creator.OrgID}
	steps, err = f.exec.ListAvailableBackwardSteps(ctx, stranger, w.ID)
	if err != nil {
		t.Fatalf("ListAvailableBackwardSteps unauthorized: %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("got %d steps for unauthorized actor, want 0", len(steps))
	}
}

// ──────────────────────────────────────────────────
// Optimistic concurrency
// ──────────────────────────────────────────────────

// raceOnce commits a competing write behind the executor's back, between
// its read and its commit, for the first n validation passes. The booking
// gate runs inside the validation window, which makes it a convenient
// injection point.
func raceOnce(t *testing.T, f **fixture, n int) executor.BookingGate {
	t.Helper()
	calls := 0
	return executor.BookingGateFunc(func(ctx context.Context, _ *workflow.Step, wi *item.WorkItem) (bool, error) {
		calls++
		if n < 0 || calls <= n {
			cp := *wi
			entry := &item.HistoryEntry{
				ID:        id.NewHistoryID(),
				ItemID:    wi.ID,
				ToStepID:  wi.CurrentStepID,
				ActorID:   (*f).creator.ID,
				Direction: item.DirectionForward,
			}
			if err := (*f).store.CommitMove(ctx, &cp, wi.Version, entry); err != nil {
				t.Errorf("competing commit: %v", err)
			}
		}
		return true, nil
	})
}

func TestConcurrentMoveRetriesOnce(t *testing.T) {
	var f *fixture
	f = newFixture(t, executor.WithBookingGate(raceOnce(t, &f, 1)))
	ctx := context.Background()

	f.review.RequiresBooking = true
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	w := f.createItem(t)

	// First pass loses the version race; the silent retry re-validates
	// against fresh state and commits.
	moved, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if err != nil {
		t.Fatalf("ApplyTransition after one lost race: %v", err)
	}
	if moved.CurrentStepID.String() != f.review.ID.String() {
		t.Errorf("current step = %s, want %s", moved.CurrentStepID, f.review.ID)
	}
	if moved.Version != 3 {
		t.Errorf("version = %d, want 3", moved.Version)
	}
}

func TestConcurrentMoveFailsAfterRetry(t *testing.T) {
	var f *fixture
	f = newFixture(t, executor.WithBookingGate(raceOnce(t, &f, -1)))
	ctx := context.Background()

	f.review.RequiresBooking = true
	if err := f.store.CreateStep(ctx, f.review); err != nil {
		t.Fatalf("CreateStep: %v", err)
	}
	w := f.createItem(t)

	_, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrConcurrentModification) {
		t.Errorf("err = %v, want ErrConcurrentModification", err)
	}
	if errors.Is(err, metatasks.ErrVersionConflict) {
		t.Error("store-level version conflict leaked to the caller")
	}
}

// ──────────────────────────────────────────────────
// Custom conditions
// ──────────────────────────────────────────────────

func TestCustomConditionGatesMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit.PermissionLevel = workflow.PermissionCustom
	f.submit.Condition = condition.NewLeaf(condition.LeafMinPriority, map[string]any{"level": "high"})
	f.updateTransition(t, f.submit)

	// High priority item passes.
	w := f.createItem(t)
	if _, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{}); err != nil {
		t.Fatalf("high priority move: %v", err)
	}

	// Low priority item is denied.
	low, err := f.exec.CreateItem(ctx, f.creator, f.wf.ID, executor.CreateRequest{
		Data: map[string]any{"title": "minor tweak", "priority": "low"},
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	_, err = f.exec.ApplyTransition(ctx, f.creator, low.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestMalformedConditionFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.submit.PermissionLevel = workflow.PermissionCustom
	f.submit.Condition = condition.NewLeaf("no_such_leaf", nil)
	f.updateTransition(t, f.submit)

	w := f.createItem(t)
	_, err := f.exec.ApplyTransition(ctx, f.creator, w.ID, f.submit.ID, executor.MoveRequest{})
	if !errors.Is(err, metatasks.ErrMalformedCondition) {
		t.Fatalf("err = %v, want ErrMalformedCondition", err)
	}

	// The malformed transition is filtered from listings rather than
	// failing them.
	got, err := f.exec.ListAvailableTransitions(ctx, f.creator, w.ID)
	if err != nil {
		t.Fatalf("ListAvailableTransitions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d transitions, want 0", len(got))
	}
}
