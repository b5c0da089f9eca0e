package scope_test

import (
	"context"
	"testing"

	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/scope"
)

func TestWithAndFrom(t *testing.T) {
	actorID := id.NewActorID()
	orgID := id.NewOrgID()

	ctx := scope.With(context.Background(), actorID, orgID)

	s, ok := scope.From(ctx)
	if !ok {
		t.Fatal("From returned ok=false for a stamped context")
	}
	if s.ActorID != actorID {
		t.Errorf("ActorID = %v, want %v", s.ActorID, actorID)
	}
	if s.OrgID != orgID {
		t.Errorf("OrgID = %v, want %v", s.OrgID, orgID)
	}
}

func TestFromUnstampedContext(t *testing.T) {
	if _, ok := scope.From(context.Background()); ok {
		t.Error("From returned ok=true for an unstamped context")
	}
	if !scope.ActorID(context.Background()).IsNil() {
		t.Error("ActorID returned a non-nil ID for an unstamped context")
	}
	if !scope.OrgID(context.Background()).IsNil() {
		t.Error("OrgID returned a non-nil ID for an unstamped context")
	}
}

func TestWithReplacesExistingScope(t *testing.T) {
	first := id.NewActorID()
	second := id.NewActorID()
	orgID := id.NewOrgID()

	ctx := scope.With(context.Background(), first, orgID)
	ctx = scope.With(ctx, second, orgID)

	if got := scope.ActorID(ctx); got != second {
		t.Errorf("ActorID = %v, want %v", got, second)
	}
}
