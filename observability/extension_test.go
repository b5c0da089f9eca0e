package observability_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/observability"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

func newTestExtension(t *testing.T) *observability.MetricsExtension {
	t.Helper()
	e, err := observability.NewMetricsExtensionWithProvider(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetricsExtensionWithProvider: %v", err)
	}
	return e
}

func newTestItem() *item.WorkItem {
	return &item.WorkItem{
		ID:            id.NewItemID(),
		WorkflowID:    id.NewWorkflowID(),
		CurrentStepID: id.NewStepID(),
		CreatorID:     id.NewActorID(),
		Data:          map[string]any{"title": "test"},
	}
}

func TestMetricsExtension_Name(t *testing.T) {
	e := newTestExtension(t)
	if e.Name() != "observability-metrics" {
		t.Errorf("name = %q, want %q", e.Name(), "observability-metrics")
	}
}

func TestMetricsExtension_Hooks(t *testing.T) {
	e := newTestExtension(t)
	ctx := context.Background()
	w := newTestItem()
	entry := &item.HistoryEntry{
		ID:       id.NewHistoryID(),
		ItemID:   w.ID,
		ToStepID: w.CurrentStepID,
		ActorID:  w.CreatorID,
	}
	tr := &workflow.Transition{ID: id.NewTransitionID(), PermissionLevel: workflow.PermissionAny}

	if err := e.OnItemCreated(ctx, w, entry); err != nil {
		t.Errorf("OnItemCreated: %v", err)
	}
	if err := e.OnTransitionApplied(ctx, w, tr, entry); err != nil {
		t.Errorf("OnTransitionApplied: %v", err)
	}
	if err := e.OnMovedBackward(ctx, w, entry); err != nil {
		t.Errorf("OnMovedBackward: %v", err)
	}
	if err := e.OnMoveDenied(ctx, w.ID, w.CreatorID, metatasks.ErrPermissionDenied); err != nil {
		t.Errorf("OnMoveDenied: %v", err)
	}
}
