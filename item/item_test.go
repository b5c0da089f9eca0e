package item_test

import (
	"testing"
	"time"

	"github.com/Liam-Lillieroth/MetaTasks/id"
	"github.com/Liam-Lillieroth/MetaTasks/item"
)

func entryTo(stepID id.StepID) *item.HistoryEntry {
	return &item.HistoryEntry{
		ID:       id.NewHistoryID(),
		ItemID:   id.NewItemID(),
		ToStepID: stepID,
	}
}

func TestVisitedStepsFirstVisitOrder(t *testing.T) {
	a, b, c := id.NewStepID(), id.NewStepID(), id.NewStepID()

	// a -> b -> a -> c: revisiting a must not duplicate it.
	entries := []*item.HistoryEntry{entryTo(a), entryTo(b), entryTo(a), entryTo(c)}

	got := item.VisitedSteps(entries)
	want := []id.StepID{a, b, c}
	if len(got) != len(want) {
		t.Fatalf("got %d steps, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestVisitedStepsSkipsNilArrivals(t *testing.T) {
	a := id.NewStepID()
	entries := []*item.HistoryEntry{entryTo(id.StepID{}), entryTo(a)}

	got := item.VisitedSteps(entries)
	if len(got) != 1 || got[0] != a {
		t.Errorf("VisitedSteps = %v, want just %v", got, a)
	}
}

func TestVisitedStepsEmptyHistory(t *testing.T) {
	if got := item.VisitedSteps(nil); len(got) != 0 {
		t.Errorf("VisitedSteps(nil) = %v, want empty", got)
	}
}

func TestCloneDataIsDeep(t *testing.T) {
	orig := map[string]any{
		"title": "Install fibre",
		"tags":  []any{"network", "field"},
		"address": map[string]any{
			"city": "Stockholm",
		},
	}

	clone := item.CloneData(orig)
	clone["title"] = "changed"
	clone["tags"].([]any)[0] = "changed"
	clone["address"].(map[string]any)["city"] = "changed"

	if orig["title"] != "Install fibre" {
		t.Error("mutating clone changed original scalar")
	}
	if orig["tags"].([]any)[0] != "network" {
		t.Error("mutating clone changed original slice")
	}
	if orig["address"].(map[string]any)["city"] != "Stockholm" {
		t.Error("mutating clone changed original nested map")
	}
}

func TestCloneDataNil(t *testing.T) {
	got := item.CloneData(nil)
	if got == nil {
		t.Fatal("CloneData(nil) returned nil, want empty map")
	}
	if len(got) != 0 {
		t.Errorf("CloneData(nil) = %v, want empty map", got)
	}
}

func TestPriority(t *testing.T) {
	w := &item.WorkItem{Data: map[string]any{"priority": "high"}}
	if got := w.Priority(); got != "high" {
		t.Errorf("Priority = %q, want %q", got, "high")
	}

	w.Data = map[string]any{"priority": 3}
	if got := w.Priority(); got != "" {
		t.Errorf("Priority with non-string value = %q, want empty", got)
	}

	w.Data = nil
	if got := w.Priority(); got != "" {
		t.Errorf("Priority with nil data = %q, want empty", got)
	}
}

func TestTimeOnCurrentStep(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	w := &item.WorkItem{StepEnteredAt: now.Add(-50 * time.Hour)}

	if got := w.DaysOnCurrentStep(now); got != 2 {
		t.Errorf("DaysOnCurrentStep = %d, want 2", got)
	}
	if got := w.HoursOnCurrentStep(now); got != 50.0 {
		t.Errorf("HoursOnCurrentStep = %v, want 50.0", got)
	}

	var fresh item.WorkItem
	if got := fresh.DaysOnCurrentStep(now); got != 0 {
		t.Errorf("DaysOnCurrentStep with zero entry time = %d, want 0", got)
	}
	if got := fresh.HoursOnCurrentStep(now); got != 0 {
		t.Errorf("HoursOnCurrentStep with zero entry time = %v, want 0", got)
	}
}

func TestSnapshotDataIndependent(t *testing.T) {
	w := &item.WorkItem{Data: map[string]any{"title": "Audit Q1"}}
	snap := w.SnapshotData()
	snap["title"] = "changed"
	if w.Data["title"] != "Audit Q1" {
		t.Error("mutating snapshot changed item data")
	}
}
