package store

import (
	"testing"
	"time"

	"starchart/internal/model"
)

func TestGoalCreateWithItems(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGoalStore(db)
	child := seedChild(t, db, "Theo")

	created, err := gs.Create(model.Goal{
		HouseholdID: 1,
		ProfileID:   child.ID,
		Type:        model.GoalChecklist,
		Title:       "Science fair project",
		Target:      3,
		Stars:       25,
		Items: []model.GoalItem{
			{Text: "Pick a topic"},
			{Text: "Build the model"},
			{Text: "Write the poster"},
		},
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if created.Status != model.GoalActive {
		t.Errorf("status = %q, want active", created.Status)
	}
	if len(created.Items) != 3 || created.Items[0].Text != "Pick a topic" {
		t.Errorf("items = %+v, want three in order", created.Items)
	}

	got, err := gs.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if got == nil || got.Title != "Science fair project" {
		t.Errorf("got %+v, want the created goal", got)
	}
}

func TestGoalGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGoalStore(db)

	got, err := gs.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing goal: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestSetCurrentIfActive(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGoalStore(db)
	child := seedChild(t, db, "Theo")

	g, err := gs.Create(model.Goal{
		HouseholdID: 1, ProfileID: child.ID,
		Type: model.GoalCounter, Title: "Read 10 books", Target: 10, Stars: 50,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	ok, err := gs.SetCurrentIfActive(g.ID, 4)
	if err != nil {
		t.Fatalf("set current: %v", err)
	}
	if !ok {
		t.Fatal("update on active goal reported no rows")
	}

	if _, err := gs.Transition(g.ID, model.GoalActive, model.GoalPendingApproval, time.Now()); err != nil {
		t.Fatalf("transition: %v", err)
	}
	ok, err = gs.SetCurrentIfActive(g.ID, 9)
	if err != nil {
		t.Fatalf("set current on pending goal: %v", err)
	}
	if ok {
		t.Error("update on pending goal reported success")
	}

	got, err := gs.GetByID(g.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if got.Current != 4 {
		t.Errorf("current = %d, want 4 (pending goal must not move)", got.Current)
	}
}

func TestSetItemIfActiveRecounts(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGoalStore(db)
	child := seedChild(t, db, "Theo")

	g, err := gs.Create(model.Goal{
		HouseholdID: 1, ProfileID: child.ID,
		Type: model.GoalChecklist, Title: "Chore bingo", Target: 2, Stars: 10,
		Items: []model.GoalItem{{Text: "one"}, {Text: "two"}},
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	ok, err := gs.SetItemIfActive(g.ID, g.Items[0].ID, true)
	if err != nil {
		t.Fatalf("toggle item: %v", err)
	}
	if !ok {
		t.Fatal("toggle on active goal reported no rows")
	}
	got, _ := gs.GetByID(g.ID)
	if got.Current != 1 {
		t.Errorf("current = %d after one check, want 1", got.Current)
	}

	// Untick it again; the recount follows.
	if _, err := gs.SetItemIfActive(g.ID, g.Items[0].ID, false); err != nil {
		t.Fatalf("untoggle item: %v", err)
	}
	got, _ = gs.GetByID(g.ID)
	if got.Current != 0 {
		t.Errorf("current = %d after untick, want 0", got.Current)
	}

	// Toggling an item of a cancelled goal does nothing.
	if _, err := gs.Transition(g.ID, model.GoalActive, model.GoalCancelled, nil); err != nil {
		t.Fatalf("transition: %v", err)
	}
	ok, err = gs.SetItemIfActive(g.ID, g.Items[1].ID, true)
	if err != nil {
		t.Fatalf("toggle on cancelled goal: %v", err)
	}
	if ok {
		t.Error("toggle on cancelled goal reported success")
	}
}

func TestGoalTransitionPrecondition(t *testing.T) {
	db := setupTestDB(t)
	gs := NewGoalStore(db)
	child := seedChild(t, db, "Theo")

	g, err := gs.Create(model.Goal{
		HouseholdID: 1, ProfileID: child.ID,
		Type: model.GoalBinary, Title: "Learn to whistle", Target: 1, Stars: 5,
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	ok, err := gs.Transition(g.ID, model.GoalPendingApproval, model.GoalCompleted, time.Now())
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if ok {
		t.Error("transition from the wrong status reported success")
	}

	ok, err = gs.Transition(g.ID, model.GoalActive, model.GoalPendingApproval, time.Now())
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !ok {
		t.Error("transition from active failed")
	}

	pending, err := gs.ListPendingApproval(1)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != g.ID {
		t.Errorf("pending = %+v, want only the transitioned goal", pending)
	}
}
