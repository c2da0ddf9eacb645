package store

import (
	"database/sql"
	"testing"

	"starchart/internal/database"
	"starchart/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedChild(t *testing.T, db *sql.DB, name string) *model.Profile {
	t.Helper()
	p, err := NewProfileStore(db).Create(1, name, model.RoleChild, "#60a5fa", "🦊")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func TestTaskCRUD(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	child := seedChild(t, db, "Mira")

	created, err := ts.Create(model.Task{
		HouseholdID: 1,
		Title:       "Morning routine",
		Icon:        "🌅",
		Recurrence:  model.RecurrenceRecurring,
		TimeOfDay:   "07:45",
		DaysOfWeek:  "mon,tue,wed,thu,fri",
		FlexMinutes: 30,
		ExpiryRule:  model.ExpiryEndOfDay,
		Steps: []model.TaskStep{
			{Title: "Brush teeth", Stars: 1},
			{Title: "Get dressed", Stars: 2},
		},
		AssigneeIDs: []int64{child.ID},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.TotalStars() != 3 {
		t.Errorf("total stars = %d, want 3", created.TotalStars())
	}
	if len(created.Steps) != 2 || created.Steps[0].Title != "Brush teeth" {
		t.Errorf("steps = %+v, want ordered pair", created.Steps)
	}
	if len(created.AssigneeIDs) != 1 || created.AssigneeIDs[0] != child.ID {
		t.Errorf("assignees = %v, want [%d]", created.AssigneeIDs, child.ID)
	}

	created.Title = "Morning routine v2"
	created.Steps = []model.TaskStep{{Title: "Everything at once", Stars: 5}}
	updated, err := ts.Update(created.ID, *created)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Title != "Morning routine v2" {
		t.Errorf("title = %q, want updated", updated.Title)
	}
	if len(updated.Steps) != 1 || updated.Steps[0].Stars != 5 {
		t.Errorf("steps after update = %+v, want single 5-star step", updated.Steps)
	}

	if err := ts.Delete(created.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err := ts.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted task")
	}
}

func TestListByAssignee(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)
	mira := seedChild(t, db, "Mira")
	theo := seedChild(t, db, "Theo")

	mk := func(title string, assignees ...int64) {
		t.Helper()
		_, err := ts.Create(model.Task{
			HouseholdID: 1, Title: title, Recurrence: model.RecurrenceRecurring,
			Steps:       []model.TaskStep{{Title: title, Stars: 1}},
			AssigneeIDs: assignees,
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	mk("Feed cat", mira.ID)
	mk("Set table", mira.ID, theo.ID)
	mk("Take out trash", theo.ID)

	tasks, err := ts.ListByAssignee(mira.ID)
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("mira has %d tasks, want 2", len(tasks))
	}
}

func TestListOneTimeForDate(t *testing.T) {
	db := setupTestDB(t)
	ts := NewTaskStore(db)

	mk := func(title string, recurrence model.Recurrence, date string) {
		t.Helper()
		_, err := ts.Create(model.Task{
			HouseholdID: 1, Title: title, Recurrence: recurrence, Date: date,
			Steps: []model.TaskStep{{Title: title, Stars: 1}},
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	mk("Dentist prep", model.RecurrenceOneTime, "2026-03-14")
	mk("Library book", model.RecurrenceOneTime, "2026-03-15")
	mk("Daily tidy", model.RecurrenceRecurring, "")

	tasks, err := ts.ListOneTimeForDate(1, "2026-03-14")
	if err != nil {
		t.Fatalf("list one-time: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Dentist prep" {
		t.Errorf("tasks = %+v, want only the 2026-03-14 one-time task", tasks)
	}
}
