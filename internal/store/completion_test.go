package store

import (
	"database/sql"
	"fmt"
	"testing"

	"starchart/internal/model"
)

// Log rows are normally written inside ledger transactions; for store tests
// an insert helper is enough.
func insertLog(t *testing.T, db *sql.DB, profileID int64, activityID, date string, status model.LogStatus, stars int) string {
	t.Helper()
	id := fmt.Sprintf("%s_%d_%s", activityID, profileID, date)
	_, err := db.Exec(
		`INSERT INTO completion_logs (id, household_id, profile_id, activity_id, title, icon, date, status, stars_earned)
		 VALUES (?, 1, ?, ?, 'Test activity', '⭐', ?, ?, ?)`,
		id, profileID, activityID, date, status, stars,
	)
	if err != nil {
		t.Fatalf("insert log: %v", err)
	}
	return id
}

func TestLogState(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCompletionStore(db)
	child := seedChild(t, db, "Mira")

	insertLog(t, db, child.ID, "task_1", "2026-03-14", model.LogCompleted, 3)
	insertLog(t, db, child.ID, "task_2", "2026-03-14", model.LogMissed, 0)

	hasCompleted, hasMissed, err := cs.LogState("task_1", child.ID, "2026-03-14")
	if err != nil {
		t.Fatalf("log state: %v", err)
	}
	if !hasCompleted || hasMissed {
		t.Errorf("task_1 state = (%v, %v), want (true, false)", hasCompleted, hasMissed)
	}

	hasCompleted, hasMissed, err = cs.LogState("task_2", child.ID, "2026-03-14")
	if err != nil {
		t.Fatalf("log state: %v", err)
	}
	if hasCompleted || !hasMissed {
		t.Errorf("task_2 state = (%v, %v), want (false, true)", hasCompleted, hasMissed)
	}

	hasCompleted, hasMissed, err = cs.LogState("task_1", child.ID, "2026-03-15")
	if err != nil {
		t.Fatalf("log state: %v", err)
	}
	if hasCompleted || hasMissed {
		t.Error("state leaked across days")
	}
}

func TestCompletedDatesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCompletionStore(db)
	child := seedChild(t, db, "Mira")

	insertLog(t, db, child.ID, "task_1", "2026-03-12", model.LogCompleted, 1)
	insertLog(t, db, child.ID, "task_1", "2026-03-14", model.LogCompleted, 1)
	insertLog(t, db, child.ID, "task_2", "2026-03-14", model.LogCompleted, 2)
	insertLog(t, db, child.ID, "task_3", "2026-03-13", model.LogMissed, 0)

	dates, err := cs.CompletedDates(child.ID)
	if err != nil {
		t.Fatalf("completed dates: %v", err)
	}
	want := []string{"2026-03-14", "2026-03-12"}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("dates[%d] = %q, want %q", i, dates[i], want[i])
		}
	}
}

func TestMarkSeen(t *testing.T) {
	db := setupTestDB(t)
	cs := NewCompletionStore(db)
	child := seedChild(t, db, "Mira")

	id := insertLog(t, db, child.ID, "task_1", "2026-03-14", model.LogCompleted, 3)
	insertLog(t, db, child.ID, "task_2", "2026-03-14", model.LogMissed, 0)

	unseen, err := cs.ListUnseen(1)
	if err != nil {
		t.Fatalf("list unseen: %v", err)
	}
	if len(unseen) != 1 || unseen[0].ID != id {
		t.Fatalf("unseen = %+v, want only the completed log", unseen)
	}

	if err := cs.MarkSeen(id); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	unseen, err = cs.ListUnseen(1)
	if err != nil {
		t.Fatalf("list unseen: %v", err)
	}
	if len(unseen) != 0 {
		t.Errorf("unseen after mark = %+v, want none", unseen)
	}

	got, err := cs.GetByID(id)
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if got == nil || !got.SeenByParent {
		t.Error("log not flagged seen")
	}
}
