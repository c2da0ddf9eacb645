package sweeper

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"starchart/internal/clock"
	"starchart/internal/database"
	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/store"
)

// 9pm, well past an afternoon deadline.
var testNow = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

func newTestSweeper(t *testing.T) (*Sweeper, *sql.DB, *[]string) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := clock.Fixed(testNow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ledger.New(db, clk, nil, logger)

	var missed []string
	onMiss := func(task model.Task, profileID int64) {
		missed = append(missed, task.Title)
	}
	s := New(
		store.NewHouseholdStore(db), store.NewTaskStore(db), store.NewCompletionStore(db),
		engine, clk, onMiss, logger,
	)
	return s, db, &missed
}

func createChild(t *testing.T, db *sql.DB, name string) *model.Profile {
	t.Helper()

	p, err := store.NewProfileStore(db).Create(1, name, model.RoleChild, "#fbbf24", "⭐")
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func createOneTime(t *testing.T, db *sql.DB, task model.Task) *model.Task {
	t.Helper()

	task.HouseholdID = 1
	task.Recurrence = model.RecurrenceOneTime
	if task.Date == "" {
		task.Date = testNow.Format(model.DateLayout)
	}
	created, err := store.NewTaskStore(db).Create(task)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

func TestSweepExpiredRecordsMiss(t *testing.T) {
	s, db, missed := newTestSweeper(t)

	child := createChild(t, db, "Mira")
	expired := createOneTime(t, db, model.Task{
		Title:       "Return library book",
		TimeOfDay:   "15:00",
		Steps:       []model.TaskStep{{Title: "Return", Stars: 3}},
		AssigneeIDs: []int64{child.ID},
	})

	swept, err := s.SweepExpired(context.Background(), 1, testNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(swept) != 1 {
		t.Fatalf("swept %d logs, want 1", len(swept))
	}
	wantID := model.TaskLogID(expired.ID, child.ID, expired.Date)
	if swept[0] != wantID {
		t.Errorf("log id = %s, want %s", swept[0], wantID)
	}

	log, err := store.NewCompletionStore(db).GetByID(wantID)
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if log == nil || log.Status != model.LogMissed {
		t.Fatalf("log = %+v, want a missed log", log)
	}
	if log.StarsEarned != 0 {
		t.Errorf("stars_earned = %d, want 0", log.StarsEarned)
	}
	if len(*missed) != 1 || (*missed)[0] != "Return library book" {
		t.Errorf("onMiss calls = %v, want one for the expired task", *missed)
	}
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	s, db, missed := newTestSweeper(t)

	child := createChild(t, db, "Theo")
	createOneTime(t, db, model.Task{
		Title:       "Pack gym bag",
		TimeOfDay:   "08:00",
		Steps:       []model.TaskStep{{Title: "Pack", Stars: 1}},
		AssigneeIDs: []int64{child.ID},
	})

	ctx := context.Background()
	if _, err := s.SweepExpired(ctx, 1, testNow); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	swept, err := s.SweepExpired(ctx, 1, testNow)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(swept) != 0 {
		t.Errorf("second sweep wrote %d logs, want 0", len(swept))
	}
	if len(*missed) != 1 {
		t.Errorf("onMiss fired %d times, want 1", len(*missed))
	}
}

func TestSweepSkipsCompletedAndUnexpired(t *testing.T) {
	s, db, _ := newTestSweeper(t)
	ctx := context.Background()

	child := createChild(t, db, "Mira")
	done := createOneTime(t, db, model.Task{
		Title:       "Homework",
		TimeOfDay:   "16:00",
		Steps:       []model.TaskStep{{Title: "Do it", Stars: 5}},
		AssigneeIDs: []int64{child.ID},
	})
	createOneTime(t, db, model.Task{
		Title:       "Brush teeth",
		TimeOfDay:   "21:30", // still ahead of testNow
		Steps:       []model.TaskStep{{Title: "Brush", Stars: 1}},
		AssigneeIDs: []int64{child.ID},
	})
	createOneTime(t, db, model.Task{
		Title:       "Whenever chore",
		TimeOfDay:   "10:00",
		ExpiryRule:  model.ExpiryNever,
		Steps:       []model.TaskStep{{Title: "Any time", Stars: 2}},
		AssigneeIDs: []int64{child.ID},
	})

	engine := ledger.New(db, clock.Fixed(testNow), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := engine.CompleteTask(ctx, done.ID, child.ID, testNow); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	swept, err := s.SweepExpired(ctx, 1, testNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(swept) != 0 {
		t.Errorf("swept %d logs, want 0 (completed, unexpired, and never-expiring tasks all skip)", len(swept))
	}
}

func TestStartRunsEagerly(t *testing.T) {
	s, db, _ := newTestSweeper(t)

	child := createChild(t, db, "Theo")
	late := createOneTime(t, db, model.Task{
		Title:       "Water plants",
		TimeOfDay:   "09:00",
		Steps:       []model.TaskStep{{Title: "Water", Stars: 2}},
		AssigneeIDs: []int64{child.ID},
	})

	s.Start(context.Background())
	defer s.Stop()

	wantID := model.TaskLogID(late.ID, child.ID, late.Date)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		log, err := store.NewCompletionStore(db).GetByID(wantID)
		if err != nil {
			t.Fatalf("get log: %v", err)
		}
		if log != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("eager sweep never recorded the miss")
}
