package task

import (
	"testing"
	"time"

	"starchart/internal/model"
)

func morningTask() model.Task {
	return model.Task{
		ID:          1,
		Title:       "Brush teeth",
		Recurrence:  model.RecurrenceRecurring,
		TimeOfDay:   "08:00",
		FlexMinutes: 15,
		ExpiryRule:  model.ExpiryEndOfDay,
	}
}

func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 3, 10, hh, mm, ss, 0, time.UTC)
}

func TestResolveLockedBeforeFlexWindow(t *testing.T) {
	status := Resolve(morningTask(), at(7, 44, 0), false, false)
	if status != StatusLocked {
		t.Errorf("status = %q, want %q", status, StatusLocked)
	}
}

func TestResolveActiveInsideFlexWindow(t *testing.T) {
	status := Resolve(morningTask(), at(7, 46, 0), false, false)
	if status != StatusActive {
		t.Errorf("status = %q, want %q", status, StatusActive)
	}
}

func TestResolveOverdueAfterTimeOfDay(t *testing.T) {
	status := Resolve(morningTask(), at(8, 30, 0), false, false)
	if status != StatusOverdue {
		t.Errorf("status = %q, want %q", status, StatusOverdue)
	}
}

func TestResolveOverdueUntilMidnight(t *testing.T) {
	status := Resolve(morningTask(), at(23, 59, 59), false, false)
	if status != StatusOverdue {
		t.Errorf("status = %q, want %q", status, StatusOverdue)
	}
}

func TestResolveExpiredAfterMidnight(t *testing.T) {
	// One-time task dated yesterday, unresolved past its end of day.
	task := model.Task{
		Recurrence: model.RecurrenceOneTime,
		TimeOfDay:  "08:00",
		Date:       "2026-03-10",
		ExpiryRule: model.ExpiryEndOfDay,
	}
	now := time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)

	status := Resolve(task, now, false, false)
	if status != StatusExpired {
		t.Errorf("status = %q, want %q", status, StatusExpired)
	}
}

func TestResolveCompletedWins(t *testing.T) {
	status := Resolve(morningTask(), at(23, 59, 59), true, false)
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
}

func TestResolveMissLogWins(t *testing.T) {
	status := Resolve(morningTask(), at(9, 0, 0), false, true)
	if status != StatusMissed {
		t.Errorf("status = %q, want %q", status, StatusMissed)
	}
}

func TestResolveOneTimeNeverLocked(t *testing.T) {
	// One-time tasks are "due by", not "starts at": active all day even
	// before the flex window would open.
	task := model.Task{
		Recurrence:  model.RecurrenceOneTime,
		TimeOfDay:   "18:00",
		Date:        "2026-03-10",
		FlexMinutes: 15,
	}

	status := Resolve(task, at(6, 0, 0), false, false)
	if status != StatusActive {
		t.Errorf("status = %q, want %q", status, StatusActive)
	}
}

func TestResolveOneTimeDeadlineIsTimeOfDay(t *testing.T) {
	// No explicit expiry rule: the nominal time itself is the deadline.
	task := model.Task{
		Recurrence: model.RecurrenceOneTime,
		TimeOfDay:  "18:00",
		Date:       "2026-03-10",
	}

	if got := Resolve(task, at(17, 59, 0), false, false); got != StatusActive {
		t.Errorf("before deadline: status = %q, want %q", got, StatusActive)
	}
	if got := Resolve(task, at(18, 1, 0), false, false); got != StatusExpired {
		t.Errorf("after deadline: status = %q, want %q", got, StatusExpired)
	}
}

func TestResolveFixedOffsetExpiry(t *testing.T) {
	task := model.Task{
		Recurrence:      model.RecurrenceRecurring,
		TimeOfDay:       "08:00",
		ExpiryRule:      model.ExpiryOffset,
		ExpiryOffsetMin: 30,
	}

	if got := Resolve(task, at(8, 15, 0), false, false); got != StatusOverdue {
		t.Errorf("inside offset: status = %q, want %q", got, StatusOverdue)
	}
	if got := Resolve(task, at(8, 31, 0), false, false); got != StatusExpired {
		t.Errorf("past offset: status = %q, want %q", got, StatusExpired)
	}
}

func TestResolveNeverExpires(t *testing.T) {
	task := model.Task{
		Recurrence: model.RecurrenceRecurring,
		TimeOfDay:  "08:00",
		ExpiryRule: model.ExpiryNever,
	}

	if got := Resolve(task, at(23, 0, 0), false, false); got != StatusOverdue {
		t.Errorf("status = %q, want %q", got, StatusOverdue)
	}
}

func TestResolveAllDayUnlocksAtMidnight(t *testing.T) {
	task := model.Task{
		Recurrence:  model.RecurrenceRecurring,
		TimeOfDay:   "20:00",
		FlexMinutes: model.FlexAllDay,
		ExpiryRule:  model.ExpiryEndOfDay,
	}

	if got := Resolve(task, at(0, 5, 0), false, false); got != StatusActive {
		t.Errorf("status = %q, want %q", got, StatusActive)
	}
}

func TestResolveMalformedTimeFailsOpen(t *testing.T) {
	for _, tod := range []string{"", "8am", "25:00", "08:60", "garbage"} {
		task := morningTask()
		task.TimeOfDay = tod

		if got := Resolve(task, at(12, 0, 0), false, false); got != StatusActive {
			t.Errorf("time_of_day %q: status = %q, want %q", tod, got, StatusActive)
		}
	}
}

func TestResolveFlexBeyondExpiryAlwaysActive(t *testing.T) {
	// Degenerate config: the window opens after the task would already be
	// expired. Resolver treats it as always actionable.
	task := model.Task{
		Recurrence:      model.RecurrenceRecurring,
		TimeOfDay:       "08:00",
		FlexMinutes:     120,
		ExpiryRule:      model.ExpiryOffset,
		ExpiryOffsetMin: -180,
	}

	if got := Resolve(task, at(12, 0, 0), false, false); got != StatusActive {
		t.Errorf("status = %q, want %q", got, StatusActive)
	}
}

func TestDueOnWeekdays(t *testing.T) {
	task := model.Task{
		Recurrence: model.RecurrenceRecurring,
		DaysOfWeek: "mon,wed,fri",
	}

	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	if !DueOn(task, monday) {
		t.Error("expected task due on Monday")
	}
	if DueOn(task, tuesday) {
		t.Error("expected task not due on Tuesday")
	}
}

func TestDueOnEmptyDaySetIsDaily(t *testing.T) {
	task := model.Task{Recurrence: model.RecurrenceRecurring}

	if !DueOn(task, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected recurring task with no day set to be due every day")
	}
}

func TestDueOnOneTimeDate(t *testing.T) {
	task := model.Task{Recurrence: model.RecurrenceOneTime, Date: "2026-03-10"}

	if !DueOn(task, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Error("expected one-time task due on its date")
	}
	if DueOn(task, time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)) {
		t.Error("expected one-time task not due the day after")
	}
}

func TestDeadline(t *testing.T) {
	task := model.Task{
		Recurrence: model.RecurrenceOneTime,
		TimeOfDay:  "18:00",
		Date:       "2026-03-10",
	}

	deadline, ok := Deadline(task, at(9, 0, 0))
	if !ok {
		t.Fatal("expected a deadline")
	}
	want := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	if !deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", deadline, want)
	}
}

func TestDeadlineNever(t *testing.T) {
	task := morningTask()
	task.ExpiryRule = model.ExpiryNever

	if _, ok := Deadline(task, at(9, 0, 0)); ok {
		t.Error("expected no deadline for never-expiring task")
	}
}
