package task

import (
	"strconv"
	"strings"
	"time"

	"starchart/internal/model"
)

type Status string

const (
	StatusLocked    Status = "locked"
	StatusActive    Status = "active"
	StatusOverdue   Status = "overdue"
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
)

// Resolve maps a task definition and the current instant to its lifecycle
// status. It is a pure function: the task's state is never persisted, only
// derived from the schedule and the presence of a completion or miss log.
//
// Resolve never fails. A malformed time_of_day degrades to active so a data
// error can't silently hide a chore from a child.
func Resolve(t model.Task, now time.Time, hasCompleted, hasMissed bool) Status {
	if hasCompleted {
		return StatusCompleted
	}
	if hasMissed {
		return StatusMissed
	}

	dueAt, ok := dueInstant(t, now)
	if !ok {
		return StatusActive
	}

	expiry, hasExpiry := expiryInstant(t, dueAt)

	if t.Recurrence == model.RecurrenceRecurring {
		unlock := unlockInstant(t, dueAt)
		if hasExpiry && expiry.Before(unlock) {
			// Flex window reaches past the expiry instant, so the task would
			// unlock already expired. Treat it as always actionable.
			return StatusActive
		}
		if now.Before(unlock) {
			return StatusLocked
		}
	}

	if hasExpiry && now.After(expiry) {
		return StatusExpired
	}
	if t.Recurrence == model.RecurrenceRecurring && now.After(dueAt) {
		return StatusOverdue
	}
	return StatusActive
}

// DueOn reports whether the task has an occurrence on the given date.
// Recurring tasks with an empty day set occur every day; one-time tasks
// occur only on their explicit date.
func DueOn(t model.Task, date time.Time) bool {
	if t.Recurrence == model.RecurrenceOneTime {
		return t.Date == date.Format(model.DateLayout)
	}
	days := t.Weekdays()
	if len(days) == 0 {
		return true
	}
	return days[date.Weekday()]
}

// Deadline returns the instant after which the task's occurrence for the
// day of now counts as missed. The second return is false when the task
// never expires or its schedule data doesn't parse.
func Deadline(t model.Task, now time.Time) (time.Time, bool) {
	dueAt, ok := dueInstant(t, now)
	if !ok {
		return time.Time{}, false
	}
	return expiryInstant(t, dueAt)
}

// dueInstant computes the nominal time_of_day instant for the occurrence
// relevant to now: today for recurring tasks, the explicit date for
// one-time tasks.
func dueInstant(t model.Task, now time.Time) (time.Time, bool) {
	day := now
	if t.Recurrence == model.RecurrenceOneTime && t.Date != "" {
		d, err := time.ParseInLocation(model.DateLayout, t.Date, now.Location())
		if err != nil {
			return time.Time{}, false
		}
		day = d
	}

	hh, mm, ok := parseClock(t.TimeOfDay)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, now.Location()), true
}

func unlockInstant(t model.Task, dueAt time.Time) time.Time {
	if t.FlexMinutes == model.FlexAllDay {
		return startOfDay(dueAt)
	}
	flex := t.FlexMinutes
	if flex < 0 {
		flex = 0
	}
	return dueAt.Add(-time.Duration(flex) * time.Minute)
}

func expiryInstant(t model.Task, dueAt time.Time) (time.Time, bool) {
	switch t.ExpiryRule {
	case model.ExpiryNever:
		return time.Time{}, false
	case model.ExpiryOffset:
		return dueAt.Add(time.Duration(t.ExpiryOffsetMin) * time.Minute), true
	case model.ExpiryEndOfDay:
		return startOfDay(dueAt).Add(24 * time.Hour), true
	}
	// No explicit rule: a one-time task is due by its nominal time, a
	// recurring one keeps its slot for the rest of the day.
	if t.Recurrence == model.RecurrenceOneTime {
		return dueAt, true
	}
	return startOfDay(dueAt).Add(24 * time.Hour), true
}

func parseClock(s string) (hh, mm int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	mm, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
