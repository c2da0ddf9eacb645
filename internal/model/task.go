package model

import (
	"strings"
	"time"
)

type Recurrence string

const (
	RecurrenceRecurring Recurrence = "recurring"
	RecurrenceOneTime   Recurrence = "one_time"
)

type ExpiryRule string

const (
	ExpiryEndOfDay ExpiryRule = "end_of_day"
	ExpiryOffset   ExpiryRule = "offset"
	ExpiryNever    ExpiryRule = "never"
)

// FlexAllDay as FlexMinutes means the task is startable from the beginning
// of its day rather than a fixed window before time_of_day.
const FlexAllDay = -1

type Task struct {
	ID              int64      `json:"id"`
	HouseholdID     int64      `json:"household_id"`
	Title           string     `json:"title"`
	Icon            string     `json:"icon"`
	Recurrence      Recurrence `json:"recurrence"`
	TimeOfDay       string     `json:"time_of_day"`  // local HH:MM
	DaysOfWeek      string     `json:"days_of_week"` // comma-separated mon..sun
	Date            string     `json:"date"`         // YYYY-MM-DD, one-time only
	FlexMinutes     int        `json:"flex_minutes"`
	ExpiryRule      ExpiryRule `json:"expiry_rule"`
	ExpiryOffsetMin int        `json:"expiry_offset_min"`
	AssigneeIDs     []int64    `json:"assignee_ids"`
	Steps           []TaskStep `json:"steps"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type TaskStep struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Title     string `json:"title"`
	Stars     int    `json:"stars"`
	SortOrder int    `json:"sort_order"`
}

// TotalStars is the task's full award: the sum of its step rewards.
func (t Task) TotalStars() int {
	total := 0
	for _, s := range t.Steps {
		total += s.Stars
	}
	return total
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// Weekdays parses the days_of_week set. Unknown tokens are skipped.
func (t Task) Weekdays() map[time.Weekday]bool {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(t.DaysOfWeek, ",") {
		if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(part))]; ok {
			days[d] = true
		}
	}
	return days
}
