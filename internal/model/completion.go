package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for log keys and task dates.
const DateLayout = "2006-01-02"

type LogStatus string

const (
	LogCompleted LogStatus = "completed"
	LogMissed    LogStatus = "missed"
)

// ActivityManualReward is the activity_id sentinel for ad-hoc parent awards
// that have no backing task or goal.
const ActivityManualReward = "manual_reward"

// CompletionLog records one resolved outcome for an activity on a calendar
// day. Its id is a deterministic idempotency key, so a retried write
// conflicts with the first instead of duplicating it. Title and icon are
// denormalized snapshots so history survives task deletion.
type CompletionLog struct {
	ID           string     `json:"id"`
	HouseholdID  int64      `json:"household_id"`
	ProfileID    int64      `json:"profile_id"`
	ActivityID   string     `json:"activity_id"`
	Title        string     `json:"title"`
	Icon         string     `json:"icon"`
	Date         string     `json:"date"` // YYYY-MM-DD
	Status       LogStatus  `json:"status"`
	StarsEarned  int        `json:"stars_earned"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	SeenByParent bool       `json:"seen_by_parent"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TaskLogID is the idempotency key for a task completion or miss: at most
// one log per (task, profile, day).
func TaskLogID(taskID, profileID int64, date string) string {
	return fmt.Sprintf("task_%d_%d_%s", taskID, profileID, date)
}

// GoalLogID keys a goal's award log. Approval is a one-way transition, so
// the goal id alone is enough.
func GoalLogID(goalID int64) string {
	return fmt.Sprintf("goal_%d", goalID)
}

// TaskActivityID is the activity_id stored on task logs.
func TaskActivityID(taskID int64) string {
	return fmt.Sprintf("task_%d", taskID)
}
