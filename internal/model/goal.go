package model

import (
	"encoding/json"
	"time"
)

type GoalType string

const (
	GoalCounter   GoalType = "counter"
	GoalChecklist GoalType = "checklist"
	GoalBinary    GoalType = "binary"
	GoalSlider    GoalType = "slider"
	GoalSavings   GoalType = "savings"
	GoalTimer     GoalType = "timer"
)

type GoalStatus string

const (
	GoalActive          GoalStatus = "active"
	GoalPendingApproval GoalStatus = "pending_approval"
	GoalCompleted       GoalStatus = "completed"
	GoalCancelled       GoalStatus = "cancelled"
)

type Goal struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	ProfileID   int64      `json:"profile_id"`
	Type        GoalType   `json:"type"`
	Title       string     `json:"title"`
	Icon        string     `json:"icon"`
	Target      int        `json:"target"`
	Current     int        `json:"current"`
	Unit        string     `json:"unit"`
	Stars       int        `json:"stars"`
	DueDate     string     `json:"due_date,omitempty"`
	Status      GoalStatus `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Items       []GoalItem `json:"items,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type GoalItem struct {
	ID        int64  `json:"id"`
	GoalID    int64  `json:"goal_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	SortOrder int    `json:"sort_order"`
}

// ChecklistItemInput accepts both the current {"text": ..., "completed": ...}
// shape and the legacy bare-string shape still present in exported data.
// Normalizing here keeps the rest of the goal logic on a single shape.
type ChecklistItemInput struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

func (c *ChecklistItemInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Completed = false
		return nil
	}

	type plain ChecklistItemInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ChecklistItemInput(p)
	return nil
}
