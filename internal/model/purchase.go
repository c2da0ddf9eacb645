package model

import "time"

type Reward struct {
	ID               int64     `json:"id"`
	HouseholdID      int64     `json:"household_id"`
	Title            string    `json:"title"`
	Icon             string    `json:"icon"`
	Cost             int       `json:"cost"`
	RequiresApproval bool      `json:"requires_approval"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "pending"
	PurchaseApproved PurchaseStatus = "approved"
	PurchaseRejected PurchaseStatus = "rejected"
)

// PurchaseRequest carries a snapshot of the reward at purchase time so
// later catalog edits don't rewrite history.
type PurchaseRequest struct {
	ID          string         `json:"id"`
	HouseholdID int64          `json:"household_id"`
	ProfileID   int64          `json:"profile_id"`
	RewardID    *int64         `json:"reward_id,omitempty"`
	Title       string         `json:"title"`
	Icon        string         `json:"icon"`
	Cost        int            `json:"cost"`
	Status      PurchaseStatus `json:"status"`
	PurchasedAt time.Time      `json:"purchased_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}
