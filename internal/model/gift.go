package model

import "time"

type GiftStatus string

const (
	GiftPending GiftStatus = "pending"
	GiftClaimed GiftStatus = "claimed"
)

// Gift is a one-off star award a parent leaves for a child to claim. The
// gift's id is reused as its completion log id, so a double-tapped claim
// pays out once.
type Gift struct {
	ID          string     `json:"id"`
	HouseholdID int64      `json:"household_id"`
	ProfileID   int64      `json:"profile_id"`
	Title       string     `json:"title"`
	Stars       int        `json:"stars"`
	Status      GiftStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}
