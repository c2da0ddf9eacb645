// Package notify fans committed domain events out to the websocket hub and,
// for the ones a parent or child should see on a lock screen, to web push.
// Everything here is best effort; a delivery failure is logged, never
// returned.
package notify

import (
	"fmt"
	"log/slog"

	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/push"
	"starchart/internal/websocket"
)

type Notifier struct {
	hub    *websocket.Hub
	push   *push.Service
	logger *slog.Logger
}

func New(hub *websocket.Hub, pushSvc *push.Service, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{hub: hub, push: pushSvc, logger: logger.With("component", "notify")}
}

// LedgerEvent is wired as the ledger engine's onEvent hook.
func (n *Notifier) LedgerEvent(ev ledger.Event) {
	n.hub.Broadcast(websocket.StarsMoved(ev.Type, ev.ProfileID, ev.Title, ev.Stars))

	switch ev.Type {
	case ledger.EventPurchaseRequested:
		n.push.Broadcast(ev.HouseholdID, push.Payload{
			Title: "Purchase request",
			Body:  fmt.Sprintf("%s is waiting for approval", ev.Title),
			URL:   "/approvals",
			Tag:   "purchase-request",
		})
	case ledger.EventPurchaseApproved:
		n.push.Broadcast(ev.HouseholdID, push.Payload{
			Title: "Purchase approved",
			Body:  fmt.Sprintf("%s is yours! %d stars spent", ev.Title, -ev.Stars),
			Tag:   "purchase-decision",
		})
	case ledger.EventPurchaseRejected:
		n.push.Broadcast(ev.HouseholdID, push.Payload{
			Title: "Purchase declined",
			Body:  fmt.Sprintf("%s wasn't approved this time", ev.Title),
			Tag:   "purchase-decision",
		})
	case ledger.EventGoalApproved:
		n.push.Broadcast(ev.HouseholdID, push.Payload{
			Title: "Goal reached",
			Body:  fmt.Sprintf("%s earned %d stars", ev.Title, ev.Stars),
			Tag:   "goal-decision",
		})
	}
}

// TaskExpired is wired as the sweeper's onMiss hook.
func (n *Notifier) TaskExpired(t model.Task, profileID int64) {
	n.hub.Broadcast(websocket.Message{
		Type:      "task_expired",
		Entity:    "task",
		Action:    "expired",
		ID:        fmt.Sprintf("%d", t.ID),
		ProfileID: profileID,
		Title:     t.Title,
	})
	n.push.Broadcast(t.HouseholdID, push.Payload{
		Title: "Time's up",
		Body:  fmt.Sprintf("%s wasn't finished in time", t.Title),
		Tag:   "task-expired",
	})
}

// EntityChanged is the generic mutation broadcast used by the HTTP handlers.
func (n *Notifier) EntityChanged(entity, action, id string) {
	n.hub.Broadcast(websocket.EntityChanged(entity, action, id))
}
