// Package ledger is the sole writer of profile star balances. Every
// operation runs as a single SQLite transaction that updates the balance,
// flips the triggering entity's status, and appends a completion log in one
// commit, keyed so that retries and double-taps apply exactly once.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"starchart/internal/clock"
	"starchart/internal/model"
)

// Event describes a committed ledger movement. Emission is fire-and-forget:
// a notification failure must never roll back a transaction, so events fire
// only after commit.
type Event struct {
	Type        string
	HouseholdID int64
	ProfileID   int64
	Title       string
	Stars       int // signed: credits positive, debits negative
}

const (
	EventTaskCompleted     = "task_completed"
	EventGoalApproved      = "goal_approved"
	EventGoalRejected      = "goal_rejected"
	EventPurchaseRequested = "purchase_requested"
	EventPurchaseApproved  = "purchase_approved"
	EventPurchaseRejected  = "purchase_rejected"
	EventGiftClaimed       = "gift_claimed"
	EventStarsGranted      = "stars_granted"
)

type Engine struct {
	db      *sql.DB
	clock   clock.Clock
	onEvent func(Event)
	logger  *slog.Logger
}

// New creates the engine. onEvent may be nil.
func New(db *sql.DB, clk clock.Clock, onEvent func(Event), logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{db: db, clock: clk, onEvent: onEvent, logger: logger}
}

func (e *Engine) notify(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

// withTx runs fn inside a transaction, retrying with backoff when SQLite
// reports a write conflict. Domain errors pass through unretried. Events
// handed to emit are buffered per attempt and fired only after a
// successful commit, so a notification can never describe a rolled-back
// balance change.
func (e *Engine) withTx(ctx context.Context, fn func(tx *sql.Tx, emit func(Event)) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var events []Event
		emit := func(ev Event) { events = append(events, ev) }

		err := e.runTx(ctx, func(tx *sql.Tx) error { return fn(tx, emit) })
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		for _, ev := range events {
			e.notify(ev)
		}
		return nil
	})
}

func (e *Engine) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// creditStars adds to a balance inside tx.
func creditStars(tx *sql.Tx, profileID int64, stars int) error {
	result, err := tx.Exec(
		`UPDATE profiles SET stars = stars + ?, updated_at = datetime('now') WHERE id = ?`,
		stars, profileID,
	)
	if err != nil {
		return fmt.Errorf("credit stars: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %d: %w", profileID, ErrNotFound)
	}
	return nil
}

// debitStars subtracts from a balance inside tx, refusing to go negative.
func debitStars(tx *sql.Tx, profileID int64, stars int) error {
	result, err := tx.Exec(
		`UPDATE profiles SET stars = stars - ?, updated_at = datetime('now') WHERE id = ? AND stars >= ?`,
		stars, profileID, stars,
	)
	if err != nil {
		return fmt.Errorf("debit stars: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM profiles WHERE id = ?`, profileID).Scan(&exists); err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("profile %d: %w", profileID, ErrNotFound)
	}
	return ErrInsufficientStars
}

// insertLog appends a completion log under its idempotency key. Returns
// false when a log with that key already exists, in which case nothing was
// written.
func insertLog(tx *sql.Tx, l model.CompletionLog) (bool, error) {
	result, err := tx.Exec(
		`INSERT INTO completion_logs (id, household_id, profile_id, activity_id, title, icon, date, status, stars_earned, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		l.ID, l.HouseholdID, l.ProfileID, l.ActivityID, l.Title, l.Icon,
		l.Date, l.Status, l.StarsEarned, l.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert completion log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CompleteTask awards a task's full step total to the profile and records
// the completion. Calling it twice for the same (task, profile, day) awards
// once; the second call returns the already-recorded award.
func (e *Engine) CompleteTask(ctx context.Context, taskID, profileID int64, now time.Time) (int, error) {
	if taskID <= 0 || profileID <= 0 {
		return 0, fmt.Errorf("%w: task and profile ids are required", ErrValidation)
	}

	var awarded int
	err := e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID int64
		var title, icon, recurrence, taskDate string
		err := tx.QueryRow(
			`SELECT household_id, title, icon, recurrence, date FROM tasks WHERE id = ?`,
			taskID,
		).Scan(&householdID, &title, &icon, &recurrence, &taskDate)
		if err == sql.ErrNoRows {
			return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		var stars int
		if err := tx.QueryRow(
			`SELECT COALESCE(SUM(stars), 0) FROM task_steps WHERE task_id = ?`, taskID,
		).Scan(&stars); err != nil {
			return fmt.Errorf("sum step stars: %w", err)
		}

		// One-time tasks log under their occurrence date so a completion
		// and a sweeper miss contend for the same key.
		date := now.Format(model.DateLayout)
		if model.Recurrence(recurrence) == model.RecurrenceOneTime && taskDate != "" {
			date = taskDate
		}

		completedAt := now
		inserted, err := insertLog(tx, model.CompletionLog{
			ID:          model.TaskLogID(taskID, profileID, date),
			HouseholdID: householdID,
			ProfileID:   profileID,
			ActivityID:  model.TaskActivityID(taskID),
			Title:       title,
			Icon:        icon,
			Date:        date,
			Status:      model.LogCompleted,
			StarsEarned: stars,
			CompletedAt: &completedAt,
		})
		if err != nil {
			return err
		}
		if !inserted {
			// Already applied; report the recorded award and change nothing.
			return tx.QueryRow(
				`SELECT stars_earned FROM completion_logs WHERE id = ?`,
				model.TaskLogID(taskID, profileID, date),
			).Scan(&awarded)
		}

		if err := creditStars(tx, profileID, stars); err != nil {
			return err
		}
		awarded = stars

		emit(Event{
			Type: EventTaskCompleted, HouseholdID: householdID,
			ProfileID: profileID, Title: title, Stars: stars,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return awarded, nil
}

// ApproveGoal moves a pending goal to completed and pays its award.
// awardOverride, when non-nil, replaces the goal's configured star reward.
func (e *Engine) ApproveGoal(ctx context.Context, goalID int64, awardOverride *int) error {
	if awardOverride != nil && *awardOverride < 0 {
		return fmt.Errorf("%w: award override must be >= 0", ErrValidation)
	}

	return e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID, profileID int64
		var status, title, icon string
		var stars int
		err := tx.QueryRow(
			`SELECT household_id, profile_id, status, title, icon, stars FROM goals WHERE id = ?`,
			goalID,
		).Scan(&householdID, &profileID, &status, &title, &icon, &stars)
		if err == sql.ErrNoRows {
			return fmt.Errorf("goal %d: %w", goalID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		if model.GoalStatus(status) != model.GoalPendingApproval {
			return fmt.Errorf("goal %d is %s: %w", goalID, status, ErrPreconditionFailed)
		}

		if awardOverride != nil {
			stars = *awardOverride
		}
		now := e.clock.Now()

		_, err = tx.Exec(
			`UPDATE goals SET status = ?, completed_at = COALESCE(completed_at, ?), updated_at = datetime('now') WHERE id = ?`,
			model.GoalCompleted, now, goalID,
		)
		if err != nil {
			return fmt.Errorf("complete goal: %w", err)
		}

		inserted, err := insertLog(tx, model.CompletionLog{
			ID:          model.GoalLogID(goalID),
			HouseholdID: householdID,
			ProfileID:   profileID,
			ActivityID:  model.GoalLogID(goalID),
			Title:       title,
			Icon:        icon,
			Date:        now.Format(model.DateLayout),
			Status:      model.LogCompleted,
			StarsEarned: stars,
			CompletedAt: &now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			// The award was already paid on a previous approval attempt.
			return nil
		}

		if err := creditStars(tx, profileID, stars); err != nil {
			return err
		}

		emit(Event{
			Type: EventGoalApproved, HouseholdID: householdID,
			ProfileID: profileID, Title: title, Stars: stars,
		})
		return nil
	})
}

// RejectGoal returns a pending goal to active. Binary goals lose their
// progress; other types keep what the child already logged.
func (e *Engine) RejectGoal(ctx context.Context, goalID int64) error {
	return e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID, profileID int64
		var status, goalType, title string
		err := tx.QueryRow(
			`SELECT household_id, profile_id, status, type, title FROM goals WHERE id = ?`,
			goalID,
		).Scan(&householdID, &profileID, &status, &goalType, &title)
		if err == sql.ErrNoRows {
			return fmt.Errorf("goal %d: %w", goalID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		if model.GoalStatus(status) != model.GoalPendingApproval {
			return fmt.Errorf("goal %d is %s: %w", goalID, status, ErrPreconditionFailed)
		}

		if model.GoalType(goalType) == model.GoalBinary {
			if _, err := tx.Exec(`UPDATE goals SET current = 0 WHERE id = ?`, goalID); err != nil {
				return fmt.Errorf("reset progress: %w", err)
			}
		}
		_, err = tx.Exec(
			`UPDATE goals SET status = ?, completed_at = NULL, updated_at = datetime('now') WHERE id = ?`,
			model.GoalActive, goalID,
		)
		if err != nil {
			return fmt.Errorf("reject goal: %w", err)
		}

		emit(Event{
			Type: EventGoalRejected, HouseholdID: householdID,
			ProfileID: profileID, Title: title,
		})
		return nil
	})
}

// RequestPurchase creates a pending purchase request for a catalog reward,
// snapshotting its title, icon, and cost. Rewards marked as not requiring
// approval are claimed immediately instead (see ClaimInstant).
func (e *Engine) RequestPurchase(ctx context.Context, profileID, rewardID int64) (*model.PurchaseRequest, error) {
	return e.purchase(ctx, profileID, rewardID, false)
}

// ClaimInstant debits the reward's cost and records an approved request in
// one step, for catalog entries that skip parental approval.
func (e *Engine) ClaimInstant(ctx context.Context, profileID, rewardID int64) (*model.PurchaseRequest, error) {
	return e.purchase(ctx, profileID, rewardID, true)
}

func (e *Engine) purchase(ctx context.Context, profileID, rewardID int64, instant bool) (*model.PurchaseRequest, error) {
	if profileID <= 0 || rewardID <= 0 {
		return nil, fmt.Errorf("%w: profile and reward ids are required", ErrValidation)
	}

	var request model.PurchaseRequest
	err := e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID int64
		var title, icon string
		var cost, requiresApproval, active int
		err := tx.QueryRow(
			`SELECT household_id, title, icon, cost, requires_approval, active FROM rewards WHERE id = ?`,
			rewardID,
		).Scan(&householdID, &title, &icon, &cost, &requiresApproval, &active)
		if err == sql.ErrNoRows {
			return fmt.Errorf("reward %d: %w", rewardID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get reward: %w", err)
		}
		if active == 0 {
			return fmt.Errorf("%w: reward is not active", ErrValidation)
		}
		if instant && requiresApproval != 0 {
			return fmt.Errorf("%w: reward requires approval", ErrPreconditionFailed)
		}

		now := e.clock.Now()
		request = model.PurchaseRequest{
			ID:          uuid.NewString(),
			HouseholdID: householdID,
			ProfileID:   profileID,
			RewardID:    &rewardID,
			Title:       title,
			Icon:        icon,
			Cost:        cost,
			Status:      model.PurchasePending,
			PurchasedAt: now,
		}

		if instant {
			if err := debitStars(tx, profileID, cost); err != nil {
				return err
			}
			request.Status = model.PurchaseApproved
			request.ProcessedAt = &now
		} else {
			// A pending request still needs a live profile behind it.
			var exists int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM profiles WHERE id = ?`, profileID).Scan(&exists); err != nil {
				return fmt.Errorf("check profile: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("profile %d: %w", profileID, ErrNotFound)
			}
		}

		_, err = tx.Exec(
			`INSERT INTO purchase_requests (id, household_id, profile_id, reward_id, title, icon, cost, status, purchased_at, processed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			request.ID, householdID, profileID, rewardID, title, icon, cost,
			request.Status, now, request.ProcessedAt,
		)
		if err != nil {
			return fmt.Errorf("insert purchase request: %w", err)
		}

		if instant {
			if _, err := insertLog(tx, model.CompletionLog{
				ID:          request.ID,
				HouseholdID: householdID,
				ProfileID:   profileID,
				ActivityID:  request.ID,
				Title:       title,
				Icon:        icon,
				Date:        now.Format(model.DateLayout),
				Status:      model.LogCompleted,
				StarsEarned: -cost,
				CompletedAt: &now,
			}); err != nil {
				return err
			}
			emit(Event{
				Type: EventPurchaseApproved, HouseholdID: householdID,
				ProfileID: profileID, Title: title, Stars: -cost,
			})
		} else {
			emit(Event{
				Type: EventPurchaseRequested, HouseholdID: householdID,
				ProfileID: profileID, Title: title,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ApprovePurchase debits the snapshotted cost exactly once on the pending →
// approved transition.
func (e *Engine) ApprovePurchase(ctx context.Context, requestID string) error {
	return e.processPurchase(ctx, requestID, true)
}

// RejectPurchase declines a pending request without touching the balance.
func (e *Engine) RejectPurchase(ctx context.Context, requestID string) error {
	return e.processPurchase(ctx, requestID, false)
}

func (e *Engine) processPurchase(ctx context.Context, requestID string, approve bool) error {
	if requestID == "" {
		return fmt.Errorf("%w: request id is required", ErrValidation)
	}

	return e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID, profileID int64
		var status, title, icon string
		var cost int
		err := tx.QueryRow(
			`SELECT household_id, profile_id, status, title, icon, cost FROM purchase_requests WHERE id = ?`,
			requestID,
		).Scan(&householdID, &profileID, &status, &title, &icon, &cost)
		if err == sql.ErrNoRows {
			return fmt.Errorf("purchase request %s: %w", requestID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get purchase request: %w", err)
		}
		if model.PurchaseStatus(status) != model.PurchasePending {
			return fmt.Errorf("purchase request is %s: %w", status, ErrPreconditionFailed)
		}

		now := e.clock.Now()
		next := model.PurchaseRejected
		if approve {
			if err := debitStars(tx, profileID, cost); err != nil {
				return err
			}
			next = model.PurchaseApproved
		}

		_, err = tx.Exec(
			`UPDATE purchase_requests SET status = ?, processed_at = ? WHERE id = ?`,
			next, now, requestID,
		)
		if err != nil {
			return fmt.Errorf("update purchase request: %w", err)
		}

		if approve {
			if _, err := insertLog(tx, model.CompletionLog{
				ID:          requestID,
				HouseholdID: householdID,
				ProfileID:   profileID,
				ActivityID:  requestID,
				Title:       title,
				Icon:        icon,
				Date:        now.Format(model.DateLayout),
				Status:      model.LogCompleted,
				StarsEarned: -cost,
				CompletedAt: &now,
			}); err != nil {
				return err
			}
			emit(Event{
				Type: EventPurchaseApproved, HouseholdID: householdID,
				ProfileID: profileID, Title: title, Stars: -cost,
			})
		} else {
			emit(Event{
				Type: EventPurchaseRejected, HouseholdID: householdID,
				ProfileID: profileID, Title: title,
			})
		}
		return nil
	})
}

// ClaimGift pays out a pending gift. The gift's id doubles as the log id,
// so a claim that fires twice credits once.
func (e *Engine) ClaimGift(ctx context.Context, giftID string) error {
	if giftID == "" {
		return fmt.Errorf("%w: gift id is required", ErrValidation)
	}

	return e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID, profileID int64
		var status, title string
		var stars int
		err := tx.QueryRow(
			`SELECT household_id, profile_id, status, title, stars FROM gifts WHERE id = ?`,
			giftID,
		).Scan(&householdID, &profileID, &status, &title, &stars)
		if err == sql.ErrNoRows {
			return fmt.Errorf("gift %s: %w", giftID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get gift: %w", err)
		}
		if model.GiftStatus(status) != model.GiftPending {
			return fmt.Errorf("gift is %s: %w", status, ErrPreconditionFailed)
		}

		now := e.clock.Now()
		_, err = tx.Exec(
			`UPDATE gifts SET status = ?, claimed_at = ? WHERE id = ?`,
			model.GiftClaimed, now, giftID,
		)
		if err != nil {
			return fmt.Errorf("claim gift: %w", err)
		}

		inserted, err := insertLog(tx, model.CompletionLog{
			ID:          giftID,
			HouseholdID: householdID,
			ProfileID:   profileID,
			ActivityID:  giftID,
			Title:       title,
			Date:        now.Format(model.DateLayout),
			Status:      model.LogCompleted,
			StarsEarned: stars,
			CompletedAt: &now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if err := creditStars(tx, profileID, stars); err != nil {
			return err
		}

		emit(Event{
			Type: EventGiftClaimed, HouseholdID: householdID,
			ProfileID: profileID, Title: title, Stars: stars,
		})
		return nil
	})
}

// GrantStars is an ad-hoc parent award with no backing task or goal.
func (e *Engine) GrantStars(ctx context.Context, householdID, profileID int64, stars int, reason string) error {
	if stars <= 0 {
		return fmt.Errorf("%w: stars must be > 0", ErrValidation)
	}
	if profileID <= 0 {
		return fmt.Errorf("%w: profile id is required", ErrValidation)
	}

	return e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		now := e.clock.Now()
		if _, err := insertLog(tx, model.CompletionLog{
			ID:          uuid.NewString(),
			HouseholdID: householdID,
			ProfileID:   profileID,
			ActivityID:  model.ActivityManualReward,
			Title:       reason,
			Date:        now.Format(model.DateLayout),
			Status:      model.LogCompleted,
			StarsEarned: stars,
			CompletedAt: &now,
		}); err != nil {
			return err
		}
		if err := creditStars(tx, profileID, stars); err != nil {
			return err
		}

		emit(Event{
			Type: EventStarsGranted, HouseholdID: householdID,
			ProfileID: profileID, Title: reason, Stars: stars,
		})
		return nil
	})
}

// RecordMiss materializes an expired, unresolved task occurrence as a
// missed log. No balance movement; idempotent under the task log key.
// Returns the log id and whether a new record was written.
func (e *Engine) RecordMiss(ctx context.Context, taskID, profileID int64, date string) (string, bool, error) {
	id := model.TaskLogID(taskID, profileID, date)

	var inserted bool
	err := e.withTx(ctx, func(tx *sql.Tx, emit func(Event)) error {
		var householdID int64
		var title, icon string
		err := tx.QueryRow(
			`SELECT household_id, title, icon FROM tasks WHERE id = ?`, taskID,
		).Scan(&householdID, &title, &icon)
		if err == sql.ErrNoRows {
			return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}

		inserted, err = insertLog(tx, model.CompletionLog{
			ID:          id,
			HouseholdID: householdID,
			ProfileID:   profileID,
			ActivityID:  model.TaskActivityID(taskID),
			Title:       title,
			Icon:        icon,
			Date:        date,
			Status:      model.LogMissed,
		})
		return err
	})
	if err != nil {
		return "", false, err
	}
	return id, inserted, nil
}
