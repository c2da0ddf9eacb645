// Package goal drives the goal state machine: active → pending_approval →
// {completed, active}, plus active → cancelled. Star payout on approval is
// the ledger's job; this package owns progress mutation and the transitions
// that don't move stars.
package goal

import (
	"context"
	"fmt"
	"log/slog"

	"starchart/internal/clock"
	"starchart/internal/ledger"
	"starchart/internal/model"
	"starchart/internal/store"
)

type Controller struct {
	goals  *store.GoalStore
	engine *ledger.Engine
	clock  clock.Clock
	logger *slog.Logger
}

func NewController(goals *store.GoalStore, engine *ledger.Engine, clk clock.Clock, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{goals: goals, engine: engine, clock: clk, logger: logger.With("component", "goal")}
}

// Create validates and stores a new goal. Checklist goals take their items
// from input already normalized by ChecklistItemInput, so legacy bare-string
// payloads arrive here as {text, completed} like everything else.
func (c *Controller) Create(g model.Goal, items []model.ChecklistItemInput) (*model.Goal, error) {
	if g.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ledger.ErrValidation)
	}
	if g.ProfileID <= 0 {
		return nil, fmt.Errorf("%w: profile id is required", ledger.ErrValidation)
	}
	if g.Stars < 0 {
		return nil, fmt.Errorf("%w: stars must be >= 0", ledger.ErrValidation)
	}

	switch g.Type {
	case model.GoalBinary:
		g.Target = 1
	case model.GoalChecklist:
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: checklist goals need at least one item", ledger.ErrValidation)
		}
		g.Target = len(items)
		g.Current = 0
		for _, item := range items {
			if item.Completed {
				g.Current++
			}
			g.Items = append(g.Items, model.GoalItem{Text: item.Text, Completed: item.Completed})
		}
	case model.GoalCounter, model.GoalSlider, model.GoalSavings, model.GoalTimer:
		if g.Target < 1 {
			return nil, fmt.Errorf("%w: target must be >= 1", ledger.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown goal type %q", ledger.ErrValidation, g.Type)
	}

	return c.goals.Create(g)
}

func (c *Controller) Get(id int64) (*model.Goal, error) {
	g, err := c.goals.GetByID(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("goal %d: %w", id, ledger.ErrNotFound)
	}
	return g, nil
}

// Increment shifts progress by delta, clamped to [0, target] for every type
// except savings, which may run past its target. Progress on a non-active
// goal is a silent no-op; the caller gets the goal back unchanged.
func (c *Controller) Increment(id int64, delta int) (*model.Goal, error) {
	g, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if g.Type == model.GoalChecklist {
		return nil, fmt.Errorf("%w: checklist progress moves through its items", ledger.ErrValidation)
	}
	if g.Status != model.GoalActive {
		return g, nil
	}

	next := clampProgress(g, g.Current+delta)
	if next == g.Current {
		return g, nil
	}
	if _, err := c.goals.SetCurrentIfActive(id, next); err != nil {
		return nil, err
	}
	return c.Get(id)
}

// SetProgress writes an absolute progress value, same clamping and same
// no-op rule as Increment. Sliders report position rather than deltas.
func (c *Controller) SetProgress(id int64, value int) (*model.Goal, error) {
	g, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if g.Type == model.GoalChecklist {
		return nil, fmt.Errorf("%w: checklist progress moves through its items", ledger.ErrValidation)
	}
	if g.Status != model.GoalActive {
		return g, nil
	}

	if _, err := c.goals.SetCurrentIfActive(id, clampProgress(g, value)); err != nil {
		return nil, err
	}
	return c.Get(id)
}

func clampProgress(g *model.Goal, value int) int {
	if value < 0 {
		return 0
	}
	if g.Type != model.GoalSavings && value > g.Target {
		return g.Target
	}
	return value
}

// ToggleItem flips one checklist item and lets the store recount current
// from the item flags. No-op when the goal isn't active.
func (c *Controller) ToggleItem(goalID, itemID int64, completed bool) (*model.Goal, error) {
	g, err := c.Get(goalID)
	if err != nil {
		return nil, err
	}
	if g.Type != model.GoalChecklist {
		return nil, fmt.Errorf("%w: goal has no checklist items", ledger.ErrValidation)
	}
	if g.Status != model.GoalActive {
		return g, nil
	}

	if _, err := c.goals.SetItemIfActive(goalID, itemID, completed); err != nil {
		return nil, err
	}
	return c.Get(goalID)
}

// RequestCompletion moves an active goal into the parent's approval queue.
// completed_at is stamped now, speculatively; a rejection clears it. The
// child may request regardless of numeric completeness, the parent is the
// judge of done.
func (c *Controller) RequestCompletion(id int64) (*model.Goal, error) {
	ok, err := c.goals.Transition(id, model.GoalActive, model.GoalPendingApproval, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		g, err := c.goals.GetByID(id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("goal %d: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("goal %d is %s: %w", id, g.Status, ledger.ErrPreconditionFailed)
	}
	return c.Get(id)
}

// Cancel retires an active goal without payout.
func (c *Controller) Cancel(id int64) (*model.Goal, error) {
	ok, err := c.goals.Transition(id, model.GoalActive, model.GoalCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		g, err := c.goals.GetByID(id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("goal %d: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("goal %d is %s: %w", id, g.Status, ledger.ErrPreconditionFailed)
	}
	return c.Get(id)
}

// Approve pays the goal's award through the ledger. awardOverride lets the
// parent adjust the payout at approval time.
func (c *Controller) Approve(ctx context.Context, id int64, awardOverride *int) (*model.Goal, error) {
	if err := c.engine.ApproveGoal(ctx, id, awardOverride); err != nil {
		return nil, err
	}
	c.logger.Info("goal approved", "goal_id", id)
	return c.Get(id)
}

// Reject sends the goal back to active. The ledger applies the per-type
// progress policy.
func (c *Controller) Reject(ctx context.Context, id int64) (*model.Goal, error) {
	if err := c.engine.RejectGoal(ctx, id); err != nil {
		return nil, err
	}
	c.logger.Info("goal rejected", "goal_id", id)
	return c.Get(id)
}
