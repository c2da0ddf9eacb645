package store

import (
	"database/sql"
	"fmt"

	"starchart/internal/model"
)

type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	var completedAt sql.NullTime

	err := scanner.Scan(
		&g.ID, &g.HouseholdID, &g.ProfileID, &g.Type, &g.Title, &g.Icon,
		&g.Target, &g.Current, &g.Unit, &g.Stars, &g.DueDate, &g.Status,
		&completedAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		g.CompletedAt = &completedAt.Time
	}
	return &g, nil
}

const goalCols = `id, household_id, profile_id, type, title, icon, target, current, unit, stars, due_date, status, completed_at, created_at, updated_at`

func (s *GoalStore) Create(g model.Goal) (*model.Goal, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO goals (household_id, profile_id, type, title, icon, target, current, unit, stars, due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.HouseholdID, g.ProfileID, g.Type, g.Title, g.Icon, g.Target,
		g.Current, g.Unit, g.Stars, g.DueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for i, item := range g.Items {
		if _, err := tx.Exec(
			`INSERT INTO goal_items (goal_id, text, completed, sort_order) VALUES (?, ?, ?, ?)`,
			id, item.Text, boolToInt(item.Completed), i,
		); err != nil {
			return nil, fmt.Errorf("insert goal item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *GoalStore) GetByID(id int64) (*model.Goal, error) {
	row := s.db.QueryRow(`SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if err := s.loadItems(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GoalStore) loadItems(g *model.Goal) error {
	rows, err := s.db.Query(
		`SELECT id, goal_id, text, completed, sort_order FROM goal_items WHERE goal_id = ? ORDER BY sort_order ASC`,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("list goal items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.GoalItem
		var completed int
		if err := rows.Scan(&item.ID, &item.GoalID, &item.Text, &completed, &item.SortOrder); err != nil {
			return fmt.Errorf("scan goal item: %w", err)
		}
		item.Completed = completed != 0
		g.Items = append(g.Items, item)
	}
	return rows.Err()
}

func (s *GoalStore) ListByProfile(profileID int64) ([]model.Goal, error) {
	rows, err := s.db.Query(
		`SELECT `+goalCols+` FROM goals WHERE profile_id = ? ORDER BY created_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range goals {
		if err := s.loadItems(&goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

func (s *GoalStore) ListPendingApproval(householdID int64) ([]model.Goal, error) {
	rows, err := s.db.Query(
		`SELECT `+goalCols+` FROM goals WHERE household_id = ? AND status = ? ORDER BY updated_at ASC`,
		householdID, model.GoalPendingApproval,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// SetCurrentIfActive writes a new progress value only while the goal is
// active. Returns false (without error) when the goal wasn't active;
// progress mutation on a non-active goal is a no-op, not a failure.
func (s *GoalStore) SetCurrentIfActive(id int64, current int) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE goals SET current = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		current, id, model.GoalActive,
	)
	if err != nil {
		return false, fmt.Errorf("set current: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SetItemIfActive toggles a checklist item, gated on the parent goal being
// active, then recomputes current from the item flags. The recount, not a
// separately tracked counter, is the source of truth.
func (s *GoalStore) SetItemIfActive(goalID, itemID int64, completed bool) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE goal_items SET completed = ?
		 WHERE id = ? AND goal_id IN (SELECT id FROM goals WHERE id = ? AND status = ?)`,
		boolToInt(completed), itemID, goalID, model.GoalActive,
	)
	if err != nil {
		return false, fmt.Errorf("set item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.Exec(
		`UPDATE goals SET current = (SELECT COUNT(*) FROM goal_items WHERE goal_id = ? AND completed = 1), updated_at = datetime('now')
		 WHERE id = ?`,
		goalID, goalID,
	)
	if err != nil {
		return false, fmt.Errorf("recount items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Transition moves the goal from one status to another, returning false
// when the precondition status didn't hold.
func (s *GoalStore) Transition(id int64, from, to model.GoalStatus, completedAt any) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE goals SET status = ?, completed_at = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		to, completedAt, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition goal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *GoalStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
