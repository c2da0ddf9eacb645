package store

import (
	"database/sql"
	"fmt"

	"starchart/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Icon, &t.Recurrence,
		&t.TimeOfDay, &t.DaysOfWeek, &t.Date, &t.FlexMinutes,
		&t.ExpiryRule, &t.ExpiryOffsetMin, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const taskCols = `id, household_id, title, icon, recurrence, time_of_day, days_of_week, date, flex_minutes, expiry_rule, expiry_offset_min, created_at, updated_at`

// Create inserts the task with its steps and assignees in one transaction.
func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO tasks (household_id, title, icon, recurrence, time_of_day, days_of_week, date, flex_minutes, expiry_rule, expiry_offset_min)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.HouseholdID, t.Title, t.Icon, t.Recurrence, t.TimeOfDay,
		t.DaysOfWeek, t.Date, t.FlexMinutes, t.ExpiryRule, t.ExpiryOffsetMin,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceSteps(tx, id, t.Steps); err != nil {
		return nil, err
	}
	if err := replaceAssignees(tx, id, t.AssigneeIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// Update rewrites the task's definition, steps, and assignees.
func (s *TaskStore) Update(id int64, t model.Task) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE tasks SET title = ?, icon = ?, recurrence = ?, time_of_day = ?, days_of_week = ?, date = ?, flex_minutes = ?, expiry_rule = ?, expiry_offset_min = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		t.Title, t.Icon, t.Recurrence, t.TimeOfDay, t.DaysOfWeek, t.Date,
		t.FlexMinutes, t.ExpiryRule, t.ExpiryOffsetMin, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM task_steps WHERE task_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear steps: %w", err)
	}
	if err := replaceSteps(tx, id, t.Steps); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM task_assignees WHERE task_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear assignees: %w", err)
	}
	if err := replaceAssignees(tx, id, t.AssigneeIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func replaceSteps(tx *sql.Tx, taskID int64, steps []model.TaskStep) error {
	for i, step := range steps {
		if _, err := tx.Exec(
			`INSERT INTO task_steps (task_id, title, stars, sort_order) VALUES (?, ?, ?, ?)`,
			taskID, step.Title, step.Stars, i,
		); err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
	}
	return nil
}

func replaceAssignees(tx *sql.Tx, taskID int64, profileIDs []int64) error {
	for _, pid := range profileIDs {
		if _, err := tx.Exec(
			`INSERT INTO task_assignees (task_id, profile_id) VALUES (?, ?)`,
			taskID, pid,
		); err != nil {
			return fmt.Errorf("insert assignee: %w", err)
		}
	}
	return nil
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := s.loadChildren(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskStore) loadChildren(t *model.Task) error {
	rows, err := s.db.Query(
		`SELECT id, task_id, title, stars, sort_order FROM task_steps WHERE task_id = ? ORDER BY sort_order ASC`,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step model.TaskStep
		if err := rows.Scan(&step.ID, &step.TaskID, &step.Title, &step.Stars, &step.SortOrder); err != nil {
			return fmt.Errorf("scan step: %w", err)
		}
		t.Steps = append(t.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	assignees, err := s.db.Query(
		`SELECT profile_id FROM task_assignees WHERE task_id = ? ORDER BY profile_id ASC`,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("list assignees: %w", err)
	}
	defer assignees.Close()

	for assignees.Next() {
		var pid int64
		if err := assignees.Scan(&pid); err != nil {
			return fmt.Errorf("scan assignee: %w", err)
		}
		t.AssigneeIDs = append(t.AssigneeIDs, pid)
	}
	return assignees.Err()
}

func (s *TaskStore) listWhere(where string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM tasks `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if err := s.loadChildren(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (s *TaskStore) ListByHousehold(householdID int64) ([]model.Task, error) {
	return s.listWhere(`WHERE household_id = ? ORDER BY time_of_day ASC, title ASC`, householdID)
}

func (s *TaskStore) ListByAssignee(profileID int64) ([]model.Task, error) {
	return s.listWhere(
		`WHERE id IN (SELECT task_id FROM task_assignees WHERE profile_id = ?) ORDER BY time_of_day ASC, title ASC`,
		profileID,
	)
}

// ListOneTimeForDate returns the one-time tasks dated exactly date
// (YYYY-MM-DD). The sweeper walks these looking for unresolved deadlines.
func (s *TaskStore) ListOneTimeForDate(householdID int64, date string) ([]model.Task, error) {
	return s.listWhere(
		`WHERE household_id = ? AND recurrence = ? AND date = ? ORDER BY time_of_day ASC`,
		householdID, model.RecurrenceOneTime, date,
	)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
