package store

import (
	"database/sql"
	"fmt"

	"starchart/internal/model"
)

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanLog(scanner interface{ Scan(...any) error }) (*model.CompletionLog, error) {
	var l model.CompletionLog
	var completedAt sql.NullTime
	var seen int

	err := scanner.Scan(
		&l.ID, &l.HouseholdID, &l.ProfileID, &l.ActivityID, &l.Title, &l.Icon,
		&l.Date, &l.Status, &l.StarsEarned, &completedAt, &seen, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		l.CompletedAt = &completedAt.Time
	}
	l.SeenByParent = seen != 0
	return &l, nil
}

const logCols = `id, household_id, profile_id, activity_id, title, icon, date, status, stars_earned, completed_at, seen_by_parent, created_at`

func (s *CompletionStore) GetByID(id string) (*model.CompletionLog, error) {
	row := s.db.QueryRow(`SELECT `+logCols+` FROM completion_logs WHERE id = ?`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion log: %w", err)
	}
	return l, nil
}

// LogState reports whether a completed and/or missed log exists for the
// activity on the given day. Feeds the lifecycle resolver.
func (s *CompletionStore) LogState(activityID string, profileID int64, date string) (hasCompleted, hasMissed bool, err error) {
	rows, err := s.db.Query(
		`SELECT status FROM completion_logs WHERE activity_id = ? AND profile_id = ? AND date = ?`,
		activityID, profileID, date,
	)
	if err != nil {
		return false, false, fmt.Errorf("log state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status model.LogStatus
		if err := rows.Scan(&status); err != nil {
			return false, false, fmt.Errorf("scan status: %w", err)
		}
		switch status {
		case model.LogCompleted:
			hasCompleted = true
		case model.LogMissed:
			hasMissed = true
		}
	}
	return hasCompleted, hasMissed, rows.Err()
}

// CompletedDates returns the distinct calendar days with at least one
// completed log for the profile, newest first. Input for the streak walk.
func (s *CompletionStore) CompletedDates(profileID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT date FROM completion_logs WHERE profile_id = ? AND status = ? ORDER BY date DESC`,
		profileID, model.LogCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("completed dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *CompletionStore) ListByProfile(profileID int64, limit int) ([]model.CompletionLog, error) {
	rows, err := s.db.Query(
		`SELECT `+logCols+` FROM completion_logs WHERE profile_id = ? ORDER BY date DESC, created_at DESC LIMIT ?`,
		profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	return collectLogs(rows)
}

func (s *CompletionStore) ListByHouseholdDate(householdID int64, date string) ([]model.CompletionLog, error) {
	rows, err := s.db.Query(
		`SELECT `+logCols+` FROM completion_logs WHERE household_id = ? AND date = ? ORDER BY created_at DESC`,
		householdID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list logs by date: %w", err)
	}
	defer rows.Close()

	return collectLogs(rows)
}

// ListUnseen returns completed logs a parent hasn't reviewed yet.
func (s *CompletionStore) ListUnseen(householdID int64) ([]model.CompletionLog, error) {
	rows, err := s.db.Query(
		`SELECT `+logCols+` FROM completion_logs WHERE household_id = ? AND seen_by_parent = 0 AND status = ? ORDER BY created_at DESC`,
		householdID, model.LogCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list unseen logs: %w", err)
	}
	defer rows.Close()

	return collectLogs(rows)
}

func collectLogs(rows *sql.Rows) ([]model.CompletionLog, error) {
	var logs []model.CompletionLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// MarkSeen flips the one mutable flag a log has.
func (s *CompletionStore) MarkSeen(id string) error {
	_, err := s.db.Exec(`UPDATE completion_logs SET seen_by_parent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}
