package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"starchart/internal/model"
)

type GiftStore struct {
	db *sql.DB
}

func NewGiftStore(db *sql.DB) *GiftStore {
	return &GiftStore{db: db}
}

func scanGift(scanner interface{ Scan(...any) error }) (*model.Gift, error) {
	var g model.Gift
	var claimedAt sql.NullTime

	err := scanner.Scan(
		&g.ID, &g.HouseholdID, &g.ProfileID, &g.Title, &g.Stars, &g.Status,
		&g.CreatedAt, &claimedAt,
	)
	if err != nil {
		return nil, err
	}

	if claimedAt.Valid {
		g.ClaimedAt = &claimedAt.Time
	}
	return &g, nil
}

const giftCols = `id, household_id, profile_id, title, stars, status, created_at, claimed_at`

func (s *GiftStore) Create(householdID, profileID int64, title string, stars int) (*model.Gift, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO gifts (id, household_id, profile_id, title, stars) VALUES (?, ?, ?, ?, ?)`,
		id, householdID, profileID, title, stars,
	)
	if err != nil {
		return nil, fmt.Errorf("insert gift: %w", err)
	}
	return s.GetByID(id)
}

func (s *GiftStore) GetByID(id string) (*model.Gift, error) {
	row := s.db.QueryRow(`SELECT `+giftCols+` FROM gifts WHERE id = ?`, id)
	g, err := scanGift(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gift: %w", err)
	}
	return g, nil
}

func (s *GiftStore) ListPendingByProfile(profileID int64) ([]model.Gift, error) {
	rows, err := s.db.Query(
		`SELECT `+giftCols+` FROM gifts WHERE profile_id = ? AND status = ? ORDER BY created_at ASC`,
		profileID, model.GiftPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending gifts: %w", err)
	}
	defer rows.Close()

	var gifts []model.Gift
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gift: %w", err)
		}
		gifts = append(gifts, *g)
	}
	return gifts, rows.Err()
}

func (s *GiftStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM gifts WHERE id = ? AND status = ?`, id, model.GiftPending)
	if err != nil {
		return fmt.Errorf("delete gift: %w", err)
	}
	return nil
}
