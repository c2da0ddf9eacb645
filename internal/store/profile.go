package store

import (
	"database/sql"
	"fmt"

	"starchart/internal/model"
)

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var pinHash string

	err := scanner.Scan(
		&p.ID, &p.HouseholdID, &p.Name, &p.Role, &p.Color, &p.AvatarEmoji,
		&pinHash, &p.Stars, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.HasPIN = pinHash != ""
	return &p, nil
}

const profileCols = `id, household_id, name, role, color, avatar_emoji, pin_hash, stars, sort_order, created_at, updated_at`

func (s *ProfileStore) Create(householdID int64, name string, role model.Role, color, avatarEmoji string) (*model.Profile, error) {
	result, err := s.db.Exec(
		`INSERT INTO profiles (household_id, name, role, color, avatar_emoji) VALUES (?, ?, ?, ?, ?)`,
		householdID, name, role, color, avatarEmoji,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id int64) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) ListByHousehold(householdID int64) ([]model.Profile, error) {
	rows, err := s.db.Query(
		`SELECT `+profileCols+` FROM profiles WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *ProfileStore) Update(id int64, name string, color, avatarEmoji string) (*model.Profile, error) {
	_, err := s.db.Exec(
		`UPDATE profiles SET name = ?, color = ?, avatar_emoji = ?, updated_at = datetime('now') WHERE id = ?`,
		name, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// SetPIN stores a bcrypt hash; an empty hash clears the PIN.
func (s *ProfileStore) SetPIN(id int64, hash string) error {
	_, err := s.db.Exec(
		`UPDATE profiles SET pin_hash = ?, updated_at = datetime('now') WHERE id = ?`,
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *ProfileStore) PINHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT pin_hash FROM profiles WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash, nil
}

// Stars returns the current balance. The value is only ever written by the
// ledger; this is a read-side convenience.
func (s *ProfileStore) Stars(id int64) (int, error) {
	var stars int
	err := s.db.QueryRow(`SELECT stars FROM profiles WHERE id = ?`, id).Scan(&stars)
	if err != nil {
		return 0, fmt.Errorf("get stars: %w", err)
	}
	return stars, nil
}
