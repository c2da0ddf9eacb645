package store

import (
	"database/sql"
	"fmt"

	"starchart/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var requiresApproval, active int

	err := scanner.Scan(
		&r.ID, &r.HouseholdID, &r.Title, &r.Icon, &r.Cost,
		&requiresApproval, &active, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.RequiresApproval = requiresApproval != 0
	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, household_id, title, icon, cost, requires_approval, active, created_at`

func (s *RewardStore) Create(householdID int64, title, icon string, cost int, requiresApproval, active bool) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, icon, cost, requires_approval, active) VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, title, icon, cost, boolToInt(requiresApproval), boolToInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *RewardStore) ListByHousehold(householdID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? ORDER BY active DESC, cost ASC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, title, icon string, cost int, requiresApproval, active bool) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, icon = ?, cost = ?, requires_approval = ?, active = ? WHERE id = ?`,
		title, icon, cost, boolToInt(requiresApproval), boolToInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Purchase request reads ---
// Writes go through the ledger; the store only answers queries.

func scanPurchase(scanner interface{ Scan(...any) error }) (*model.PurchaseRequest, error) {
	var p model.PurchaseRequest
	var rewardID sql.NullInt64
	var processedAt sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.HouseholdID, &p.ProfileID, &rewardID, &p.Title, &p.Icon,
		&p.Cost, &p.Status, &p.PurchasedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	if rewardID.Valid {
		p.RewardID = &rewardID.Int64
	}
	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	return &p, nil
}

const purchaseCols = `id, household_id, profile_id, reward_id, title, icon, cost, status, purchased_at, processed_at`

func (s *RewardStore) GetRequest(id string) (*model.PurchaseRequest, error) {
	row := s.db.QueryRow(`SELECT `+purchaseCols+` FROM purchase_requests WHERE id = ?`, id)
	p, err := scanPurchase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase request: %w", err)
	}
	return p, nil
}

func (s *RewardStore) ListRequestsByProfile(profileID int64) ([]model.PurchaseRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+purchaseCols+` FROM purchase_requests WHERE profile_id = ? ORDER BY purchased_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	return collectPurchases(rows)
}

func (s *RewardStore) ListPendingRequests(householdID int64) ([]model.PurchaseRequest, error) {
	rows, err := s.db.Query(
		`SELECT `+purchaseCols+` FROM purchase_requests WHERE household_id = ? AND status = ? ORDER BY purchased_at ASC`,
		householdID, model.PurchasePending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	return collectPurchases(rows)
}

func collectPurchases(rows *sql.Rows) ([]model.PurchaseRequest, error) {
	var requests []model.PurchaseRequest
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		requests = append(requests, *p)
	}
	return requests, rows.Err()
}
