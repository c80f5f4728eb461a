package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// RuleRepo provides data access to assignment rules.  Rules are
// configuration: mutated only through the admin surface and read in bulk
// at allocation time.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo returns a new RuleRepo bound to the given database.
func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

const ruleCols = `id, hotel_id, name, priority, is_active, guest_type, loyalty_tier,
	min_nights, max_nights, min_advance_days, max_advance_days,
	min_occupancy_pct, max_occupancy_pct, min_booking_cents, preferred_floors,
	allow_upgrade, upgrade_reason, upgrade_fee_cents, max_upgrades,
	blackout_start, blackout_end, approver_level, created_at, updated_at`

func scanRule(row interface {
	Scan(dest ...interface{}) error
}) (*model.AssignmentRule, error) {
	var rule model.AssignmentRule
	err := row.Scan(
		&rule.ID, &rule.HotelID, &rule.Name, &rule.Priority, &rule.IsActive,
		&rule.GuestType, &rule.LoyaltyTier,
		&rule.MinNights, &rule.MaxNights, &rule.MinAdvanceDays, &rule.MaxAdvanceDays,
		&rule.MinOccupancyPct, &rule.MaxOccupancyPct, &rule.MinBookingCents, &rule.PreferredFloors,
		&rule.AllowUpgrade, &rule.UpgradeReason, &rule.UpgradeFeeCents, &rule.MaxUpgrades,
		&rule.BlackoutStart, &rule.BlackoutEnd, &rule.ApproverLevel,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListByHotel returns every rule of a hotel, active or not, ordered by
// priority then id.  The engine re-sorts defensively but storage order
// keeps admin listings stable.
func (r *RuleRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.AssignmentRule, error) {
	const q = `SELECT ` + ruleCols + ` FROM assignment_rules WHERE hotel_id = ? ORDER BY priority, id`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AssignmentRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID loads a single rule.  Returns sql.ErrNoRows when absent.
func (r *RuleRepo) GetByID(ctx context.Context, id uint64) (*model.AssignmentRule, error) {
	const q = `SELECT ` + ruleCols + ` FROM assignment_rules WHERE id = ?`
	return scanRule(r.db.QueryRowContext(ctx, q, id))
}

// Create inserts a rule and populates its generated id.
func (r *RuleRepo) Create(ctx context.Context, rule *model.AssignmentRule) error {
	const q = `INSERT INTO assignment_rules
	           (hotel_id, name, priority, is_active, guest_type, loyalty_tier,
	            min_nights, max_nights, min_advance_days, max_advance_days,
	            min_occupancy_pct, max_occupancy_pct, min_booking_cents, preferred_floors,
	            allow_upgrade, upgrade_reason, upgrade_fee_cents, max_upgrades,
	            blackout_start, blackout_end, approver_level)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		rule.HotelID, rule.Name, rule.Priority, rule.IsActive, rule.GuestType, rule.LoyaltyTier,
		rule.MinNights, rule.MaxNights, rule.MinAdvanceDays, rule.MaxAdvanceDays,
		rule.MinOccupancyPct, rule.MaxOccupancyPct, rule.MinBookingCents, rule.PreferredFloors,
		rule.AllowUpgrade, rule.UpgradeReason, rule.UpgradeFeeCents, rule.MaxUpgrades,
		rule.BlackoutStart, rule.BlackoutEnd, rule.ApproverLevel,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rule.ID = uint64(id)
	return nil
}

// SetActive flips a rule's active flag.
func (r *RuleRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE assignment_rules SET is_active = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, active, id)
	return err
}

// SetPriority reorders a rule.
func (r *RuleRepo) SetPriority(ctx context.Context, id uint64, priority int32) error {
	const q = `UPDATE assignment_rules SET priority = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, priority, id)
	return err
}
