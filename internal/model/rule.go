package model

import "time"

// AssignmentRule is an administrative configuration row driving room
// assignment.  Rules are read-only during allocation and evaluated in
// ascending Priority order; the first active rule whose conditions all
// match wins.  Conditions are stored as nullable columns where NULL means
// "wildcard"; the engine package decodes them into typed condition
// variants.
//
// Fields:
//  ID                – primary key identifier.
//  HotelID           – hotel the rule applies to.
//  Name              – administrative label.
//  Priority          – lower number = higher precedence.
//  IsActive          – inactive rules are skipped entirely.
//  GuestType         – required guest type (nullable wildcard).
//  LoyaltyTier       – required loyalty tier (nullable wildcard).
//  MinNights/MaxNights – stay length bounds in nights (nullable).
//  MinAdvanceDays/MaxAdvanceDays – advance booking window bounds (nullable).
//  MinOccupancyPct/MaxOccupancyPct – hotel occupancy bounds (nullable).
//  MinBookingCents   – minimum booking value in cents (nullable).
//  PreferredFloors   – comma-separated floor preference list (nullable).
//  AllowUpgrade      – whether the rule grants upgrade eligibility.
//  UpgradeReason     – reason code recorded on upgrades made under the rule.
//  UpgradeFeeCents   – additional charge per upgraded room (0 = complimentary).
//  MaxUpgrades       – cap on upgraded rooms per reservation (0 = unlimited).
//  BlackoutStart/BlackoutEnd – dates where the rule never applies (nullable).
//  ApproverLevel     – staff level recorded as the upgrade approver.
type AssignmentRule struct {
	ID              uint64     // assignment_rules.id
	HotelID         uint64     // assignment_rules.hotel_id
	Name            string     // assignment_rules.name
	Priority        int32      // assignment_rules.priority
	IsActive        bool       // assignment_rules.is_active
	GuestType       *string    // assignment_rules.guest_type (nullable)
	LoyaltyTier     *string    // assignment_rules.loyalty_tier (nullable)
	MinNights       *uint32    // assignment_rules.min_nights (nullable)
	MaxNights       *uint32    // assignment_rules.max_nights (nullable)
	MinAdvanceDays  *uint32    // assignment_rules.min_advance_days (nullable)
	MaxAdvanceDays  *uint32    // assignment_rules.max_advance_days (nullable)
	MinOccupancyPct *uint32    // assignment_rules.min_occupancy_pct (nullable)
	MaxOccupancyPct *uint32    // assignment_rules.max_occupancy_pct (nullable)
	MinBookingCents *uint64    // assignment_rules.min_booking_cents (nullable)
	PreferredFloors *string    // assignment_rules.preferred_floors (nullable)
	AllowUpgrade    bool       // assignment_rules.allow_upgrade
	UpgradeReason   string     // assignment_rules.upgrade_reason
	UpgradeFeeCents uint32     // assignment_rules.upgrade_fee_cents
	MaxUpgrades     uint32     // assignment_rules.max_upgrades
	BlackoutStart   *time.Time // assignment_rules.blackout_start (nullable)
	BlackoutEnd     *time.Time // assignment_rules.blackout_end (nullable)
	ApproverLevel   string     // assignment_rules.approver_level
	CreatedAt       time.Time  // assignment_rules.created_at
	UpdatedAt       time.Time  // assignment_rules.updated_at
}
