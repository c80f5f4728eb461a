package engine

import (
	"sort"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// Request carries everything the rule matcher and room selector need to
// know about one allocation attempt.  It is assembled by the service
// layer from the reservation request and the loaded ledger state.
type Request struct {
	HotelID           uint64
	GuestID           uint64
	RoomTypeID        uint64
	GuestType         string
	LoyaltyTier       string
	BookingValueCents uint64
	CheckIn           time.Time
	CheckOut          time.Time
	RoomCount         uint32
	AllowUpgrade      bool // explicit upgrade consent on the request itself
	BookedAt          time.Time
	OccupancyPct      uint32
}

// Condition is one closed variant of a rule condition.  Every condition
// kind implements Matches; a rule matches when all of its decoded
// conditions match.  An omitted condition never appears in the decoded
// slice, which is how wildcards fall out naturally.
type Condition interface {
	Matches(req Request) bool
}

// GuestTypeCondition matches the guest classification (e.g. "VIP",
// "CORPORATE").
type GuestTypeCondition struct{ GuestType string }

func (c GuestTypeCondition) Matches(req Request) bool { return req.GuestType == c.GuestType }

// LoyaltyTierCondition matches the guest loyalty tier.
type LoyaltyTierCondition struct{ Tier string }

func (c LoyaltyTierCondition) Matches(req Request) bool { return req.LoyaltyTier == c.Tier }

// StayLengthCondition bounds the stay length in nights.  A zero bound is
// open on that side.
type StayLengthCondition struct{ Min, Max uint32 }

func (c StayLengthCondition) Matches(req Request) bool {
	n := Nights(req.CheckIn, req.CheckOut)
	if c.Min > 0 && n < c.Min {
		return false
	}
	if c.Max > 0 && n > c.Max {
		return false
	}
	return true
}

// AdvanceWindowCondition bounds how many days ahead of arrival the
// booking was made.
type AdvanceWindowCondition struct{ Min, Max uint32 }

func (c AdvanceWindowCondition) Matches(req Request) bool {
	if req.BookedAt.After(req.CheckIn) {
		return c.Min == 0
	}
	days := uint32(req.CheckIn.Sub(req.BookedAt).Hours() / 24)
	if c.Min > 0 && days < c.Min {
		return false
	}
	if c.Max > 0 && days > c.Max {
		return false
	}
	return true
}

// OccupancyCondition bounds the hotel occupancy percentage at allocation
// time.
type OccupancyCondition struct{ Min, Max uint32 }

func (c OccupancyCondition) Matches(req Request) bool {
	if req.OccupancyPct < c.Min {
		return false
	}
	if c.Max > 0 && req.OccupancyPct > c.Max {
		return false
	}
	return true
}

// BookingValueCondition requires a minimum total booking value in cents.
type BookingValueCondition struct{ MinCents uint64 }

func (c BookingValueCondition) Matches(req Request) bool {
	return req.BookingValueCents >= c.MinCents
}

// DecodeConditions turns the nullable rule columns into the closed set of
// condition variants.  NULL columns produce no condition, so an
// unconstrained rule decodes to an empty slice and matches everything.
func DecodeConditions(rule *model.AssignmentRule) []Condition {
	var conds []Condition
	if rule.GuestType != nil {
		conds = append(conds, GuestTypeCondition{GuestType: *rule.GuestType})
	}
	if rule.LoyaltyTier != nil {
		conds = append(conds, LoyaltyTierCondition{Tier: *rule.LoyaltyTier})
	}
	if rule.MinNights != nil || rule.MaxNights != nil {
		c := StayLengthCondition{}
		if rule.MinNights != nil {
			c.Min = *rule.MinNights
		}
		if rule.MaxNights != nil {
			c.Max = *rule.MaxNights
		}
		conds = append(conds, c)
	}
	if rule.MinAdvanceDays != nil || rule.MaxAdvanceDays != nil {
		c := AdvanceWindowCondition{}
		if rule.MinAdvanceDays != nil {
			c.Min = *rule.MinAdvanceDays
		}
		if rule.MaxAdvanceDays != nil {
			c.Max = *rule.MaxAdvanceDays
		}
		conds = append(conds, c)
	}
	if rule.MinOccupancyPct != nil || rule.MaxOccupancyPct != nil {
		c := OccupancyCondition{}
		if rule.MinOccupancyPct != nil {
			c.Min = *rule.MinOccupancyPct
		}
		if rule.MaxOccupancyPct != nil {
			c.Max = *rule.MaxOccupancyPct
		}
		conds = append(conds, c)
	}
	if rule.MinBookingCents != nil {
		conds = append(conds, BookingValueCondition{MinCents: *rule.MinBookingCents})
	}
	return conds
}

// inBlackout reports whether the stay touches the rule's blackout window.
func inBlackout(rule *model.AssignmentRule, req Request) bool {
	if rule.BlackoutStart == nil || rule.BlackoutEnd == nil {
		return false
	}
	// Blackout end is inclusive, so compare against the day after.
	return Overlaps(req.CheckIn, req.CheckOut, *rule.BlackoutStart, rule.BlackoutEnd.AddDate(0, 0, 1))
}

// RuleMatches reports whether an active rule applies to the request.
func RuleMatches(rule *model.AssignmentRule, req Request) bool {
	if !rule.IsActive || rule.HotelID != req.HotelID {
		return false
	}
	if inBlackout(rule, req) {
		return false
	}
	for _, c := range DecodeConditions(rule) {
		if !c.Matches(req) {
			return false
		}
	}
	return true
}

// SelectRule evaluates the rule set in ascending priority order (ties
// broken by id so the result is stable) and returns the first active full
// match, or nil when no rule applies.  No match is not an error; the
// caller falls back to the default assignment heuristic.
func SelectRule(rules []model.AssignmentRule, req Request) *model.AssignmentRule {
	ordered := make([]*model.AssignmentRule, 0, len(rules))
	for i := range rules {
		ordered = append(ordered, &rules[i])
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	for _, r := range ordered {
		if RuleMatches(r, req) {
			return r
		}
	}
	return nil
}
