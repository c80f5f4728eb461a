package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

func strPtr(s string) *string    { return &s }
func u32Ptr(n uint32) *uint32    { return &n }
func u64Ptr(n uint64) *uint64    { return &n }
func timePtr(t time.Time) *time.Time { return &t }

func baseRequest() Request {
	return Request{
		HotelID:      1,
		GuestID:      42,
		RoomTypeID:   10,
		GuestType:    "LEISURE",
		LoyaltyTier:  "NONE",
		CheckIn:      date(10),
		CheckOut:     date(13),
		RoomCount:    1,
		BookedAt:     date(1),
		OccupancyPct: 50,
	}
}

func TestRuleMatchesWildcards(t *testing.T) {
	// A rule with every condition column NULL matches any request.
	rule := model.AssignmentRule{ID: 1, HotelID: 1, IsActive: true}
	assert.True(t, RuleMatches(&rule, baseRequest()))

	rule.IsActive = false
	assert.False(t, RuleMatches(&rule, baseRequest()))

	rule.IsActive = true
	rule.HotelID = 2
	assert.False(t, RuleMatches(&rule, baseRequest()), "rules never cross hotels")
}

func TestRuleMatchesConditions(t *testing.T) {
	req := baseRequest()
	req.GuestType = "VIP"
	req.LoyaltyTier = "PLATINUM"
	req.BookingValueCents = 90000

	rule := model.AssignmentRule{
		ID:              2,
		HotelID:         1,
		IsActive:        true,
		GuestType:       strPtr("VIP"),
		LoyaltyTier:     strPtr("PLATINUM"),
		MinNights:       u32Ptr(2),
		MaxNights:       u32Ptr(7),
		MinAdvanceDays:  u32Ptr(5),
		MinOccupancyPct: u32Ptr(40),
		MaxOccupancyPct: u32Ptr(80),
		MinBookingCents: u64Ptr(50000),
	}
	assert.True(t, RuleMatches(&rule, req))

	low := req
	low.BookingValueCents = 10000
	assert.False(t, RuleMatches(&rule, low))

	late := req
	late.BookedAt = date(8) // only 2 days ahead
	assert.False(t, RuleMatches(&rule, late))

	full := req
	full.OccupancyPct = 95
	assert.False(t, RuleMatches(&rule, full))
}

func TestRuleBlackout(t *testing.T) {
	rule := model.AssignmentRule{
		ID:            3,
		HotelID:       1,
		IsActive:      true,
		BlackoutStart: timePtr(date(12)),
		BlackoutEnd:   timePtr(date(14)),
	}
	req := baseRequest() // stay 10..13 touches the blackout
	assert.False(t, RuleMatches(&rule, req))

	req.CheckIn, req.CheckOut = date(15), date(18)
	assert.True(t, RuleMatches(&rule, req))

	// Blackout end is inclusive.
	req.CheckIn, req.CheckOut = date(14), date(16)
	assert.False(t, RuleMatches(&rule, req))
}

func TestSelectRulePrecedence(t *testing.T) {
	rules := []model.AssignmentRule{
		{ID: 5, HotelID: 1, IsActive: true, Priority: 20},
		{ID: 3, HotelID: 1, IsActive: true, Priority: 10, GuestType: strPtr("CORPORATE")},
		{ID: 4, HotelID: 1, IsActive: true, Priority: 10},
		{ID: 2, HotelID: 1, IsActive: false, Priority: 1},
	}

	req := baseRequest()
	got := SelectRule(rules, req)
	require.NotNil(t, got)
	assert.Equal(t, uint64(4), got.ID, "lowest priority wins, non-matching same-priority rule skipped")

	corp := req
	corp.GuestType = "CORPORATE"
	got = SelectRule(rules, corp)
	require.NotNil(t, got)
	assert.Equal(t, uint64(3), got.ID, "priority ties break by id")
}

func TestSelectRuleNoMatchIsNil(t *testing.T) {
	rules := []model.AssignmentRule{
		{ID: 1, HotelID: 1, IsActive: true, GuestType: strPtr("VIP")},
	}
	assert.Nil(t, SelectRule(rules, baseRequest()), "no match falls back to the default heuristic")
	assert.Nil(t, SelectRule(nil, baseRequest()))
}
