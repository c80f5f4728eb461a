package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

func testTypes() []model.RoomType {
	return []model.RoomType{
		{ID: 10, HotelID: 1, Code: "STD", Tier: 1},
		{ID: 20, HotelID: 1, Code: "DLX", Tier: 2},
		{ID: 30, HotelID: 1, Code: "STE", Tier: 3},
	}
}

func testRooms() []model.Room {
	return []model.Room{
		{ID: 1, HotelID: 1, RoomTypeID: 10, RoomNumber: 103, Floor: 1, IsActive: true},
		{ID: 2, HotelID: 1, RoomTypeID: 10, RoomNumber: 101, Floor: 1, IsActive: true},
		{ID: 3, HotelID: 1, RoomTypeID: 10, RoomNumber: 201, Floor: 2, IsActive: true},
		{ID: 4, HotelID: 1, RoomTypeID: 10, RoomNumber: 301, Floor: 3, IsActive: false},
		{ID: 5, HotelID: 1, RoomTypeID: 20, RoomNumber: 401, Floor: 4, IsActive: true},
		{ID: 6, HotelID: 1, RoomTypeID: 20, RoomNumber: 402, Floor: 4, IsActive: true},
	}
}

func selectReq(count uint32) Request {
	req := baseRequest()
	req.RoomCount = count
	return req
}

func TestSelectRoomsDeterministicOrder(t *testing.T) {
	got, err := SelectRooms(testRooms(), testTypes(), nil, nil, selectReq(2))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Lowest room number first; the inactive room is never considered.
	assert.Equal(t, uint32(101), got[0].RoomNumber)
	assert.Equal(t, uint32(103), got[1].RoomNumber)
	assert.False(t, got[0].Upgraded)

	// Identical inputs give identical output.
	again, err := SelectRooms(testRooms(), testTypes(), nil, nil, selectReq(2))
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSelectRoomsPreferredFloors(t *testing.T) {
	rules := []model.AssignmentRule{{
		ID: 1, HotelID: 1, IsActive: true, PreferredFloors: strPtr("2,1"),
	}}
	got, err := SelectRooms(testRooms(), testTypes(), nil, rules, selectReq(3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(201), got[0].RoomNumber, "floor 2 preferred first")
	assert.Equal(t, uint32(101), got[1].RoomNumber)
	assert.Equal(t, uint32(103), got[2].RoomNumber)
}

func TestSelectRoomsSkipsOccupied(t *testing.T) {
	stays := []Stay{{RoomID: 2, CheckIn: date(10), CheckOut: date(13)}}
	got, err := SelectRooms(testRooms(), testTypes(), stays, nil, selectReq(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].RoomID, "room 2 is occupied for the range")
}

func TestSelectRoomsUpgradeShortfall(t *testing.T) {
	// Only three active standard rooms exist; the fourth guest room must
	// come from the deluxe tier under a loyalty rule.
	rules := []model.AssignmentRule{{
		ID:              7,
		HotelID:         1,
		IsActive:        true,
		LoyaltyTier:     strPtr("PLATINUM"),
		AllowUpgrade:    true,
		UpgradeReason:   "loyalty",
		UpgradeFeeCents: 0,
		MaxUpgrades:     2,
		ApproverLevel:   "MANAGER",
	}}
	req := selectReq(4)
	req.LoyaltyTier = "PLATINUM"

	got, err := SelectRooms(testRooms(), testTypes(), nil, rules, req)
	require.NoError(t, err)
	require.Len(t, got, 4)

	upgraded := got[3]
	assert.True(t, upgraded.Upgraded)
	assert.Equal(t, uint64(20), upgraded.RoomTypeID)
	assert.Equal(t, "loyalty", upgraded.UpgradeReason)
	assert.Equal(t, "MANAGER", upgraded.UpgradeApprover)
	assert.Equal(t, uint32(0), upgraded.UpgradeFeeCents, "loyalty upgrades are complimentary")
}

func TestSelectRoomsUpgradeDenied(t *testing.T) {
	// No rule grants upgrades and the request does not consent.
	_, err := SelectRooms(testRooms(), testTypes(), nil, nil, selectReq(4))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoomAvailable))

	// Request-level consent alone is enough.
	req := selectReq(4)
	req.AllowUpgrade = true
	got, err := SelectRooms(testRooms(), testTypes(), nil, nil, req)
	require.NoError(t, err)
	assert.Equal(t, "availability", got[3].UpgradeReason)
	assert.Equal(t, "system", got[3].UpgradeApprover)
}

func TestSelectRoomsMaxUpgradesBound(t *testing.T) {
	rules := []model.AssignmentRule{{
		ID: 8, HotelID: 1, IsActive: true, AllowUpgrade: true, MaxUpgrades: 1,
	}}
	// Needs two upgrades but the rule caps at one.
	_, err := SelectRooms(testRooms(), testTypes(), nil, rules, selectReq(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoomAvailable))
}

func TestSelectRoomsUpgradeOnlyOneTier(t *testing.T) {
	// Upgrades never jump tiers: with every standard and deluxe room
	// occupied, a suite is not considered.
	stays := []Stay{
		{RoomID: 1, CheckIn: date(10), CheckOut: date(13)},
		{RoomID: 2, CheckIn: date(10), CheckOut: date(13)},
		{RoomID: 3, CheckIn: date(10), CheckOut: date(13)},
		{RoomID: 5, CheckIn: date(10), CheckOut: date(13)},
		{RoomID: 6, CheckIn: date(10), CheckOut: date(13)},
	}
	req := selectReq(1)
	req.AllowUpgrade = true
	_, err := SelectRooms(testRooms(), testTypes(), stays, nil, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoomAvailable))
}
