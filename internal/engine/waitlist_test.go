package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

func TestPreferredTypes(t *testing.T) {
	entry := &model.WaitlistEntry{RoomTypeIDs: "20, 10,abc,0"}
	assert.Equal(t, []uint64{20, 10}, PreferredTypes(entry), "order preserved, junk skipped")
	assert.Nil(t, PreferredTypes(&model.WaitlistEntry{RoomTypeIDs: ""}))
}

func TestCandidateWindows(t *testing.T) {
	entry := &model.WaitlistEntry{
		RoomTypeIDs:     "20,10",
		EarliestCheckIn: date(1),
		LatestCheckIn:   date(3),
		Nights:          2,
	}
	windows := CandidateWindows(entry)
	require.Len(t, windows, 6)

	// Most preferred type first, then earliest arrival.
	assert.Equal(t, StayWindow{RoomTypeID: 20, CheckIn: date(1), CheckOut: date(3)}, windows[0])
	assert.Equal(t, StayWindow{RoomTypeID: 20, CheckIn: date(3), CheckOut: date(5)}, windows[2])
	assert.Equal(t, StayWindow{RoomTypeID: 10, CheckIn: date(1), CheckOut: date(3)}, windows[3])
}

func TestWantsType(t *testing.T) {
	entry := &model.WaitlistEntry{RoomTypeIDs: "10,20"}
	assert.True(t, WantsType(entry, 10))
	assert.True(t, WantsType(entry, 20))
	assert.False(t, WantsType(entry, 30))
}

func TestWithinRateCeiling(t *testing.T) {
	entry := &model.WaitlistEntry{MaxRateCents: 15000}
	assert.True(t, WithinRateCeiling(entry, 15000))
	assert.False(t, WithinRateCeiling(entry, 15001))

	open := &model.WaitlistEntry{}
	assert.True(t, WithinRateCeiling(open, 999999), "zero ceiling accepts any rate")
}
