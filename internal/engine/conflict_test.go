package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

func date(day int) time.Time {
	return time.Date(2026, time.September, day, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	// Half-open intervals: checkout day is free for the next guest.
	assert.False(t, Overlaps(date(1), date(5), date(5), date(8)))
	assert.False(t, Overlaps(date(5), date(8), date(1), date(5)))

	assert.True(t, Overlaps(date(1), date(5), date(4), date(8)))
	assert.True(t, Overlaps(date(1), date(10), date(4), date(6))) // containment
	assert.True(t, Overlaps(date(4), date(6), date(1), date(10)))
	assert.True(t, Overlaps(date(1), date(5), date(1), date(5))) // identical

	assert.False(t, Overlaps(date(1), date(3), date(7), date(9)))
}

func TestOccupiesRoom(t *testing.T) {
	assert.True(t, OccupiesRoom(model.ReservationConfirmed))
	assert.True(t, OccupiesRoom(model.ReservationCheckedIn))
	assert.False(t, OccupiesRoom(model.ReservationTentative))
	assert.False(t, OccupiesRoom(model.ReservationCancelled))
	assert.False(t, OccupiesRoom(model.ReservationCheckedOut))
}

func TestIsRoomAvailable(t *testing.T) {
	existing := []Stay{
		{RoomID: 101, CheckIn: date(3), CheckOut: date(6)},
		{RoomID: 102, CheckIn: date(1), CheckOut: date(10)},
	}

	assert.True(t, IsRoomAvailable(existing, 101, date(6), date(9)), "back-to-back stay must be allowed")
	assert.False(t, IsRoomAvailable(existing, 101, date(5), date(7)))
	assert.False(t, IsRoomAvailable(existing, 102, date(4), date(5)))
	assert.True(t, IsRoomAvailable(existing, 103, date(1), date(10)), "unknown room has no stays")
}

func TestCheckRoomsAllOrNothing(t *testing.T) {
	existing := []Stay{
		{RoomID: 202, CheckIn: date(4), CheckOut: date(8)},
	}

	require.NoError(t, CheckRooms(existing, []uint64{201, 203}, date(4), date(8)))

	// One conflicting room fails the whole request and reports the
	// colliding range.
	err := CheckRooms(existing, []uint64{201, 202, 203}, date(5), date(7))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflictDetected))

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, uint64(202), conflict.RoomID)
	assert.Equal(t, date(4), conflict.CheckIn)
	assert.Equal(t, date(8), conflict.CheckOut)
}

func TestCheckRoomsRejectsDuplicatePins(t *testing.T) {
	// Pinning the same physical room twice must fail even with no
	// existing stays; otherwise one room would be sold twice.
	err := CheckRooms(nil, []uint64{301, 301}, date(2), date(5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflictDetected))

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, uint64(301), conflict.RoomID)
	assert.Equal(t, date(2), conflict.CheckIn)
	assert.Equal(t, date(5), conflict.CheckOut)

	require.NoError(t, CheckRooms(nil, []uint64{301, 302}, date(2), date(5)))
}
