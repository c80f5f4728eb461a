package engine

import (
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// Stay is an occupied half-open interval [CheckIn, CheckOut) on a
// physical room.  Same-day checkout and check-in never overlap.
type Stay struct {
	RoomID   uint64
	CheckIn  time.Time
	CheckOut time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}

// OccupiesRoom reports whether a reservation in the given status holds its
// rooms against new bookings.  Tentative, cancelled and checked-out stays
// do not block a room.
func OccupiesRoom(status string) bool {
	return status == model.ReservationConfirmed || status == model.ReservationCheckedIn
}

// IsRoomAvailable reports whether the room has no occupying stay
// overlapping [checkIn, checkOut).  The existing slice must already be
// filtered to occupying reservations for that room.
func IsRoomAvailable(existing []Stay, roomID uint64, checkIn, checkOut time.Time) bool {
	for _, s := range existing {
		if s.RoomID != roomID {
			continue
		}
		if Overlaps(s.CheckIn, s.CheckOut, checkIn, checkOut) {
			return false
		}
	}
	return true
}

// CheckRooms verifies every requested room against the existing stays.
// The whole request is all-or-nothing: the first conflict aborts the
// attempt and is returned with the colliding range.  No partial result is
// ever produced.
func CheckRooms(existing []Stay, roomIDs []uint64, checkIn, checkOut time.Time) error {
	seen := make(map[uint64]bool, len(roomIDs))
	for _, id := range roomIDs {
		// A room pinned twice conflicts with itself over the whole range.
		if seen[id] {
			return &ConflictError{RoomID: id, CheckIn: checkIn, CheckOut: checkOut}
		}
		seen[id] = true
		for _, s := range existing {
			if s.RoomID != id {
				continue
			}
			if Overlaps(s.CheckIn, s.CheckOut, checkIn, checkOut) {
				return &ConflictError{RoomID: id, CheckIn: s.CheckIn, CheckOut: s.CheckOut}
			}
		}
	}
	return nil
}
