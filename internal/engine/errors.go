// Package engine contains the pure decision core of the allocation
// system: interval conflict detection, ledger invariant arithmetic, the
// assignment rule matcher, block and waitlist logic.  Nothing in this
// package touches the database; repositories load state, the engine
// decides, and the service layer applies the decision inside a
// transaction.  Keeping the core pure is what makes identical inputs
// always produce identical assignments.
package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientInventory is returned when a date in the requested range
// cannot supply the requested count, is stop-sold, or the stay violates a
// length-of-stay restriction.  Handlers translate this into HTTP 409.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrConflictDetected is returned when a requested physical room is
// already occupied for an overlapping date range.
var ErrConflictDetected = errors.New("conflict detected")

// ErrNoRoomAvailable is returned by room selection when neither the
// requested type nor an eligible upgrade tier can supply enough rooms.
var ErrNoRoomAvailable = errors.New("no room available")

// ConflictError wraps ErrConflictDetected with the offending room and
// overlapping range so callers can report exactly what collided.
type ConflictError struct {
	RoomID   uint64
	CheckIn  time.Time
	CheckOut time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict detected: room %d occupied %s..%s",
		e.RoomID, e.CheckIn.Format("2006-01-02"), e.CheckOut.Format("2006-01-02"))
}

func (e *ConflictError) Unwrap() error { return ErrConflictDetected }

// InventoryError wraps ErrInsufficientInventory with the first failing
// date and the reason (count, stop-sell, or LOS restriction).
type InventoryError struct {
	Date   time.Time
	Reason string
}

func (e *InventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory on %s: %s", e.Date.Format("2006-01-02"), e.Reason)
}

func (e *InventoryError) Unwrap() error { return ErrInsufficientInventory }
