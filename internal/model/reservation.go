package model

import "time"

// Reservation statuses.  Only CONFIRMED and CHECKED_IN reservations occupy
// a physical room for conflict detection purposes.
const (
	ReservationTentative  = "TENTATIVE"
	ReservationConfirmed  = "CONFIRMED"
	ReservationCheckedIn  = "CHECKED_IN"
	ReservationCheckedOut = "CHECKED_OUT"
	ReservationCancelled  = "CANCELLED"
)

// Reservation records a guest's stay for one or more rooms.  CheckOut is
// exclusive: a reservation ending on a date and another starting on the
// same date may share a room.  RateCents is a snapshot of the nightly rate
// at allocation time and never changes afterwards.
//
// Fields:
//  ID          – primary key identifier.
//  HotelID     – hotel of the stay.
//  GuestID     – external guest record reference.
//  RoomTypeID  – room type requested at booking time.
//  CheckIn     – first night of the stay (midnight UTC).
//  CheckOut    – checkout date, exclusive.
//  Status      – one of the Reservation* constants.
//  Nights      – number of nights, always CheckOut - CheckIn in days.
//  RateCents   – per-night rate snapshot in cents.
//  BlockID     – group block the reservation was drawn from, if any.
//  ReleaseOpID – ledger operation id used when this reservation's
//                inventory was released; set on cancellation.
type Reservation struct {
	ID          uint64    // reservations.id
	HotelID     uint64    // reservations.hotel_id
	GuestID     uint64    // reservations.guest_id
	RoomTypeID  uint64    // reservations.room_type_id
	CheckIn     time.Time // reservations.check_in
	CheckOut    time.Time // reservations.check_out
	Status      string    // reservations.status
	Nights      uint32    // reservations.nights
	RateCents   uint32    // reservations.rate_cents
	BlockID     *uint64   // reservations.block_id (nullable)
	ReleaseOpID *string   // reservations.release_op_id (nullable)
	CreatedAt   time.Time // reservations.created_at
	UpdatedAt   time.Time // reservations.updated_at
}

// ReservationRoom links a reservation to an assigned physical room.  A
// multi-room reservation has one row per room.  Upgraded rooms carry the
// upgrade audit fields; for non-upgraded assignments they are all nil.
type ReservationRoom struct {
	ID              uint64    // reservation_rooms.id
	ReservationID   uint64    // reservation_rooms.reservation_id
	RoomID          uint64    // reservation_rooms.room_id
	Upgraded        bool      // reservation_rooms.upgraded
	UpgradeReason   *string   // reservation_rooms.upgrade_reason (nullable)
	UpgradeApprover *string   // reservation_rooms.upgrade_approver (nullable)
	UpgradeFeeCents uint32    // reservation_rooms.upgrade_fee_cents
	CreatedAt       time.Time // reservation_rooms.created_at
}
