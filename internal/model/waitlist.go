package model

import "time"

// Waitlist entry statuses.
const (
	WaitlistActive    = "ACTIVE"
	WaitlistPromoted  = "PROMOTED"
	WaitlistCancelled = "CANCELLED"
	WaitlistExpired   = "EXPIRED"
)

// WaitlistEntry is a flexible, not-yet-roomed reservation request held
// until inventory frees up.  EarliestCheckIn/LatestCheckIn bound the
// acceptable arrival window; Nights is fixed.  Position is assigned at
// enqueue time as the count of active entries plus one and governs
// promotion order.
//
// Fields:
//  ID              – primary key identifier.
//  HotelID         – hotel the request targets.
//  GuestID         – external guest record reference.
//  RoomTypeIDs     – comma-separated acceptable room type ids, in
//                    preference order.
//  EarliestCheckIn – earliest acceptable arrival date.
//  LatestCheckIn   – latest acceptable arrival date.
//  Nights          – required stay length.
//  MaxRateCents    – rate ceiling per night; 0 means no ceiling.
//  Position        – promotion queue position.
//  AutoConfirm     – promote without manual approval.
//  NotifyEmail     – whether to emit an email notification event.
//  NotifySMS       – whether to emit an SMS notification event.
//  Status          – one of the Waitlist* constants.
type WaitlistEntry struct {
	ID              uint64    // waitlist_entries.id
	HotelID         uint64    // waitlist_entries.hotel_id
	GuestID         uint64    // waitlist_entries.guest_id
	RoomTypeIDs     string    // waitlist_entries.room_type_ids
	EarliestCheckIn time.Time // waitlist_entries.earliest_check_in
	LatestCheckIn   time.Time // waitlist_entries.latest_check_in
	Nights          uint32    // waitlist_entries.nights
	MaxRateCents    uint32    // waitlist_entries.max_rate_cents
	Position        uint32    // waitlist_entries.position
	AutoConfirm     bool      // waitlist_entries.auto_confirm
	NotifyEmail     bool      // waitlist_entries.notify_email
	NotifySMS       bool      // waitlist_entries.notify_sms
	Status          string    // waitlist_entries.status
	CreatedAt       time.Time // waitlist_entries.created_at
	UpdatedAt       time.Time // waitlist_entries.updated_at
}
