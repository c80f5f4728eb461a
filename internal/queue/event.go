// Package queue defines message payloads exchanged over the message broker
// and the consumers/publishers that move them.
package queue

// Queue names used on the broker.  Both queues are declared durable so
// messages survive broker restarts.
const (
	ChannelSyncQueue   = "channel.sync"
	NotificationsQueue = "engine.notifications"
)

// Outbox message kinds.  Availability and rate deltas are routed to the
// channel sync queue; notification events go to the notifications queue.
const (
	KindAvailability = "availability"
	KindRate         = "rate"
	KindNotification = "notification"
)

// AvailabilityDelta is pushed to an external channel when local inventory
// for a room type and date range changes.  Delta is the signed change in
// sellable rooms per night.
type AvailabilityDelta struct {
	ChannelCode string `json:"channel_code"`
	HotelID     uint64 `json:"hotel_id"`
	RoomTypeID  uint64 `json:"room_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"` // exclusive
	Delta       int32  `json:"delta"`
}

// RateDelta is pushed to an external channel when a nightly rate changes.
type RateDelta struct {
	ChannelCode string `json:"channel_code"`
	HotelID     uint64 `json:"hotel_id"`
	RoomTypeID  uint64 `json:"room_type_id"`
	Date        string `json:"date"`
	RateCents   uint32 `json:"rate_cents"`
}

// NotificationEvent is a discrete fire-and-forget event for downstream
// delivery systems: assignment results, waitlist promotions and block
// expirations.  Delivery is at-most-once from the engine's point of view.
type NotificationEvent struct {
	Event         string `json:"event"` // reservation.allocated, reservation.cancelled, waitlist.promoted, block.expired, channel.alert
	HotelID       uint64 `json:"hotel_id"`
	GuestID       uint64 `json:"guest_id,omitempty"`
	ReservationID uint64 `json:"reservation_id,omitempty"`
	BlockID       uint64 `json:"block_id,omitempty"`
	WaitlistID    uint64 `json:"waitlist_id,omitempty"`
	Detail        string `json:"detail,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// ChannelAck is sent back by an external channel (or the bridge in front
// of it) after processing a pushed delta.  The ack consumer feeds these
// into per-channel sync status.
type ChannelAck struct {
	ChannelCode string `json:"channel_code"`
	MessageID   uint64 `json:"message_id"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	AckedAt     string `json:"acked_at"`
}
