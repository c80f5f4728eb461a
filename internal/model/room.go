package model

import "time"

// RoomType is a sellable category of rooms.  Tier orders types into the
// upgrade ladder: an upgrade moves a guest to a type with tier + 1.
type RoomType struct {
	ID        uint64    `json:"id"`
	HotelID   uint64    `json:"hotel_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Tier      uint8     `json:"tier"`
	Capacity  uint32    `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is a physical room.  Features is a free-form comma-separated tag
// list (e.g. "balcony,sea_view"); nil when the room has none recorded.
// Inactive rooms are never assigned.
type Room struct {
	ID         uint64    `json:"id"`
	HotelID    uint64    `json:"hotel_id"`
	RoomTypeID uint64    `json:"room_type_id"`
	RoomNumber uint32    `json:"room_number"`
	Floor      uint8     `json:"floor"`
	Features   *string   `json:"features,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
