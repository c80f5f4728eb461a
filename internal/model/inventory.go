package model

import "time"

// Hotel is a property whose inventory the engine manages.
//
// Fields:
//   - OverbookingLimit – rooms per night the property authorizes selling
//     beyond physical capacity.  Zero disables overbooking.
type Hotel struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Timezone         string    `json:"timezone"`
	OverbookingLimit uint32    `json:"overbooking_limit"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// InventoryRecord is one row of the inventory ledger: the authoritative
// counters for a (hotel, room type, date) key.  Dates are night starts in
// the hotel's timezone, stored at midnight UTC.
//
// Fields:
//   - TotalRooms – physical capacity for the type on the date
//   - SoldRooms – rooms committed to reservations
//   - BlockedRooms – rooms encumbered by active room blocks
//   - OverbookedRooms – the portion of sold + blocked exceeding capacity
//   - StopSell – when true the date cannot be sold regardless of counts
//   - MinLOS / MaxLOS – length-of-stay restrictions in nights; zero means
//     unrestricted
//   - RateCents – nightly rate snapshot source
//   - Version – bumped on every mutation; writers re-check it under lock
type InventoryRecord struct {
	ID              uint64    `json:"id"`
	HotelID         uint64    `json:"hotel_id"`
	RoomTypeID      uint64    `json:"room_type_id"`
	Date            time.Time `json:"date"`
	TotalRooms      uint32    `json:"total_rooms"`
	SoldRooms       uint32    `json:"sold_rooms"`
	BlockedRooms    uint32    `json:"blocked_rooms"`
	OverbookedRooms uint32    `json:"overbooked_rooms"`
	StopSell        bool      `json:"stop_sell"`
	MinLOS          uint32    `json:"min_los"`
	MaxLOS          uint32    `json:"max_los"`
	RateCents       uint32    `json:"rate_cents"`
	Version         uint32    `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available returns the rooms still sellable on the date without touching
// the overbooking authorization.  Never negative.
func (r *InventoryRecord) Available() int32 {
	n := int64(r.TotalRooms) - int64(r.SoldRooms) - int64(r.BlockedRooms) + int64(r.OverbookedRooms)
	if n < 0 {
		return 0
	}
	return int32(n)
}
