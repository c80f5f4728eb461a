package model

import "time"

// Room block statuses.  A block moves ACTIVE -> CONFIRMED and then to one
// of the terminal states; EXPIRED is reached only through auto-release at
// the cutoff date.
const (
	BlockActive    = "ACTIVE"
	BlockConfirmed = "CONFIRMED"
	BlockCompleted = "COMPLETED"
	BlockCancelled = "CANCELLED"
	BlockExpired   = "EXPIRED"
)

// RoomBlock reserves a pool of rooms for a group or corporate booking
// without tying them to individual guests.  Blocked counts live in the
// inventory ledger; the block rows only describe the encumbrance so it can
// be drawn down or returned.
//
// Fields:
//  ID          – primary key identifier.
//  HotelID     – hotel the block belongs to.
//  GroupName   – identity of the group holding the block.
//  CheckIn     – first night covered by the block.
//  CheckOut    – checkout date, exclusive.
//  ReleaseDate – cutoff; unassigned rooms return to general availability
//                when this date passes and the block is not CONFIRMED.
//  Status      – one of the Block* constants.
type RoomBlock struct {
	ID          uint64    // room_blocks.id
	HotelID     uint64    // room_blocks.hotel_id
	GroupName   string    // room_blocks.group_name
	CheckIn     time.Time // room_blocks.check_in
	CheckOut    time.Time // room_blocks.check_out
	ReleaseDate time.Time // room_blocks.release_date
	Status      string    // room_blocks.status
	CreatedAt   time.Time // room_blocks.created_at
	UpdatedAt   time.Time // room_blocks.updated_at
}

// RoomBlockItem holds the per-room-type counts of a block.  BlockedCount
// is the number of rooms originally encumbered and still unassigned;
// AssignedCount tracks rooms already converted into reservations.  The sum
// of both never exceeds the original allocation.
type RoomBlockItem struct {
	ID            uint64    // room_block_items.id
	BlockID       uint64    // room_block_items.block_id
	RoomTypeID    uint64    // room_block_items.room_type_id
	BlockedCount  uint32    // room_block_items.blocked_count
	AssignedCount uint32    // room_block_items.assigned_count
	CreatedAt     time.Time // room_block_items.created_at
	UpdatedAt     time.Time // room_block_items.updated_at
}
