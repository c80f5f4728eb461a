package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// RoomRepo provides read access to the room and room-type catalog.  The
// catalog is owned by the property system; the engine only reads it to
// drive conflict detection and assignment.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// ListByHotel returns every room of a hotel ordered by room number so
// downstream selection starts from a stable ordering.
func (r *RoomRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	const q = `SELECT id, hotel_id, room_type_id, room_number, floor, features, is_active, created_at, updated_at
	           FROM rooms WHERE hotel_id = ? ORDER BY room_number`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		var rm model.Room
		var features sql.NullString
		if err := rows.Scan(&rm.ID, &rm.HotelID, &rm.RoomTypeID, &rm.RoomNumber,
			&rm.Floor, &features, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		if features.Valid {
			f := features.String
			rm.Features = &f
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTypes returns the room types of a hotel ordered by tier then id.
func (r *RoomRepo) ListTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	const q = `SELECT id, hotel_id, code, name, tier, capacity, created_at, updated_at
	           FROM room_types WHERE hotel_id = ? ORDER BY tier, id`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomType
	for rows.Next() {
		var t model.RoomType
		if err := rows.Scan(&t.ID, &t.HotelID, &t.Code, &t.Name, &t.Tier,
			&t.Capacity, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetType loads a single room type.  Returns sql.ErrNoRows when absent.
func (r *RoomRepo) GetType(ctx context.Context, id uint64) (*model.RoomType, error) {
	const q = `SELECT id, hotel_id, code, name, tier, capacity, created_at, updated_at
	           FROM room_types WHERE id = ?`
	var t model.RoomType
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.HotelID, &t.Code, &t.Name, &t.Tier, &t.Capacity, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
