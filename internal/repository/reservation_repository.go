package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and their
// assigned rooms.  Rooms assigned under a reservation are stored in the
// reservation_rooms table.  All timestamp fields are assumed to be stored
// in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record.  The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (hotel_id, guest_id, room_type_id, check_in, check_out, status, nights, rate_cents, block_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.HotelID, res.GuestID, res.RoomTypeID, res.CheckIn, res.CheckOut,
		res.Status, res.Nights, res.RateCents, res.BlockID,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// CreateRoomsBulkTx inserts multiple reservation_rooms rows in a single
// statement.  Passing an empty slice has no effect and returns nil.
func (r *ReservationRepo) CreateRoomsBulkTx(ctx context.Context, tx *sql.Tx, rooms []model.ReservationRoom) error {
	if len(rooms) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_rooms
	          (reservation_id, room_id, upgraded, upgrade_reason, upgrade_approver, upgrade_fee_cents) VALUES `
	args := make([]interface{}, 0, len(rooms)*6)
	for i, rr := range rooms {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, rr.ReservationID, rr.RoomID, rr.Upgraded, rr.UpgradeReason, rr.UpgradeApprover, rr.UpgradeFeeCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// StayRow is one room stay returned by OccupyingStaysTx.  Status is
// carried so callers can apply the engine's occupancy predicate rather
// than trusting the SQL filter alone.
type StayRow struct {
	RoomID   uint64
	Status   string
	CheckIn  time.Time
	CheckOut time.Time
}

// OccupyingStaysTx returns all stays that hold rooms against new bookings
// (status CONFIRMED or CHECKED_IN) at a hotel overlapping the given
// range.  The rows are locked so a concurrent allocation for the same
// rooms serializes behind this transaction.
func (r *ReservationRepo) OccupyingStaysTx(ctx context.Context, tx *sql.Tx, hotelID uint64, checkIn, checkOut time.Time) ([]StayRow, error) {
	const q = `SELECT rr.room_id, res.status, res.check_in, res.check_out
	           FROM reservation_rooms rr
	           JOIN reservations res ON res.id = rr.reservation_id
	           WHERE res.hotel_id = ?
	             AND res.status IN ('CONFIRMED', 'CHECKED_IN')
	             AND res.check_in < ? AND res.check_out > ?
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, hotelID, checkOut, checkIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stays []StayRow
	for rows.Next() {
		var s StayRow
		if err := rows.Scan(&s.RoomID, &s.Status, &s.CheckIn, &s.CheckOut); err != nil {
			return nil, err
		}
		stays = append(stays, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stays, nil
}

// GetByIDTx loads a reservation with its row locked for update.  Returns
// sql.ErrNoRows when the reservation does not exist.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, hotel_id, guest_id, room_type_id, check_in, check_out,
	                  status, nights, rate_cents, block_id, release_op_id, created_at, updated_at
	           FROM reservations WHERE id = ? FOR UPDATE`
	var res model.Reservation
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.HotelID, &res.GuestID, &res.RoomTypeID, &res.CheckIn, &res.CheckOut,
		&res.Status, &res.Nights, &res.RateCents, &res.BlockID, &res.ReleaseOpID,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RoomsByReservationTx returns the room assignments of a reservation.
func (r *ReservationRepo) RoomsByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.ReservationRoom, error) {
	const q = `SELECT id, reservation_id, room_id, upgraded, upgrade_reason,
	                  upgrade_approver, upgrade_fee_cents, created_at
	           FROM reservation_rooms WHERE reservation_id = ? ORDER BY room_id`
	rows, err := tx.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ReservationRoom
	for rows.Next() {
		var rr model.ReservationRoom
		if err := rows.Scan(&rr.ID, &rr.ReservationID, &rr.RoomID, &rr.Upgraded,
			&rr.UpgradeReason, &rr.UpgradeApprover, &rr.UpgradeFeeCents, &rr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatusTx transitions a reservation's status.  When opID is
// non-nil it is stored as the release operation id so a replayed
// cancellation can be recognized.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string, opID *string) error {
	const q = `UPDATE reservations
	           SET status = ?, release_op_id = COALESCE(?, release_op_id), updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, status, opID, id)
	return err
}

// ListByGuest returns a guest's reservations, newest first.
func (r *ReservationRepo) ListByGuest(ctx context.Context, hotelID, guestID uint64) ([]model.Reservation, error) {
	const q = `SELECT id, hotel_id, guest_id, room_type_id, check_in, check_out,
	                  status, nights, rate_cents, block_id, release_op_id, created_at, updated_at
	           FROM reservations
	           WHERE hotel_id = ? AND guest_id = ?
	           ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, hotelID, guestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID, &res.HotelID, &res.GuestID, &res.RoomTypeID, &res.CheckIn, &res.CheckOut,
			&res.Status, &res.Nights, &res.RateCents, &res.BlockID, &res.ReleaseOpID,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
