package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// InventoryRepo provides data access to the inventory ledger: one row per
// (hotel, room type, date) holding the authoritative counters.  All
// mutations go through caller-owned transactions so an allocation can
// lock, validate and mutate every touched night atomically.  Timestamps
// are stored in UTC.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// DB exposes the underlying handle so services can begin transactions.
func (r *InventoryRepo) DB() *sql.DB { return r.db }

const inventoryCols = `id, hotel_id, room_type_id, date, total_rooms, sold_rooms,
	blocked_rooms, overbooked_rooms, stop_sell, min_los, max_los, rate_cents,
	version, created_at, updated_at`

func scanInventory(rows *sql.Rows) ([]model.InventoryRecord, error) {
	defer rows.Close()
	var recs []model.InventoryRecord
	for rows.Next() {
		var rec model.InventoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.HotelID, &rec.RoomTypeID, &rec.Date, &rec.TotalRooms,
			&rec.SoldRooms, &rec.BlockedRooms, &rec.OverbookedRooms, &rec.StopSell,
			&rec.MinLOS, &rec.MaxLOS, &rec.RateCents,
			&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Range returns the ledger rows for a room type across [checkIn, checkOut)
// without locking.  Used by availability reads.
func (r *InventoryRepo) Range(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.InventoryRecord, error) {
	const q = `SELECT ` + inventoryCols + `
	           FROM inventory_records
	           WHERE hotel_id = ? AND room_type_id = ? AND date >= ? AND date < ?
	           ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return scanInventory(rows)
}

// RangeForUpdateTx returns the same rows with row locks held for the
// duration of the transaction.  Every mutation path must read through
// this method first so concurrent allocations on the same keys serialize.
func (r *InventoryRepo) RangeForUpdateTx(ctx context.Context, tx *sql.Tx, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.InventoryRecord, error) {
	const q = `SELECT ` + inventoryCols + `
	           FROM inventory_records
	           WHERE hotel_id = ? AND room_type_id = ? AND date >= ? AND date < ?
	           ORDER BY date
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	return scanInventory(rows)
}

// BumpCountersTx applies counter deltas to one ledger row and bumps its
// version.  The WHERE clause re-checks the version read under the row
// lock; zero affected rows means another writer got there first and the
// transaction must be retried.  Negative deltas are guarded against
// underflow in SQL so a duplicate release can never drive a counter
// negative even if idempotency tracking were bypassed.
func (r *InventoryRepo) BumpCountersTx(ctx context.Context, tx *sql.Tx, id uint64, soldDelta, blockedDelta, overbookedDelta int32, version uint32) error {
	const q = `UPDATE inventory_records
	           SET sold_rooms = GREATEST(0, CAST(sold_rooms AS SIGNED) + ?),
	               blocked_rooms = GREATEST(0, CAST(blocked_rooms AS SIGNED) + ?),
	               overbooked_rooms = GREATEST(0, CAST(overbooked_rooms AS SIGNED) + ?),
	               version = version + 1,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, soldDelta, blockedDelta, overbookedDelta, id, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// RecordOpTx inserts a ledger operation id into the ledger_ops table,
// which carries a unique key on op_id.  A duplicate key error is mapped
// to ErrOpApplied so release operations stay idempotent.
func (r *InventoryRepo) RecordOpTx(ctx context.Context, tx *sql.Tx, opID, kind string) error {
	const q = `INSERT INTO ledger_ops (op_id, kind) VALUES (?, ?)`
	_, err := tx.ExecContext(ctx, q, opID, kind)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ErrOpApplied
	}
	return err
}

// GetHotel loads a hotel row, including its overbooking authorization.
func (r *InventoryRepo) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	const q = `SELECT id, name, timezone, overbooking_limit, created_at, updated_at
	           FROM hotels WHERE id = ?`
	var h model.Hotel
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&h.ID, &h.Name, &h.Timezone, &h.OverbookingLimit, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// OccupancyTx computes the committed percentage (sold + blocked over
// total) across the whole hotel for the stay range.  Rule conditions on
// occupancy level are evaluated against this number.
func (r *InventoryRepo) OccupancyTx(ctx context.Context, tx *sql.Tx, hotelID uint64, checkIn, checkOut time.Time) (uint32, error) {
	const q = `SELECT COALESCE(SUM(total_rooms), 0),
	                  COALESCE(SUM(sold_rooms + blocked_rooms), 0)
	           FROM inventory_records
	           WHERE hotel_id = ? AND date >= ? AND date < ?`
	var total, used uint64
	if err := tx.QueryRowContext(ctx, q, hotelID, checkIn, checkOut).Scan(&total, &used); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return uint32(used * 100 / total), nil
}

// SetRestrictions updates stop-sell and length-of-stay restrictions for a
// set of dates.  Used by the admin surface and by channel changes applied
// under a policy that lets the channel win.
func (r *InventoryRepo) SetRestrictions(ctx context.Context, hotelID, roomTypeID uint64, dates []time.Time, stopSell bool, minLOS, maxLOS uint32) error {
	if len(dates) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
	q := `UPDATE inventory_records
	      SET stop_sell = ?, min_los = ?, max_los = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	      WHERE hotel_id = ? AND room_type_id = ? AND date IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(dates)+5)
	args = append(args, stopSell, minLOS, maxLOS, hotelID, roomTypeID)
	for _, d := range dates {
		args = append(args, d)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// SetRateTx updates the nightly rate for one ledger row under an open
// transaction, bumping the version like any other mutation.
func (r *InventoryRepo) SetRateTx(ctx context.Context, tx *sql.Tx, id uint64, rateCents, version uint32) error {
	const q = `UPDATE inventory_records
	           SET rate_cents = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, rateCents, id, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
