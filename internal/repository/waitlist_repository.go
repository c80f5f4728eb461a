package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// WaitlistRepo provides data access to waitlist entries.  Queue position
// is assigned at insert time as the count of currently active entries
// plus one; positions are never compacted, so ordering stays stable as
// entries are promoted or cancelled.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistCols = `id, hotel_id, guest_id, room_type_ids, earliest_check_in, latest_check_in,
	nights, max_rate_cents, position, auto_confirm, notify_email, notify_sms, status,
	created_at, updated_at`

// Create inserts an entry, computing its position inside a short
// transaction so two concurrent enqueues cannot claim the same slot.
func (r *WaitlistRepo) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const countQ = `SELECT COUNT(*) FROM waitlist_entries WHERE hotel_id = ? AND status = ? FOR UPDATE`
	var active uint32
	if err := tx.QueryRowContext(ctx, countQ, entry.HotelID, model.WaitlistActive).Scan(&active); err != nil {
		return err
	}
	entry.Position = active + 1
	entry.Status = model.WaitlistActive
	const q = `INSERT INTO waitlist_entries
	           (hotel_id, guest_id, room_type_ids, earliest_check_in, latest_check_in,
	            nights, max_rate_cents, position, auto_confirm, notify_email, notify_sms, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		entry.HotelID, entry.GuestID, entry.RoomTypeIDs, entry.EarliestCheckIn, entry.LatestCheckIn,
		entry.Nights, entry.MaxRateCents, entry.Position, entry.AutoConfirm,
		entry.NotifyEmail, entry.NotifySMS, entry.Status,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListActive returns a hotel's active entries in promotion order.
func (r *WaitlistRepo) ListActive(ctx context.Context, hotelID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + `
	           FROM waitlist_entries
	           WHERE hotel_id = ? AND status = ?
	           ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q, hotelID, model.WaitlistActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(
			&e.ID, &e.HotelID, &e.GuestID, &e.RoomTypeIDs, &e.EarliestCheckIn, &e.LatestCheckIn,
			&e.Nights, &e.MaxRateCents, &e.Position, &e.AutoConfirm, &e.NotifyEmail, &e.NotifySMS,
			&e.Status, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkStatusTx transitions an entry's status inside an open transaction.
// The WHERE clause only moves entries out of ACTIVE, so a promotion that
// lost a race with a cancellation is a no-op reported via ErrConflict.
func (r *WaitlistRepo) MarkStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	const q = `UPDATE waitlist_entries
	           SET status = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, status, id, model.WaitlistActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
