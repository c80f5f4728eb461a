package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// BlockRepo provides data access to room blocks and their per-type items.
// The blocked counts themselves live in the inventory ledger; these rows
// describe the encumbrance so it can be drawn down or returned.
type BlockRepo struct {
	db *sql.DB
}

// NewBlockRepo returns a new BlockRepo bound to the given database.
func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{db: db} }

// CreateTx inserts a block and its items within an existing transaction,
// populating generated ids on the passed records.
func (r *BlockRepo) CreateTx(ctx context.Context, tx *sql.Tx, block *model.RoomBlock, items []model.RoomBlockItem) error {
	const q = `INSERT INTO room_blocks (hotel_id, group_name, check_in, check_out, release_date, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		block.HotelID, block.GroupName, block.CheckIn, block.CheckOut, block.ReleaseDate, block.Status,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	block.ID = uint64(id)
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO room_block_items (block_id, room_type_id, blocked_count, assigned_count) VALUES `
	args := make([]interface{}, 0, len(items)*4)
	for i := range items {
		items[i].BlockID = block.ID
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, items[i].BlockID, items[i].RoomTypeID, items[i].BlockedCount, items[i].AssignedCount)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// GetByIDTx loads a block with its row locked for update.
func (r *BlockRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.RoomBlock, error) {
	const q = `SELECT id, hotel_id, group_name, check_in, check_out, release_date, status, created_at, updated_at
	           FROM room_blocks WHERE id = ? FOR UPDATE`
	var b model.RoomBlock
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.HotelID, &b.GroupName, &b.CheckIn, &b.CheckOut, &b.ReleaseDate,
		&b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ItemsTx returns a block's items with their rows locked for update.
func (r *BlockRepo) ItemsTx(ctx context.Context, tx *sql.Tx, blockID uint64) ([]model.RoomBlockItem, error) {
	const q = `SELECT id, block_id, room_type_id, blocked_count, assigned_count, created_at, updated_at
	           FROM room_block_items WHERE block_id = ? ORDER BY room_type_id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomBlockItem
	for rows.Next() {
		var it model.RoomBlockItem
		if err := rows.Scan(&it.ID, &it.BlockID, &it.RoomTypeID, &it.BlockedCount,
			&it.AssignedCount, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DrawDownTx converts one blocked room of an item into an assigned one.
// The WHERE clause refuses to draw from an empty item, so a stale caller
// gets ErrConflict instead of a negative count.
func (r *BlockRepo) DrawDownTx(ctx context.Context, tx *sql.Tx, itemID uint64) error {
	const q = `UPDATE room_block_items
	           SET blocked_count = blocked_count - 1,
	               assigned_count = assigned_count + 1,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND blocked_count > 0`
	res, err := tx.ExecContext(ctx, q, itemID)
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

// ZeroBlockedTx clears the remaining blocked counts of a block after an
// auto-release returned them to general availability.
func (r *BlockRepo) ZeroBlockedTx(ctx context.Context, tx *sql.Tx, blockID uint64) error {
	const q = `UPDATE room_block_items
	           SET blocked_count = 0, updated_at = UTC_TIMESTAMP()
	           WHERE block_id = ?`
	_, err := tx.ExecContext(ctx, q, blockID)
	return err
}

// UpdateStatusTx transitions a block's status.
func (r *BlockRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	const q = `UPDATE room_blocks SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, status, id)
	return err
}

// ListExpirable returns ids of ACTIVE blocks whose release date has
// passed.  The auto-release sweeper processes each id in its own
// transaction so one stuck block cannot wedge the sweep.
func (r *BlockRepo) ListExpirable(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT id FROM room_blocks WHERE status = ? AND release_date <= ?`
	rows, err := r.db.QueryContext(ctx, q, model.BlockActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
