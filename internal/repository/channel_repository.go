package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// ChannelRepo provides data access to channel mappings and the pending
// conflicts created by the MANUAL_RESOLVE policy.
type ChannelRepo struct {
	db *sql.DB
}

// NewChannelRepo returns a new ChannelRepo bound to the given database.
func NewChannelRepo(db *sql.DB) *ChannelRepo { return &ChannelRepo{db: db} }

const channelCols = `id, hotel_id, code, name, sync_status, commission_pct,
	conflict_policy, api_key_hash, last_sync_at, created_at, updated_at`

func scanChannel(row interface {
	Scan(dest ...interface{}) error
}) (*model.ChannelMapping, error) {
	var ch model.ChannelMapping
	err := row.Scan(
		&ch.ID, &ch.HotelID, &ch.Code, &ch.Name, &ch.SyncStatus, &ch.CommissionPct,
		&ch.ConflictPolicy, &ch.APIKeyHash, &ch.LastSyncAt, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetByCode loads a channel by its callback code.
func (r *ChannelRepo) GetByCode(ctx context.Context, code string) (*model.ChannelMapping, error) {
	const q = `SELECT ` + channelCols + ` FROM channel_mappings WHERE code = ?`
	return scanChannel(r.db.QueryRowContext(ctx, q, code))
}

// GetByID loads a channel by id.
func (r *ChannelRepo) GetByID(ctx context.Context, id uint64) (*model.ChannelMapping, error) {
	const q = `SELECT ` + channelCols + ` FROM channel_mappings WHERE id = ?`
	return scanChannel(r.db.QueryRowContext(ctx, q, id))
}

// ListByHotel returns a hotel's channel mappings.
func (r *ChannelRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.ChannelMapping, error) {
	const q = `SELECT ` + channelCols + ` FROM channel_mappings WHERE hotel_id = ? ORDER BY code`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ChannelMapping, 0)
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a channel mapping and populates its generated id.
func (r *ChannelRepo) Create(ctx context.Context, ch *model.ChannelMapping) error {
	const q = `INSERT INTO channel_mappings
	           (hotel_id, code, name, sync_status, commission_pct, conflict_policy, api_key_hash)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		ch.HotelID, ch.Code, ch.Name, ch.SyncStatus, ch.CommissionPct, ch.ConflictPolicy, ch.APIKeyHash,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	ch.ID = uint64(id)
	return nil
}

// SetSyncStatus updates a channel's health.  When the new status is
// ACTIVE the last successful sync timestamp is also advanced.
func (r *ChannelRepo) SetSyncStatus(ctx context.Context, id uint64, status string, at time.Time) error {
	if status == model.ChannelActive {
		const q = `UPDATE channel_mappings
		           SET sync_status = ?, last_sync_at = ?, updated_at = UTC_TIMESTAMP()
		           WHERE id = ?`
		_, err := r.db.ExecContext(ctx, q, status, at, id)
		return err
	}
	const q = `UPDATE channel_mappings SET sync_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}

// CreatePendingConflict records a channel-originated change held for
// manual review.  No ledger state is touched.
func (r *ChannelRepo) CreatePendingConflict(ctx context.Context, pc *model.PendingConflict) error {
	const q = `INSERT INTO pending_conflicts (channel_id, payload, reason) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, pc.ChannelID, pc.Payload, pc.Reason)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	pc.ID = uint64(id)
	return nil
}

// ListPendingConflicts returns unresolved conflicts for a hotel's channels.
func (r *ChannelRepo) ListPendingConflicts(ctx context.Context, hotelID uint64) ([]model.PendingConflict, error) {
	const q = `SELECT pc.id, pc.channel_id, pc.payload, pc.reason, pc.resolved, pc.resolved_by, pc.resolved_at, pc.created_at
	           FROM pending_conflicts pc
	           JOIN channel_mappings cm ON cm.id = pc.channel_id
	           WHERE cm.hotel_id = ? AND pc.resolved = FALSE
	           ORDER BY pc.created_at`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PendingConflict, 0)
	for rows.Next() {
		var pc model.PendingConflict
		if err := rows.Scan(&pc.ID, &pc.ChannelID, &pc.Payload, &pc.Reason,
			&pc.Resolved, &pc.ResolvedBy, &pc.ResolvedAt, &pc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolvePendingConflict marks a held change as resolved.  Returns
// sql.ErrNoRows when the conflict does not exist or was already resolved.
func (r *ChannelRepo) ResolvePendingConflict(ctx context.Context, id uint64, resolvedBy string) error {
	const q = `UPDATE pending_conflicts
	           SET resolved = TRUE, resolved_by = ?, resolved_at = UTC_TIMESTAMP()
	           WHERE id = ? AND resolved = FALSE`
	res, err := r.db.ExecContext(ctx, q, resolvedBy, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
