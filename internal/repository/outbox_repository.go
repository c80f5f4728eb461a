package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// OutboxRepo provides data access to the durable outbox.  Messages are
// written inside the same transaction as the ledger mutation that
// produced them and drained asynchronously by the dispatcher, so local
// state and external delivery cannot diverge.
type OutboxRepo struct {
	db *sql.DB
}

// NewOutboxRepo returns a new OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// EnqueueTx inserts a pending message within an existing transaction.
func (r *OutboxRepo) EnqueueTx(ctx context.Context, tx *sql.Tx, msg *model.OutboxMessage) error {
	const q = `INSERT INTO outbox_messages (channel_id, kind, payload, status, attempts, next_attempt_at)
	           VALUES (?, ?, ?, ?, 0, UTC_TIMESTAMP())`
	result, err := tx.ExecContext(ctx, q, msg.ChannelID, msg.Kind, msg.Payload, model.OutboxPending)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = uint64(id)
	return nil
}

// DuePending returns pending messages whose next attempt time has
// arrived, oldest first, up to limit.
func (r *OutboxRepo) DuePending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	const q = `SELECT id, channel_id, kind, payload, status, attempts, next_attempt_at, delivered_at, created_at
	           FROM outbox_messages
	           WHERE status = ? AND next_attempt_at <= UTC_TIMESTAMP()
	           ORDER BY id
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.OutboxPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.Kind, &m.Payload, &m.Status,
			&m.Attempts, &m.NextAttemptAt, &m.DeliveredAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDelivered finalizes a successfully pushed message.
func (r *OutboxRepo) MarkDelivered(ctx context.Context, id uint64) error {
	const q = `UPDATE outbox_messages
	           SET status = ?, delivered_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, model.OutboxDelivered, id)
	return err
}

// Reschedule records a failed attempt and sets the next retry time.
func (r *OutboxRepo) Reschedule(ctx context.Context, id uint64, nextAttempt time.Time) error {
	const q = `UPDATE outbox_messages
	           SET attempts = attempts + 1, next_attempt_at = ?
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, nextAttempt, id)
	return err
}

// MarkFailed retires a message after its retry budget is exhausted.  The
// row stays in the table for manual intervention.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64) error {
	const q = `UPDATE outbox_messages SET status = ?, attempts = attempts + 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, model.OutboxFailed, id)
	return err
}
