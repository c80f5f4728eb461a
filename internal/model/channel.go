package model

import "time"

// Channel sync statuses.
const (
	ChannelActive   = "ACTIVE"
	ChannelInactive = "INACTIVE"
	ChannelError    = "ERROR"
)

// Conflict resolution policies for changes originating from a channel.
const (
	PolicyCentralizedWins = "CENTRALIZED_WINS"
	PolicyPropertyWins    = "PROPERTY_WINS"
	PolicyManualResolve   = "MANUAL_RESOLVE"
	PolicyAlertOnly       = "ALERT_ONLY"
)

// ChannelMapping connects a hotel to an external sales channel.  The
// engine pushes availability and rate deltas to the channel and accepts
// channel-originated bookings authenticated by APIKeyHash (bcrypt).
//
// Fields:
//  ID             – primary key identifier.
//  HotelID        – hotel distributed through this channel.
//  Code           – unique channel code used in callback URLs.
//  Name           – display name of the channel.
//  SyncStatus     – one of the Channel* constants.
//  CommissionPct  – channel commission percentage.
//  ConflictPolicy – one of the Policy* constants.
//  APIKeyHash     – bcrypt hash of the channel's callback API key.
//  LastSyncAt     – timestamp of the last acknowledged push (nullable).
type ChannelMapping struct {
	ID             uint64     // channel_mappings.id
	HotelID        uint64     // channel_mappings.hotel_id
	Code           string     // channel_mappings.code
	Name           string     // channel_mappings.name
	SyncStatus     string     // channel_mappings.sync_status
	CommissionPct  float64    // channel_mappings.commission_pct
	ConflictPolicy string     // channel_mappings.conflict_policy
	APIKeyHash     string     // channel_mappings.api_key_hash
	LastSyncAt     *time.Time // channel_mappings.last_sync_at (nullable)
	CreatedAt      time.Time  // channel_mappings.created_at
	UpdatedAt      time.Time  // channel_mappings.updated_at
}

// Outbox message statuses.  Messages are written in the same transaction
// as the ledger change that produced them and drained asynchronously.
const (
	OutboxPending   = "PENDING"
	OutboxDelivered = "DELIVERED"
	OutboxFailed    = "FAILED"
)

// OutboxMessage is a durable work item for asynchronous delivery: channel
// availability/rate deltas and notification events both travel through the
// outbox so a ledger mutation and its external side effects cannot
// diverge.  Attempts counts delivery tries; NextAttemptAt implements the
// backoff schedule.
type OutboxMessage struct {
	ID            uint64     // outbox_messages.id
	ChannelID     *uint64    // outbox_messages.channel_id (nullable for notifications)
	Kind          string     // outbox_messages.kind (availability, rate, notification)
	Payload       string     // outbox_messages.payload (JSON)
	Status        string     // outbox_messages.status
	Attempts      uint32     // outbox_messages.attempts
	NextAttemptAt time.Time  // outbox_messages.next_attempt_at
	DeliveredAt   *time.Time // outbox_messages.delivered_at (nullable)
	CreatedAt     time.Time  // outbox_messages.created_at
}

// PendingConflict holds a channel-originated change stopped by the
// MANUAL_RESOLVE policy.  Nothing touches the ledger until a manager
// resolves the row through the admin endpoint.
type PendingConflict struct {
	ID         uint64     // pending_conflicts.id
	ChannelID  uint64     // pending_conflicts.channel_id
	Payload    string     // pending_conflicts.payload (JSON)
	Reason     string     // pending_conflicts.reason
	Resolved   bool       // pending_conflicts.resolved
	ResolvedBy *string    // pending_conflicts.resolved_by (nullable)
	ResolvedAt *time.Time // pending_conflicts.resolved_at (nullable)
	CreatedAt  time.Time  // pending_conflicts.created_at
}
