package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
)

// ErrHeldForReview is returned when a channel-originated change was
// stored as a pending conflict under the MANUAL_RESOLVE policy.  The
// caller should answer 202 and nothing touches the ledger until a
// manager resolves the row.
var ErrHeldForReview = errors.New("held for manual review")

// ChannelInbound applies changes that originate from external sales
// channels under the channel's configured conflict-resolution policy.
type ChannelInbound struct {
	Allocator   *Allocator
	ChannelRepo *repository.ChannelRepo
}

// NewChannelInbound constructs a ChannelInbound service.
func NewChannelInbound(alloc *Allocator, channels *repository.ChannelRepo) *ChannelInbound {
	if alloc == nil || channels == nil {
		panic("nil dependency passed to NewChannelInbound")
	}
	return &ChannelInbound{Allocator: alloc, ChannelRepo: channels}
}

// ChannelBooking is a booking pushed by an external channel.
type ChannelBooking struct {
	GuestID    uint64    `json:"guest_id"`
	RoomTypeID uint64    `json:"room_type_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	RoomCount  uint32    `json:"room_count"`
}

// ApplyBooking attempts to allocate a channel booking.  When local state
// conflicts with the channel's sale, the channel's policy decides the
// outcome:
//
//	CENTRALIZED_WINS – local truth governs; the booking is rejected.
//	PROPERTY_WINS    – the property honors the channel sale if at all
//	                   possible, retrying with upgrades permitted.
//	MANUAL_RESOLVE   – the booking is held as a pending conflict and
//	                   nothing is applied until a manager decides.
//	ALERT_ONLY       – the booking is rejected and an alert event is
//	                   emitted for the operations team.
func (s *ChannelInbound) ApplyBooking(ctx context.Context, ch *model.ChannelMapping, booking ChannelBooking) (*AllocationResult, error) {
	req := AllocateRequest{
		HotelID:    ch.HotelID,
		GuestID:    booking.GuestID,
		RoomTypeID: booking.RoomTypeID,
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		RoomCount:  booking.RoomCount,
	}
	result, err := s.Allocator.Allocate(ctx, req)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, engine.ErrInsufficientInventory) &&
		!errors.Is(err, engine.ErrConflictDetected) &&
		!errors.Is(err, engine.ErrNoRoomAvailable) {
		return nil, err
	}

	switch ch.ConflictPolicy {
	case model.PolicyPropertyWins:
		req.AllowUpgrade = true
		return s.Allocator.Allocate(ctx, req)
	case model.PolicyManualResolve:
		payload, merr := json.Marshal(booking)
		if merr != nil {
			return nil, merr
		}
		pc := &model.PendingConflict{ChannelID: ch.ID, Payload: string(payload), Reason: err.Error()}
		if cerr := s.ChannelRepo.CreatePendingConflict(ctx, pc); cerr != nil {
			return nil, cerr
		}
		return nil, ErrHeldForReview
	case model.PolicyAlertOnly:
		if aerr := s.emitAlert(ctx, ch, err.Error()); aerr != nil {
			return nil, aerr
		}
		return nil, err
	default: // CENTRALIZED_WINS
		return nil, err
	}
}

// emitAlert writes a channel.alert notification through the outbox in
// its own small transaction.
func (s *ChannelInbound) emitAlert(ctx context.Context, ch *model.ChannelMapping, detail string) error {
	tx, err := s.Allocator.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.Allocator.enqueueNotificationTx(ctx, tx, queue.NotificationEvent{
		Event:      "channel.alert",
		HotelID:    ch.HotelID,
		Detail:     ch.Code + ": " + detail,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ChannelRateChange is a nightly rate update pushed by a channel.
type ChannelRateChange struct {
	RoomTypeID uint64    `json:"room_type_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"` // exclusive
	RateCents  uint32    `json:"rate_cents"`
}

// ChannelRestrictionChange is a stop-sell / length-of-stay update pushed
// by a channel.
type ChannelRestrictionChange struct {
	RoomTypeID uint64    `json:"room_type_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"` // exclusive
	StopSell   bool      `json:"stop_sell"`
	MinLOS     uint32    `json:"min_los"`
	MaxLOS     uint32    `json:"max_los"`
}

// gateChange applies the conflict policy to a non-booking channel
// change.  It returns nil when the change may proceed; MANUAL_RESOLVE
// parks it as a pending conflict, ALERT_ONLY alerts and rejects.
func (s *ChannelInbound) gateChange(ctx context.Context, ch *model.ChannelMapping, kind string, payload interface{}) error {
	switch ch.ConflictPolicy {
	case model.PolicyManualResolve:
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		pc := &model.PendingConflict{ChannelID: ch.ID, Payload: string(raw), Reason: kind + " change held for review"}
		if err := s.ChannelRepo.CreatePendingConflict(ctx, pc); err != nil {
			return err
		}
		return ErrHeldForReview
	case model.PolicyAlertOnly:
		if err := s.emitAlert(ctx, ch, kind+" change rejected"); err != nil {
			return err
		}
		return repository.ErrForbidden
	default:
		return nil
	}
}

// ApplyRateChange updates nightly rates on behalf of a channel and fans
// the new rate out to the hotel's other channels.
func (s *ChannelInbound) ApplyRateChange(ctx context.Context, ch *model.ChannelMapping, change ChannelRateChange) error {
	if err := s.gateChange(ctx, ch, "rate", change); err != nil {
		return err
	}
	inv := s.Allocator.InventoryRepo
	tx, err := inv.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	records, err := inv.RangeForUpdateTx(ctx, tx, ch.HotelID, change.RoomTypeID, change.StartDate, change.EndDate)
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		if err := inv.SetRateTx(ctx, tx, rec.ID, change.RateCents, rec.Version); err != nil {
			return err
		}
		if err := s.enqueueRateTx(ctx, tx, ch, rec.HotelID, rec.RoomTypeID, rec.Date, change.RateCents); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ApplyRestrictionChange updates stop-sell and length-of-stay
// restrictions on behalf of a channel.
func (s *ChannelInbound) ApplyRestrictionChange(ctx context.Context, ch *model.ChannelMapping, change ChannelRestrictionChange) error {
	if err := s.gateChange(ctx, ch, "restriction", change); err != nil {
		return err
	}
	return s.Allocator.InventoryRepo.SetRestrictions(ctx, ch.HotelID, change.RoomTypeID,
		engine.StayDates(change.StartDate, change.EndDate), change.StopSell, change.MinLOS, change.MaxLOS)
}

// enqueueRateTx fans one rate delta out to every other active channel of
// the hotel.  The originating channel already knows the new rate.
func (s *ChannelInbound) enqueueRateTx(ctx context.Context, tx *sql.Tx, origin *model.ChannelMapping, hotelID, roomTypeID uint64, date time.Time, rateCents uint32) error {
	channels, err := s.ChannelRepo.ListByHotel(ctx, hotelID)
	if err != nil {
		return err
	}
	for i := range channels {
		ch := &channels[i]
		if ch.ID == origin.ID || ch.SyncStatus == model.ChannelInactive {
			continue
		}
		payload, err := json.Marshal(queue.RateDelta{
			ChannelCode: ch.Code,
			HotelID:     hotelID,
			RoomTypeID:  roomTypeID,
			Date:        date.Format("2006-01-02"),
			RateCents:   rateCents,
		})
		if err != nil {
			return err
		}
		chID := ch.ID
		msg := &model.OutboxMessage{ChannelID: &chID, Kind: queue.KindRate, Payload: string(payload)}
		if err := s.Allocator.OutboxRepo.EnqueueTx(ctx, tx, msg); err != nil {
			return err
		}
	}
	return nil
}

// HandleAck records the result of a pushed delta reported back by the
// channel, keeping sync status and the last-sync timestamp current.
func (s *ChannelInbound) HandleAck(ctx context.Context, ack queue.ChannelAck) error {
	ch, err := s.ChannelRepo.GetByCode(ctx, ack.ChannelCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // unknown channel, nothing to update
		}
		return err
	}
	status := model.ChannelActive
	if !ack.OK {
		status = model.ChannelError
	}
	return s.ChannelRepo.SetSyncStatus(ctx, ch.ID, status, time.Now().UTC())
}
