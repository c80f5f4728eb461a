// Package service contains the transactional orchestrators that sit
// between the HTTP handlers and the repositories.  Each logical operation
// (allocation, cancellation, block draw-down, waitlist promotion) runs as
// one database transaction: conflict check, ledger mutation and outbox
// insert commit together or not at all.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
)

// LedgerStore is the slice of the inventory repository the services
// mutate the ledger through.  An interface so tests can drive the
// allocation and release paths with in-memory fakes.
type LedgerStore interface {
	DB() *sql.DB
	GetHotel(ctx context.Context, id uint64) (*model.Hotel, error)
	Range(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.InventoryRecord, error)
	RangeForUpdateTx(ctx context.Context, tx *sql.Tx, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.InventoryRecord, error)
	BumpCountersTx(ctx context.Context, tx *sql.Tx, id uint64, soldDelta, blockedDelta, overbookedDelta int32, version uint32) error
	RecordOpTx(ctx context.Context, tx *sql.Tx, opID, kind string) error
	OccupancyTx(ctx context.Context, tx *sql.Tx, hotelID uint64, checkIn, checkOut time.Time) (uint32, error)
	SetRestrictions(ctx context.Context, hotelID, roomTypeID uint64, dates []time.Time, stopSell bool, minLOS, maxLOS uint32) error
	SetRateTx(ctx context.Context, tx *sql.Tx, id uint64, rateCents, version uint32) error
}

// ReservationStore covers the reservation rows an allocation touches.
type ReservationStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	CreateRoomsBulkTx(ctx context.Context, tx *sql.Tx, rooms []model.ReservationRoom) error
	OccupyingStaysTx(ctx context.Context, tx *sql.Tx, hotelID uint64, checkIn, checkOut time.Time) ([]repository.StayRow, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error)
	RoomsByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.ReservationRoom, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string, opID *string) error
}

// RoomCatalog lists a hotel's physical rooms and room types.
type RoomCatalog interface {
	ListByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error)
	ListTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error)
	GetType(ctx context.Context, id uint64) (*model.RoomType, error)
}

// RuleSource lists a hotel's assignment rules.
type RuleSource interface {
	ListByHotel(ctx context.Context, hotelID uint64) ([]model.AssignmentRule, error)
}

// ChannelDirectory lists a hotel's channel mappings for delta fan-out.
type ChannelDirectory interface {
	ListByHotel(ctx context.Context, hotelID uint64) ([]model.ChannelMapping, error)
}

// OutboxWriter stores pending outbox rows inside a caller-owned
// transaction.
type OutboxWriter interface {
	EnqueueTx(ctx context.Context, tx *sql.Tx, msg *model.OutboxMessage) error
}

// Allocator owns the reservation critical path: availability checks,
// allocation and cancellation.  All ledger mutations go through it.
type Allocator struct {
	InventoryRepo   LedgerStore
	ReservationRepo ReservationStore
	RoomRepo        RoomCatalog
	RuleRepo        RuleSource
	ChannelRepo     ChannelDirectory
	OutboxRepo      OutboxWriter
}

// NewAllocator constructs an Allocator.  All dependencies must be non-nil.
func NewAllocator(inv LedgerStore, res ReservationStore, rooms RoomCatalog, rules RuleSource, channels ChannelDirectory, outbox OutboxWriter) *Allocator {
	if inv == nil || res == nil || rooms == nil || rules == nil || channels == nil || outbox == nil {
		panic("nil repository passed to NewAllocator")
	}
	return &Allocator{
		InventoryRepo:   inv,
		ReservationRepo: res,
		RoomRepo:        rooms,
		RuleRepo:        rules,
		ChannelRepo:     channels,
		OutboxRepo:      outbox,
	}
}

// AllocateRequest is the inbound reservation request.  RoomIDs may pin
// specific physical rooms; when empty the rule engine selects them.
type AllocateRequest struct {
	HotelID      uint64
	GuestID      uint64
	RoomTypeID   uint64
	GuestType    string
	LoyaltyTier  string
	CheckIn      time.Time
	CheckOut     time.Time
	RoomCount    uint32
	RoomIDs      []uint64
	AllowUpgrade bool
	Tentative    bool
}

// AllocationResult reports the committed outcome of a successful
// allocation.
type AllocationResult struct {
	ReservationID uint64
	RateCents     uint32
	Assignments   []engine.Assignment
}

// AvailabilityResult is the answer to a checkAvailability query.
type AvailabilityResult struct {
	Available    bool
	MaxRooms     int32
	RateCents    uint32
	Restrictions []string
}

// CheckAvailability reports whether a stay is sellable, the peak nightly
// rate across the range and any restrictions in effect.  This is a
// read-only probe: the answer can be stale the moment it is returned, and
// Allocate re-validates under locks.
func (a *Allocator) CheckAvailability(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time, guestCount uint32) (*AvailabilityResult, error) {
	if !checkIn.Before(checkOut) {
		return nil, fmt.Errorf("check-out must be after check-in")
	}
	records, err := a.InventoryRepo.Range(ctx, hotelID, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	nights := engine.Nights(checkIn, checkOut)
	result := &AvailabilityResult{Available: true, MaxRooms: -1}
	if uint32(len(records)) < nights {
		result.Available = false
		result.MaxRooms = 0
		result.Restrictions = append(result.Restrictions, "no inventory for part of the range")
		return result, nil
	}
	for i := range records {
		rec := &records[i]
		if avail := rec.Available(); result.MaxRooms < 0 || avail < result.MaxRooms {
			result.MaxRooms = avail
		}
		if rec.RateCents > result.RateCents {
			result.RateCents = rec.RateCents
		}
		if rec.StopSell {
			result.Available = false
			result.Restrictions = append(result.Restrictions, "stop-sell on "+rec.Date.Format("2006-01-02"))
		}
		if rec.MinLOS > 0 && nights < rec.MinLOS {
			result.Available = false
			result.Restrictions = append(result.Restrictions, fmt.Sprintf("minimum stay %d nights", rec.MinLOS))
		}
		if rec.MaxLOS > 0 && nights > rec.MaxLOS {
			result.Available = false
			result.Restrictions = append(result.Restrictions, fmt.Sprintf("maximum stay %d nights", rec.MaxLOS))
		}
	}
	if result.MaxRooms < 1 {
		result.Available = false
	}
	return result, nil
}

// Allocate runs one reservation attempt as a single transaction: conflict
// check (for pinned rooms) or rule-based selection, ledger decrement
// across every touched (room type, date) key, reservation insert, and
// outbox insert for channel deltas and the notification event.  Any
// failure rolls the whole attempt back; no partial allocation is ever
// observable.  Channel pushes happen later, off the critical path.
func (a *Allocator) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	if !req.CheckIn.Before(req.CheckOut) {
		return nil, fmt.Errorf("check-out must be after check-in")
	}
	if req.RoomCount == 0 {
		req.RoomCount = uint32(len(req.RoomIDs))
	}
	if req.RoomCount == 0 {
		return nil, fmt.Errorf("room count is required")
	}

	hotel, err := a.InventoryRepo.GetHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}
	rooms, err := a.RoomRepo.ListByHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}
	types, err := a.RoomRepo.ListTypes(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}
	rules, err := a.RuleRepo.ListByHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}

	tx, err := a.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock every occupying stay overlapping the range so concurrent
	// attempts on the same rooms serialize here.
	rawStays, err := a.ReservationRepo.OccupyingStaysTx(ctx, tx, req.HotelID, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	stays := make([]engine.Stay, 0, len(rawStays))
	for _, s := range rawStays {
		// The engine predicate decides which statuses block a room; the
		// SQL filter only narrows the locked set.
		if !engine.OccupiesRoom(s.Status) {
			continue
		}
		stays = append(stays, engine.Stay{RoomID: s.RoomID, CheckIn: s.CheckIn, CheckOut: s.CheckOut})
	}

	occupancy, err := a.InventoryRepo.OccupancyTx(ctx, tx, req.HotelID, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	var assignments []engine.Assignment
	if len(req.RoomIDs) > 0 {
		// Pre-specified rooms: the conflict detector governs; all rooms
		// must pass or the whole attempt aborts.
		if err := engine.CheckRooms(stays, req.RoomIDs, req.CheckIn, req.CheckOut); err != nil {
			return nil, err
		}
		byID := make(map[uint64]*model.Room, len(rooms))
		for i := range rooms {
			byID[rooms[i].ID] = &rooms[i]
		}
		for _, id := range req.RoomIDs {
			rm, ok := byID[id]
			if !ok || !rm.IsActive || rm.HotelID != req.HotelID {
				return nil, fmt.Errorf("unknown room %d: %w", id, engine.ErrNoRoomAvailable)
			}
			assignments = append(assignments, engine.Assignment{
				RoomID:     rm.ID,
				RoomNumber: rm.RoomNumber,
				RoomTypeID: rm.RoomTypeID,
			})
		}
	} else {
		// Estimate the booking value for rule matching from the requested
		// type's ledger rates; the final snapshot is taken per type below.
		probe, err := a.InventoryRepo.RangeForUpdateTx(ctx, tx, req.HotelID, req.RoomTypeID, req.CheckIn, req.CheckOut)
		if err != nil {
			return nil, err
		}
		nights := engine.Nights(req.CheckIn, req.CheckOut)
		bookingValue := uint64(engine.StayRateCents(probe)) * uint64(nights) * uint64(req.RoomCount)

		engReq := engine.Request{
			HotelID:           req.HotelID,
			GuestID:           req.GuestID,
			RoomTypeID:        req.RoomTypeID,
			GuestType:         req.GuestType,
			LoyaltyTier:       req.LoyaltyTier,
			BookingValueCents: bookingValue,
			CheckIn:           req.CheckIn,
			CheckOut:          req.CheckOut,
			RoomCount:         req.RoomCount,
			AllowUpgrade:      req.AllowUpgrade,
			BookedAt:          time.Now().UTC(),
			OccupancyPct:      occupancy,
		}
		assignments, err = engine.SelectRooms(rooms, types, stays, rules, engReq)
		if err != nil {
			if errors.Is(err, engine.ErrNoRoomAvailable) {
				return nil, engine.ErrInsufficientInventory
			}
			return nil, err
		}
	}

	// Decrement the ledger per touched room type, locking type ranges in
	// ascending id order to keep lock acquisition consistent.
	perType := map[uint64]uint32{}
	for _, as := range assignments {
		perType[as.RoomTypeID]++
	}
	typeIDs := make([]uint64, 0, len(perType))
	for id := range perType {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })

	var rateCents uint32
	for _, typeID := range typeIDs {
		count := perType[typeID]
		records, err := a.InventoryRepo.RangeForUpdateTx(ctx, tx, req.HotelID, typeID, req.CheckIn, req.CheckOut)
		if err != nil {
			return nil, err
		}
		if err := engine.CheckSellable(records, req.CheckIn, req.CheckOut, count, hotel.OverbookingLimit); err != nil {
			return nil, err
		}
		// The rate snapshot always follows the requested type; upgrades
		// charge their fee, not the higher tier's rate.
		if typeID == req.RoomTypeID {
			rateCents = engine.StayRateCents(records)
		}
		for i := range records {
			rec := &records[i]
			newOver := engine.OverbookedExcess(rec.TotalRooms, rec.SoldRooms+count, rec.BlockedRooms)
			if err := a.InventoryRepo.BumpCountersTx(ctx, tx, rec.ID,
				int32(count), 0, int32(newOver)-int32(rec.OverbookedRooms), rec.Version); err != nil {
				return nil, err
			}
		}
	}

	if rateCents == 0 {
		// Every room was upgraded; snapshot the requested type's rate
		// anyway so the guest pays what they booked.
		records, err := a.InventoryRepo.RangeForUpdateTx(ctx, tx, req.HotelID, req.RoomTypeID, req.CheckIn, req.CheckOut)
		if err != nil {
			return nil, err
		}
		rateCents = engine.StayRateCents(records)
	}

	status := model.ReservationConfirmed
	if req.Tentative {
		status = model.ReservationTentative
	}
	res := &model.Reservation{
		HotelID:    req.HotelID,
		GuestID:    req.GuestID,
		RoomTypeID: req.RoomTypeID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Status:     status,
		Nights:     engine.Nights(req.CheckIn, req.CheckOut),
		RateCents:  rateCents,
	}
	if err := a.ReservationRepo.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	rrRows := make([]model.ReservationRoom, 0, len(assignments))
	for _, as := range assignments {
		row := model.ReservationRoom{
			ReservationID:   res.ID,
			RoomID:          as.RoomID,
			Upgraded:        as.Upgraded,
			UpgradeFeeCents: as.UpgradeFeeCents,
		}
		if as.Upgraded {
			reason, approver := as.UpgradeReason, as.UpgradeApprover
			row.UpgradeReason = &reason
			row.UpgradeApprover = &approver
		}
		rrRows = append(rrRows, row)
	}
	if err := a.ReservationRepo.CreateRoomsBulkTx(ctx, tx, rrRows); err != nil {
		return nil, err
	}

	opID := uuid.NewString()
	if err := a.InventoryRepo.RecordOpTx(ctx, tx, opID, "allocate"); err != nil {
		return nil, err
	}

	for _, typeID := range typeIDs {
		if err := a.enqueueAvailabilityTx(ctx, tx, req.HotelID, typeID, req.CheckIn, req.CheckOut, -int32(perType[typeID])); err != nil {
			return nil, err
		}
	}
	if err := a.enqueueNotificationTx(ctx, tx, queue.NotificationEvent{
		Event:         "reservation.allocated",
		HotelID:       req.HotelID,
		GuestID:       req.GuestID,
		ReservationID: res.ID,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &AllocationResult{ReservationID: res.ID, RateCents: rateCents, Assignments: assignments}, nil
}

// Cancel releases a reservation's inventory and marks it cancelled,
// returning the reservation so callers can react to the freed type.  The
// release is idempotent: the operation id is derived from the reservation
// id, so a replayed cancellation hits the ledger_ops unique key and
// leaves every counter untouched.
func (a *Allocator) Cancel(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	tx, err := a.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := a.ReservationRepo.GetByIDTx(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationCancelled {
		return res, nil // already released, nothing to do
	}
	if res.Status == model.ReservationCheckedOut {
		return nil, repository.ErrConflict
	}

	opID := fmt.Sprintf("reservation-release-%d", res.ID)
	if err := a.InventoryRepo.RecordOpTx(ctx, tx, opID, "release"); err != nil {
		if errors.Is(err, repository.ErrOpApplied) {
			// The release already ran in a competing transaction; just
			// make sure the status reflects it.
			if err := a.ReservationRepo.UpdateStatusTx(ctx, tx, res.ID, model.ReservationCancelled, &opID); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		}
		return nil, err
	}

	roomRows, err := a.ReservationRepo.RoomsByReservationTx(ctx, tx, res.ID)
	if err != nil {
		return nil, err
	}
	rooms, err := a.RoomRepo.ListByHotel(ctx, res.HotelID)
	if err != nil {
		return nil, err
	}
	typeOf := make(map[uint64]uint64, len(rooms))
	for _, rm := range rooms {
		typeOf[rm.ID] = rm.RoomTypeID
	}
	perType := map[uint64]uint32{}
	for _, rr := range roomRows {
		perType[typeOf[rr.RoomID]]++
	}
	if len(perType) == 0 {
		// Type-only reservation that never got rooms assigned still holds
		// ledger inventory under its requested type.
		perType[res.RoomTypeID] = 1
	}
	typeIDs := make([]uint64, 0, len(perType))
	for id := range perType {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })

	for _, typeID := range typeIDs {
		count := perType[typeID]
		records, err := a.InventoryRepo.RangeForUpdateTx(ctx, tx, res.HotelID, typeID, res.CheckIn, res.CheckOut)
		if err != nil {
			return nil, err
		}
		for i := range records {
			rec := &records[i]
			newSold := rec.SoldRooms
			if newSold >= count {
				newSold -= count
			} else {
				newSold = 0
			}
			newOver := engine.OverbookedExcess(rec.TotalRooms, newSold, rec.BlockedRooms)
			if err := a.InventoryRepo.BumpCountersTx(ctx, tx, rec.ID,
				int32(newSold)-int32(rec.SoldRooms), 0, int32(newOver)-int32(rec.OverbookedRooms), rec.Version); err != nil {
				return nil, err
			}
		}
		if err := a.enqueueAvailabilityTx(ctx, tx, res.HotelID, typeID, res.CheckIn, res.CheckOut, int32(count)); err != nil {
			return nil, err
		}
	}

	if err := a.ReservationRepo.UpdateStatusTx(ctx, tx, res.ID, model.ReservationCancelled, &opID); err != nil {
		return nil, err
	}
	if err := a.enqueueNotificationTx(ctx, tx, queue.NotificationEvent{
		Event:         "reservation.cancelled",
		HotelID:       res.HotelID,
		GuestID:       res.GuestID,
		ReservationID: res.ID,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// enqueueAvailabilityTx fans one availability delta out to every active
// channel of the hotel as pending outbox rows.
func (a *Allocator) enqueueAvailabilityTx(ctx context.Context, tx *sql.Tx, hotelID, roomTypeID uint64, checkIn, checkOut time.Time, delta int32) error {
	channels, err := a.ChannelRepo.ListByHotel(ctx, hotelID)
	if err != nil {
		return err
	}
	for i := range channels {
		ch := &channels[i]
		if ch.SyncStatus == model.ChannelInactive {
			continue
		}
		payload, err := json.Marshal(queue.AvailabilityDelta{
			ChannelCode: ch.Code,
			HotelID:     hotelID,
			RoomTypeID:  roomTypeID,
			StartDate:   checkIn.Format("2006-01-02"),
			EndDate:     checkOut.Format("2006-01-02"),
			Delta:       delta,
		})
		if err != nil {
			return err
		}
		chID := ch.ID
		msg := &model.OutboxMessage{ChannelID: &chID, Kind: queue.KindAvailability, Payload: string(payload)}
		if err := a.OutboxRepo.EnqueueTx(ctx, tx, msg); err != nil {
			return err
		}
	}
	return nil
}

// enqueueNotificationTx stores a notification event as a pending outbox
// row in the surrounding transaction.
func (a *Allocator) enqueueNotificationTx(ctx context.Context, tx *sql.Tx, ev queue.NotificationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &model.OutboxMessage{Kind: queue.KindNotification, Payload: string(payload)}
	return a.OutboxRepo.EnqueueTx(ctx, tx, msg)
}
