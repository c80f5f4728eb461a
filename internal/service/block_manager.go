package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
)

// BlockManager handles group blocks: allocating a pool of rooms from the
// ledger, drawing individual reservations out of it, and returning
// whatever is left when the cutoff passes.
type BlockManager struct {
	Allocator *Allocator
	BlockRepo *repository.BlockRepo
}

// NewBlockManager constructs a BlockManager.
func NewBlockManager(alloc *Allocator, blocks *repository.BlockRepo) *BlockManager {
	if alloc == nil || blocks == nil {
		panic("nil dependency passed to NewBlockManager")
	}
	return &BlockManager{Allocator: alloc, BlockRepo: blocks}
}

// BlockRequest describes a group block to allocate.
type BlockRequest struct {
	HotelID     uint64
	GroupName   string
	CheckIn     time.Time
	CheckOut    time.Time
	ReleaseDate time.Time
	Counts      map[uint64]uint32 // room type id -> rooms to block
}

// Allocate reserves the requested counts from the ledger as blocked
// rooms.  The rooms are encumbered but not guest-assigned: sold counts do
// not move.  The whole block commits or nothing does.
func (m *BlockManager) Allocate(ctx context.Context, req BlockRequest) (*model.RoomBlock, error) {
	if !req.CheckIn.Before(req.CheckOut) {
		return nil, fmt.Errorf("check-out must be after check-in")
	}
	if len(req.Counts) == 0 {
		return nil, fmt.Errorf("at least one room type count is required")
	}
	hotel, err := m.Allocator.InventoryRepo.GetHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}

	tx, err := m.Allocator.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	items := make([]model.RoomBlockItem, 0, len(req.Counts))
	for _, typeID := range sortedKeys(req.Counts) {
		count := req.Counts[typeID]
		if count == 0 {
			continue
		}
		records, err := m.Allocator.InventoryRepo.RangeForUpdateTx(ctx, tx, req.HotelID, typeID, req.CheckIn, req.CheckOut)
		if err != nil {
			return nil, err
		}
		if err := engine.CheckSellable(records, req.CheckIn, req.CheckOut, count, hotel.OverbookingLimit); err != nil {
			return nil, err
		}
		for i := range records {
			rec := &records[i]
			newOver := engine.OverbookedExcess(rec.TotalRooms, rec.SoldRooms, rec.BlockedRooms+count)
			if err := m.Allocator.InventoryRepo.BumpCountersTx(ctx, tx, rec.ID,
				0, int32(count), int32(newOver)-int32(rec.OverbookedRooms), rec.Version); err != nil {
				return nil, err
			}
		}
		items = append(items, model.RoomBlockItem{RoomTypeID: typeID, BlockedCount: count})
		if err := m.Allocator.enqueueAvailabilityTx(ctx, tx, req.HotelID, typeID, req.CheckIn, req.CheckOut, -int32(count)); err != nil {
			return nil, err
		}
	}

	block := &model.RoomBlock{
		HotelID:     req.HotelID,
		GroupName:   req.GroupName,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		ReleaseDate: req.ReleaseDate,
		Status:      model.BlockActive,
	}
	if err := m.BlockRepo.CreateTx(ctx, tx, block, items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return block, nil
}

// AssignFromBlock converts one blocked room into a confirmed reservation
// for a named guest: blocked decreases by one, sold increases by one, so
// the total encumbered count for each touched date stays unchanged and no
// channel delta is produced.
func (m *BlockManager) AssignFromBlock(ctx context.Context, blockID, guestID, roomTypeID uint64) (*AllocationResult, error) {
	tx, err := m.Allocator.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	block, err := m.BlockRepo.GetByIDTx(ctx, tx, blockID)
	if err != nil {
		return nil, err
	}
	if block.Status != model.BlockActive && block.Status != model.BlockConfirmed {
		return nil, repository.ErrConflict
	}
	rt, err := m.Allocator.RoomRepo.GetType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	if rt.HotelID != block.HotelID {
		return nil, repository.ErrForbidden
	}
	items, err := m.BlockRepo.ItemsTx(ctx, tx, blockID)
	if err != nil {
		return nil, err
	}
	var item *model.RoomBlockItem
	for i := range items {
		if items[i].RoomTypeID == roomTypeID && items[i].BlockedCount > 0 {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, engine.ErrInsufficientInventory
	}
	if err := m.BlockRepo.DrawDownTx(ctx, tx, item.ID); err != nil {
		return nil, err
	}

	// Move one room per night from blocked to sold.  The encumbered total
	// is unchanged, so overbooked stays where it is.
	records, err := m.Allocator.InventoryRepo.RangeForUpdateTx(ctx, tx, block.HotelID, roomTypeID, block.CheckIn, block.CheckOut)
	if err != nil {
		return nil, err
	}
	var rateCents uint32
	for i := range records {
		rec := &records[i]
		if rec.BlockedRooms == 0 {
			return nil, repository.ErrConflict
		}
		if rec.RateCents > rateCents {
			rateCents = rec.RateCents
		}
		if err := m.Allocator.InventoryRepo.BumpCountersTx(ctx, tx, rec.ID, 1, -1, 0, rec.Version); err != nil {
			return nil, err
		}
	}

	// Pick the physical room through the same deterministic selector as
	// direct bookings.
	rooms, err := m.Allocator.RoomRepo.ListByHotel(ctx, block.HotelID)
	if err != nil {
		return nil, err
	}
	types, err := m.Allocator.RoomRepo.ListTypes(ctx, block.HotelID)
	if err != nil {
		return nil, err
	}
	rawStays, err := m.Allocator.ReservationRepo.OccupyingStaysTx(ctx, tx, block.HotelID, block.CheckIn, block.CheckOut)
	if err != nil {
		return nil, err
	}
	stays := make([]engine.Stay, 0, len(rawStays))
	for _, s := range rawStays {
		if !engine.OccupiesRoom(s.Status) {
			continue
		}
		stays = append(stays, engine.Stay{RoomID: s.RoomID, CheckIn: s.CheckIn, CheckOut: s.CheckOut})
	}
	assignments, err := engine.SelectRooms(rooms, types, stays, nil, engine.Request{
		HotelID:    block.HotelID,
		GuestID:    guestID,
		RoomTypeID: roomTypeID,
		CheckIn:    block.CheckIn,
		CheckOut:   block.CheckOut,
		RoomCount:  1,
		BookedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, engine.ErrNoRoomAvailable) {
			return nil, engine.ErrInsufficientInventory
		}
		return nil, err
	}

	res := &model.Reservation{
		HotelID:    block.HotelID,
		GuestID:    guestID,
		RoomTypeID: roomTypeID,
		CheckIn:    block.CheckIn,
		CheckOut:   block.CheckOut,
		Status:     model.ReservationConfirmed,
		Nights:     engine.Nights(block.CheckIn, block.CheckOut),
		RateCents:  rateCents,
		BlockID:    &block.ID,
	}
	if err := m.Allocator.ReservationRepo.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := m.Allocator.ReservationRepo.CreateRoomsBulkTx(ctx, tx, []model.ReservationRoom{{
		ReservationID: res.ID,
		RoomID:        assignments[0].RoomID,
	}}); err != nil {
		return nil, err
	}

	if err := m.Allocator.enqueueNotificationTx(ctx, tx, queue.NotificationEvent{
		Event:         "reservation.allocated",
		HotelID:       block.HotelID,
		GuestID:       guestID,
		ReservationID: res.ID,
		BlockID:       block.ID,
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

// Confirm transitions a block from ACTIVE to CONFIRMED, which exempts it
// from auto-release at the cutoff date.
func (m *BlockManager) Confirm(ctx context.Context, blockID uint64) error {
	tx, err := m.Allocator.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	block, err := m.BlockRepo.GetByIDTx(ctx, tx, blockID)
	if err != nil {
		return err
	}
	if !engine.CanTransitionBlock(block.Status, model.BlockConfirmed) {
		return repository.ErrConflict
	}
	if err := m.BlockRepo.UpdateStatusTx(ctx, tx, blockID, model.BlockConfirmed); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AutoRelease returns a block's unassigned rooms to general availability
// and marks the block EXPIRED, provided the cutoff date has passed.  The
// operation id is derived from the block id, so a duplicate release is a
// no-op and counters can never be inflated by a repeated sweep.
func (m *BlockManager) AutoRelease(ctx context.Context, blockID uint64) error {
	return m.release(ctx, blockID, false)
}

// Release returns a block's unassigned rooms ahead of the cutoff, on
// explicit staff request.
func (m *BlockManager) Release(ctx context.Context, blockID uint64) error {
	return m.release(ctx, blockID, true)
}

func (m *BlockManager) release(ctx context.Context, blockID uint64, force bool) error {
	tx, err := m.Allocator.InventoryRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	block, err := m.BlockRepo.GetByIDTx(ctx, tx, blockID)
	if err != nil {
		return err
	}
	items, err := m.BlockRepo.ItemsTx(ctx, tx, blockID)
	if err != nil {
		return err
	}
	if force {
		if block.Status != model.BlockActive && block.Status != model.BlockConfirmed {
			return repository.ErrConflict
		}
	} else if !engine.ShouldAutoRelease(block, items, time.Now().UTC()) {
		return nil
	}

	opID := fmt.Sprintf("block-release-%d", block.ID)
	if err := m.Allocator.InventoryRepo.RecordOpTx(ctx, tx, opID, "release"); err != nil {
		if errors.Is(err, repository.ErrOpApplied) {
			return nil
		}
		return err
	}

	for _, item := range items {
		if item.BlockedCount == 0 {
			continue
		}
		records, err := m.Allocator.InventoryRepo.RangeForUpdateTx(ctx, tx, block.HotelID, item.RoomTypeID, block.CheckIn, block.CheckOut)
		if err != nil {
			return err
		}
		for i := range records {
			rec := &records[i]
			count := item.BlockedCount
			if count > rec.BlockedRooms {
				count = rec.BlockedRooms
			}
			newOver := engine.OverbookedExcess(rec.TotalRooms, rec.SoldRooms, rec.BlockedRooms-count)
			if err := m.Allocator.InventoryRepo.BumpCountersTx(ctx, tx, rec.ID,
				0, -int32(count), int32(newOver)-int32(rec.OverbookedRooms), rec.Version); err != nil {
				return err
			}
		}
		if err := m.Allocator.enqueueAvailabilityTx(ctx, tx, block.HotelID, item.RoomTypeID, block.CheckIn, block.CheckOut, int32(item.BlockedCount)); err != nil {
			return err
		}
	}
	if err := m.BlockRepo.ZeroBlockedTx(ctx, tx, block.ID); err != nil {
		return err
	}
	// Staff-initiated releases cancel the block; the sweep expires it.
	status := model.BlockExpired
	event := "block.expired"
	if force {
		status = model.BlockCancelled
		event = "block.released"
	}
	if err := m.BlockRepo.UpdateStatusTx(ctx, tx, block.ID, status); err != nil {
		return err
	}
	if err := m.Allocator.enqueueNotificationTx(ctx, tx, queue.NotificationEvent{
		Event:      event,
		HotelID:    block.HotelID,
		BlockID:    block.ID,
		Detail:     block.GroupName,
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

// RunExpirySweep periodically releases every block whose cutoff has
// passed.  One stuck block only fails its own transaction.
func (m *BlockManager) RunExpirySweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := m.BlockRepo.ListExpirable(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("block-sweep: list expirable failed: %v", err)
				continue
			}
			for _, id := range ids {
				if err := m.AutoRelease(ctx, id); err != nil {
					log.Printf("block-sweep: auto-release block %d failed: %v", id, err)
				}
			}
		}
	}
}

// sortedKeys orders room type ids ascending so ledger ranges are always
// locked in the same order.
func sortedKeys(m map[uint64]uint32) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
