package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
)

// WaitlistManager holds flexible reservation requests and promotes them
// when inventory frees.  Promotion never holds a lock across the
// notification step: each attempt re-validates availability in its own
// allocation transaction, and a lost race simply leaves the entry queued.
type WaitlistManager struct {
	Allocator    *Allocator
	WaitlistRepo *repository.WaitlistRepo
}

// NewWaitlistManager constructs a WaitlistManager.
func NewWaitlistManager(alloc *Allocator, waitlist *repository.WaitlistRepo) *WaitlistManager {
	if alloc == nil || waitlist == nil {
		panic("nil dependency passed to NewWaitlistManager")
	}
	return &WaitlistManager{Allocator: alloc, WaitlistRepo: waitlist}
}

// Enqueue records a flexible request.  Position is assigned by the
// repository as active count + 1.
func (m *WaitlistManager) Enqueue(ctx context.Context, entry *model.WaitlistEntry) error {
	if entry.LatestCheckIn.Before(entry.EarliestCheckIn) {
		entry.LatestCheckIn = entry.EarliestCheckIn
	}
	if entry.Nights == 0 {
		entry.Nights = 1
	}
	return m.WaitlistRepo.Create(ctx, entry)
}

// OnInventoryFreed scans the hotel's waitlist in position order and
// promotes the first entry whose flexible window and rate ceiling can be
// satisfied for the freed room type.  Promotion routes through the
// regular allocator, so the rule engine and ledger validation apply
// exactly as they would for a direct booking.
func (m *WaitlistManager) OnInventoryFreed(ctx context.Context, hotelID, roomTypeID uint64) error {
	entries, err := m.WaitlistRepo.ListActive(ctx, hotelID)
	if err != nil {
		return err
	}
	for i := range entries {
		entry := &entries[i]
		if !engine.WantsType(entry, roomTypeID) {
			continue
		}
		if m.tryPromote(ctx, entry) {
			return nil
		}
	}
	return nil
}

// tryPromote attempts every candidate stay window of the entry and
// reports whether one was allocated.
func (m *WaitlistManager) tryPromote(ctx context.Context, entry *model.WaitlistEntry) bool {
	for _, w := range engine.CandidateWindows(entry) {
		avail, err := m.Allocator.CheckAvailability(ctx, entry.HotelID, w.RoomTypeID, w.CheckIn, w.CheckOut, 1)
		if err != nil || !avail.Available {
			continue
		}
		if !engine.WithinRateCeiling(entry, avail.RateCents) {
			continue
		}
		result, err := m.Allocator.Allocate(ctx, AllocateRequest{
			HotelID:    entry.HotelID,
			GuestID:    entry.GuestID,
			RoomTypeID: w.RoomTypeID,
			CheckIn:    w.CheckIn,
			CheckOut:   w.CheckOut,
			RoomCount:  1,
			Tentative:  !entry.AutoConfirm,
		})
		if err != nil {
			// A concurrent direct booking may have taken the freed room
			// between the probe and the allocation; the entry keeps its
			// position and the next freed-inventory event retries it.
			if errors.Is(err, engine.ErrInsufficientInventory) || errors.Is(err, engine.ErrConflictDetected) {
				continue
			}
			log.Printf("waitlist: promote entry %d failed: %v", entry.ID, err)
			return false
		}
		if err := m.finalizePromotion(ctx, entry, result); err != nil {
			log.Printf("waitlist: finalize entry %d failed: %v", entry.ID, err)
			// The allocation stands; compensate so the guest is not
			// double-booked by a later retry of the same entry.
			if _, cerr := m.Allocator.Cancel(ctx, result.ReservationID); cerr != nil {
				log.Printf("waitlist: compensating cancel of reservation %d failed: %v", result.ReservationID, cerr)
			}
			return false
		}
		return true
	}
	return false
}

// finalizePromotion marks the entry promoted and emits the notification
// event in one transaction.
func (m *WaitlistManager) finalizePromotion(ctx context.Context, entry *model.WaitlistEntry, result *AllocationResult) error {
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
	if err := m.WaitlistRepo.MarkStatusTx(ctx, tx, entry.ID, model.WaitlistPromoted); err != nil {
		return err
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"notify_email": entry.NotifyEmail,
		"notify_sms":   entry.NotifySMS,
		"auto_confirm": entry.AutoConfirm,
	})
	if err := m.enqueueNotificationTx(ctx, tx, queue.NotificationEvent{
		Event:         "waitlist.promoted",
		HotelID:       entry.HotelID,
		GuestID:       entry.GuestID,
		ReservationID: result.ReservationID,
		WaitlistID:    entry.ID,
		Detail:        string(detail),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (m *WaitlistManager) enqueueNotificationTx(ctx context.Context, tx *sql.Tx, ev queue.NotificationEvent) error {
	return m.Allocator.enqueueNotificationTx(ctx, tx, ev)
}
