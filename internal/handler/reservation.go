package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/repository"
	"github.com/iliyamo/hotel-room-allocation/internal/service"
)

// ReservationHandler serves the reservation critical path: allocation,
// cancellation and per-guest listing.  Cancellations feed the waitlist so
// freed inventory is offered to queued guests immediately.
type ReservationHandler struct {
	Allocator       *service.Allocator
	Waitlist        *service.WaitlistManager
	ReservationRepo *repository.ReservationRepo
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(alloc *service.Allocator, waitlist *service.WaitlistManager, reservations *repository.ReservationRepo) *ReservationHandler {
	if alloc == nil || waitlist == nil || reservations == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Allocator: alloc, Waitlist: waitlist, ReservationRepo: reservations}
}

// Create handles POST /v1/reservations.  Room ids may pin physical
// rooms; otherwise the rule engine assigns them, upgrading when a rule
// or the request permits.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body struct {
		HotelID      uint64   `json:"hotel_id"`
		GuestID      uint64   `json:"guest_id"`
		RoomTypeID   uint64   `json:"room_type_id"`
		GuestType    string   `json:"guest_type"`
		LoyaltyTier  string   `json:"loyalty_tier"`
		CheckIn      string   `json:"check_in"`
		CheckOut     string   `json:"check_out"`
		RoomCount    uint32   `json:"room_count"`
		RoomIDs      []uint64 `json:"room_ids"`
		AllowUpgrade bool     `json:"allow_upgrade"`
		Tentative    bool     `json:"tentative"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HotelID == 0 || body.GuestID == 0 || body.RoomTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id, guest_id and room_type_id are required"})
	}
	checkIn, err := parseDate(body.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in"})
	}
	checkOut, err := parseDate(body.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out"})
	}
	if !checkIn.Before(checkOut) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be after check_in"})
	}

	result, err := h.Allocator.Allocate(c.Request().Context(), service.AllocateRequest{
		HotelID:      body.HotelID,
		GuestID:      body.GuestID,
		RoomTypeID:   body.RoomTypeID,
		GuestType:    body.GuestType,
		LoyaltyTier:  body.LoyaltyTier,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		RoomCount:    body.RoomCount,
		RoomIDs:      body.RoomIDs,
		AllowUpgrade: body.AllowUpgrade,
		Tentative:    body.Tentative,
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	rooms := make([]echo.Map, 0, len(result.Assignments))
	for _, as := range result.Assignments {
		m := echo.Map{
			"room_id":      as.RoomID,
			"room_number":  as.RoomNumber,
			"room_type_id": as.RoomTypeID,
			"upgraded":     as.Upgraded,
		}
		if as.Upgraded {
			m["upgrade_reason"] = as.UpgradeReason
			m["upgrade_approver"] = as.UpgradeApprover
			m["upgrade_fee_cents"] = as.UpgradeFeeCents
		}
		rooms = append(rooms, m)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": result.ReservationID,
		"rate_cents":     result.RateCents,
		"rooms":          rooms,
	})
}

// Cancel handles DELETE /v1/reservations/:id.  The release is idempotent
// so retried deletes always answer 200.  Freed inventory triggers an
// asynchronous waitlist scan off the request path.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Allocator.Cancel(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	go func(hotelID, roomTypeID uint64) {
		if err := h.Waitlist.OnInventoryFreed(context.Background(), hotelID, roomTypeID); err != nil {
			log.Printf("waitlist: scan after cancel of reservation %d failed: %v", id, err)
		}
	}(res.HotelID, res.RoomTypeID)
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "status": "CANCELLED"})
}

// ListByGuest handles GET /v1/reservations with hotel_id and guest_id
// query parameters.
func (h *ReservationHandler) ListByGuest(c echo.Context) error {
	hotelID, err := strconv.ParseUint(c.QueryParam("hotel_id"), 10, 64)
	if err != nil || hotelID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id is required"})
	}
	guestID, err := strconv.ParseUint(c.QueryParam("guest_id"), 10, 64)
	if err != nil || guestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_id is required"})
	}
	reservations, err := h.ReservationRepo.ListByGuest(c.Request().Context(), hotelID, guestID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]echo.Map, 0, len(reservations))
	for i := range reservations {
		r := &reservations[i]
		out = append(out, echo.Map{
			"id":           r.ID,
			"room_type_id": r.RoomTypeID,
			"check_in":     r.CheckIn.Format(dateLayout),
			"check_out":    r.CheckOut.Format(dateLayout),
			"status":       r.Status,
			"nights":       r.Nights,
			"rate_cents":   r.RateCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}
