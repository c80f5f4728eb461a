package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/service"
)

// AvailabilityHandler answers read-only availability probes.
type AvailabilityHandler struct {
	Allocator *service.Allocator
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(alloc *service.Allocator) *AvailabilityHandler {
	if alloc == nil {
		panic("nil allocator passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Allocator: alloc}
}

// Check handles GET /v1/hotels/:id/availability.  Query parameters:
// room_type_id, check_in, check_out (exclusive) and optional guests.
// The answer is advisory; allocation re-validates under locks.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	hotelID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel id"})
	}
	roomTypeID, err := strconv.ParseUint(c.QueryParam("room_type_id"), 10, 64)
	if err != nil || roomTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_type_id is required"})
	}
	checkIn, err := parseDate(c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in"})
	}
	checkOut, err := parseDate(c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out"})
	}
	if !checkIn.Before(checkOut) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be after check_in"})
	}
	guests := uint64(1)
	if g := c.QueryParam("guests"); g != "" {
		if guests, err = strconv.ParseUint(g, 10, 32); err != nil || guests == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid guests"})
		}
	}

	result, err := h.Allocator.CheckAvailability(c.Request().Context(), hotelID, roomTypeID, checkIn, checkOut, uint32(guests))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available":    result.Available,
		"max_rooms":    result.MaxRooms,
		"rate_cents":   result.RateCents,
		"restrictions": result.Restrictions,
	})
}
