package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/service"
)

// BlockHandler serves group block management.
type BlockHandler struct {
	Blocks *service.BlockManager
}

// NewBlockHandler constructs a BlockHandler.
func NewBlockHandler(blocks *service.BlockManager) *BlockHandler {
	if blocks == nil {
		panic("nil block manager passed to NewBlockHandler")
	}
	return &BlockHandler{Blocks: blocks}
}

// Create handles POST /v1/blocks.  Items list the room type counts to
// encumber; the whole block commits or nothing does.
func (h *BlockHandler) Create(c echo.Context) error {
	var body struct {
		HotelID     uint64 `json:"hotel_id"`
		GroupName   string `json:"group_name"`
		CheckIn     string `json:"check_in"`
		CheckOut    string `json:"check_out"`
		ReleaseDate string `json:"release_date"`
		Items       []struct {
			RoomTypeID uint64 `json:"room_type_id"`
			Count      uint32 `json:"count"`
		} `json:"items"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HotelID == 0 || body.GroupName == "" || len(body.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id, group_name and items are required"})
	}
	checkIn, err := parseDate(body.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in"})
	}
	checkOut, err := parseDate(body.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out"})
	}
	releaseDate, err := parseDate(body.ReleaseDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid release_date"})
	}
	counts := make(map[uint64]uint32, len(body.Items))
	for _, it := range body.Items {
		if it.RoomTypeID == 0 || it.Count == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "items need room_type_id and count"})
		}
		counts[it.RoomTypeID] += it.Count
	}

	block, err := h.Blocks.Allocate(c.Request().Context(), service.BlockRequest{
		HotelID:     body.HotelID,
		GroupName:   body.GroupName,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		ReleaseDate: releaseDate,
		Counts:      counts,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"block_id":     block.ID,
		"status":       block.Status,
		"release_date": block.ReleaseDate.Format(dateLayout),
	})
}

// Assign handles POST /v1/blocks/:id/assign, converting one blocked room
// into a confirmed reservation for a named guest.
func (h *BlockHandler) Assign(c echo.Context) error {
	blockID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid block id"})
	}
	var body struct {
		GuestID    uint64 `json:"guest_id"`
		RoomTypeID uint64 `json:"room_type_id"`
	}
	if err := c.Bind(&body); err != nil || body.GuestID == 0 || body.RoomTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_id and room_type_id are required"})
	}
	result, err := h.Blocks.AssignFromBlock(c.Request().Context(), blockID, body.GuestID, body.RoomTypeID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": result.ReservationID,
		"room_id":        result.Assignments[0].RoomID,
		"rate_cents":     result.RateCents,
	})
}

// Confirm handles POST /v1/blocks/:id/confirm.  Confirmed blocks are
// exempt from auto-release at the cutoff date.
func (h *BlockHandler) Confirm(c echo.Context) error {
	blockID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid block id"})
	}
	if err := h.Blocks.Confirm(c.Request().Context(), blockID); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"block_id": blockID, "status": "CONFIRMED"})
}

// Release handles POST /v1/blocks/:id/release, returning unassigned
// rooms to general availability ahead of the automatic sweep.
func (h *BlockHandler) Release(c echo.Context) error {
	blockID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid block id"})
	}
	if err := h.Blocks.Release(c.Request().Context(), blockID); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"block_id": blockID})
}
