package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
	"github.com/iliyamo/hotel-room-allocation/internal/service"
)

// WaitlistHandler serves waitlist enrollment and listing.
type WaitlistHandler struct {
	Waitlist     *service.WaitlistManager
	WaitlistRepo *repository.WaitlistRepo
}

// NewWaitlistHandler constructs a WaitlistHandler.
func NewWaitlistHandler(waitlist *service.WaitlistManager, repo *repository.WaitlistRepo) *WaitlistHandler {
	if waitlist == nil || repo == nil {
		panic("nil dependency passed to NewWaitlistHandler")
	}
	return &WaitlistHandler{Waitlist: waitlist, WaitlistRepo: repo}
}

// Enqueue handles POST /v1/waitlist.  room_type_ids lists acceptable
// types in preference order; the arrival window is inclusive on both
// ends.
func (h *WaitlistHandler) Enqueue(c echo.Context) error {
	var body struct {
		HotelID         uint64   `json:"hotel_id"`
		GuestID         uint64   `json:"guest_id"`
		RoomTypeIDs     []uint64 `json:"room_type_ids"`
		EarliestCheckIn string   `json:"earliest_check_in"`
		LatestCheckIn   string   `json:"latest_check_in"`
		Nights          uint32   `json:"nights"`
		MaxRateCents    uint32   `json:"max_rate_cents"`
		AutoConfirm     bool     `json:"auto_confirm"`
		NotifyEmail     bool     `json:"notify_email"`
		NotifySMS       bool     `json:"notify_sms"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HotelID == 0 || body.GuestID == 0 || len(body.RoomTypeIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id, guest_id and room_type_ids are required"})
	}
	earliest, err := parseDate(body.EarliestCheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid earliest_check_in"})
	}
	latest, err := parseDate(body.LatestCheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid latest_check_in"})
	}
	ids := make([]string, 0, len(body.RoomTypeIDs))
	for _, id := range body.RoomTypeIDs {
		if id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room type id"})
		}
		ids = append(ids, strconv.FormatUint(id, 10))
	}

	entry := &model.WaitlistEntry{
		HotelID:         body.HotelID,
		GuestID:         body.GuestID,
		RoomTypeIDs:     strings.Join(ids, ","),
		EarliestCheckIn: earliest,
		LatestCheckIn:   latest,
		Nights:          body.Nights,
		MaxRateCents:    body.MaxRateCents,
		AutoConfirm:     body.AutoConfirm,
		NotifyEmail:     body.NotifyEmail,
		NotifySMS:       body.NotifySMS,
		Status:          model.WaitlistActive,
	}
	if err := h.Waitlist.Enqueue(c.Request().Context(), entry); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"waitlist_id": entry.ID, "position": entry.Position})
}

// List handles GET /v1/waitlist with a hotel_id query parameter,
// returning active entries in promotion order.
func (h *WaitlistHandler) List(c echo.Context) error {
	hotelID, err := strconv.ParseUint(c.QueryParam("hotel_id"), 10, 64)
	if err != nil || hotelID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id is required"})
	}
	entries, err := h.WaitlistRepo.ListActive(c.Request().Context(), hotelID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]echo.Map, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, echo.Map{
			"id":                e.ID,
			"guest_id":          e.GuestID,
			"room_type_ids":     e.RoomTypeIDs,
			"earliest_check_in": e.EarliestCheckIn.Format(dateLayout),
			"latest_check_in":   e.LatestCheckIn.Format(dateLayout),
			"nights":            e.Nights,
			"max_rate_cents":    e.MaxRateCents,
			"position":          e.Position,
			"auto_confirm":      e.AutoConfirm,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}
