package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
	"github.com/iliyamo/hotel-room-allocation/internal/service"
	"github.com/iliyamo/hotel-room-allocation/internal/utils"
)

// ChannelHandler serves channel administration (staff, JWT) and the
// channel callback surface (external, API-key).
type ChannelHandler struct {
	ChannelRepo *repository.ChannelRepo
	Inbound     *service.ChannelInbound
	BcryptCost  int
}

// NewChannelHandler constructs a ChannelHandler.
func NewChannelHandler(channels *repository.ChannelRepo, inbound *service.ChannelInbound, bcryptCost int) *ChannelHandler {
	if channels == nil || inbound == nil {
		panic("nil dependency passed to NewChannelHandler")
	}
	return &ChannelHandler{ChannelRepo: channels, Inbound: inbound, BcryptCost: bcryptCost}
}

// List handles GET /v1/channels with a hotel_id query parameter.
func (h *ChannelHandler) List(c echo.Context) error {
	hotelID, err := strconv.ParseUint(c.QueryParam("hotel_id"), 10, 64)
	if err != nil || hotelID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id is required"})
	}
	channels, err := h.ChannelRepo.ListByHotel(c.Request().Context(), hotelID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]echo.Map, 0, len(channels))
	for i := range channels {
		ch := &channels[i]
		m := echo.Map{
			"id":              ch.ID,
			"code":            ch.Code,
			"name":            ch.Name,
			"sync_status":     ch.SyncStatus,
			"commission_pct":  ch.CommissionPct,
			"conflict_policy": ch.ConflictPolicy,
		}
		if ch.LastSyncAt != nil {
			m["last_sync_at"] = ch.LastSyncAt
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"channels": out})
}

// Create handles POST /v1/channels.  The generated API key is returned
// exactly once; only its bcrypt hash is stored.
func (h *ChannelHandler) Create(c echo.Context) error {
	var body struct {
		HotelID        uint64  `json:"hotel_id"`
		Code           string  `json:"code"`
		Name           string  `json:"name"`
		CommissionPct  float64 `json:"commission_pct"`
		ConflictPolicy string  `json:"conflict_policy"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HotelID == 0 || body.Code == "" || body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id, code and name are required"})
	}
	switch body.ConflictPolicy {
	case model.PolicyCentralizedWins, model.PolicyPropertyWins, model.PolicyManualResolve, model.PolicyAlertOnly:
	case "":
		body.ConflictPolicy = model.PolicyCentralizedWins
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown conflict_policy"})
	}

	apiKey := uuid.NewString()
	hash, err := utils.HashAPIKey(apiKey, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	ch := &model.ChannelMapping{
		HotelID:        body.HotelID,
		Code:           body.Code,
		Name:           body.Name,
		SyncStatus:     model.ChannelActive,
		CommissionPct:  body.CommissionPct,
		ConflictPolicy: body.ConflictPolicy,
		APIKeyHash:     hash,
	}
	if err := h.ChannelRepo.Create(c.Request().Context(), ch); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"channel_id": ch.ID, "api_key": apiKey})
}

// Resolve handles POST /v1/channels/:id/resolve, closing a pending
// conflict held under the MANUAL_RESOLVE policy.  The body carries the
// conflict id; the resolving staff member comes from the JWT.
func (h *ChannelHandler) Resolve(c echo.Context) error {
	channelID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid channel id"})
	}
	if _, err := h.ChannelRepo.GetByID(c.Request().Context(), channelID); err != nil {
		return writeServiceError(c, err)
	}
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ConflictID uint64 `json:"conflict_id"`
	}
	if err := c.Bind(&body); err != nil || body.ConflictID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "conflict_id is required"})
	}
	resolvedBy := strconv.FormatUint(userID, 10)
	if err := h.ChannelRepo.ResolvePendingConflict(c.Request().Context(), body.ConflictID, resolvedBy); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conflict_id": body.ConflictID, "resolved": true})
}

// PendingConflicts handles GET /v1/channels/conflicts with a hotel_id
// query parameter.
func (h *ChannelHandler) PendingConflicts(c echo.Context) error {
	hotelID, err := strconv.ParseUint(c.QueryParam("hotel_id"), 10, 64)
	if err != nil || hotelID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id is required"})
	}
	conflicts, err := h.ChannelRepo.ListPendingConflicts(c.Request().Context(), hotelID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]echo.Map, 0, len(conflicts))
	for i := range conflicts {
		pc := &conflicts[i]
		out = append(out, echo.Map{
			"id":         pc.ID,
			"channel_id": pc.ChannelID,
			"payload":    pc.Payload,
			"reason":     pc.Reason,
			"created_at": pc.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts": out})
}

// authenticateChannel loads the channel named by the :code path
// parameter and verifies the X-API-Key header against its stored hash.
func (h *ChannelHandler) authenticateChannel(c echo.Context) (*model.ChannelMapping, error) {
	code := c.Param("code")
	if code == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "channel code is required")
	}
	ch, err := h.ChannelRepo.GetByCode(c.Request().Context(), code)
	if err != nil {
		// Indistinguishable from a bad key, so probing for valid codes
		// yields nothing.
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid channel or api key")
	}
	key := c.Request().Header.Get("X-API-Key")
	if key == "" || !utils.CheckAPIKey(ch.APIKeyHash, key) {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid channel or api key")
	}
	return ch, nil
}

// InboundBooking handles POST /v1/channel/:code/bookings.  The booking
// is applied under the channel's conflict policy; MANUAL_RESOLVE answers
// 202 with nothing committed.
func (h *ChannelHandler) InboundBooking(c echo.Context) error {
	ch, err := h.authenticateChannel(c)
	if err != nil {
		return err
	}
	var body struct {
		GuestID    uint64 `json:"guest_id"`
		RoomTypeID uint64 `json:"room_type_id"`
		CheckIn    string `json:"check_in"`
		CheckOut   string `json:"check_out"`
		RoomCount  uint32 `json:"room_count"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	checkIn, err := parseDate(body.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in"})
	}
	checkOut, err := parseDate(body.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out"})
	}
	if body.RoomCount == 0 {
		body.RoomCount = 1
	}

	result, err := h.Inbound.ApplyBooking(c.Request().Context(), ch, service.ChannelBooking{
		GuestID:    body.GuestID,
		RoomTypeID: body.RoomTypeID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		RoomCount:  body.RoomCount,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": result.ReservationID,
		"rate_cents":     result.RateCents,
	})
}

// InboundRate handles POST /v1/channel/:code/rates, applying a nightly
// rate change pushed by the channel under its conflict policy.
func (h *ChannelHandler) InboundRate(c echo.Context) error {
	ch, err := h.authenticateChannel(c)
	if err != nil {
		return err
	}
	var body struct {
		RoomTypeID uint64 `json:"room_type_id"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
		RateCents  uint32 `json:"rate_cents"`
	}
	if err := c.Bind(&body); err != nil || body.RoomTypeID == 0 || body.RateCents == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_type_id and rate_cents are required"})
	}
	start, err := parseDate(body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_date"})
	}
	if !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be after start_date"})
	}
	err = h.Inbound.ApplyRateChange(c.Request().Context(), ch, service.ChannelRateChange{
		RoomTypeID: body.RoomTypeID,
		StartDate:  start,
		EndDate:    end,
		RateCents:  body.RateCents,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// InboundRestriction handles POST /v1/channel/:code/restrictions.
func (h *ChannelHandler) InboundRestriction(c echo.Context) error {
	ch, err := h.authenticateChannel(c)
	if err != nil {
		return err
	}
	var body struct {
		RoomTypeID uint64 `json:"room_type_id"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
		StopSell   bool   `json:"stop_sell"`
		MinLOS     uint32 `json:"min_los"`
		MaxLOS     uint32 `json:"max_los"`
	}
	if err := c.Bind(&body); err != nil || body.RoomTypeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_type_id is required"})
	}
	start, err := parseDate(body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_date"})
	}
	if !start.Before(end) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be after start_date"})
	}
	err = h.Inbound.ApplyRestrictionChange(c.Request().Context(), ch, service.ChannelRestrictionChange{
		RoomTypeID: body.RoomTypeID,
		StartDate:  start,
		EndDate:    end,
		StopSell:   body.StopSell,
		MinLOS:     body.MinLOS,
		MaxLOS:     body.MaxLOS,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Ack handles POST /v1/channel/:code/ack, the HTTP fallback for channels
// that cannot publish acknowledgements to the broker queue.
func (h *ChannelHandler) Ack(c echo.Context) error {
	ch, err := h.authenticateChannel(c)
	if err != nil {
		return err
	}
	var ack queue.ChannelAck
	if err := c.Bind(&ack); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ack.ChannelCode = ch.Code
	if err := h.Inbound.HandleAck(c.Request().Context(), ack); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
