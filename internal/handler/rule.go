package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
)

// RuleHandler serves the assignment rule admin surface (MANAGER only).
type RuleHandler struct {
	RuleRepo *repository.RuleRepo
}

// NewRuleHandler constructs a RuleHandler.
func NewRuleHandler(rules *repository.RuleRepo) *RuleHandler {
	if rules == nil {
		panic("nil repository passed to NewRuleHandler")
	}
	return &RuleHandler{RuleRepo: rules}
}

// List handles GET /v1/rules with a hotel_id query parameter.
func (h *RuleHandler) List(c echo.Context) error {
	hotelID, err := strconv.ParseUint(c.QueryParam("hotel_id"), 10, 64)
	if err != nil || hotelID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id is required"})
	}
	rules, err := h.RuleRepo.ListByHotel(c.Request().Context(), hotelID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]echo.Map, 0, len(rules))
	for i := range rules {
		r := &rules[i]
		m := echo.Map{
			"id":                r.ID,
			"name":              r.Name,
			"priority":          r.Priority,
			"is_active":         r.IsActive,
			"allow_upgrade":     r.AllowUpgrade,
			"upgrade_fee_cents": r.UpgradeFeeCents,
			"max_upgrades":      r.MaxUpgrades,
		}
		if r.GuestType != nil {
			m["guest_type"] = *r.GuestType
		}
		if r.LoyaltyTier != nil {
			m["loyalty_tier"] = *r.LoyaltyTier
		}
		if r.PreferredFloors != nil {
			m["preferred_floors"] = *r.PreferredFloors
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"rules": out})
}

// Create handles POST /v1/rules.  Omitted condition fields are
// wildcards: the rule matches any value for them.
func (h *RuleHandler) Create(c echo.Context) error {
	var body struct {
		HotelID         uint64  `json:"hotel_id"`
		Name            string  `json:"name"`
		Priority        int32   `json:"priority"`
		GuestType       *string `json:"guest_type"`
		LoyaltyTier     *string `json:"loyalty_tier"`
		MinNights       *uint32 `json:"min_nights"`
		MaxNights       *uint32 `json:"max_nights"`
		MinAdvanceDays  *uint32 `json:"min_advance_days"`
		MaxAdvanceDays  *uint32 `json:"max_advance_days"`
		MinOccupancyPct *uint32 `json:"min_occupancy_pct"`
		MaxOccupancyPct *uint32 `json:"max_occupancy_pct"`
		MinBookingCents *uint64 `json:"min_booking_cents"`
		PreferredFloors *string `json:"preferred_floors"`
		AllowUpgrade    bool    `json:"allow_upgrade"`
		UpgradeReason   string  `json:"upgrade_reason"`
		UpgradeFeeCents uint32  `json:"upgrade_fee_cents"`
		MaxUpgrades     uint32  `json:"max_upgrades"`
		BlackoutStart   *string `json:"blackout_start"`
		BlackoutEnd     *string `json:"blackout_end"`
		ApproverLevel   string  `json:"approver_level"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HotelID == 0 || body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hotel_id and name are required"})
	}
	var blackoutStart, blackoutEnd *time.Time
	if body.BlackoutStart != nil {
		d, err := parseDate(*body.BlackoutStart)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid blackout_start"})
		}
		blackoutStart = &d
	}
	if body.BlackoutEnd != nil {
		d, err := parseDate(*body.BlackoutEnd)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid blackout_end"})
		}
		blackoutEnd = &d
	}

	rule := &model.AssignmentRule{
		HotelID:         body.HotelID,
		Name:            body.Name,
		Priority:        body.Priority,
		IsActive:        true,
		GuestType:       body.GuestType,
		LoyaltyTier:     body.LoyaltyTier,
		MinNights:       body.MinNights,
		MaxNights:       body.MaxNights,
		MinAdvanceDays:  body.MinAdvanceDays,
		MaxAdvanceDays:  body.MaxAdvanceDays,
		MinOccupancyPct: body.MinOccupancyPct,
		MaxOccupancyPct: body.MaxOccupancyPct,
		MinBookingCents: body.MinBookingCents,
		PreferredFloors: body.PreferredFloors,
		AllowUpgrade:    body.AllowUpgrade,
		UpgradeReason:   body.UpgradeReason,
		UpgradeFeeCents: body.UpgradeFeeCents,
		MaxUpgrades:     body.MaxUpgrades,
		BlackoutStart:   blackoutStart,
		BlackoutEnd:     blackoutEnd,
		ApproverLevel:   body.ApproverLevel,
	}
	if err := h.RuleRepo.Create(c.Request().Context(), rule); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"rule_id": rule.ID})
}

// Update handles PATCH /v1/rules/:id, flipping activation and/or
// reordering priority.
func (h *RuleHandler) Update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rule id"})
	}
	var body struct {
		IsActive *bool  `json:"is_active"`
		Priority *int32 `json:"priority"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.IsActive == nil && body.Priority == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	ctx := c.Request().Context()
	if _, err := h.RuleRepo.GetByID(ctx, id); err != nil {
		return writeServiceError(c, err)
	}
	if body.IsActive != nil {
		if err := h.RuleRepo.SetActive(ctx, id, *body.IsActive); err != nil {
			return writeServiceError(c, err)
		}
	}
	if body.Priority != nil {
		if err := h.RuleRepo.SetPriority(ctx, id, *body.Priority); err != nil {
			return writeServiceError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"rule_id": id})
}
