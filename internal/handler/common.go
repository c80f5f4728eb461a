package handler // handler defines http handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
	"github.com/iliyamo/hotel-room-allocation/internal/service"
)

// dateLayout is the wire format for stay dates.  Check-out dates are
// exclusive everywhere in the API.
const dateLayout = "2006-01-02"

// getUserID extracts the user_id stored in echo.Context by the JWT
// middleware and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseIDParam parses a positive uint64 path parameter.
func parseIDParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseDate parses a YYYY-MM-DD date into midnight UTC.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// writeServiceError maps service and repository errors onto HTTP
// responses.  Allocation failures are client-visible conflicts, not
// server errors.
func writeServiceError(c echo.Context, err error) error {
	var invErr *engine.InventoryError
	if errors.As(err, &invErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  "insufficient_inventory",
			"date":   invErr.Date.Format(dateLayout),
			"detail": invErr.Reason,
		})
	}
	var confErr *engine.ConflictError
	if errors.As(err, &confErr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "conflict_detected",
			"room_id":   confErr.RoomID,
			"check_in":  confErr.CheckIn.Format(dateLayout),
			"check_out": confErr.CheckOut.Format(dateLayout),
		})
	}
	switch {
	case errors.Is(err, engine.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient_inventory"})
	case errors.Is(err, engine.ErrConflictDetected):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict_detected"})
	case errors.Is(err, engine.ErrNoRoomAvailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "no_room_available"})
	case errors.Is(err, repository.ErrVersionConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent update, retry"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid state for operation"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "rejected by channel policy"})
	case errors.Is(err, service.ErrHeldForReview):
		return c.JSON(http.StatusAccepted, echo.Map{"status": "held_for_review"})
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
