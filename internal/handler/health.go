package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Healthz reports liveness and database reachability.
func Healthz(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := db.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "db": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
