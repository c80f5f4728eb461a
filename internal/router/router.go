// Package router defines how HTTP routes are registered for the API.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-allocation/internal/config"
	"github.com/iliyamo/hotel-room-allocation/internal/handler"
	"github.com/iliyamo/hotel-room-allocation/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Availability *handler.AvailabilityHandler
	Reservation  *handler.ReservationHandler
	Block        *handler.BlockHandler
	Waitlist     *handler.WaitlistHandler
	Rule         *handler.RuleHandler
	Channel      *handler.ChannelHandler
}

// Register wires all routes onto the Echo instance.
//
// Three surfaces exist: the public health check, the staff API under /v1
// (JWT + role middleware), and the channel callback under /v1/channel
// authenticated per-channel by API key instead of JWT.
func Register(e *echo.Echo, db *sql.DB, h Handlers, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Healthz(db))

	limiter := middleware.NewTokenBucket(rlCfg, rdb)

	// Staff surface: agents book and manage, managers additionally own
	// rules and channel administration.
	staff := e.Group("/v1")
	staff.Use(limiter)
	staff.Use(middleware.JWTAuth(jwtSecret))
	staff.Use(middleware.RequireRole("MANAGER", "AGENT"))

	staff.GET("/hotels/:id/availability", h.Availability.Check)

	staff.POST("/reservations", h.Reservation.Create)
	staff.GET("/reservations", h.Reservation.ListByGuest)
	staff.DELETE("/reservations/:id", h.Reservation.Cancel)

	staff.POST("/blocks", h.Block.Create)
	staff.POST("/blocks/:id/assign", h.Block.Assign)
	staff.POST("/blocks/:id/confirm", h.Block.Confirm)
	staff.POST("/blocks/:id/release", h.Block.Release)

	staff.POST("/waitlist", h.Waitlist.Enqueue)
	staff.GET("/waitlist", h.Waitlist.List)

	// Manager-only administration.
	admin := e.Group("/v1")
	admin.Use(limiter)
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("MANAGER"))

	admin.GET("/rules", h.Rule.List)
	admin.POST("/rules", h.Rule.Create)
	admin.PATCH("/rules/:id", h.Rule.Update)

	admin.GET("/channels", h.Channel.List)
	admin.POST("/channels", h.Channel.Create)
	admin.GET("/channels/conflicts", h.Channel.PendingConflicts)
	admin.POST("/channels/:id/resolve", h.Channel.Resolve)

	// External channel callbacks, API-key authenticated inside the
	// handler since the key is per-channel.
	callback := e.Group("/v1/channel")
	callback.Use(limiter)
	callback.POST("/:code/bookings", h.Channel.InboundBooking)
	callback.POST("/:code/rates", h.Channel.InboundRate)
	callback.POST("/:code/restrictions", h.Channel.InboundRestriction)
	callback.POST("/:code/ack", h.Channel.Ack)
}
