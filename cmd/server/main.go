package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-allocation/internal/config"
	"github.com/iliyamo/hotel-room-allocation/internal/database"
	"github.com/iliyamo/hotel-room-allocation/internal/handler"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
	"github.com/iliyamo/hotel-room-allocation/internal/router"
	"github.com/iliyamo/hotel-room-allocation/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	invRepo := repository.NewInventoryRepo(db)
	resRepo := repository.NewReservationRepo(db)
	roomRepo := repository.NewRoomRepo(db)
	ruleRepo := repository.NewRuleRepo(db)
	channelRepo := repository.NewChannelRepo(db)
	outboxRepo := repository.NewOutboxRepo(db)
	blockRepo := repository.NewBlockRepo(db)
	waitlistRepo := repository.NewWaitlistRepo(db)

	allocator := service.NewAllocator(invRepo, resRepo, roomRepo, ruleRepo, channelRepo, outboxRepo)
	blocks := service.NewBlockManager(allocator, blockRepo)
	waitlist := service.NewWaitlistManager(allocator, waitlistRepo)
	inbound := service.NewChannelInbound(allocator, channelRepo)
	dispatcher := service.NewChannelSyncDispatcher(outboxRepo, channelRepo, nil, config.LoadChannelSyncConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(ctx)
	go blocks.RunExpirySweep(ctx, config.LoadBlockSweepInterval())
	go func() {
		err := queue.StartAckConsumer(func(ack queue.ChannelAck) error {
			return inbound.HandleAck(ctx, ack)
		})
		if err != nil {
			log.Printf("ack-consumer: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, db, router.Handlers{
		Availability: handler.NewAvailabilityHandler(allocator),
		Reservation:  handler.NewReservationHandler(allocator, waitlist, resRepo),
		Block:        handler.NewBlockHandler(blocks),
		Waitlist:     handler.NewWaitlistHandler(waitlist, waitlistRepo),
		Rule:         handler.NewRuleHandler(ruleRepo),
		Channel:      handler.NewChannelHandler(channelRepo, inbound, cfg.BcryptCost),
	}, cfg.JWTSecret, config.LoadRateLimitConfig(), config.NewRedisClient())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
