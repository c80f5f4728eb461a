package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/config"
	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
)

// OutboxStore is the slice of the outbox repository the dispatcher needs.
// It is an interface so tests can drive the dispatcher with fakes.
type OutboxStore interface {
	DuePending(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkDelivered(ctx context.Context, id uint64) error
	Reschedule(ctx context.Context, id uint64, nextAttempt time.Time) error
	MarkFailed(ctx context.Context, id uint64) error
}

// ChannelStatusStore updates per-channel sync health as pushes succeed or
// exhaust their retry budget.
type ChannelStatusStore interface {
	SetSyncStatus(ctx context.Context, id uint64, status string, at time.Time) error
}

// Publisher delivers one payload to a named queue on the broker.
type Publisher func(ctx context.Context, queueName string, body []byte) error

// ChannelSyncDispatcher drains the outbox: channel availability/rate
// deltas go to the channel.sync queue, notification events to
// engine.notifications.  Delivery failures are retried with bounded
// exponential backoff; after the budget is exhausted the message is
// retired and the owning channel is marked ERROR for manual intervention.
// Ledger state is never touched from here — local truth is authoritative
// and external systems are eventually consistent.
type ChannelSyncDispatcher struct {
	Outbox   OutboxStore
	Channels ChannelStatusStore
	Publish  Publisher
	Cfg      config.ChannelSyncConfig
}

// NewChannelSyncDispatcher constructs a dispatcher.  A nil publisher
// defaults to the AMQP publisher.
func NewChannelSyncDispatcher(outbox OutboxStore, channels ChannelStatusStore, publish Publisher, cfg config.ChannelSyncConfig) *ChannelSyncDispatcher {
	if outbox == nil || channels == nil {
		panic("nil dependency passed to NewChannelSyncDispatcher")
	}
	if publish == nil {
		publish = queue.Publish
	}
	return &ChannelSyncDispatcher{Outbox: outbox, Channels: channels, Publish: publish, Cfg: cfg}
}

// Run drains the outbox on the configured interval until the context is
// cancelled.
func (d *ChannelSyncDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.ProcessBatch(ctx); err != nil {
				log.Printf("channel-sync: batch failed: %v", err)
			}
		}
	}
}

// ProcessBatch delivers every due pending message once, applying the
// backoff schedule to failures.
func (d *ChannelSyncDispatcher) ProcessBatch(ctx context.Context) error {
	msgs, err := d.Outbox.DuePending(ctx, d.Cfg.BatchSize)
	if err != nil {
		return err
	}
	for i := range msgs {
		d.deliver(ctx, &msgs[i])
	}
	return nil
}

func (d *ChannelSyncDispatcher) deliver(ctx context.Context, msg *model.OutboxMessage) {
	queueName := queue.ChannelSyncQueue
	if msg.Kind == queue.KindNotification {
		queueName = queue.NotificationsQueue
	}
	err := d.Publish(ctx, queueName, []byte(msg.Payload))
	now := time.Now().UTC()
	if err == nil {
		if merr := d.Outbox.MarkDelivered(ctx, msg.ID); merr != nil {
			log.Printf("channel-sync: mark delivered %d failed: %v", msg.ID, merr)
			return
		}
		if msg.ChannelID != nil {
			if serr := d.Channels.SetSyncStatus(ctx, *msg.ChannelID, model.ChannelActive, now); serr != nil {
				log.Printf("channel-sync: update channel %d status failed: %v", *msg.ChannelID, serr)
			}
		}
		return
	}

	attempt := msg.Attempts + 1
	if int(attempt) >= d.Cfg.MaxRetries {
		log.Printf("channel-sync: message %d exhausted %d attempts: %v", msg.ID, attempt, err)
		if merr := d.Outbox.MarkFailed(ctx, msg.ID); merr != nil {
			log.Printf("channel-sync: mark failed %d failed: %v", msg.ID, merr)
		}
		if msg.ChannelID != nil {
			if serr := d.Channels.SetSyncStatus(ctx, *msg.ChannelID, model.ChannelError, now); serr != nil {
				log.Printf("channel-sync: update channel %d status failed: %v", *msg.ChannelID, serr)
			}
		}
		return
	}
	delay := engine.Backoff(attempt, d.Cfg.BaseDelay, d.Cfg.MaxDelay)
	log.Printf("channel-sync: message %d attempt %d failed, retrying in %s: %v", msg.ID, attempt, delay, err)
	if merr := d.Outbox.Reschedule(ctx, msg.ID, now.Add(delay)); merr != nil {
		log.Printf("channel-sync: reschedule %d failed: %v", msg.ID, merr)
	}
}
