package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/config"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
)

type fakeOutbox struct {
	due         []model.OutboxMessage
	delivered   []uint64
	failed      []uint64
	rescheduled map[uint64]time.Time
}

func newFakeOutbox(msgs ...model.OutboxMessage) *fakeOutbox {
	return &fakeOutbox{due: msgs, rescheduled: map[uint64]time.Time{}}
}

func (f *fakeOutbox) DuePending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeOutbox) MarkDelivered(ctx context.Context, id uint64) error {
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeOutbox) Reschedule(ctx context.Context, id uint64, nextAttempt time.Time) error {
	f.rescheduled[id] = nextAttempt
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, id uint64) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeChannelStatus struct {
	statuses map[uint64]string
}

func newFakeChannelStatus() *fakeChannelStatus {
	return &fakeChannelStatus{statuses: map[uint64]string{}}
}

func (f *fakeChannelStatus) SetSyncStatus(ctx context.Context, id uint64, status string, at time.Time) error {
	f.statuses[id] = status
	return nil
}

type captureBroker struct {
	published map[string][]string
	err       error
}

func newCaptureBroker() *captureBroker { return &captureBroker{published: map[string][]string{}} }

func (b *captureBroker) publish(ctx context.Context, queueName string, body []byte) error {
	if b.err != nil {
		return b.err
	}
	b.published[queueName] = append(b.published[queueName], string(body))
	return nil
}

func testSyncConfig() config.ChannelSyncConfig {
	return config.ChannelSyncConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
	}
}

func chanID(id uint64) *uint64 { return &id }

func TestDispatcherRoutesByKind(t *testing.T) {
	outbox := newFakeOutbox(
		model.OutboxMessage{ID: 1, ChannelID: chanID(7), Kind: queue.KindAvailability, Payload: `{"delta":-1}`},
		model.OutboxMessage{ID: 2, Kind: queue.KindNotification, Payload: `{"event":"reservation.allocated"}`},
	)
	channels := newFakeChannelStatus()
	broker := newCaptureBroker()
	d := NewChannelSyncDispatcher(outbox, channels, broker.publish, testSyncConfig())

	require.NoError(t, d.ProcessBatch(context.Background()))

	assert.Equal(t, []string{`{"delta":-1}`}, broker.published[queue.ChannelSyncQueue])
	assert.Equal(t, []string{`{"event":"reservation.allocated"}`}, broker.published[queue.NotificationsQueue])
	assert.ElementsMatch(t, []uint64{1, 2}, outbox.delivered)
	assert.Equal(t, model.ChannelActive, channels.statuses[7], "successful push refreshes channel health")
}

func TestDispatcherReschedulesWithBackoff(t *testing.T) {
	outbox := newFakeOutbox(
		model.OutboxMessage{ID: 1, ChannelID: chanID(7), Kind: queue.KindAvailability, Attempts: 0},
	)
	channels := newFakeChannelStatus()
	broker := newCaptureBroker()
	broker.err = errors.New("broker down")
	d := NewChannelSyncDispatcher(outbox, channels, broker.publish, testSyncConfig())

	before := time.Now().UTC()
	require.NoError(t, d.ProcessBatch(context.Background()))

	assert.Empty(t, outbox.delivered)
	assert.Empty(t, outbox.failed)
	next, ok := outbox.rescheduled[1]
	require.True(t, ok)
	// First retry waits one base delay.
	assert.WithinDuration(t, before.Add(time.Second), next, 2*time.Second)
	assert.Empty(t, channels.statuses, "channel not marked error while retries remain")
}

func TestDispatcherRetiresAfterMaxRetries(t *testing.T) {
	outbox := newFakeOutbox(
		model.OutboxMessage{ID: 9, ChannelID: chanID(4), Kind: queue.KindAvailability, Attempts: 2},
	)
	channels := newFakeChannelStatus()
	broker := newCaptureBroker()
	broker.err = errors.New("still down")
	d := NewChannelSyncDispatcher(outbox, channels, broker.publish, testSyncConfig())

	require.NoError(t, d.ProcessBatch(context.Background()))

	assert.Equal(t, []uint64{9}, outbox.failed)
	assert.Empty(t, outbox.rescheduled)
	assert.Equal(t, model.ChannelError, channels.statuses[4], "exhausted channel flagged for manual intervention")
}

func TestDispatcherHonorsBatchSize(t *testing.T) {
	outbox := newFakeOutbox(
		model.OutboxMessage{ID: 1, Kind: queue.KindNotification},
		model.OutboxMessage{ID: 2, Kind: queue.KindNotification},
		model.OutboxMessage{ID: 3, Kind: queue.KindNotification},
	)
	cfg := testSyncConfig()
	cfg.BatchSize = 2
	broker := newCaptureBroker()
	d := NewChannelSyncDispatcher(outbox, newFakeChannelStatus(), broker.publish, cfg)

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Equal(t, []uint64{1, 2}, outbox.delivered)
}
