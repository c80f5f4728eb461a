package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/engine"
	"github.com/iliyamo/hotel-room-allocation/internal/model"
	"github.com/iliyamo/hotel-room-allocation/internal/queue"
	"github.com/iliyamo/hotel-room-allocation/internal/repository"
)

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

// fakeLedger keeps inventory records in memory and only mutates them
// through BumpCountersTx, mirroring the real repository's contract.
type fakeLedger struct {
	db      *sql.DB
	hotel   model.Hotel
	records map[uint64][]model.InventoryRecord // room type id -> nightly rows
	ops     map[string]bool
	bumps   int
}

func (f *fakeLedger) DB() *sql.DB { return f.db }

func (f *fakeLedger) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	h := f.hotel
	return &h, nil
}

func (f *fakeLedger) Range(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.InventoryRecord, error) {
	return f.snapshot(roomTypeID), nil
}

func (f *fakeLedger) RangeForUpdateTx(ctx context.Context, tx *sql.Tx, hotelID, roomTypeID uint64, checkIn, checkOut time.Time) ([]model.InventoryRecord, error) {
	return f.snapshot(roomTypeID), nil
}

func (f *fakeLedger) BumpCountersTx(ctx context.Context, tx *sql.Tx, id uint64, soldDelta, blockedDelta, overbookedDelta int32, version uint32) error {
	for typeID := range f.records {
		recs := f.records[typeID]
		for i := range recs {
			rec := &recs[i]
			if rec.ID != id {
				continue
			}
			if rec.Version != version {
				return repository.ErrVersionConflict
			}
			rec.SoldRooms = uint32(int32(rec.SoldRooms) + soldDelta)
			rec.BlockedRooms = uint32(int32(rec.BlockedRooms) + blockedDelta)
			rec.OverbookedRooms = uint32(int32(rec.OverbookedRooms) + overbookedDelta)
			rec.Version++
			f.bumps++
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeLedger) RecordOpTx(ctx context.Context, tx *sql.Tx, opID, kind string) error {
	if f.ops[opID] {
		return repository.ErrOpApplied
	}
	f.ops[opID] = true
	return nil
}

func (f *fakeLedger) OccupancyTx(ctx context.Context, tx *sql.Tx, hotelID uint64, checkIn, checkOut time.Time) (uint32, error) {
	return 0, nil
}

func (f *fakeLedger) SetRestrictions(ctx context.Context, hotelID, roomTypeID uint64, dates []time.Time, stopSell bool, minLOS, maxLOS uint32) error {
	return nil
}

func (f *fakeLedger) SetRateTx(ctx context.Context, tx *sql.Tx, id uint64, rateCents, version uint32) error {
	return nil
}

// snapshot returns copies so callers can only mutate via BumpCountersTx.
func (f *fakeLedger) snapshot(roomTypeID uint64) []model.InventoryRecord {
	return append([]model.InventoryRecord(nil), f.records[roomTypeID]...)
}

type fakeReservationStore struct {
	nextID uint64
	byID   map[uint64]model.Reservation
	rooms  map[uint64][]model.ReservationRoom
	stays  []repository.StayRow
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{
		byID:  map[uint64]model.Reservation{},
		rooms: map[uint64][]model.ReservationRoom{},
	}
}

func (f *fakeReservationStore) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	f.nextID++
	res.ID = f.nextID
	f.byID[res.ID] = *res
	return nil
}

func (f *fakeReservationStore) CreateRoomsBulkTx(ctx context.Context, tx *sql.Tx, rooms []model.ReservationRoom) error {
	for _, rr := range rooms {
		f.rooms[rr.ReservationID] = append(f.rooms[rr.ReservationID], rr)
	}
	return nil
}

func (f *fakeReservationStore) OccupyingStaysTx(ctx context.Context, tx *sql.Tx, hotelID uint64, checkIn, checkOut time.Time) ([]repository.StayRow, error) {
	return f.stays, nil
}

func (f *fakeReservationStore) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	res, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &res, nil
}

func (f *fakeReservationStore) RoomsByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) ([]model.ReservationRoom, error) {
	return f.rooms[reservationID], nil
}

func (f *fakeReservationStore) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string, opID *string) error {
	res, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	res.Status = status
	if opID != nil {
		res.ReleaseOpID = opID
	}
	f.byID[id] = res
	return nil
}

type fakeRoomCatalog struct {
	rooms []model.Room
	types []model.RoomType
}

func (f *fakeRoomCatalog) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Room, error) {
	return f.rooms, nil
}

func (f *fakeRoomCatalog) ListTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	return f.types, nil
}

func (f *fakeRoomCatalog) GetType(ctx context.Context, id uint64) (*model.RoomType, error) {
	for i := range f.types {
		if f.types[i].ID == id {
			rt := f.types[i]
			return &rt, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeRuleSource struct{}

func (fakeRuleSource) ListByHotel(ctx context.Context, hotelID uint64) ([]model.AssignmentRule, error) {
	return nil, nil
}

type fakeChannelDirectory struct{ channels []model.ChannelMapping }

func (f *fakeChannelDirectory) ListByHotel(ctx context.Context, hotelID uint64) ([]model.ChannelMapping, error) {
	return f.channels, nil
}

type fakeOutboxWriter struct{ msgs []model.OutboxMessage }

func (f *fakeOutboxWriter) EnqueueTx(ctx context.Context, tx *sql.Tx, msg *model.OutboxMessage) error {
	f.msgs = append(f.msgs, *msg)
	return nil
}

// newAllocFixture wires an Allocator onto in-memory stores.  The mock
// database only serves Begin/Commit/Rollback; every row operation goes
// through the fakes.  The seeded hotel has one standard room, one night
// of inventory already fully sold, and an overbooking limit of one, so a
// successful allocation must drive the overbooked counter.
func newAllocFixture(t *testing.T) (*Allocator, *fakeLedger, *fakeReservationStore, *fakeOutboxWriter) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	ledger := &fakeLedger{
		db:    db,
		hotel: model.Hotel{ID: 1, Name: "Harbor View", OverbookingLimit: 1},
		records: map[uint64][]model.InventoryRecord{
			7: {{ID: 71, HotelID: 1, RoomTypeID: 7, Date: day(10), TotalRooms: 1, SoldRooms: 1, RateCents: 12000, Version: 3}},
		},
		ops: map[string]bool{},
	}
	reservations := newFakeReservationStore()
	catalog := &fakeRoomCatalog{
		rooms: []model.Room{{ID: 701, HotelID: 1, RoomTypeID: 7, RoomNumber: 701, Floor: 7, IsActive: true}},
		types: []model.RoomType{{ID: 7, HotelID: 1, Code: "STD", Name: "Standard", Tier: 1, Capacity: 2}},
	}
	channels := &fakeChannelDirectory{channels: []model.ChannelMapping{
		{ID: 5, HotelID: 1, Code: "OTA", SyncStatus: model.ChannelActive},
	}}
	outbox := &fakeOutboxWriter{}

	alloc := NewAllocator(ledger, reservations, catalog, fakeRuleSource{}, channels, outbox)
	return alloc, ledger, reservations, outbox
}

func availabilityDeltas(t *testing.T, msgs []model.OutboxMessage) []int32 {
	t.Helper()
	var deltas []int32
	for _, msg := range msgs {
		if msg.Kind != queue.KindAvailability {
			continue
		}
		var d queue.AvailabilityDelta
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &d))
		deltas = append(deltas, d.Delta)
	}
	return deltas
}

func TestAllocateCancelRestoresLedger(t *testing.T) {
	alloc, ledger, reservations, outbox := newAllocFixture(t)
	ctx := context.Background()
	before := ledger.snapshot(7)

	// A checked-out stay on the only room no longer occupies it and must
	// not stop the assignment.
	reservations.stays = []repository.StayRow{
		{RoomID: 701, Status: model.ReservationCheckedOut, CheckIn: day(10), CheckOut: day(11)},
	}

	result, err := alloc.Allocate(ctx, AllocateRequest{
		HotelID:    1,
		GuestID:    9,
		RoomTypeID: 7,
		CheckIn:    day(10),
		CheckOut:   day(11),
		RoomCount:  1,
	})
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, uint64(701), result.Assignments[0].RoomID)
	assert.Equal(t, uint32(12000), result.RateCents)

	mid := ledger.snapshot(7)
	assert.Equal(t, uint32(2), mid[0].SoldRooms)
	assert.Equal(t, uint32(1), mid[0].OverbookedRooms, "selling past capacity must be booked as overbooking")

	_, err = alloc.Cancel(ctx, result.ReservationID)
	require.NoError(t, err)

	after := ledger.snapshot(7)
	for i := range after {
		assert.Equal(t, before[i].SoldRooms, after[i].SoldRooms, "sold restored on %s", after[i].Date)
		assert.Equal(t, before[i].BlockedRooms, after[i].BlockedRooms)
		assert.Equal(t, before[i].OverbookedRooms, after[i].OverbookedRooms, "overbooked restored on %s", after[i].Date)
	}
	// One -1 delta on allocation, one +1 on release.
	assert.ElementsMatch(t, []int32{-1, 1}, availabilityDeltas(t, outbox.msgs))
}

func TestCancelTwiceLeavesCountersUntouched(t *testing.T) {
	alloc, ledger, _, _ := newAllocFixture(t)
	ctx := context.Background()

	result, err := alloc.Allocate(ctx, AllocateRequest{
		HotelID: 1, GuestID: 9, RoomTypeID: 7,
		CheckIn: day(10), CheckOut: day(11), RoomCount: 1,
	})
	require.NoError(t, err)

	res, err := alloc.Cancel(ctx, result.ReservationID)
	require.NoError(t, err)
	require.NotNil(t, res)

	released := ledger.snapshot(7)
	bumps := ledger.bumps

	res, err = alloc.Cancel(ctx, result.ReservationID)
	require.NoError(t, err, "replayed cancellation must be a no-op, not an error")
	assert.Equal(t, model.ReservationCancelled, res.Status)
	assert.Equal(t, bumps, ledger.bumps, "no counter writes on replay")
	assert.Equal(t, released, ledger.snapshot(7))
}

func TestCancelWithAppliedOpSkipsCounters(t *testing.T) {
	// A competing transaction already recorded the release op but the
	// status update was not observed yet: Cancel must fix the status
	// without touching the ledger a second time.
	alloc, ledger, _, _ := newAllocFixture(t)
	ctx := context.Background()

	result, err := alloc.Allocate(ctx, AllocateRequest{
		HotelID: 1, GuestID: 9, RoomTypeID: 7,
		CheckIn: day(10), CheckOut: day(11), RoomCount: 1,
	})
	require.NoError(t, err)

	ledger.ops[fmt.Sprintf("reservation-release-%d", result.ReservationID)] = true
	allocated := ledger.snapshot(7)
	bumps := ledger.bumps

	res, err := alloc.Cancel(ctx, result.ReservationID)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, bumps, ledger.bumps)
	assert.Equal(t, allocated, ledger.snapshot(7), "counters must not be decremented twice")

	stored, err := alloc.ReservationRepo.GetByIDTx(ctx, nil, result.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, stored.Status)
}

func TestAllocateRejectsDuplicatePinnedRooms(t *testing.T) {
	alloc, ledger, reservations, _ := newAllocFixture(t)
	ctx := context.Background()

	_, err := alloc.Allocate(ctx, AllocateRequest{
		HotelID: 1, GuestID: 9, RoomTypeID: 7,
		CheckIn: day(10), CheckOut: day(11),
		RoomIDs: []uint64{701, 701},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrConflictDetected))
	assert.Zero(t, ledger.bumps, "ledger untouched by a rejected request")
	assert.Empty(t, reservations.byID)
}
