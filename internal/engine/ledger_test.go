package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

func ledgerRange(checkIn, checkOut time.Time, total, sold, blocked uint32) []model.InventoryRecord {
	var recs []model.InventoryRecord
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		recs = append(recs, model.InventoryRecord{
			Date:         d,
			TotalRooms:   total,
			SoldRooms:    sold,
			BlockedRooms: blocked,
			RateCents:    15000,
		})
	}
	return recs
}

func TestNights(t *testing.T) {
	assert.Equal(t, uint32(4), Nights(date(1), date(5)))
	assert.Equal(t, uint32(1), Nights(date(1), date(2)))
	assert.Equal(t, uint32(0), Nights(date(5), date(5)))
	assert.Equal(t, uint32(0), Nights(date(5), date(1)))
}

func TestStayDates(t *testing.T) {
	dates := StayDates(date(1), date(4))
	require.Len(t, dates, 3)
	assert.Equal(t, date(1), dates[0])
	assert.Equal(t, date(3), dates[2])
}

func TestCheckSellable(t *testing.T) {
	// 10 deluxe rooms, 7 sold and 2 blocked: exactly one room left.
	recs := ledgerRange(date(1), date(4), 10, 7, 2)

	require.NoError(t, CheckSellable(recs, date(1), date(4), 1, 0))

	err := CheckSellable(recs, date(1), date(4), 2, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientInventory))
	var invErr *InventoryError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, date(1), invErr.Date, "first failing night is reported")

	// An overbooking authorization of 1 admits the second room.
	require.NoError(t, CheckSellable(recs, date(1), date(4), 2, 1))
	require.Error(t, CheckSellable(recs, date(1), date(4), 3, 1))
}

func TestCheckSellableRestrictions(t *testing.T) {
	recs := ledgerRange(date(1), date(4), 10, 0, 0)

	recs[1].StopSell = true
	err := CheckSellable(recs, date(1), date(4), 1, 0)
	require.Error(t, err)
	var invErr *InventoryError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, date(2), invErr.Date)
	recs[1].StopSell = false

	recs[0].MinLOS = 5
	assert.Error(t, CheckSellable(recs, date(1), date(4), 1, 0), "3 nights under a 5-night minimum")
	recs[0].MinLOS = 0

	recs[0].MaxLOS = 2
	assert.Error(t, CheckSellable(recs, date(1), date(4), 1, 0))
	recs[0].MaxLOS = 0

	// A missing night in the ledger is unsellable, never silently skipped.
	short := recs[:2]
	err = CheckSellable(short, date(1), date(4), 1, 0)
	require.Error(t, err)
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, date(3), invErr.Date)
}

func TestOverbookedExcess(t *testing.T) {
	assert.Equal(t, uint32(0), OverbookedExcess(10, 7, 2))
	assert.Equal(t, uint32(0), OverbookedExcess(10, 8, 2))
	assert.Equal(t, uint32(1), OverbookedExcess(10, 9, 2))
	assert.Equal(t, uint32(2), OverbookedExcess(10, 12, 0))
	assert.Equal(t, uint32(0), OverbookedExcess(10, 0, 0))
}

func TestOccupancyPct(t *testing.T) {
	recs := ledgerRange(date(1), date(3), 10, 7, 2)
	assert.Equal(t, uint32(90), OccupancyPct(recs))
	assert.Equal(t, uint32(0), OccupancyPct(nil))
}

func TestStayRateCents(t *testing.T) {
	recs := ledgerRange(date(1), date(4), 10, 0, 0)
	recs[1].RateCents = 22000 // weekend spike
	assert.Equal(t, uint32(22000), StayRateCents(recs), "snapshot uses the peak nightly rate")
}
