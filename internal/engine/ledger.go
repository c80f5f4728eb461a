package engine

import (
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// Nights returns the stay length of the half-open range [checkIn,
// checkOut) in whole days.
func Nights(checkIn, checkOut time.Time) uint32 {
	if !checkIn.Before(checkOut) {
		return 0
	}
	return uint32(checkOut.Sub(checkIn).Hours() / 24)
}

// StayDates expands [checkIn, checkOut) into the individual ledger dates
// it touches, one per night, in ascending order.
func StayDates(checkIn, checkOut time.Time) []time.Time {
	var dates []time.Time
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// CheckSellable validates a decrement of count rooms against the loaded
// ledger records for every night of a stay.  The records slice must cover
// the full range; a missing night is treated as unsellable.  Validation
// order per night: stop-sell, length-of-stay restrictions, then remaining
// count (allowing the hotel's overbooking authorization).  The first
// failing night is reported.
func CheckSellable(records []model.InventoryRecord, checkIn, checkOut time.Time, count uint32, overbookingLimit uint32) error {
	nights := Nights(checkIn, checkOut)
	byDate := make(map[time.Time]*model.InventoryRecord, len(records))
	for i := range records {
		byDate[records[i].Date] = &records[i]
	}
	for _, d := range StayDates(checkIn, checkOut) {
		rec, ok := byDate[d]
		if !ok {
			return &InventoryError{Date: d, Reason: "no inventory record"}
		}
		if rec.StopSell {
			return &InventoryError{Date: d, Reason: "stop-sell in effect"}
		}
		if rec.MinLOS > 0 && nights < rec.MinLOS {
			return &InventoryError{Date: d, Reason: "stay shorter than minimum length of stay"}
		}
		if rec.MaxLOS > 0 && nights > rec.MaxLOS {
			return &InventoryError{Date: d, Reason: "stay longer than maximum length of stay"}
		}
		projected := int64(rec.SoldRooms) + int64(rec.BlockedRooms) + int64(count)
		if projected > int64(rec.TotalRooms)+int64(overbookingLimit) {
			return &InventoryError{Date: d, Reason: "not enough rooms"}
		}
	}
	return nil
}

// OverbookedExcess returns the overbooked counter implied by the other
// counters: the portion of sold + blocked exceeding capacity.  Keeping
// overbooked_rooms pinned to this value after every mutation maintains
// the invariant sold + blocked - overbooked <= total and makes release
// arithmetic symmetric with allocation.
func OverbookedExcess(total, sold, blocked uint32) uint32 {
	committed := int64(sold) + int64(blocked) - int64(total)
	if committed <= 0 {
		return 0
	}
	return uint32(committed)
}

// OccupancyPct returns the percentage of total rooms committed (sold or
// blocked) across the given records, rounded down.  Rule conditions on
// occupancy level use this value.
func OccupancyPct(records []model.InventoryRecord) uint32 {
	var total, used uint64
	for i := range records {
		total += uint64(records[i].TotalRooms)
		used += uint64(records[i].SoldRooms) + uint64(records[i].BlockedRooms)
	}
	if total == 0 {
		return 0
	}
	return uint32(used * 100 / total)
}

// StayRateCents returns the highest nightly rate across the records for
// the stay range.  The snapshot stored on a reservation uses the peak
// rate so the rate ceiling check of waitlist entries is conservative.
func StayRateCents(records []model.InventoryRecord) uint32 {
	var max uint32
	for i := range records {
		if records[i].RateCents > max {
			max = records[i].RateCents
		}
	}
	return max
}
