package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// PreferredTypes decodes the comma-separated room type id list of a
// waitlist entry, preserving preference order.
func PreferredTypes(entry *model.WaitlistEntry) []uint64 {
	var ids []uint64
	for _, p := range strings.Split(entry.RoomTypeIDs, ",") {
		if n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64); err == nil && n > 0 {
			ids = append(ids, n)
		}
	}
	return ids
}

// StayWindow is a concrete candidate stay derived from a flexible
// waitlist entry.
type StayWindow struct {
	RoomTypeID uint64
	CheckIn    time.Time
	CheckOut   time.Time
}

// CandidateWindows expands a flexible entry into concrete stays to probe,
// ordered by room type preference first and arrival date second so the
// earliest stay in the most preferred type wins.
func CandidateWindows(entry *model.WaitlistEntry) []StayWindow {
	var windows []StayWindow
	for _, typeID := range PreferredTypes(entry) {
		for d := entry.EarliestCheckIn; !d.After(entry.LatestCheckIn); d = d.AddDate(0, 0, 1) {
			windows = append(windows, StayWindow{
				RoomTypeID: typeID,
				CheckIn:    d,
				CheckOut:   d.AddDate(0, 0, int(entry.Nights)),
			})
		}
	}
	return windows
}

// WantsType reports whether the entry would accept the given room type.
func WantsType(entry *model.WaitlistEntry, roomTypeID uint64) bool {
	for _, id := range PreferredTypes(entry) {
		if id == roomTypeID {
			return true
		}
	}
	return false
}

// WithinRateCeiling reports whether a nightly rate satisfies the entry's
// ceiling.  A zero ceiling accepts any rate.
func WithinRateCeiling(entry *model.WaitlistEntry, rateCents uint32) bool {
	return entry.MaxRateCents == 0 || rateCents <= entry.MaxRateCents
}
