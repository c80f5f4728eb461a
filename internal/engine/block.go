package engine

import (
	"time"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

// blockTransitions encodes the legal block state machine:
// ACTIVE -> CONFIRMED -> {COMPLETED | CANCELLED}, with EXPIRED reachable
// only from ACTIVE via auto-release.  ACTIVE may also be cancelled
// directly.
var blockTransitions = map[string][]string{
	model.BlockActive:    {model.BlockConfirmed, model.BlockCancelled, model.BlockExpired},
	model.BlockConfirmed: {model.BlockCompleted, model.BlockCancelled},
}

// CanTransitionBlock reports whether a block may move between the two
// statuses.
func CanTransitionBlock(from, to string) bool {
	for _, s := range blockTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ShouldAutoRelease reports whether a block's unassigned rooms must be
// returned to general availability: the cutoff date has passed, the block
// was never confirmed, and rooms remain blocked.
func ShouldAutoRelease(block *model.RoomBlock, items []model.RoomBlockItem, now time.Time) bool {
	if block.Status != model.BlockActive {
		return false
	}
	if now.Before(block.ReleaseDate) {
		return false
	}
	for _, it := range items {
		if it.BlockedCount > 0 {
			return true
		}
	}
	// Fully drawn down blocks just expire with nothing to return.
	return true
}
