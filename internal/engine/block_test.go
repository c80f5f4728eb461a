package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/hotel-room-allocation/internal/model"
)

func TestCanTransitionBlock(t *testing.T) {
	assert.True(t, CanTransitionBlock(model.BlockActive, model.BlockConfirmed))
	assert.True(t, CanTransitionBlock(model.BlockActive, model.BlockCancelled))
	assert.True(t, CanTransitionBlock(model.BlockActive, model.BlockExpired))
	assert.True(t, CanTransitionBlock(model.BlockConfirmed, model.BlockCompleted))
	assert.True(t, CanTransitionBlock(model.BlockConfirmed, model.BlockCancelled))

	assert.False(t, CanTransitionBlock(model.BlockConfirmed, model.BlockExpired), "confirmed blocks never auto-expire")
	assert.False(t, CanTransitionBlock(model.BlockExpired, model.BlockActive))
	assert.False(t, CanTransitionBlock(model.BlockCancelled, model.BlockConfirmed))
	assert.False(t, CanTransitionBlock(model.BlockCompleted, model.BlockCancelled))
}

func TestShouldAutoRelease(t *testing.T) {
	block := &model.RoomBlock{
		Status:      model.BlockActive,
		ReleaseDate: date(10),
	}
	items := []model.RoomBlockItem{{RoomTypeID: 10, BlockedCount: 5}}

	assert.False(t, ShouldAutoRelease(block, items, date(9)), "cutoff not reached")
	assert.True(t, ShouldAutoRelease(block, items, date(10)), "cutoff day releases")
	assert.True(t, ShouldAutoRelease(block, items, date(11)))

	confirmed := *block
	confirmed.Status = model.BlockConfirmed
	assert.False(t, ShouldAutoRelease(&confirmed, items, date(11)), "confirmed blocks keep their rooms")

	// Fully drawn-down blocks still expire, with nothing to return.
	drained := []model.RoomBlockItem{{RoomTypeID: 10, BlockedCount: 0, AssignedCount: 5}}
	assert.True(t, ShouldAutoRelease(block, drained, date(11)))
}
