package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	assert.Equal(t, time.Second, Backoff(0, base, max), "attempt 0 treated as 1")
	assert.Equal(t, time.Second, Backoff(1, base, max))
	assert.Equal(t, 2*time.Second, Backoff(2, base, max))
	assert.Equal(t, 8*time.Second, Backoff(4, base, max))
	assert.Equal(t, max, Backoff(6, base, max))
	assert.Equal(t, max, Backoff(60, base, max), "cap holds for any attempt count")
}
