package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockStrictlyIncreasesWhenWallClockStalls(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := NewClock(func() time.Time { return fixed })

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, fixed, first)
	assert.True(t, second.After(first))
	assert.True(t, third.After(second))
	assert.Equal(t, time.Millisecond, third.Sub(second))
}

func TestClockTruncatesToMillisecond(t *testing.T) {
	clock := NewClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	})
	assert.Equal(t, 123*time.Millisecond, time.Duration(clock.Now().Nanosecond()))
}
