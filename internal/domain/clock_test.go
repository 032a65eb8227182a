package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		defer SetClock(nil)

		assert.Equal(t, fixedTime, clock.Now())
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)

		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}

func TestMarkProcessed(t *testing.T) {
	fixedTime := time.Date(2024, 4, 26, 12, 30, 45, 0, time.FixedZone("EST", -5*3600))
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	g := GriddedProfile{ID: "p-1"}
	out := MarkProcessed(g)

	assert.True(t, g.ProcessedAt.IsZero(), "input must not be modified")
	assert.True(t, fixedTime.Equal(out.ProcessedAt))
	assert.Equal(t, time.UTC, out.ProcessedAt.Location())
	assert.Equal(t, "p-1", out.ID)
}
