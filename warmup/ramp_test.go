package warmup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyTargetWithoutJitter(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())

	cfg := poolConfig(1, testNow)
	cfg.RandomizeVolume = false
	cfg.CurrentDailyLimit = 4
	cfg.MaxEmailsPerDay = 10

	assert.Equal(t, 4, engine.DailyTarget(cfg))
}

func TestDailyTargetCapsAtMaximum(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())

	cfg := poolConfig(1, testNow)
	cfg.RandomizeVolume = false
	cfg.CurrentDailyLimit = 50
	cfg.MaxEmailsPerDay = 40

	assert.Equal(t, 40, engine.DailyTarget(cfg))
}

func TestDailyTargetJitterStaysWithinBounds(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())
	engine.Rand = NewRand(1)

	cfg := poolConfig(1, testNow)
	cfg.RandomizeVolume = true
	cfg.CurrentDailyLimit = 20
	cfg.MaxEmailsPerDay = 40

	for i := 0; i < 200; i++ {
		target := engine.DailyTarget(cfg)
		assert.GreaterOrEqual(t, target, 16)
		assert.LessOrEqual(t, target, 24)
	}
}

func TestDailyTargetJitterNeverExceedsMaximum(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())
	engine.Rand = NewRand(2)

	cfg := poolConfig(1, testNow)
	cfg.RandomizeVolume = true
	cfg.CurrentDailyLimit = 10
	cfg.MaxEmailsPerDay = 10

	for i := 0; i < 200; i++ {
		assert.LessOrEqual(t, engine.DailyTarget(cfg), 10)
	}
}

func TestDailyTargetTinyLimitSkipsJitter(t *testing.T) {
	engine, _ := newTestEngine(newFakeStore(), newFakeTransport())

	cfg := poolConfig(1, testNow)
	cfg.RandomizeVolume = true
	cfg.CurrentDailyLimit = 2
	cfg.MaxEmailsPerDay = 40

	// Twenty percent of 2 rounds to 0, so there is no variance to draw.
	assert.Equal(t, 2, engine.DailyTarget(cfg))
}

func TestAdvanceDailyLimit(t *testing.T) {
	tests := []struct {
		name      string
		current   int
		increase  int
		max       int
		days      int
		wantLimit int
		wantSaved bool
	}{
		{name: "first increase", current: 2, increase: 2, max: 10, days: 1, wantLimit: 4, wantSaved: true},
		{name: "capped at maximum", current: 9, increase: 2, max: 10, days: 3, wantLimit: 10, wantSaved: true},
		{name: "already at maximum", current: 10, increase: 2, max: 10, days: 5, wantLimit: 10, wantSaved: false},
		{name: "first day never advances", current: 2, increase: 2, max: 10, days: 0, wantLimit: 2, wantSaved: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			engine, _ := newTestEngine(store, newFakeTransport())

			cfg := poolConfig(1, testNow.Add(-time.Duration(tc.days)*24*time.Hour))
			cfg.CurrentDailyLimit = tc.current
			cfg.DailyIncrease = tc.increase
			cfg.MaxEmailsPerDay = tc.max

			require.NoError(t, engine.AdvanceDailyLimit(cfg, tc.days))
			assert.Equal(t, tc.wantLimit, cfg.CurrentDailyLimit)

			if tc.wantSaved {
				require.Len(t, store.savedLimits, 1)
				assert.Equal(t, tc.wantLimit, store.savedLimits[0])
			} else {
				assert.Empty(t, store.savedLimits)
			}
		})
	}
}
