package warmup

import (
	"math"

	"warmbox/models"
)

// DailyTarget computes how many emails the account should aim to send today.
// The base is the persisted daily limit capped at the configured maximum;
// with RandomizeVolume the target is jittered by up to ±20%, floored at 1.
func (e *Engine) DailyTarget(cfg *models.WarmupConfig) int {
	target := cfg.CurrentDailyLimit
	if target > cfg.MaxEmailsPerDay {
		target = cfg.MaxEmailsPerDay
	}

	if cfg.RandomizeVolume {
		variance := int(math.Round(float64(target) * 0.2))
		if variance > 0 {
			lo := target - variance
			if lo < 1 {
				lo = 1
			}
			hi := target + variance
			target = lo + e.Rand.Intn(hi-lo+1)
		}
	}

	if target > cfg.MaxEmailsPerDay {
		target = cfg.MaxEmailsPerDay
	}
	return target
}

// AdvanceDailyLimit raises the persisted daily limit by DailyIncrease, capped
// at MaxEmailsPerDay. It advances on every call once the account is past its
// first warmup day; with a scheduler that runs several cycles per day the
// effective ramp is steeper than DailyIncrease per calendar day.
func (e *Engine) AdvanceDailyLimit(cfg *models.WarmupConfig, days int) error {
	if days <= 0 {
		return nil
	}

	newLimit := cfg.CurrentDailyLimit + cfg.DailyIncrease
	if newLimit > cfg.MaxEmailsPerDay {
		newLimit = cfg.MaxEmailsPerDay
	}
	if newLimit == cfg.CurrentDailyLimit {
		return nil
	}

	cfg.CurrentDailyLimit = newLimit
	return e.Store.SaveDailyLimit(cfg)
}
