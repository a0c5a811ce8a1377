package engine

import (
	"time"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/pkg/config"
)

// NeverParticipatedDays is the days-since-last sentinel for members without history.
const NeverParticipatedDays = 9999

// Config tunes ranking weights, cooldown and pairing preferences.
type Config struct {
	WeightTeaching         float64
	WeightStudent          float64
	WeightHelper           float64
	CooldownWindow         time.Duration
	CooldownPenalty        float64
	NeverParticipatedBonus float64
	PreferFamily           bool
	PreferSameSex          bool

	// Now is the reference clock for day gaps and the cooldown window.
	Now func() time.Time
}

// DefaultConfig returns the stock engine tuning.
func DefaultConfig() Config {
	return Config{
		WeightTeaching:         1.0,
		WeightStudent:          0.5,
		WeightHelper:           0.1,
		CooldownWindow:         6 * 7 * 24 * time.Hour,
		CooldownPenalty:        500,
		NeverParticipatedBonus: 1000,
		PreferFamily:           true,
		PreferSameSex:          true,
		Now:                    time.Now,
	}
}

// ConfigFromSettings maps loaded application settings onto the engine config.
func ConfigFromSettings(s config.EngineConfig) Config {
	cfg := DefaultConfig()
	if s.WeightTeaching > 0 {
		cfg.WeightTeaching = s.WeightTeaching
	}
	if s.WeightStudent > 0 {
		cfg.WeightStudent = s.WeightStudent
	}
	if s.WeightHelper > 0 {
		cfg.WeightHelper = s.WeightHelper
	}
	if s.CooldownWeeks > 0 {
		cfg.CooldownWindow = time.Duration(s.CooldownWeeks) * 7 * 24 * time.Hour
	}
	if s.CooldownPenalty >= 0 {
		cfg.CooldownPenalty = s.CooldownPenalty
	}
	if s.NeverParticipatedBonus >= 0 {
		cfg.NeverParticipatedBonus = s.NeverParticipatedBonus
	}
	cfg.PreferFamily = s.PreferFamily
	cfg.PreferSameSex = s.PreferSameSex
	return cfg
}

// Weight returns the ranking weight of a category.
func (c Config) Weight(category models.RoleCategory) float64 {
	switch category {
	case models.RoleCategoryTeaching:
		return c.WeightTeaching
	case models.RoleCategoryHelper:
		return c.WeightHelper
	default:
		return c.WeightStudent
	}
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
