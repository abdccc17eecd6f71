// Package settings holds per-guild economy configuration: currency symbol,
// cooldowns, earn ranges and success rates. Every guild starts from the
// deployment defaults; administrators override individual fields at runtime.
package settings

import (
	"time"

	"github.com/Company-Discord/economy-bot/internal/config"
)

// ActionSettings are the tunables of one gated action. Work carries a
// SuccessRate of 1 that cannot be overridden.
type ActionSettings struct {
	Cooldown    time.Duration
	MinEarn     int64
	MaxEarn     int64
	SuccessRate float64
}

// Settings is the effective configuration of one guild.
type Settings struct {
	GuildID        int64
	CurrencySymbol string

	Work  ActionSettings
	Slut  ActionSettings
	Crime ActionSettings
	Rob   ActionSettings

	UpdatedAt time.Time
}

// Defaults builds the deployment-wide settings template from the loaded
// configuration. GuildID is filled in by the caller.
func Defaults(cfg *config.Config) Settings {
	return Settings{
		CurrencySymbol: cfg.CurrencySymbol,
		Work: ActionSettings{
			Cooldown:    cfg.WorkCooldown,
			MinEarn:     cfg.WorkMinEarn,
			MaxEarn:     cfg.WorkMaxEarn,
			SuccessRate: 1.0,
		},
		Slut: ActionSettings{
			Cooldown:    cfg.SlutCooldown,
			MinEarn:     cfg.SlutMinEarn,
			MaxEarn:     cfg.SlutMaxEarn,
			SuccessRate: cfg.SlutSuccessRate,
		},
		Crime: ActionSettings{
			Cooldown:    cfg.CrimeCooldown,
			MinEarn:     cfg.CrimeMinEarn,
			MaxEarn:     cfg.CrimeMaxEarn,
			SuccessRate: cfg.CrimeSuccessRate,
		},
		Rob: ActionSettings{
			Cooldown:    cfg.RobCooldown,
			MinEarn:     cfg.RobMinEarn,
			MaxEarn:     cfg.RobMaxEarn,
			SuccessRate: cfg.RobSuccessRate,
		},
	}
}
