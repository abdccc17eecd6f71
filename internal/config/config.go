// Package config loads the bot configuration from environment variables.
// envconfig maps the variables onto the Config struct; Validate catches the
// combinations that would only blow up later at runtime.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the application. The economy defaults here
// are deployment-wide; guild administrators can override them per guild at
// runtime through the settings feature.
type Config struct {
	// --- Discord ---
	DiscordBotToken string `envconfig:"DISCORD_BOT_TOKEN" required:"true"`
	// If set, slash commands are registered for this guild only (instant
	// propagation, useful in development). Empty registers them globally.
	DiscordGuildID string `envconfig:"DISCORD_GUILD_ID" default:""`

	// --- Database ---
	// Inside docker "localhost" is almost always wrong; the default matches
	// the service name in docker-compose. Override DB_HOST=localhost locally.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"economy_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// How many interactions are handled in parallel. Without a limit a
	// command flood means one goroutine per interaction and an OOM later.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`

	// --- Economy defaults (per-guild overridable) ---
	CurrencySymbol string `envconfig:"ECONOMY_CURRENCY_SYMBOL" default:"💰"`

	WorkCooldown time.Duration `envconfig:"ECONOMY_WORK_COOLDOWN" default:"30s"`
	WorkMinEarn  int64         `envconfig:"ECONOMY_WORK_MIN_EARN" default:"50"`
	WorkMaxEarn  int64         `envconfig:"ECONOMY_WORK_MAX_EARN" default:"200"`

	SlutCooldown    time.Duration `envconfig:"ECONOMY_SLUT_COOLDOWN" default:"90s"`
	SlutMinEarn     int64         `envconfig:"ECONOMY_SLUT_MIN_EARN" default:"100"`
	SlutMaxEarn     int64         `envconfig:"ECONOMY_SLUT_MAX_EARN" default:"400"`
	SlutSuccessRate float64       `envconfig:"ECONOMY_SLUT_SUCCESS_RATE" default:"0.7"`

	CrimeCooldown    time.Duration `envconfig:"ECONOMY_CRIME_COOLDOWN" default:"180s"`
	CrimeMinEarn     int64         `envconfig:"ECONOMY_CRIME_MIN_EARN" default:"150"`
	CrimeMaxEarn     int64         `envconfig:"ECONOMY_CRIME_MAX_EARN" default:"600"`
	CrimeSuccessRate float64       `envconfig:"ECONOMY_CRIME_SUCCESS_RATE" default:"0.4"`

	RobCooldown    time.Duration `envconfig:"ECONOMY_ROB_COOLDOWN" default:"900s"`
	RobMinEarn     int64         `envconfig:"ECONOMY_ROB_MIN_EARN" default:"50"`
	RobMaxEarn     int64         `envconfig:"ECONOMY_ROB_MAX_EARN" default:"250"`
	RobSuccessRate float64       `envconfig:"ECONOMY_ROB_SUCCESS_RATE" default:"0.3"`

	// Minimum cash a rob target must hold before an attempt is allowed.
	RobMinTargetCash int64 `envconfig:"ECONOMY_ROB_MIN_TARGET_CASH" default:"50"`

	// --- Guild settings cache ---
	SettingsCacheTTL time.Duration `envconfig:"SETTINGS_CACHE_TTL" default:"30s"`

	// --- Rate limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	AuditReconcileSpec string `envconfig:"AUDIT_RECONCILE_CRON" default:"0 * * * *"`
}

// DatabaseDSN builds the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Validate rejects configurations that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT must be > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	for name, rate := range map[string]float64{
		"ECONOMY_SLUT_SUCCESS_RATE":  c.SlutSuccessRate,
		"ECONOMY_CRIME_SUCCESS_RATE": c.CrimeSuccessRate,
		"ECONOMY_ROB_SUCCESS_RATE":   c.RobSuccessRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, rate)
		}
	}
	for name, rng := range map[string][2]int64{
		"ECONOMY_WORK":  {c.WorkMinEarn, c.WorkMaxEarn},
		"ECONOMY_SLUT":  {c.SlutMinEarn, c.SlutMaxEarn},
		"ECONOMY_CRIME": {c.CrimeMinEarn, c.CrimeMaxEarn},
		"ECONOMY_ROB":   {c.RobMinEarn, c.RobMaxEarn},
	} {
		if rng[0] < 0 || rng[0] > rng[1] {
			return fmt.Errorf("%s_MIN_EARN/%s_MAX_EARN must satisfy 0 <= min <= max", name, name)
		}
	}
	return nil
}

// Load reads the environment and fills the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
