package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists guild settings. Cooldowns are stored as whole seconds.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure creates the guild's settings row from the given values if it does
// not exist yet. An existing row is left untouched.
func (r *Repository) Ensure(ctx context.Context, s Settings) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO guild_settings (
			guild_id, currency_symbol,
			work_cooldown_seconds, work_min_earn, work_max_earn,
			slut_cooldown_seconds, slut_min_earn, slut_max_earn, slut_success_rate,
			crime_cooldown_seconds, crime_min_earn, crime_max_earn, crime_success_rate,
			rob_cooldown_seconds, rob_min_earn, rob_max_earn, rob_success_rate
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (guild_id) DO NOTHING`,
		s.GuildID, s.CurrencySymbol,
		int64(s.Work.Cooldown.Seconds()), s.Work.MinEarn, s.Work.MaxEarn,
		int64(s.Slut.Cooldown.Seconds()), s.Slut.MinEarn, s.Slut.MaxEarn, s.Slut.SuccessRate,
		int64(s.Crime.Cooldown.Seconds()), s.Crime.MinEarn, s.Crime.MaxEarn, s.Crime.SuccessRate,
		int64(s.Rob.Cooldown.Seconds()), s.Rob.MinEarn, s.Rob.MaxEarn, s.Rob.SuccessRate,
	)
	if err != nil {
		return fmt.Errorf("ensure guild settings: %w", err)
	}
	return nil
}

const settingsColumns = `currency_symbol,
		work_cooldown_seconds, work_min_earn, work_max_earn,
		slut_cooldown_seconds, slut_min_earn, slut_max_earn, slut_success_rate,
		crime_cooldown_seconds, crime_min_earn, crime_max_earn, crime_success_rate,
		rob_cooldown_seconds, rob_min_earn, rob_max_earn, rob_success_rate,
		updated_at`

func scanSettings(row interface{ Scan(dest ...any) error }, s *Settings) error {
	var workSec, slutSec, crimeSec, robSec int64
	err := row.Scan(
		&s.CurrencySymbol,
		&workSec, &s.Work.MinEarn, &s.Work.MaxEarn,
		&slutSec, &s.Slut.MinEarn, &s.Slut.MaxEarn, &s.Slut.SuccessRate,
		&crimeSec, &s.Crime.MinEarn, &s.Crime.MaxEarn, &s.Crime.SuccessRate,
		&robSec, &s.Rob.MinEarn, &s.Rob.MaxEarn, &s.Rob.SuccessRate,
		&s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	s.Work.Cooldown = time.Duration(workSec) * time.Second
	s.Work.SuccessRate = 1.0
	s.Slut.Cooldown = time.Duration(slutSec) * time.Second
	s.Crime.Cooldown = time.Duration(crimeSec) * time.Second
	s.Rob.Cooldown = time.Duration(robSec) * time.Second
	return nil
}

// Get reads the guild's settings row. The row must exist; call Ensure first.
func (r *Repository) Get(ctx context.Context, guildID int64) (*Settings, error) {
	s := &Settings{GuildID: guildID}
	row := r.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM guild_settings WHERE guild_id = $1`, guildID)
	if err := scanSettings(row, s); err != nil {
		return nil, fmt.Errorf("get guild settings: %w", err)
	}
	return s, nil
}

// Update locks the guild's row, lets apply modify the struct, and writes the
// whole row back. apply returning an error aborts with no change.
func (r *Repository) Update(ctx context.Context, guildID int64, apply func(*Settings) error) (*Settings, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	s := &Settings{GuildID: guildID}
	row := tx.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM guild_settings WHERE guild_id = $1 FOR UPDATE`, guildID)
	if err := scanSettings(row, s); err != nil {
		return nil, fmt.Errorf("lock guild settings: %w", err)
	}
	if err := apply(s); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE guild_settings SET
			currency_symbol = $2,
			work_cooldown_seconds = $3, work_min_earn = $4, work_max_earn = $5,
			slut_cooldown_seconds = $6, slut_min_earn = $7, slut_max_earn = $8, slut_success_rate = $9,
			crime_cooldown_seconds = $10, crime_min_earn = $11, crime_max_earn = $12, crime_success_rate = $13,
			rob_cooldown_seconds = $14, rob_min_earn = $15, rob_max_earn = $16, rob_success_rate = $17,
			updated_at = NOW()
		 WHERE guild_id = $1`,
		guildID, s.CurrencySymbol,
		int64(s.Work.Cooldown.Seconds()), s.Work.MinEarn, s.Work.MaxEarn,
		int64(s.Slut.Cooldown.Seconds()), s.Slut.MinEarn, s.Slut.MaxEarn, s.Slut.SuccessRate,
		int64(s.Crime.Cooldown.Seconds()), s.Crime.MinEarn, s.Crime.MaxEarn, s.Crime.SuccessRate,
		int64(s.Rob.Cooldown.Seconds()), s.Rob.MinEarn, s.Rob.MaxEarn, s.Rob.SuccessRate,
	)
	if err != nil {
		return nil, fmt.Errorf("update guild settings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}
