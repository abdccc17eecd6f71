// Package app assembles the application: database pool, migrations,
// repositories, services, handlers, the Discord gateway and the background
// jobs.
package app

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Company-Discord/economy-bot/internal/bot"
	"github.com/Company-Discord/economy-bot/internal/config"
	"github.com/Company-Discord/economy-bot/internal/db/postgres"
	"github.com/Company-Discord/economy-bot/internal/features/admin"
	"github.com/Company-Discord/economy-bot/internal/features/economy"
	"github.com/Company-Discord/economy-bot/internal/features/settings"
	"github.com/Company-Discord/economy-bot/internal/jobs"
)

type App struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	bot       *bot.Bot
	scheduler *jobs.Scheduler
}

// New builds the fully wired application but does not connect to Discord
// yet; Start does that.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DatabaseDSN(),
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	settingsRepo := settings.NewRepository(pool)
	settingsSvc := settings.NewService(settingsRepo, settings.Defaults(cfg), cfg.SettingsCacheTTL)

	economyRepo := economy.NewRepository(pool)
	economySvc := economy.NewService(economyRepo, settingsSvc, cfg.RobMinTargetCash, nil)
	economyHandler := economy.NewHandler(economySvc, settingsSvc)

	adminSvc := admin.NewService(economySvc, settingsSvc)
	adminHandler := admin.NewHandler(adminSvc, settingsSvc)

	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("discord session: %w", err)
	}

	return &App{
		cfg:       cfg,
		pool:      pool,
		bot:       bot.New(session, cfg, economyHandler, adminHandler),
		scheduler: jobs.NewScheduler(economyRepo),
	}, nil
}

// Start connects to the gateway and launches the background jobs.
func (a *App) Start() error {
	if err := a.bot.Start(); err != nil {
		return err
	}
	if err := a.scheduler.Start(a.cfg.AuditReconcileSpec); err != nil {
		a.bot.Stop()
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// Stop shuts everything down in reverse order of Start.
func (a *App) Stop() {
	a.scheduler.Stop()
	a.bot.Stop()
	a.pool.Close()
}
