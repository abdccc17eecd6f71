// Package bot connects the Discord gateway to the feature handlers: it
// registers the slash commands, routes interactions, and applies the
// cross-cutting middleware (logging, panic recovery, rate limiting, an
// inflight cap).
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/bot/middleware"
	"github.com/Company-Discord/economy-bot/internal/config"
	"github.com/Company-Discord/economy-bot/internal/features/admin"
	"github.com/Company-Discord/economy-bot/internal/features/economy"
)

// handlerTimeout bounds one interaction end to end. Discord wants the first
// response within a few seconds anyway.
const handlerTimeout = 10 * time.Second

type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	economy *economy.Handler
	admin   *admin.Handler

	limiter  *middleware.RateLimiter
	inflight chan struct{}

	registered []*discordgo.ApplicationCommand
}

func New(session *discordgo.Session, cfg *config.Config, economyHandler *economy.Handler, adminHandler *admin.Handler) *Bot {
	return &Bot{
		session:  session,
		cfg:      cfg,
		economy:  economyHandler,
		admin:    adminHandler,
		limiter:  middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		inflight: make(chan struct{}, cfg.BotMaxInflight),
	}
}

// Start opens the gateway connection and registers the slash commands. With
// DISCORD_GUILD_ID set the commands are registered for that guild only,
// which propagates instantly; global registration can take up to an hour.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}
	return nil
}

// Stop unregisters the commands and closes the gateway connection.
func (b *Bot) Stop() {
	for _, cmd := range b.registered {
		err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.cfg.DiscordGuildID, cmd.ID)
		if err != nil {
			logrus.WithError(err).WithField("command", cmd.Name).Warn("Failed to unregister command")
		}
	}
	b.limiter.Close()
	if err := b.session.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close gateway session")
	}
}

func (b *Bot) registerCommands() error {
	for _, def := range commandDefinitions() {
		cmd, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.cfg.DiscordGuildID, def)
		if err != nil {
			return fmt.Errorf("register command %q: %w", def.Name, err)
		}
		b.registered = append(b.registered, cmd)
	}
	logrus.WithField("count", len(b.registered)).Info("Slash commands registered")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logrus.WithFields(logrus.Fields{
		"username": r.User.Username,
		"guilds":   len(r.Guilds),
	}).Info("Bot connected")
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	select {
	case b.inflight <- struct{}{}:
	default:
		respondBusy(s, i)
		return
	}
	go func() {
		defer func() { <-b.inflight }()
		defer middleware.Recover(i.ApplicationCommandData().Name)
		b.handle(s, i)
	}()
}

func (b *Bot) handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	middleware.LogInteraction(i)

	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		respondPlain(s, i, "This bot only works inside a server.")
		return
	}
	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		logrus.WithField("guild_id", i.GuildID).Error("Unparseable guild id")
		return
	}
	userID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		logrus.WithField("user_id", i.Member.User.ID).Error("Unparseable user id")
		return
	}

	if !b.limiter.Allow(userID) {
		respondPlain(s, i, "You are sending commands too fast, take a breath.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	isAdmin := i.Member.Permissions&discordgo.PermissionAdministrator != 0

	switch i.ApplicationCommandData().Name {
	case "balance":
		b.economy.HandleBalance(ctx, s, i, guildID, userID)
	case "work":
		b.economy.HandleAction(ctx, s, i, guildID, userID, economy.ActionWork)
	case "slut":
		b.economy.HandleAction(ctx, s, i, guildID, userID, economy.ActionSlut)
	case "crime":
		b.economy.HandleAction(ctx, s, i, guildID, userID, economy.ActionCrime)
	case "rob":
		b.economy.HandleRob(ctx, s, i, guildID, userID)
	case "give":
		b.economy.HandleGive(ctx, s, i, guildID, userID)
	case "deposit":
		b.economy.HandleDeposit(ctx, s, i, guildID, userID)
	case "withdraw":
		b.economy.HandleWithdraw(ctx, s, i, guildID, userID)
	case "leaderboard":
		b.economy.HandleLeaderboard(ctx, s, i, guildID, userID)
	case "history":
		b.economy.HandleHistory(ctx, s, i, guildID, userID)
	case "eco-admin":
		b.admin.Handle(ctx, s, i, guildID, userID, isAdmin)
	default:
		respondPlain(s, i, "Unknown command.")
	}
}

func respondBusy(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respondPlain(s, i, "The bot is overloaded right now, try again in a moment.")
}

func respondPlain(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to respond to interaction")
	}
}
