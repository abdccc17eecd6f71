package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/common"
)

// Handler routes the /eco-admin subcommands. The caller's Administrator
// permission is resolved by the dispatch layer and passed down; the service
// re-checks it on every operation.
type Handler struct {
	service  *Service
	settings currencyReader
}

type currencyReader interface {
	CurrencySymbol(ctx context.Context, guildID int64) string
}

func NewHandler(service *Service, settings currencyReader) *Handler {
	return &Handler{service: service, settings: settings}
}

// Handle dispatches one /eco-admin invocation by subcommand name.
func (h *Handler) Handle(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, adminID int64, isAdmin bool) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		reply(s, i, "Missing subcommand.")
		return
	}
	sub := data.Options[0]
	switch sub.Name {
	case "add-money":
		h.handleAdjust(ctx, s, i, sub, guildID, adminID, isAdmin, true)
	case "remove-money":
		h.handleAdjust(ctx, s, i, sub, guildID, adminID, isAdmin, false)
	case "reset":
		h.handleReset(ctx, s, i, sub, guildID, adminID, isAdmin)
	case "stats":
		h.handleStats(ctx, s, i, guildID, isAdmin)
	case "set":
		h.handleSet(ctx, s, i, sub, guildID, adminID, isAdmin)
	default:
		reply(s, i, "Unknown subcommand.")
	}
}

func (h *Handler) handleAdjust(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption, guildID, adminID int64, isAdmin, add bool) {
	userID, ok := userOption(sub, "user")
	if !ok {
		reply(s, i, "That user could not be resolved.")
		return
	}
	amount := intOption(sub, "amount")
	bank := stringOption(sub, "pool") == "bank"

	var err error
	if add {
		_, err = h.service.AddMoney(ctx, guildID, adminID, userID, amount, bank, isAdmin)
	} else {
		_, err = h.service.RemoveMoney(ctx, guildID, adminID, userID, amount, bank, isAdmin)
	}
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	verb := "Added"
	if !add {
		verb = "Removed"
	}
	pool := "cash"
	if bank {
		pool = "bank"
	}
	reply(s, i, fmt.Sprintf("%s %s (%s) for <@%d>.", verb, common.FormatAmount(amount, sym), pool, userID))
}

func (h *Handler) handleReset(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption, guildID, adminID int64, isAdmin bool) {
	userID, ok := userOption(sub, "user")
	if !ok {
		reply(s, i, "That user could not be resolved.")
		return
	}
	removed, err := h.service.Reset(ctx, guildID, adminID, userID, isAdmin)
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	reply(s, i, fmt.Sprintf("Reset <@%d>, removed %s.", userID, common.FormatAmount(removed, sym)))
}

func (h *Handler) handleStats(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID int64, isAdmin bool) {
	stats, err := h.service.Stats(ctx, guildID, isAdmin)
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	reply(s, i, fmt.Sprintf("Users: %s | Money supply: %s | Transactions: %s",
		common.FormatNumber(stats.Users),
		common.FormatAmount(stats.TotalMoney, sym),
		common.FormatNumber(stats.Transactions)))
}

func (h *Handler) handleSet(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption, guildID, adminID int64, isAdmin bool) {
	field := stringOption(sub, "field")
	value := stringOption(sub, "value")
	if field == "" || value == "" {
		reply(s, i, "Both field and value are required.")
		return
	}
	_, err := h.service.SetSetting(ctx, guildID, adminID, field, value, isAdmin)
	if err != nil {
		h.fail(s, i, err)
		return
	}
	reply(s, i, fmt.Sprintf("Setting `%s` is now `%s`.", field, value))
}

func (h *Handler) fail(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	switch {
	case errors.Is(err, common.ErrNotAdmin):
		reply(s, i, "You need the Administrator permission for that.")
	case errors.Is(err, common.ErrInvalidAmount):
		reply(s, i, "Amount must be a positive number.")
	case errors.Is(err, common.ErrInsufficientFunds):
		reply(s, i, "The user does not hold that much in that pool.")
	case errors.Is(err, common.ErrUnknownSetting):
		reply(s, i, "No such setting.")
	case errors.Is(err, common.ErrSettingOutOfRange):
		reply(s, i, fmt.Sprintf("Rejected: %v", err))
	default:
		logrus.WithError(err).Error("Admin command failed")
		reply(s, i, "Something went wrong, try again later.")
	}
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
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

func userOption(sub *discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool) {
	for _, opt := range sub.Options {
		if opt.Name == name {
			id, err := strconv.ParseInt(opt.UserValue(nil).ID, 10, 64)
			if err != nil {
				return 0, false
			}
			return id, true
		}
	}
	return 0, false
}

func intOption(sub *discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	for _, opt := range sub.Options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}

func stringOption(sub *discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range sub.Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}
