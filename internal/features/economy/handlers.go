package economy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/common"
)

const (
	colorSuccess = 0x2ecc71
	colorFailure = 0xe74c3c
	colorInfo    = 0x3498db

	leaderboardPageSize = 10
	historyPageSize     = 10
)

// Handler renders economy operations as Discord slash-command responses.
// All balance math stays in the service; this layer only parses options and
// formats embeds.
type Handler struct {
	service  *Service
	settings settingsReader
}

type settingsReader interface {
	CurrencySymbol(ctx context.Context, guildID int64) string
}

func NewHandler(service *Service, settings settingsReader) *Handler {
	return &Handler{service: service, settings: settings}
}

// HandleBalance shows the caller's balance, or another user's when the
// optional option is set.
func (h *Handler) HandleBalance(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	target := userID
	label := "Your balance"
	if opt, ok := option(i, "user"); ok {
		id, err := parseSnowflake(opt.UserValue(nil).ID)
		if err != nil {
			respondError(s, i, "That user could not be resolved.")
			return
		}
		target = id
		label = fmt.Sprintf("Balance of <@%d>", target)
	}

	rec, err := h.service.GetBalance(ctx, guildID, target)
	if err != nil {
		h.fail(s, i, err)
		return
	}
	rank, err := h.service.Rank(ctx, guildID, target)
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: label,
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Cash", Value: common.FormatAmount(rec.Cash, sym), Inline: true},
			{Name: "Bank", Value: common.FormatAmount(rec.Bank, sym), Inline: true},
			{Name: "Total", Value: common.FormatAmount(rec.Total(), sym), Inline: true},
			{Name: "Rank", Value: fmt.Sprintf("#%d", rank), Inline: true},
		},
	})
}

// HandleAction runs one of the gated earning actions.
func (h *Handler) HandleAction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64, kind ActionKind) {
	res, err := h.service.Do(ctx, ActionRequest{GuildID: guildID, ActorUserID: userID, Kind: kind})
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	if res.Outcome == OutcomeSuccess {
		respondEmbed(s, i, &discordgo.MessageEmbed{
			Description: successLine(kind, res.Amount, sym),
			Color:       colorSuccess,
			Footer:      balanceFooter(res.Balance, sym),
		})
		return
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Description: failureLine(kind, res.Amount, sym),
		Color:       colorFailure,
		Footer:      balanceFooter(res.Balance, sym),
	})
}

// HandleRob attempts to rob the target user's cash.
func (h *Handler) HandleRob(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	opt, ok := option(i, "target")
	if !ok {
		respondError(s, i, "You have to pick a target.")
		return
	}
	targetID, err := parseSnowflake(opt.UserValue(nil).ID)
	if err != nil {
		respondError(s, i, "That user could not be resolved.")
		return
	}

	res, err := h.service.Do(ctx, ActionRequest{
		GuildID: guildID, ActorUserID: userID, Kind: ActionRob, TargetUserID: targetID,
	})
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	if res.Outcome == OutcomeSuccess {
		respondEmbed(s, i, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("You robbed <@%d> and got away with %s!", targetID, common.FormatAmount(res.Amount, sym)),
			Color:       colorSuccess,
			Footer:      balanceFooter(res.Balance, sym),
		})
		return
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("You got caught robbing <@%d> and paid %s.", targetID, common.FormatAmount(res.Amount, sym)),
		Color:       colorFailure,
		Footer:      balanceFooter(res.Balance, sym),
	})
}

// HandleGive transfers cash to another user.
func (h *Handler) HandleGive(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	userOpt, ok := option(i, "user")
	if !ok {
		respondError(s, i, "You have to pick a recipient.")
		return
	}
	toID, err := parseSnowflake(userOpt.UserValue(nil).ID)
	if err != nil {
		respondError(s, i, "That user could not be resolved.")
		return
	}
	amountOpt, ok := option(i, "amount")
	if !ok {
		respondError(s, i, "You have to name an amount.")
		return
	}

	res, err := h.service.Do(ctx, ActionRequest{
		GuildID: guildID, ActorUserID: userID, Kind: ActionGive,
		TargetUserID: toID, Amount: amountOpt.IntValue(),
	})
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("You gave %s to <@%d>.", common.FormatAmount(res.Amount, sym), toID),
		Color:       colorSuccess,
		Footer:      balanceFooter(res.Balance, sym),
	})
}

// HandleDeposit moves cash into the bank; "all" deposits everything.
func (h *Handler) HandleDeposit(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	h.handlePoolMove(ctx, s, i, guildID, userID, ActionDeposit)
}

// HandleWithdraw moves bank funds back to cash; "all" withdraws everything.
func (h *Handler) HandleWithdraw(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	h.handlePoolMove(ctx, s, i, guildID, userID, ActionWithdraw)
}

func (h *Handler) handlePoolMove(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64, kind ActionKind) {
	opt, ok := option(i, "amount")
	if !ok {
		respondError(s, i, "You have to name an amount or `all`.")
		return
	}
	amount, all, err := parseAmount(opt.StringValue())
	if err != nil {
		respondError(s, i, "Amount must be a positive number or `all`.")
		return
	}

	res, err := h.service.Do(ctx, ActionRequest{
		GuildID: guildID, ActorUserID: userID, Kind: kind, Amount: amount, All: all,
	})
	if err != nil {
		h.fail(s, i, err)
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	verb := "Deposited"
	if kind == ActionWithdraw {
		verb = "Withdrew"
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("%s %s.", verb, common.FormatAmount(res.Amount, sym)),
		Color:       colorSuccess,
		Footer:      balanceFooter(res.Balance, sym),
	})
}

// HandleLeaderboard shows a page of the guild leaderboard.
func (h *Handler) HandleLeaderboard(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	page := 1
	if opt, ok := option(i, "page"); ok {
		if p := int(opt.IntValue()); p > 0 {
			page = p
		}
	}
	entries, err := h.service.Leaderboard(ctx, guildID, leaderboardPageSize, (page-1)*leaderboardPageSize)
	if err != nil {
		h.fail(s, i, err)
		return
	}
	if len(entries) == 0 {
		respondError(s, i, "Nothing on this page.")
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "**#%d** <@%d> — %s\n", e.Rank, e.UserID, common.FormatAmount(e.Total, sym))
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Leaderboard — page %d", page),
		Description: b.String(),
		Color:       colorInfo,
	})
}

// HandleHistory lists the caller's recent transactions, or another user's.
func (h *Handler) HandleHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, guildID, userID int64) {
	target := userID
	if opt, ok := option(i, "user"); ok {
		id, err := parseSnowflake(opt.UserValue(nil).ID)
		if err != nil {
			respondError(s, i, "That user could not be resolved.")
			return
		}
		target = id
	}
	txs, err := h.service.History(ctx, guildID, TxFilter{UserID: &target, Limit: historyPageSize})
	if err != nil {
		h.fail(s, i, err)
		return
	}
	if len(txs) == 0 {
		respondError(s, i, "No transactions yet.")
		return
	}
	sym := h.settings.CurrencySymbol(ctx, guildID)
	var b strings.Builder
	for _, t := range txs {
		fmt.Fprintf(&b, "`%s` %s %s (%s)\n",
			t.CreatedAt.Format("2006-01-02 15:04"),
			t.Kind, common.FormatAmount(t.Amount, sym), t.Outcome)
	}
	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Recent transactions of <@%d>", target),
		Description: b.String(),
		Color:       colorInfo,
	})
}

// fail translates service errors into user-facing messages; anything
// unexpected is logged and answered generically.
func (h *Handler) fail(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	var cdErr *common.CooldownError
	switch {
	case errors.As(err, &cdErr):
		respondError(s, i, fmt.Sprintf("Slow down, try again in %s.", common.FormatDuration(cdErr.Remaining)))
	case errors.Is(err, common.ErrInsufficientFunds):
		respondError(s, i, "You do not have enough money for that.")
	case errors.Is(err, common.ErrSelfTransfer):
		respondError(s, i, "You cannot target yourself.")
	case errors.Is(err, common.ErrInvalidAmount):
		respondError(s, i, "Amount must be a positive number.")
	case errors.Is(err, common.ErrTargetIneligible):
		respondError(s, i, "That user is too poor to be worth robbing.")
	default:
		logrus.WithError(err).Error("Economy command failed")
		respondError(s, i, "Something went wrong, try again later.")
	}
}

func successLine(kind ActionKind, amount int64, sym string) string {
	switch kind {
	case ActionWork:
		return fmt.Sprintf("You worked and earned %s.", common.FormatAmount(amount, sym))
	case ActionSlut:
		return fmt.Sprintf("It paid off, you earned %s.", common.FormatAmount(amount, sym))
	case ActionCrime:
		return fmt.Sprintf("The crime paid off, you earned %s.", common.FormatAmount(amount, sym))
	}
	return fmt.Sprintf("You earned %s.", common.FormatAmount(amount, sym))
}

func failureLine(kind ActionKind, penalty int64, sym string) string {
	switch kind {
	case ActionSlut:
		return fmt.Sprintf("You were caught and fined %s.", common.FormatAmount(penalty, sym))
	case ActionCrime:
		return fmt.Sprintf("You were arrested and fined %s.", common.FormatAmount(penalty, sym))
	}
	return fmt.Sprintf("You failed and lost %s.", common.FormatAmount(penalty, sym))
}

func balanceFooter(rec *BalanceRecord, sym string) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Cash %s | Bank %s",
			common.FormatAmount(rec.Cash, sym), common.FormatAmount(rec.Bank, sym)),
	}
}

// parseAmount accepts a positive integer or the literal "all".
func parseAmount(value string) (amount int64, all bool, err error) {
	if strings.EqualFold(strings.TrimSpace(value), "all") {
		return 0, true, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return 0, false, common.ErrInvalidAmount
	}
	return n, false, nil
}

// parseSnowflake converts a Discord snowflake id to int64.
func parseSnowflake(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

func option(i *discordgo.InteractionCreate, name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to respond to interaction")
	}
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
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
